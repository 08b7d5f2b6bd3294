package cache

import "strconv"

// BuildKey returns {kind}:{partition}:{id}
// The partition segment keeps equal ids in different regions apart
func BuildKey(kind, partition string, id int64) string {
	return kind + ":" + partition + ":" + strconv.FormatInt(id, 10)
}
