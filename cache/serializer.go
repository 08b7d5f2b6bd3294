package cache

import (
	"encoding/json"
	"errors"
)

// JSONSerializer 条目在本地层与共享层之间统一用 JSON 文本表示，
// 压缩由 Codec 负责
type JSONSerializer struct{}

func NewJSONSerializer() JSONSerializer { return JSONSerializer{} }

func (JSONSerializer) Name() string { return "json" }

func (JSONSerializer) Serialize(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, ErrSerialize.Wrap(err)
	}
	return data, nil
}

// Deserialize 空输入视为损坏条目
func (JSONSerializer) Deserialize(data []byte, v any) error {
	if len(data) == 0 {
		return ErrDeserialize.Wrap(errors.New("empty payload"))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return ErrDeserialize.Wrap(err)
	}
	return nil
}
