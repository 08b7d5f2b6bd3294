package comment

import (
	"context"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/article"
	"github.com/KOMKZ/go-yogan-articlecache/cache"
	"github.com/KOMKZ/go-yogan-articlecache/metrics"
	"github.com/KOMKZ/go-yogan-articlecache/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	mr      *miniredis.Miniredis
	client  *redis.Client
	repo    *Repository
	hitMiss *metrics.RedisHitMiss
	service *Service
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	dbs := testutil.NewDatabases(t, []any{&Comment{}}, "europe", "asia")
	regions, err := article.NewRegions(dbs.Names())
	require.NoError(t, err)
	repo := NewRepository(dbs, regions, nil)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	hm, err := metrics.NewRedisHitMiss(client, "cachemetrics")
	require.NoError(t, err)

	cfg.ApplyDefaults()
	service, err := NewService(repo, cfg,
		WithRemote(cache.NewRedisStore(client, "")),
		WithRecent(NewRedisRecent(client, "", cfg.RecentLimit, nil, "")),
		WithMetrics(hm),
	)
	require.NoError(t, err)
	return &testEnv{mr: mr, client: client, repo: repo, hitMiss: hm, service: service}
}

func (e *testEnv) post(t *testing.T, region string, articleID int64, content string) *Comment {
	t.Helper()
	c, err := e.service.Post(context.Background(), region, articleID, Draft{Author: "ann", Content: content})
	require.NoError(t, err)
	return c
}

func TestService_ListReadsThroughSecondTier(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	first := env.post(t, "europe", 7, "first")
	env.post(t, "europe", 7, "second")
	env.post(t, "europe", 8, "other article")

	list, err := env.service.List(ctx, "europe", 7)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, "second", list[1].Content)

	key := Key("europe", 7)
	assert.Equal(t, "comments:europe:7", key)
	require.True(t, env.mr.Exists(key))
	assert.Equal(t, 12*time.Hour, env.mr.TTL(key))

	// 第二次读取由第二级缓存提供
	cached, err := env.service.List(ctx, "europe", 7)
	require.NoError(t, err)
	assert.Equal(t, list[0].ID, cached[0].ID)
	assert.Equal(t, list[1].ID, cached[1].ID)

	hits, misses, err := env.hitMiss.Counts(ctx, Domain)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	hits, misses, err = env.hitMiss.Counts(ctx, article.Kind)
	require.NoError(t, err)
	assert.Zero(t, hits+misses)
}

func TestService_EmptyListIsCached(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	list, err := env.service.List(ctx, "asia", 3)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	list, err = env.service.List(ctx, "asia", 3)
	require.NoError(t, err)
	assert.NotNil(t, list)

	hits, _, err := env.hitMiss.Counts(ctx, Domain)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits)
}

func TestService_PostPurgesCachedList(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	env.post(t, "europe", 7, "first")
	_, err := env.service.List(ctx, "europe", 7)
	require.NoError(t, err)
	require.True(t, env.mr.Exists(Key("europe", 7)))

	env.post(t, "europe", 7, "second")
	assert.False(t, env.mr.Exists(Key("europe", 7)))

	list, err := env.service.List(ctx, "europe", 7)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestService_RecentIsTrimmedNewestFirst(t *testing.T) {
	env := newTestEnv(t, Config{RecentLimit: 3})
	ctx := context.Background()

	var ids []int64
	for i := range 5 {
		c := env.post(t, "europe", int64(i+1), "c")
		ids = append(ids, c.ID)
	}
	env.post(t, "asia", 1, "elsewhere")

	members, err := env.mr.ZMembers("comments:recent:europe")
	require.NoError(t, err)
	assert.Len(t, members, 3)

	recent, err := env.service.Recent(ctx, "europe")
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []int64{ids[4], ids[3], ids[2]}, []int64{recent[0].ID, recent[1].ID, recent[2].ID})

	recent, err = env.service.Recent(ctx, "asia")
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestService_SecondTierDownFallsBackToStore(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	env.post(t, "europe", 7, "first")
	env.mr.Close()

	list, err := env.service.List(ctx, "europe", 7)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// 第二级缓存不可用时发表评论照常成功
	c, err := env.service.Post(ctx, "europe", 7, Draft{Content: "second"})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)

	recent, err := env.service.Recent(ctx, "europe")
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestService_IgnoresMismatchedPayload(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	env.post(t, "europe", 7, "real")
	require.NoError(t, env.mr.Set(Key("europe", 7), "not brotli"))

	list, err := env.service.List(ctx, "europe", 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "real", list[0].Content)

	// 其他文章的列表写在这个键下也不会被返回
	other := []*Comment{{ID: 99, ArticleID: 8, Content: "wrong"}}
	data, err := cache.NewJSONSerializer().Serialize(other)
	require.NoError(t, err)
	payload, err := env.service.codec.Compress(string(data))
	require.NoError(t, err)
	require.NoError(t, env.client.Set(ctx, Key("europe", 7), payload, time.Hour).Err())

	list, err = env.service.List(ctx, "europe", 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "real", list[0].Content)
}

func TestService_UnknownRegion(t *testing.T) {
	env := newTestEnv(t, Config{})

	_, err := env.service.List(context.Background(), "Mars", 1)
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.ErrorIs(t, err, article.ErrUnknownRegion)

	_, err = env.service.Post(context.Background(), "Mars", 1, Draft{Content: "x"})
	assert.ErrorIs(t, err, article.ErrUnknownRegion)
}

// blockingStore 在 release 关闭前阻塞 ListByArticle
type blockingStore struct {
	*Repository
	release chan struct{}
	loadErr chan error
}

func (s *blockingStore) ListByArticle(ctx context.Context, region string, articleID int64) ([]*Comment, error) {
	<-s.release
	if err := ctx.Err(); err != nil {
		s.loadErr <- err
		return nil, err
	}
	s.loadErr <- nil
	return s.Repository.ListByArticle(ctx, region, articleID)
}

func TestService_SharedLoadOutlivesFirstCaller(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.post(t, "europe", 7, "first")

	store := &blockingStore{Repository: env.repo, release: make(chan struct{}), loadErr: make(chan error, 1)}
	service, err := NewService(store, Config{}, WithRemote(cache.NewRedisStore(env.client, "")))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := service.List(ctx, "europe", 7)
		done <- err
	}()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// 调用方已返回，回源仍完成并写入第二级缓存
	close(store.release)
	require.NoError(t, <-store.loadErr)
	assert.Eventually(t, func() bool { return env.mr.Exists(Key("europe", 7)) }, time.Second, 5*time.Millisecond)
}

func TestNewService_InvalidConfig(t *testing.T) {
	_, err := NewService(nil, Config{ListTTL: time.Millisecond})
	assert.ErrorIs(t, err, cache.ErrConfigInvalid)
}

func TestDraft_Validate(t *testing.T) {
	assert.NoError(t, Draft{Content: "hi"}.Validate())
	assert.Error(t, Draft{}.Validate())
	assert.Error(t, Draft{Content: "hi", Author: string(make([]byte, maxAuthorLen+1))}.Validate())
}
