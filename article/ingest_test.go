package article

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/cache"
	"github.com/KOMKZ/go-yogan-articlecache/kafka"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingCreator struct {
	regions []string
	err     error
}

func (c *recordingCreator) Create(_ context.Context, region string, a *Article) (*Article, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.regions = append(c.regions, region)
	created := *a
	created.ID = int64(len(c.regions))
	return &created, nil
}

func message(value string, headers map[string]string) *kafka.ConsumedMessage {
	return &kafka.ConsumedMessage{Topic: kafka.DefaultArticleTopic, Value: []byte(value), Headers: headers}
}

func newIngestHandler(t *testing.T, creator Creator, defaultRegion string, log *logger.CtxZapLogger) *IngestHandler {
	t.Helper()
	regions, err := NewRegions([]string{"europe", "asia", "global"})
	require.NoError(t, err)
	h, err := NewIngestHandler(creator, regions, defaultRegion, log)
	require.NoError(t, err)
	return h
}

func TestIngestHandler_DefaultsRegion(t *testing.T) {
	creator := &recordingCreator{}
	h := newIngestHandler(t, creator, "", nil)
	assert.Equal(t, "article-ingest", h.Name())

	require.NoError(t, h.Handle(context.Background(), message(`{"title":"A","region":"Asia"}`, nil)))
	require.NoError(t, h.Handle(context.Background(), message(`{"title":"B"}`, nil)))

	assert.Equal(t, []string{"asia", DefaultRegion}, creator.regions)
}

func TestIngestHandler_UnknownRegion(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	creator := &recordingCreator{}
	h := newIngestHandler(t, creator, "Europe", logger.Wrap(zap.New(core)))

	err := h.Handle(context.Background(), message(`{"title":"A","region":"Mars"}`, nil))
	assert.ErrorIs(t, err, ErrUnknownRegion)
	assert.Empty(t, creator.regions)
	assert.Equal(t, 1, logs.FilterMessage("article message names an unconfigured region").Len())
}

func TestNewIngestHandler_DefaultRegionMustExist(t *testing.T) {
	regions, err := NewRegions([]string{"europe"})
	require.NoError(t, err)

	_, err = NewIngestHandler(&recordingCreator{}, regions, "", nil)
	assert.ErrorIs(t, err, ErrUnknownRegion)

	h, err := NewIngestHandler(&recordingCreator{}, regions, "Europe", nil)
	require.NoError(t, err)
	assert.Equal(t, "europe", h.defaultRegion)
}

func TestIngestHandler_RejectsBadMessages(t *testing.T) {
	creator := &recordingCreator{}
	h := newIngestHandler(t, creator, "Europe", nil)

	err := h.Handle(context.Background(), message(`{not json`, nil))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	err = h.Handle(context.Background(), message(`{"content":"no title"}`, nil))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	assert.Empty(t, creator.regions)
}

func TestIngestHandler_PropagatesCreateError(t *testing.T) {
	boom := errors.New("db down")
	h := newIngestHandler(t, &recordingCreator{err: boom}, "Europe", nil)

	assert.ErrorIs(t, h.Handle(context.Background(), message(`{"title":"A"}`, nil)), boom)
}

func TestIngestHandler_TraceparentReachesLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := newIngestHandler(t, &recordingCreator{}, "Europe", logger.Wrap(zap.New(core)))

	headers := map[string]string{
		"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	require.NoError(t, h.Handle(context.Background(), message(`{"title":"A"}`, headers)))

	entries := logs.FilterMessage("article persisted from message").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entries[0].ContextMap()["trace_id"])
	assert.Equal(t, "europe", entries[0].ContextMap()["region"])
}

func TestIngestHandler_WithCoordinator(t *testing.T) {
	repo := newTestRepository(t, "Europe")
	coord, err := cache.NewCoordinator[*Article, Patch](Kind, repo)
	require.NoError(t, err)

	h, err := NewIngestHandler(coord, repo.Regions(), "europe", nil)
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), message(`{"title":"Ingested","author":"bob"}`, nil)))

	recent, err := repo.FindRecent(context.Background(), "Europe", time.Time{})
	require.NoError(t, err)
	require.Len(t, recent, 1)

	got, ok, err := coord.Get(context.Background(), "Europe", recent[0].ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bob", got.Author)
}
