package article

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/KOMKZ/go-yogan-articlecache/kafka"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// DefaultRegion region used when a published article names none and no default is configured
const DefaultRegion = "global"

// Creator persists a new article and populates the cache
type Creator interface {
	Create(ctx context.Context, region string, a *Article) (*Article, error)
}

// IngestHandler persists articles published on the message bus
type IngestHandler struct {
	creator       Creator
	regions       Regions
	defaultRegion string
	propagator    propagation.TextMapPropagator
	logger        *logger.CtxZapLogger
}

var _ kafka.ConsumerHandler = (*IngestHandler)(nil)

// NewIngestHandler creates the handler; an empty defaultRegion means DefaultRegion
// The default region must be one of regions, otherwise messages without a region could never be stored
func NewIngestHandler(creator Creator, regions Regions, defaultRegion string, log *logger.CtxZapLogger) (*IngestHandler, error) {
	if defaultRegion == "" {
		defaultRegion = DefaultRegion
	}
	fallback, err := regions.Resolve(defaultRegion)
	if err != nil {
		return nil, fmt.Errorf("ingest default region: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &IngestHandler{
		creator:       creator,
		regions:       regions,
		defaultRegion: fallback,
		propagator:    propagation.TraceContext{},
		logger:        log,
	}, nil
}

// Name consumer name
func (h *IngestHandler) Name() string {
	return "article-ingest"
}

// Handle decodes a Draft and creates it in its region.
// The W3C traceparent header, when present, becomes the trace of every log line.
func (h *IngestHandler) Handle(ctx context.Context, msg *kafka.ConsumedMessage) error {
	ctx = h.propagator.Extract(ctx, propagation.MapCarrier(msg.Headers))

	var draft Draft
	if err := json.Unmarshal(msg.Value, &draft); err != nil {
		h.logger.WarnCtx(ctx, "undecodable article message",
			zap.Int64("offset", msg.Offset), zap.Error(err))
		return ErrInvalidMessage.Wrap(err)
	}
	if err := draft.Validate(); err != nil {
		h.logger.WarnCtx(ctx, "invalid article message",
			zap.Int64("offset", msg.Offset), zap.Error(err))
		return ErrInvalidMessage.Wrap(err)
	}

	region := h.defaultRegion
	if draft.Region != "" {
		var err error
		if region, err = h.regions.Resolve(draft.Region); err != nil {
			h.logger.ErrorCtx(ctx, "article message names an unconfigured region",
				zap.Int64("offset", msg.Offset),
				zap.String("region", draft.Region),
				zap.String("title", draft.Title))
			return err
		}
	}

	created, err := h.creator.Create(ctx, region, draft.ToArticle(region))
	if err != nil {
		return err
	}

	h.logger.InfoCtx(ctx, "article persisted from message",
		zap.String("region", region),
		zap.Int64("id", created.ID),
		zap.String("title", created.Title))
	return nil
}
