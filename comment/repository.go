package comment

import (
	"context"

	"github.com/KOMKZ/go-yogan-articlecache/article"
	"github.com/KOMKZ/go-yogan-articlecache/database"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"go.uber.org/zap"
)

// Repository comment store; comments live in the database of their article's region
type Repository struct {
	dbs     *database.Manager
	regions article.Regions
	logger  *logger.CtxZapLogger
}

// NewRepository creates the repository over the same region databases as articles
func NewRepository(dbs *database.Manager, regions article.Regions, log *logger.CtxZapLogger) *Repository {
	if log == nil {
		log = logger.Nop()
	}
	return &Repository{dbs: dbs, regions: regions, logger: log}
}

func (r *Repository) repo(region string) (*database.BaseRepository[Comment], error) {
	name, err := r.regions.Resolve(region)
	if err != nil {
		return nil, err
	}
	return database.NewBaseRepository[Comment](r.dbs.DB(name)), nil
}

// ListByArticle comments of one article, oldest first
func (r *Repository) ListByArticle(ctx context.Context, region string, articleID int64) ([]*Comment, error) {
	repo, err := r.repo(region)
	if err != nil {
		return nil, err
	}
	rows := make([]*Comment, 0)
	err = repo.DB().WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("created ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.ErrQuery.WithMsgf("list comments of article %d failed", articleID).Wrap(err)
	}
	return rows, nil
}

// FindByID point lookup
func (r *Repository) FindByID(ctx context.Context, region string, id int64) (*Comment, bool, error) {
	repo, err := r.repo(region)
	if err != nil {
		return nil, false, err
	}
	return repo.FindByID(ctx, id)
}

// Insert persists c and returns it with ID and timestamp assigned
func (r *Repository) Insert(ctx context.Context, region string, c *Comment) (*Comment, error) {
	repo, err := r.repo(region)
	if err != nil {
		return nil, err
	}
	created := *c
	created.ID = 0
	created.Region, _ = r.regions.Resolve(region)
	if err := repo.Create(ctx, &created); err != nil {
		return nil, err
	}
	r.logger.DebugCtx(ctx, "comment persisted", zap.String("region", created.Region),
		zap.Int64("article_id", created.ArticleID), zap.Int64("id", created.ID))
	return &created, nil
}
