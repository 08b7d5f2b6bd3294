package article

import (
	"context"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/cache"
	"github.com/KOMKZ/go-yogan-articlecache/database"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var _ cache.Store[*Article, Patch] = (*Repository)(nil)

// Repository article store; the partition selects the region database
type Repository struct {
	dbs     *database.Manager
	regions Regions
	logger  *logger.CtxZapLogger
}

// NewRepository creates the repository; the database instance names are the regions
func NewRepository(dbs *database.Manager, log *logger.CtxZapLogger) (*Repository, error) {
	if log == nil {
		log = logger.Nop()
	}
	regions, err := NewRegions(dbs.Names())
	if err != nil {
		return nil, err
	}
	return &Repository{dbs: dbs, regions: regions, logger: log}, nil
}

// Regions configured region databases, sorted
func (r *Repository) Regions() Regions {
	return r.regions
}

// repo region is matched case-insensitively
func (r *Repository) repo(region string) (*database.BaseRepository[Article], error) {
	name, err := r.regions.Resolve(region)
	if err != nil {
		return nil, err
	}
	return database.NewBaseRepository[Article](r.dbs.DB(name)), nil
}

// FindByID point lookup
func (r *Repository) FindByID(ctx context.Context, region string, id int64) (*Article, bool, error) {
	repo, err := r.repo(region)
	if err != nil {
		return nil, false, err
	}
	return repo.FindByID(ctx, id)
}

// Insert persists a and returns it with ID and timestamps assigned
func (r *Repository) Insert(ctx context.Context, region string, a *Article) (*Article, error) {
	repo, err := r.repo(region)
	if err != nil {
		return nil, err
	}
	created := *a
	created.ID = 0
	created.Region, _ = r.regions.Resolve(region)
	if err := repo.Create(ctx, &created); err != nil {
		return nil, err
	}
	r.logger.DebugCtx(ctx, "article persisted",
		zap.String("region", region), zap.Int64("id", created.ID))
	return &created, nil
}

// ReplaceFields applies patch to the stored article in one transaction
func (r *Repository) ReplaceFields(ctx context.Context, region string, id int64, patch Patch) (*Article, bool, error) {
	repo, err := r.repo(region)
	if err != nil {
		return nil, false, err
	}

	var (
		updated *Article
		found   bool
	)
	err = repo.Transaction(ctx, func(tx *gorm.DB) error {
		txRepo := database.NewBaseRepository[Article](tx)
		current, ok, err := txRepo.FindByID(ctx, id)
		if err != nil || !ok {
			return err
		}
		patch.Apply(current)
		if err := txRepo.Save(ctx, current); err != nil {
			return err
		}
		updated, found = current, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return updated, found, nil
}

// Delete reports whether the article existed and was removed
func (r *Repository) Delete(ctx context.Context, region string, id int64) (bool, error) {
	repo, err := r.repo(region)
	if err != nil {
		return false, err
	}
	return repo.DeleteByID(ctx, id)
}

// FindRecent articles created at or after since, newest first
func (r *Repository) FindRecent(ctx context.Context, region string, since time.Time) ([]*Article, error) {
	repo, err := r.repo(region)
	if err != nil {
		return nil, err
	}
	rows, err := repo.FindSince(ctx, "created", since)
	if err != nil {
		return nil, err
	}
	out := make([]*Article, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}
