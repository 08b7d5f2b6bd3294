package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// BaseRepository generic repository over one *gorm.DB
// Absence is reported as ok=false, never as an error
type BaseRepository[T any] struct {
	db *gorm.DB
}

// NewBaseRepository creates the base repository
func NewBaseRepository[T any](db *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{db: db}
}

// DB Get database instance
func (r *BaseRepository[T]) DB() *gorm.DB {
	return r.db
}

// Create inserts entity and fills generated fields (primary key, timestamps)
func (r *BaseRepository[T]) Create(ctx context.Context, entity *T) error {
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return ErrQuery.WithMsg("record creation failed").Wrap(err)
	}
	return nil
}

// FindByID queries by primary key
func (r *BaseRepository[T]) FindByID(ctx context.Context, id int64) (*T, bool, error) {
	var entity T
	err := r.db.WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ErrQuery.WithMsgf("query record failed (id=%d)", id).Wrap(err)
	}
	return &entity, true, nil
}

// Save writes every field of entity
func (r *BaseRepository[T]) Save(ctx context.Context, entity *T) error {
	if err := r.db.WithContext(ctx).Save(entity).Error; err != nil {
		return ErrQuery.WithMsg("update record failed").Wrap(err)
	}
	return nil
}

// DeleteByID removes the row and reports whether it existed
func (r *BaseRepository[T]) DeleteByID(ctx context.Context, id int64) (bool, error) {
	var entity T
	result := r.db.WithContext(ctx).Delete(&entity, id)
	if result.Error != nil {
		return false, ErrQuery.WithMsgf("delete record failed (id=%d)", id).Wrap(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FindSince returns rows whose column is at or after since, newest first
func (r *BaseRepository[T]) FindSince(ctx context.Context, column string, since time.Time) ([]T, error) {
	var entities []T
	err := r.db.WithContext(ctx).
		Where(column+" >= ?", since).
		Order(column + " DESC").
		Find(&entities).Error
	if err != nil {
		return nil, ErrQuery.WithMsg("query recent records failed").Wrap(err)
	}
	return entities, nil
}

// Transaction execution
func (r *BaseRepository[T]) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
