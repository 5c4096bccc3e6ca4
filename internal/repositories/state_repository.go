package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GridState is one durable key-value entry: a JSON-encoded filter model or
// column layout, keyed by (kind, scope).
type GridState struct {
	Kind     string `gorm:"primaryKey;size:32"`
	ScopeKey string `gorm:"primaryKey;size:128"`
	Payload  string
}

// StateRepository is the durable local storage behind filter and column
// persistence.
type StateRepository struct {
	db *gorm.DB
}

func NewStateRepository(db *gorm.DB) *StateRepository {
	return &StateRepository{db: db}
}

func (r *StateRepository) Save(ctx context.Context, kind, scopeKey, payload string) error {
	entry := GridState{Kind: kind, ScopeKey: scopeKey, Payload: payload}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entry).Error
}

// Load returns the stored payload, or ok=false when nothing was saved for
// this (kind, scope) pair.
func (r *StateRepository) Load(ctx context.Context, kind, scopeKey string) (string, bool, error) {
	var entry GridState
	err := r.db.WithContext(ctx).
		First(&entry, "kind = ? AND scope_key = ?", kind, scopeKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Payload, true, nil
}

func (r *StateRepository) Delete(ctx context.Context, kind, scopeKey string) error {
	return r.db.WithContext(ctx).
		Where("kind = ? AND scope_key = ?", kind, scopeKey).
		Delete(&GridState{}).Error
}
