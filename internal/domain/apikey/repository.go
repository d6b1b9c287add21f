package apikey

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"filevault/internal/database"
)

type Repository interface {
	Create(ctx context.Context, k *APIKey) error
	GetByDigest(ctx context.Context, digest string) (*APIKey, error)
	ListByUser(ctx context.Context, userID string) ([]*APIKey, error)
	// Revoke and Delete only affect keys owned by userID.
	Revoke(ctx context.Context, id, userID string) error
	Delete(ctx context.Context, id, userID string) error
	Touch(ctx context.Context, id string, at time.Time) error
}

type repository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewRepository(db *gorm.DB, timeout time.Duration) Repository {
	return &repository{db: db, timeout: timeout}
}

func (r *repository) Create(ctx context.Context, k *APIKey) error {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()
	return database.Classify(r.db.WithContext(ctx).Create(k).Error)
}

func (r *repository) GetByDigest(ctx context.Context, digest string) (*APIKey, error) {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	var k APIKey
	err := r.db.WithContext(ctx).Where("digest = ?", digest).First(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return &k, nil
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]*APIKey, error) {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	var keys []*APIKey
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&keys).Error
	return keys, database.Classify(err)
}

func (r *repository) Revoke(ctx context.Context, id, userID string) error {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&APIKey{}).
		Where("id = ? AND user_id = ?", id, userID).
		UpdateColumns(map[string]any{"active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return database.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id, userID string) error {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&APIKey{})
	if res.Error != nil {
		return database.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (r *repository) Touch(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	return database.Classify(r.db.WithContext(ctx).Model(&APIKey{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error)
}
