package file

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"filevault/internal/database"
)

type Repository interface {
	Create(ctx context.Context, f *File) error
	GetByID(ctx context.Context, userID, id string) (*File, error)
	List(ctx context.Context, userID string, parentID *string, order Order) ([]*File, error)
	// NameTaken reports whether parentID already has a child called name,
	// ignoring excludeID.
	NameTaken(ctx context.Context, userID string, parentID *string, name, excludeID string) (bool, error)
	Rename(ctx context.Context, userID, id, name, objectKey string) error
	SetParent(ctx context.Context, userID, id string, parentID *string) error
	TouchAccessed(ctx context.Context, userID, id string, at time.Time) error
	DeleteFile(ctx context.Context, userID, id string) error
	// DeleteEmptyFolder removes the folder only if it has no children, in a
	// single statement. It returns false when nothing was deleted.
	DeleteEmptyFolder(ctx context.Context, userID, id string) (bool, error)
}

type repository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewRepository(db *gorm.DB, timeout time.Duration) Repository {
	return &repository{db: db, timeout: timeout}
}

func whereParent(q *gorm.DB, parentID *string) *gorm.DB {
	if parentID == nil {
		return q.Where("parent_id IS NULL")
	}
	return q.Where("parent_id = ?", *parentID)
}

func (r *repository) Create(ctx context.Context, f *File) error {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()
	return database.Classify(r.db.WithContext(ctx).Create(f).Error)
}

func (r *repository) GetByID(ctx context.Context, userID, id string) (*File, error) {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	var f File
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return &f, nil
}

func (r *repository) List(ctx context.Context, userID string, parentID *string, order Order) ([]*File, error) {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	files := []*File{}
	q := whereParent(r.db.WithContext(ctx).Where("user_id = ?", userID), parentID)
	err := q.Order(order.clause()).Find(&files).Error
	return files, database.Classify(err)
}

func (r *repository) NameTaken(ctx context.Context, userID string, parentID *string, name, excludeID string) (bool, error) {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	var n int64
	q := whereParent(r.db.WithContext(ctx).Model(&File{}).Where("user_id = ? AND name = ?", userID, name), parentID)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, database.Classify(err)
	}
	return n > 0, nil
}

func (r *repository) update(ctx context.Context, userID, id string, cols map[string]any) error {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&File{}).
		Where("id = ? AND user_id = ?", id, userID).
		UpdateColumns(cols)
	if res.Error != nil {
		return database.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *repository) Rename(ctx context.Context, userID, id, name, objectKey string) error {
	return r.update(ctx, userID, id, map[string]any{
		"name":       name,
		"object_key": objectKey,
		"updated_at": time.Now().UTC(),
	})
}

func (r *repository) SetParent(ctx context.Context, userID, id string, parentID *string) error {
	return r.update(ctx, userID, id, map[string]any{
		"parent_id":  parentID,
		"updated_at": time.Now().UTC(),
	})
}

func (r *repository) TouchAccessed(ctx context.Context, userID, id string, at time.Time) error {
	return r.update(ctx, userID, id, map[string]any{"last_accessed_at": at})
}

func (r *repository) DeleteFile(ctx context.Context, userID, id string) error {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_folder = ?", id, userID, false).
		Delete(&File{})
	if res.Error != nil {
		return database.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *repository) DeleteEmptyFolder(ctx context.Context, userID, id string) (bool, error) {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := r.db.WithContext(ctx).Exec(
		`DELETE FROM files
		 WHERE id = ? AND user_id = ? AND is_folder = ?
		   AND NOT EXISTS (SELECT 1 FROM files AS child WHERE child.parent_id = ?)`,
		id, userID, true, id,
	)
	if res.Error != nil {
		return false, database.Classify(res.Error)
	}
	return res.RowsAffected > 0, nil
}
