package user

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"filevault/internal/database"
)

type Repository interface {
	GetBySubject(ctx context.Context, subjectID string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// Upsert inserts u or, when the subject exists, refreshes the profile
	// fields only. It returns the stored row.
	Upsert(ctx context.Context, u *User) (*User, error)
	// Reserve adds n to storage_used and storage_reserved only if the
	// result stays within quota.
	Reserve(ctx context.Context, id string, n int64) error
	// Settle drops n from storage_reserved once the file row exists.
	Settle(ctx context.Context, id string, n int64) error
	// CancelReservation takes n off both storage_used and storage_reserved.
	CancelReservation(ctx context.Context, id string, n int64) error
	// AdjustUsed adds delta to storage_used, flooring at zero.
	AdjustUsed(ctx context.Context, id string, delta int64) error
	SetQuota(ctx context.Context, id string, quota int64) error
	// Recompute sets storage_used to the registered file sizes plus
	// storage_reserved in a single statement.
	Recompute(ctx context.Context, id string) error
	// DropReservations zeroes storage_reserved and removes it from
	// storage_used.
	DropReservations(ctx context.Context, id string) error
	ListIDs(ctx context.Context) ([]string, error)
}

type repository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewRepository(db *gorm.DB, timeout time.Duration) Repository {
	return &repository{db: db, timeout: timeout}
}

func (r *repository) get(ctx context.Context, column, value string) (*User, error) {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u User
	err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return &u, nil
}

func (r *repository) GetBySubject(ctx context.Context, subjectID string) (*User, error) {
	return r.get(ctx, "subject_id", subjectID)
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.get(ctx, "id", id)
}

func (r *repository) Upsert(ctx context.Context, u *User) (*User, error) {
	tctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.db.WithContext(tctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "first_name", "last_name", "image_url", "updated_at"}),
	}).Create(u).Error
	if err != nil {
		return nil, database.Classify(err)
	}
	return r.GetBySubject(ctx, u.SubjectID)
}

func (r *repository) Reserve(ctx context.Context, id string, n int64) error {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND storage_used + ? <= storage_quota", id, n).
		UpdateColumns(map[string]any{
			"storage_used":     gorm.Expr("storage_used + ?", n),
			"storage_reserved": gorm.Expr("storage_reserved + ?", n),
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return database.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrQuotaExceeded
	}
	return nil
}

func (r *repository) AdjustUsed(ctx context.Context, id string, delta int64) error {
	return r.update(ctx, id, map[string]any{
		"storage_used": floored("storage_used", delta),
	})
}

func (r *repository) Settle(ctx context.Context, id string, n int64) error {
	return r.update(ctx, id, map[string]any{
		"storage_reserved": floored("storage_reserved", -n),
	})
}

func (r *repository) CancelReservation(ctx context.Context, id string, n int64) error {
	return r.update(ctx, id, map[string]any{
		"storage_used":     floored("storage_used", -n),
		"storage_reserved": floored("storage_reserved", -n),
	})
}

func (r *repository) Recompute(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{
		"storage_used": gorm.Expr(
			"(SELECT COALESCE(SUM(f.size), 0) FROM files f WHERE f.user_id = users.id AND f.is_folder = ?) + storage_reserved",
			false,
		),
	})
}

func (r *repository) DropReservations(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{
		"storage_used":     gorm.Expr("CASE WHEN storage_used < storage_reserved THEN 0 ELSE storage_used - storage_reserved END"),
		"storage_reserved": 0,
	})
}

// floored adds delta to column without going below zero.
func floored(column string, delta int64) clause.Expr {
	return gorm.Expr("CASE WHEN "+column+" + ? < 0 THEN 0 ELSE "+column+" + ? END", delta, delta)
}

func (r *repository) SetQuota(ctx context.Context, id string, quota int64) error {
	return r.update(ctx, id, map[string]any{"storage_quota": quota})
}

// update writes columns plus updated_at on one user row.
func (r *repository) update(ctx context.Context, id string, columns map[string]any) error {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	columns["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).UpdateColumns(columns)
	if res.Error != nil {
		return database.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) ListIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	var ids []string
	err := r.db.WithContext(ctx).Model(&User{}).Order("created_at").Pluck("id", &ids).Error
	return ids, database.Classify(err)
}
