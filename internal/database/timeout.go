package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"filevault/internal/pkg/apperr"
)

// WithTimeout bounds a repository call. A non-positive d leaves ctx as is.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// ErrDuplicate is what a unique index rejection classifies as.
var ErrDuplicate = apperr.New(apperr.KindConflict, "resource already exists")

// Classify marks unique violations as Conflict and other driver and
// connectivity failures as Unavailable. Record not found and already
// classified errors pass through.
func Classify(err error) error {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if IsUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, ErrDuplicate.Message, err)
	}
	return apperr.Unavailable("database", err)
}

// Ping checks that the database answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return Classify(err)
	}
	return Classify(sqlDB.PingContext(ctx))
}
