package user

import "filevault/internal/pkg/apperr"

var (
	ErrUserNotFound   = apperr.New(apperr.KindNotFound, "user not found")
	ErrQuotaExceeded  = apperr.New(apperr.KindQuotaExceeded, "storage quota exceeded")
	ErrInvalidSize    = apperr.New(apperr.KindInvalid, "size must not be negative")
	ErrInvalidQuota   = apperr.New(apperr.KindInvalid, "quota must be positive")
	ErrMissingSubject = apperr.New(apperr.KindInvalid, "identity has no subject")
)
