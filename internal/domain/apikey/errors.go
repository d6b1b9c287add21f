package apikey

import "filevault/internal/pkg/apperr"

var (
	ErrKeyNotFound        = apperr.New(apperr.KindNotFound, "api key not found")
	ErrInvalidName        = apperr.New(apperr.KindInvalid, "key name is required and must be at most 100 characters")
	ErrInvalidPermissions = apperr.New(apperr.KindInvalid, "invalid permissions, must be a list of: read, write, delete")
	ErrInvalidExpiry      = apperr.New(apperr.KindInvalid, "expiration date must be in the future")
)
