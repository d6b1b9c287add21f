package file

import "filevault/internal/pkg/apperr"

var (
	ErrFileNotFound   = apperr.New(apperr.KindNotFound, "file not found")
	ErrFolderNotFound = apperr.New(apperr.KindNotFound, "folder not found")
	ErrNameTaken      = apperr.New(apperr.KindConflict, "an item with this name already exists here")
	ErrFolderNotEmpty = apperr.New(apperr.KindNonEmptyFolder, "folder is not empty")
	ErrFolderMove     = apperr.New(apperr.KindUnsupported, "moving folders is not supported")
	ErrInvalidName    = apperr.New(apperr.KindInvalid, "name must be 1-255 characters and must not contain slashes")
	ErrInvalidSize    = apperr.New(apperr.KindInvalid, "size must not be negative")
	ErrFileTooLarge   = apperr.New(apperr.KindInvalid, "file exceeds maximum upload size")
	ErrNotAFolder     = apperr.New(apperr.KindInvalid, "target is not a folder")
	ErrIsFolder       = apperr.New(apperr.KindInvalid, "folders have no content")
	ErrInvalidOrder   = apperr.New(apperr.KindInvalid, "order must be one of: newest, oldest, name, size")
)
