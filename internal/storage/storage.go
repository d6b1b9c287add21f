// Package storage is the object-store collaborator. Keys are opaque strings;
// callers build them through the namespace package and never pass raw paths.
package storage

import (
	"context"
	"io"
	"time"

	"filevault/internal/pkg/apperr"
)

var ErrObjectNotFound = apperr.New(apperr.KindNotFound, "object not found")

type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag,omitempty"`
}

// Listing is one page of a delimited listing.
type Listing struct {
	CommonPrefixes []string     `json:"common_prefixes"`
	Items          []ObjectInfo `json:"items"`
}

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	// Delete succeeds when the key is already absent.
	Delete(ctx context.Context, key string) error
	Copy(ctx context.Context, srcKey, dstKey string) error
	List(ctx context.Context, prefix, delimiter string) (*Listing, error)
	// PresignGet returns a time-limited download URL. filename, when set,
	// becomes the attachment name.
	PresignGet(ctx context.Context, key string, ttl time.Duration, filename string) (string, error)
	Ping(ctx context.Context) error
}

const defaultContentType = "application/octet-stream"

func contentTypeOr(ct string) string {
	if ct == "" {
		return defaultContentType
	}
	return ct
}
