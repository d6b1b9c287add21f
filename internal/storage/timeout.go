package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"filevault/internal/pkg/apperr"
)

// timeoutStore bounds every call and classifies backend failures as
// Unavailable so callers can decide to retry.
type timeoutStore struct {
	next    ObjectStore
	timeout time.Duration
}

// WithTimeout wraps s so no call blocks longer than d.
func WithTimeout(s ObjectStore, d time.Duration) ObjectStore {
	return &timeoutStore{next: s, timeout: d}
}

func (t *timeoutStore) classify(err error) error {
	if err == nil || errors.Is(err, ErrObjectNotFound) {
		return err
	}
	return apperr.Unavailable("object store", err)
}

func (t *timeoutStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.classify(t.next.Put(ctx, key, body, size, contentType))
}

// Get keeps the deadline alive until the body is closed.
func (t *timeoutStore) Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	body, info, err := t.next.Get(ctx, key)
	if err != nil {
		cancel()
		return nil, nil, t.classify(err)
	}
	return &cancelOnClose{ReadCloser: body, cancel: cancel}, info, nil
}

func (t *timeoutStore) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	info, err := t.next.Stat(ctx, key)
	return info, t.classify(err)
}

func (t *timeoutStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.classify(t.next.Delete(ctx, key))
}

func (t *timeoutStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.classify(t.next.Copy(ctx, srcKey, dstKey))
}

func (t *timeoutStore) List(ctx context.Context, prefix, delimiter string) (*Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	l, err := t.next.List(ctx, prefix, delimiter)
	return l, t.classify(err)
}

func (t *timeoutStore) PresignGet(ctx context.Context, key string, ttl time.Duration, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	u, err := t.next.PresignGet(ctx, key, ttl, filename)
	return u, t.classify(err)
}

func (t *timeoutStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.classify(t.next.Ping(ctx))
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
