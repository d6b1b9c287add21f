package namespace

import (
	"context"
	"io"
	"strings"
	"time"

	"filevault/internal/storage"
)

// Store is an object-store view confined to one prefix. Keys outside the
// prefix behave as if the object did not exist.
type Store struct {
	prefix  string
	objects storage.ObjectStore
}

func NewStore(objects storage.ObjectStore, prefix string) *Store {
	return &Store{prefix: strings.Trim(prefix, separator), objects: objects}
}

func (s *Store) Prefix() string { return s.prefix }

// Key builds a full key from a relative path.
func (s *Store) Key(relative string) string { return Key(s.prefix, relative) }

func (s *Store) Strip(fullKey string) string { return Strip(s.prefix, fullKey) }

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if !Owns(s.prefix, key) {
		return storage.ErrObjectNotFound
	}
	return s.objects.Put(ctx, key, body, size, contentType)
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	if !Owns(s.prefix, key) {
		return nil, nil, storage.ErrObjectNotFound
	}
	return s.objects.Get(ctx, key)
}

func (s *Store) Stat(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	if !Owns(s.prefix, key) {
		return nil, storage.ErrObjectNotFound
	}
	return s.objects.Stat(ctx, key)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if !Owns(s.prefix, key) {
		return storage.ErrObjectNotFound
	}
	return s.objects.Delete(ctx, key)
}

func (s *Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	if !Owns(s.prefix, srcKey) || !Owns(s.prefix, dstKey) {
		return storage.ErrObjectNotFound
	}
	return s.objects.Copy(ctx, srcKey, dstKey)
}

func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration, filename string) (string, error) {
	if !Owns(s.prefix, key) {
		return "", storage.ErrObjectNotFound
	}
	return s.objects.PresignGet(ctx, key, ttl, filename)
}

// List lists under a relative prefix and returns relative keys. A trailing
// separator on relPrefix is kept so "docs/" does not match "docs-old/".
func (s *Store) List(ctx context.Context, relPrefix, delimiter string) (*storage.Listing, error) {
	full := s.Key(relPrefix)
	if strings.HasSuffix(relPrefix, separator) && !strings.HasSuffix(full, separator) {
		full += separator
	}

	l, err := s.objects.List(ctx, full, delimiter)
	if err != nil {
		return nil, err
	}
	out := &storage.Listing{
		CommonPrefixes: make([]string, 0, len(l.CommonPrefixes)),
		Items:          make([]storage.ObjectInfo, 0, len(l.Items)),
	}
	for _, cp := range l.CommonPrefixes {
		if Owns(s.prefix, cp) {
			out.CommonPrefixes = append(out.CommonPrefixes, s.Strip(cp))
		}
	}
	for _, it := range l.Items {
		if Owns(s.prefix, it.Key) {
			it.Key = s.Strip(it.Key)
			out.Items = append(out.Items, it)
		}
	}
	return out, nil
}
