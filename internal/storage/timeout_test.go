package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/pkg/apperr"
)

// slowStore blocks every call until the context is done.
type slowStore struct{ Disk }

func (s *slowStore) Put(ctx context.Context, _ string, _ io.Reader, _ int64, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *slowStore) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestWithTimeout_BoundsSlowCalls(t *testing.T) {
	s := WithTimeout(&slowStore{}, 20*time.Millisecond)

	start := time.Now()
	err := s.Put(context.Background(), "k", strings.NewReader("x"), 1, "")
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	assert.True(t, apperr.Is(s.Ping(context.Background()), apperr.KindUnavailable))
}

func TestWithTimeout_NotFoundPassesThrough(t *testing.T) {
	s := WithTimeout(newDisk(t), time.Second)

	_, err := s.Stat(context.Background(), "user-a/none")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestWithTimeout_BodyReadableAfterReturn(t *testing.T) {
	d := newDisk(t)
	put(t, d, "user-a/1/a.txt", "payload")
	s := WithTimeout(d, time.Second)

	body, _, err := s.Get(context.Background(), "user-a/1/a.txt")
	require.NoError(t, err)
	b, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))
	assert.NoError(t, body.Close())
}
