package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3_PresignGetIsOffline(t *testing.T) {
	s, err := NewS3(context.Background(), S3Options{
		Region:    "us-east-1",
		Bucket:    "vault",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	link, err := s.PresignGet(context.Background(), "user-a/1/notes.txt", 15*time.Minute, "notes.txt")
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/vault/user-a/1/notes.txt", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.True(t, strings.Contains(u.Query().Get("response-content-disposition"), "notes.txt"))
}

func TestS3Err_Classification(t *testing.T) {
	assert.NoError(t, s3Err(nil))
	assert.ErrorIs(t, s3Err(&smithy.GenericAPIError{Code: "NoSuchKey"}), ErrObjectNotFound)
	assert.ErrorIs(t, s3Err(&smithy.GenericAPIError{Code: "NotFound"}), ErrObjectNotFound)

	other := errors.New("connection reset")
	assert.Same(t, other, s3Err(other))
}
