package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinio_PresignGetIsOffline(t *testing.T) {
	m, err := NewMinio(MinioOptions{
		Endpoint:  "http://127.0.0.1:9000",
		Region:    "us-east-1",
		Bucket:    "vault",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	link, err := m.PresignGet(context.Background(), "user-a/1/notes.txt", time.Hour, "")
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/vault/user-a/1/notes.txt", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}
