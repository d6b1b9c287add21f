package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDisk(t *testing.T) *Disk {
	t.Helper()
	d, err := NewDisk(t.TempDir(), "http://localhost:8080/blobs", []byte("secret"))
	require.NoError(t, err)
	return d
}

func put(t *testing.T, s ObjectStore, key, body string) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), key, strings.NewReader(body), int64(len(body)), "text/plain"))
}

func TestDisk_PutGetStat(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()
	put(t, d, "user-a/1/notes.txt", "hello")

	body, info, err := d.Get(ctx, "user-a/1/notes.txt")
	require.NoError(t, err)
	defer body.Close()
	b, _ := io.ReadAll(body)

	assert.Equal(t, "hello", string(b))
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "text/plain", info.ContentType)

	st, err := d.Stat(ctx, "user-a/1/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.Size)
}

func TestDisk_MissingObject(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()

	_, err := d.Stat(ctx, "user-a/none")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, _, err = d.Get(ctx, "user-a/none")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.NoError(t, d.Delete(ctx, "user-a/none"))
}

func TestDisk_ShortBodyIsRejected(t *testing.T) {
	d := newDisk(t)
	err := d.Put(context.Background(), "user-a/x", strings.NewReader("abc"), 10, "")
	require.Error(t, err)

	_, err = d.Stat(context.Background(), "user-a/x")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestDisk_RejectsTraversal(t *testing.T) {
	d := newDisk(t)
	for _, key := range []string{"", "../etc/passwd", "a/../../b", ".meta/x"} {
		err := d.Put(context.Background(), key, strings.NewReader("x"), 1, "")
		assert.Error(t, err, key)
	}
}

func TestDisk_ListWithDelimiter(t *testing.T) {
	d := newDisk(t)
	put(t, d, "user-a/1/a.txt", "a")
	put(t, d, "user-a/2/b.txt", "bb")
	put(t, d, "user-a/top.txt", "ccc")
	put(t, d, "user-b/1/x.txt", "x")

	l, err := d.List(context.Background(), "user-a/", "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"user-a/1/", "user-a/2/"}, l.CommonPrefixes)
	require.Len(t, l.Items, 1)
	assert.Equal(t, "user-a/top.txt", l.Items[0].Key)

	all, err := d.List(context.Background(), "user-a/", "")
	require.NoError(t, err)
	assert.Empty(t, all.CommonPrefixes)
	assert.Len(t, all.Items, 3)
}

func TestDisk_ListStaysUnderPrefixDirectory(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()
	put(t, d, "user-a/1/a.txt", "a")
	put(t, d, "user-a/12/b.txt", "b")
	put(t, d, "user-b/1/x.txt", "x")

	l, err := d.List(ctx, "user-a/1", "")
	require.NoError(t, err)
	require.Len(t, l.Items, 2)
	assert.Equal(t, "user-a/1/a.txt", l.Items[0].Key)
	assert.Equal(t, "user-a/12/b.txt", l.Items[1].Key)

	l, err = d.List(ctx, "user-a/1/", "")
	require.NoError(t, err)
	require.Len(t, l.Items, 1)
	assert.Equal(t, "user-a/1/a.txt", l.Items[0].Key)

	l, err = d.List(ctx, "user-c/", "/")
	require.NoError(t, err)
	assert.Empty(t, l.Items)
	assert.Empty(t, l.CommonPrefixes)

	_, err = d.List(ctx, "../user-b/", "")
	assert.Error(t, err)
}

func TestDisk_CopyAndDelete(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()
	put(t, d, "user-a/1/a.txt", "data")

	require.NoError(t, d.Copy(ctx, "user-a/1/a.txt", "user-a/1/b.txt"))
	require.NoError(t, d.Delete(ctx, "user-a/1/a.txt"))

	_, err := d.Stat(ctx, "user-a/1/a.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	st, err := d.Stat(ctx, "user-a/1/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", st.ContentType)
}

func TestDisk_PresignedLink(t *testing.T) {
	d := newDisk(t)
	put(t, d, "user-a/1/report q1.txt", "quarterly")

	link, err := d.PresignGet(context.Background(), "user-a/1/report q1.txt", time.Minute, "report q1.txt")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "http://localhost:8080/blobs/"))

	u, err := url.Parse(link)
	require.NoError(t, err)
	srv := http.StripPrefix("/blobs", d)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "quarterly", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	t.Run("tampered", func(t *testing.T) {
		q := u.Query()
		q.Set("filename", "other.txt")
		tampered := *u
		tampered.RawQuery = q.Encode()

		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tampered.RequestURI(), nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("expired", func(t *testing.T) {
		d.now = func() time.Time { return time.Now().Add(time.Hour) }
		defer func() { d.now = time.Now }()

		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestDisk_PresignMissing(t *testing.T) {
	d := newDisk(t)
	_, err := d.PresignGet(context.Background(), "user-a/none", time.Minute, "")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
