package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// metaDir holds content-type sidecars next to the object tree.
const metaDir = ".meta"

// Disk stores objects as files under a root directory. It backs local
// development and tests; presigned URLs point at Disk's own ServeHTTP.
type Disk struct {
	root    string
	baseURL string
	secret  []byte
	now     func() time.Time
}

// NewDisk creates the root directory if needed. baseURL is the externally
// reachable mount point of ServeHTTP, e.g. "http://localhost:8080/blobs".
func NewDisk(root, baseURL string, secret []byte) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Disk{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		now:     time.Now,
	}, nil
}

func (d *Disk) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.HasPrefix(clean, "/"+metaDir) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(d.root, filepath.FromSlash(clean)), nil
}

func (d *Disk) metaPath(key string) string {
	return filepath.Join(d.root, metaDir, filepath.FromSlash(path.Clean("/"+key)))
}

// Put writes to a temp file and renames it into place so readers never
// observe a partial object.
func (d *Disk) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	abs, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: body})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if size >= 0 && n != size {
		return fmt.Errorf("short write: got %d bytes, want %d", n, size)
	}

	meta := d.metaPath(key)
	if err := os.MkdirAll(filepath.Dir(meta), 0o755); err != nil {
		return fmt.Errorf("failed to create meta directory: %w", err)
	}
	if err := os.WriteFile(meta, []byte(contentTypeOr(contentType)), 0o644); err != nil {
		return fmt.Errorf("failed to write meta: %w", err)
	}
	return os.Rename(tmp.Name(), abs)
}

func (d *Disk) Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	info, err := d.Stat(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	abs, _ := d.path(key)
	f, err := os.Open(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return f, info, nil
}

func (d *Disk) Stat(_ context.Context, key string) (*ObjectInfo, error) {
	abs, err := d.path(key)
	if err != nil {
		return nil, ErrObjectNotFound
	}
	st, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && st.IsDir()) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return d.info(key, st), nil
}

func (d *Disk) info(key string, st fs.FileInfo) *ObjectInfo {
	ct := defaultContentType
	if b, err := os.ReadFile(d.metaPath(key)); err == nil && len(b) > 0 {
		ct = string(b)
	} else if byExt := mime.TypeByExtension(path.Ext(key)); byExt != "" {
		ct = byExt
	}
	return &ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		ContentType:  ct,
		LastModified: st.ModTime().UTC(),
	}
}

func (d *Disk) Delete(_ context.Context, key string) error {
	abs, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	_ = os.Remove(d.metaPath(key))
	return nil
}

func (d *Disk) Copy(ctx context.Context, srcKey, dstKey string) error {
	body, info, err := d.Get(ctx, srcKey)
	if err != nil {
		return err
	}
	defer body.Close()
	return d.Put(ctx, dstKey, body, info.Size, info.ContentType)
}

// List walks the tree under prefix. With a delimiter, keys are rolled up
// into common prefixes at the first delimiter after prefix.
func (d *Disk) List(_ context.Context, prefix, delimiter string) (*Listing, error) {
	out := &Listing{CommonPrefixes: []string{}, Items: []ObjectInfo{}}
	seen := map[string]bool{}

	start, err := d.listRoot(prefix)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(start); errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}

	err = filepath.WalkDir(start, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(d.root, p)
		rel = filepath.ToSlash(rel)
		if e.IsDir() {
			if rel == metaDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(e.Name(), ".upload-") || !strings.HasPrefix(rel, prefix) {
			return nil
		}
		if delimiter != "" {
			if i := strings.Index(rel[len(prefix):], delimiter); i >= 0 {
				cp := rel[:len(prefix)+i+len(delimiter)]
				if !seen[cp] {
					seen[cp] = true
					out.CommonPrefixes = append(out.CommonPrefixes, cp)
				}
				return nil
			}
		}
		st, err := e.Info()
		if err != nil {
			return err
		}
		out.Items = append(out.Items, *d.info(rel, st))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(out.CommonPrefixes)
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].Key < out.Items[j].Key })
	return out, nil
}

// listRoot is the deepest directory that contains every key under prefix.
func (d *Disk) listRoot(prefix string) (string, error) {
	i := strings.LastIndex(prefix, "/")
	if i <= 0 {
		return d.root, nil
	}
	return d.path(prefix[:i])
}

func (d *Disk) PresignGet(ctx context.Context, key string, ttl time.Duration, filename string) (string, error) {
	if _, err := d.Stat(ctx, key); err != nil {
		return "", err
	}
	expires := strconv.FormatInt(d.now().Add(ttl).Unix(), 10)

	q := url.Values{}
	q.Set("expires", expires)
	if filename != "" {
		q.Set("filename", filename)
	}
	q.Set("signature", d.sign(key, expires, filename))
	return d.baseURL + "/" + escapeKey(key) + "?" + q.Encode(), nil
}

func (d *Disk) Ping(_ context.Context) error {
	_, err := os.Stat(d.root)
	return err
}

func (d *Disk) sign(key, expires, filename string) string {
	mac := hmac.New(sha256.New, d.secret)
	mac.Write([]byte(key + "\n" + expires + "\n" + filename))
	return hex.EncodeToString(mac.Sum(nil))
}

// ServeHTTP serves objects for URLs produced by PresignGet. It is mounted
// with the base path stripped, so r.URL.Path is the object key.
func (d *Disk) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")
	q := r.URL.Query()
	expires, filename := q.Get("expires"), q.Get("filename")

	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || d.now().Unix() > exp ||
		!hmac.Equal([]byte(q.Get("signature")), []byte(d.sign(key, expires, filename))) {
		http.Error(w, "invalid or expired link", http.StatusForbidden)
		return
	}

	body, info, err := d.Get(r.Context(), key)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	_, _ = io.Copy(w, body)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
