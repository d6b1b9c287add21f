package file

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"filevault/internal/domain/events"
	"filevault/internal/domain/namespace"
	"filevault/internal/logging"
	"filevault/internal/storage"
)

const (
	DefaultPresignTTL    = time.Hour
	DefaultMaxUploadSize = 100 * 1024 * 1024
)

// Ledger is the part of the user ledger the registry needs.
type Ledger interface {
	Reserve(ctx context.Context, userID string, n int64) error
	Settle(ctx context.Context, userID string, n int64) error
	CancelReservation(ctx context.Context, userID string, n int64) error
	Release(ctx context.Context, userID string, n int64) error
}

type Publisher interface {
	Publish(userID string, e events.Event)
}

type Options struct {
	PresignTTL    time.Duration
	MaxUploadSize int64
}

// Service is the file metadata registry. Object writes always go through a
// namespace.Store bound to the owner's prefix.
type Service struct {
	repo    Repository
	objects storage.ObjectStore
	ledger  Ledger
	events  Publisher
	log     logging.Logger
	opts    Options
	now     func() time.Time
}

func NewService(repo Repository, objects storage.ObjectStore, ledger Ledger, events Publisher, log logging.Logger, opts Options) *Service {
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = DefaultPresignTTL
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}
	return &Service{
		repo:    repo,
		objects: objects,
		ledger:  ledger,
		events:  events,
		log:     log,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) store(o Owner) *namespace.Store {
	return namespace.NewStore(s.objects, o.Prefix)
}

func (s *Service) publish(o Owner, typ string, f *File) {
	if s.events == nil {
		return
	}
	s.events.Publish(o.UserID, events.Event{Type: typ, FileID: f.ID, ParentID: f.ParentID, Name: f.Name})
}

// parentFolder checks that parentID, when set, is one of o's folders.
func (s *Service) parentFolder(ctx context.Context, o Owner, parentID *string) error {
	if parentID == nil {
		return nil
	}
	p, err := s.repo.GetByID(ctx, o.UserID, *parentID)
	if errors.Is(err, ErrFileNotFound) {
		return ErrFolderNotFound
	}
	if err != nil {
		return err
	}
	if !p.IsFolder {
		return ErrNotAFolder
	}
	return nil
}

// Upload reserves quota, writes the object and only then records it.
// Failures after the reservation undo what was done so far.
func (s *Service) Upload(ctx context.Context, o Owner, parentID *string, name string, size int64, contentType string, body io.Reader) (*File, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, ErrInvalidSize
	}
	if size > s.opts.MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	if err := s.parentFolder(ctx, o, parentID); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ns := s.store(o)
	key := ns.Key(id + "/" + keyName(name))
	contentType = detectContentType(name, contentType)

	if err := s.ledger.Reserve(ctx, o.UserID, size); err != nil {
		return nil, err
	}

	if err := ns.Put(ctx, key, body, size, contentType); err != nil {
		s.cancel(ctx, o, size)
		return nil, err
	}

	now := s.now()
	f := &File{
		ID:             id,
		UserID:         o.UserID,
		ParentID:       parentID,
		Name:           name,
		ObjectKey:      key,
		Size:           size,
		ContentType:    contentType,
		UploadedAt:     now,
		LastAccessedAt: now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		if derr := ns.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.log.Error(ctx, "orphaned object after failed insert", "user_id", o.UserID, "key", key, "error", derr)
		}
		s.cancel(ctx, o, size)
		return nil, err
	}
	if err := s.ledger.Settle(context.WithoutCancel(ctx), o.UserID, size); err != nil {
		s.log.Warn(ctx, "failed to settle storage reservation", "user_id", o.UserID, "bytes", size, "error", err)
	}

	s.log.Info(ctx, "file uploaded", "user_id", o.UserID, "file_id", f.ID, "size", size)
	s.publish(o, events.FileUploaded, f)
	return f, nil
}

func (s *Service) cancel(ctx context.Context, o Owner, n int64) {
	if err := s.ledger.CancelReservation(context.WithoutCancel(ctx), o.UserID, n); err != nil {
		s.log.Error(ctx, "failed to cancel storage reservation", "user_id", o.UserID, "bytes", n, "error", err)
	}
}

func (s *Service) release(ctx context.Context, o Owner, n int64) {
	if err := s.ledger.Release(context.WithoutCancel(ctx), o.UserID, n); err != nil {
		s.log.Error(ctx, "failed to release storage", "user_id", o.UserID, "bytes", n, "error", err)
	}
}

func (s *Service) CreateFolder(ctx context.Context, o Owner, parentID *string, name string) (*File, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if err := s.parentFolder(ctx, o, parentID); err != nil {
		return nil, err
	}
	taken, err := s.repo.NameTaken(ctx, o.UserID, parentID, name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrNameTaken
	}

	now := s.now()
	f := &File{
		ID:             uuid.NewString(),
		UserID:         o.UserID,
		ParentID:       parentID,
		Name:           name,
		IsFolder:       true,
		UploadedAt:     now,
		LastAccessedAt: now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	s.publish(o, events.FolderCreated, f)
	return f, nil
}

// List returns the children of parentID (nil for the root).
func (s *Service) List(ctx context.Context, o Owner, parentID *string, order Order) ([]*File, error) {
	if err := s.parentFolder(ctx, o, parentID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, o.UserID, parentID, order)
}

func (s *Service) Get(ctx context.Context, o Owner, id string) (*File, error) {
	return s.repo.GetByID(ctx, o.UserID, id)
}

// Download returns a presigned link and records the access.
func (s *Service) Download(ctx context.Context, o Owner, id string) (*DownloadLink, error) {
	f, err := s.contentFile(ctx, o, id)
	if err != nil {
		return nil, err
	}

	url, err := s.store(o).PresignGet(ctx, f.ObjectKey, s.opts.PresignTTL, f.Name)
	if err != nil {
		return nil, err
	}
	s.touch(ctx, o, f)

	return &DownloadLink{
		URL:         url,
		ExpiresAt:   s.now().Add(s.opts.PresignTTL),
		Name:        f.Name,
		Size:        f.Size,
		ContentType: f.ContentType,
	}, nil
}

// Open streams the object. The caller closes the reader.
func (s *Service) Open(ctx context.Context, o Owner, id string) (io.ReadCloser, *File, error) {
	f, err := s.contentFile(ctx, o, id)
	if err != nil {
		return nil, nil, err
	}

	body, _, err := s.store(o).Get(ctx, f.ObjectKey)
	if err != nil {
		return nil, nil, err
	}
	s.touch(ctx, o, f)
	return body, f, nil
}

func (s *Service) contentFile(ctx context.Context, o Owner, id string) (*File, error) {
	f, err := s.repo.GetByID(ctx, o.UserID, id)
	if err != nil {
		return nil, err
	}
	if f.IsFolder {
		return nil, ErrIsFolder
	}
	return f, nil
}

func (s *Service) touch(ctx context.Context, o Owner, f *File) {
	now := s.now()
	if err := s.repo.TouchAccessed(ctx, o.UserID, f.ID, now); err != nil {
		s.log.Warn(ctx, "failed to record file access", "file_id", f.ID, "error", err)
		return
	}
	f.LastAccessedAt = now
}

// Rename changes the display name. For files the object is copied to its
// new key first; metadata changes only after the copy succeeded, and the
// old object is removed last.
func (s *Service) Rename(ctx context.Context, o Owner, id, newName string) (*File, error) {
	newName, err := cleanName(newName)
	if err != nil {
		return nil, err
	}
	f, err := s.repo.GetByID(ctx, o.UserID, id)
	if err != nil {
		return nil, err
	}
	if f.Name == newName {
		return f, nil
	}

	taken, err := s.repo.NameTaken(ctx, o.UserID, f.ParentID, newName, f.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrNameTaken
	}

	oldKey, newKey := f.ObjectKey, f.ObjectKey
	ns := s.store(o)
	if !f.IsFolder {
		newKey = ns.Key(f.ID + "/" + keyName(newName))
	}

	if newKey != oldKey {
		if err := ns.Copy(ctx, oldKey, newKey); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Rename(ctx, o.UserID, f.ID, newName, newKey); err != nil {
		if newKey != oldKey {
			if derr := ns.Delete(context.WithoutCancel(ctx), newKey); derr != nil {
				s.log.Error(ctx, "orphaned copy after failed rename", "file_id", f.ID, "key", newKey, "error", derr)
			}
		}
		return nil, err
	}

	if newKey != oldKey {
		if err := ns.Delete(ctx, oldKey); err != nil {
			s.log.Warn(ctx, "failed to delete object after rename", "file_id", f.ID, "key", oldKey, "error", err)
		}
	}

	f.Name, f.ObjectKey, f.UpdatedAt = newName, newKey, s.now()
	s.publish(o, events.FileRenamed, f)
	return f, nil
}

// Remove deletes a file, or a folder that has no children.
func (s *Service) Remove(ctx context.Context, o Owner, id string) error {
	f, err := s.repo.GetByID(ctx, o.UserID, id)
	if err != nil {
		return err
	}

	if f.IsFolder {
		deleted, err := s.repo.DeleteEmptyFolder(ctx, o.UserID, f.ID)
		if err != nil {
			return err
		}
		if !deleted {
			if _, err := s.repo.GetByID(ctx, o.UserID, f.ID); err != nil {
				return err
			}
			return ErrFolderNotEmpty
		}
		s.publish(o, events.FileDeleted, f)
		return nil
	}

	if err := s.store(o).Delete(ctx, f.ObjectKey); err != nil {
		return err
	}
	if err := s.repo.DeleteFile(ctx, o.UserID, f.ID); err != nil {
		return err
	}
	// The ledger is repaired by the reconcile job if this fails.
	s.release(ctx, o, f.Size)

	s.log.Info(ctx, "file deleted", "user_id", o.UserID, "file_id", f.ID, "size", f.Size)
	s.publish(o, events.FileDeleted, f)
	return nil
}

// Move re-parents a file. Objects stay where they are; keys do not encode
// the folder tree.
func (s *Service) Move(ctx context.Context, o Owner, id string, targetID *string) (*File, error) {
	f, err := s.repo.GetByID(ctx, o.UserID, id)
	if err != nil {
		return nil, err
	}
	if f.IsFolder {
		return nil, ErrFolderMove
	}
	if err := s.parentFolder(ctx, o, targetID); err != nil {
		return nil, err
	}
	if sameParent(f.ParentID, targetID) {
		return f, nil
	}

	taken, err := s.repo.NameTaken(ctx, o.UserID, targetID, f.Name, f.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrNameTaken
	}

	if err := s.repo.SetParent(ctx, o.UserID, f.ID, targetID); err != nil {
		return nil, err
	}

	f.ParentID, f.UpdatedAt = targetID, s.now()
	s.publish(o, events.FileMoved, f)
	return f, nil
}

// ListObjects lists raw objects in the owner's namespace with the prefix
// stripped from every key.
func (s *Service) ListObjects(ctx context.Context, o Owner, prefix, delimiter string) (*storage.Listing, error) {
	return s.store(o).List(ctx, prefix, delimiter)
}

const welcomeText = `Welcome to your file vault.

Upload files, organize them into folders, and share them with time-limited
download links. API keys let scripts read and write on your behalf.
`

// Welcome seeds a new user's namespace. Failures are logged only.
func (s *Service) Welcome(ctx context.Context, o Owner) {
	_, err := s.Upload(ctx, o, nil, "Welcome.txt", int64(len(welcomeText)), "text/plain; charset=utf-8", strings.NewReader(welcomeText))
	if err != nil {
		s.log.Warn(ctx, "failed to write welcome file", "user_id", o.UserID, "error", err)
	}
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func detectContentType(name, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(name))); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
