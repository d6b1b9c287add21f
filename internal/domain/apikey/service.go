package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"filevault/internal/domain/access"
	"filevault/internal/logging"
)

const (
	KeyPrefix    = "sk_"
	keyBytes     = 32
	maxNameLen   = 100
	suffixLen    = 4
	touchTimeout = 5 * time.Second
)

// Service is the credential store for API keys.
type Service struct {
	repo Repository
	log  logging.Logger
	now  func() time.Time

	touches sync.WaitGroup
}

func NewService(repo Repository, log logging.Logger) *Service {
	return &Service{repo: repo, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// GenerateKey returns a fresh plaintext key with 256 bits of entropy.
func GenerateKey() (string, error) {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return KeyPrefix + hex.EncodeToString(buf), nil
}

// Hash is the stored digest of a plaintext key.
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Create stores a new key and returns it with the plaintext. The plaintext
// is not retrievable afterwards. An empty permission list means read-only.
func (s *Service) Create(ctx context.Context, userID, name string, permissions []string, expiresAt *time.Time) (*APIKey, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return nil, "", ErrInvalidName
	}

	scopes, ok := access.ParseSet(permissions)
	if !ok {
		return nil, "", ErrInvalidPermissions
	}
	if len(scopes) == 0 {
		scopes = access.Set{access.PermRead}
	}

	now := s.now()
	if expiresAt != nil {
		if !expiresAt.After(now) {
			return nil, "", ErrInvalidExpiry
		}
		utc := expiresAt.UTC()
		expiresAt = &utc
	}

	plaintext, err := GenerateKey()
	if err != nil {
		return nil, "", err
	}

	k := &APIKey{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		Digest:       Hash(plaintext),
		MaskedSuffix: plaintext[len(plaintext)-suffixLen:],
		Permissions:  scopes.Encode(),
		Active:       true,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, k); err != nil {
		return nil, "", err
	}

	s.log.Info(ctx, "api key created", "user_id", userID, "key_id", k.ID, "permissions", k.Permissions)
	return k, plaintext, nil
}

// Validate checks a presented key. Unknown, revoked and expired keys are
// indistinguishable to the caller, and lookup failures count as invalid.
// On success last_used_at is updated in the background.
func (s *Service) Validate(ctx context.Context, plaintext string) (*Validation, bool) {
	if !strings.HasPrefix(plaintext, KeyPrefix) {
		return nil, false
	}

	k, err := s.repo.GetByDigest(ctx, Hash(plaintext))
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.log.Warn(ctx, "api key lookup failed", "error", err)
		}
		return nil, false
	}

	now := s.now()
	if !k.Usable(now) {
		return nil, false
	}

	s.touch(ctx, k.ID, now)
	return &Validation{KeyID: k.ID, UserID: k.UserID, Permissions: k.Scopes()}, true
}

// touch records usage without holding up the request. It is detached from
// the request's cancellation but bounded on its own.
func (s *Service) touch(ctx context.Context, id string, at time.Time) {
	s.touches.Add(1)
	go func() {
		defer s.touches.Done()
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), touchTimeout)
		defer cancel()
		if err := s.repo.Touch(tctx, id, at); err != nil {
			s.log.Warn(tctx, "api key last_used update failed", "key_id", id, "error", err)
		}
	}()
}

// Wait blocks until background usage updates have finished.
func (s *Service) Wait() {
	s.touches.Wait()
}

func (s *Service) Revoke(ctx context.Context, keyID, userID string) error {
	if err := s.repo.Revoke(ctx, keyID, userID); err != nil {
		return err
	}
	s.log.Info(ctx, "api key revoked", "user_id", userID, "key_id", keyID)
	return nil
}

func (s *Service) Delete(ctx context.Context, keyID, userID string) error {
	if err := s.repo.Delete(ctx, keyID, userID); err != nil {
		return err
	}
	s.log.Info(ctx, "api key deleted", "user_id", userID, "key_id", keyID)
	return nil
}

// List returns the user's keys, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*APIKey, error) {
	return s.repo.ListByUser(ctx, userID)
}
