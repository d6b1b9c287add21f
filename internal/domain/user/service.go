package user

import (
	"context"

	"github.com/google/uuid"

	"filevault/internal/domain/identity"
	"filevault/internal/domain/namespace"
	"filevault/internal/logging"
)

// CreatedHook runs once for every user row the ledger inserts.
type CreatedHook func(ctx context.Context, u *User)

// Ledger owns user records and their storage accounting.
type Ledger struct {
	repo         Repository
	defaultQuota int64
	log          logging.Logger
	onCreated    []CreatedHook
}

func NewLedger(repo Repository, defaultQuota int64, log logging.Logger) *Ledger {
	if defaultQuota <= 0 {
		defaultQuota = DefaultQuota
	}
	return &Ledger{repo: repo, defaultQuota: defaultQuota, log: log}
}

// OnCreated registers a hook for newly inserted users.
func (l *Ledger) OnCreated(h CreatedHook) {
	l.onCreated = append(l.onCreated, h)
}

func (l *Ledger) Resolve(ctx context.Context, subjectID string) (*User, error) {
	return l.repo.GetBySubject(ctx, subjectID)
}

func (l *Ledger) GetByID(ctx context.Context, id string) (*User, error) {
	return l.repo.GetByID(ctx, id)
}

// Upsert records the identity. Concurrent calls for one subject converge on
// a single row; the prefix and quota are only written on insert.
func (l *Ledger) Upsert(ctx context.Context, id identity.Identity) (*User, error) {
	if id.SubjectID == "" {
		return nil, ErrMissingSubject
	}

	candidate := &User{
		ID:           uuid.NewString(),
		SubjectID:    id.SubjectID,
		Email:        id.Email,
		FirstName:    id.FirstName,
		LastName:     id.LastName,
		ImageURL:     id.AvatarURL,
		Prefix:       namespace.Derive(id.SubjectID),
		StorageQuota: l.defaultQuota,
	}

	u, err := l.repo.Upsert(ctx, candidate)
	if err != nil {
		return nil, err
	}

	if u.ID == candidate.ID {
		l.log.Info(ctx, "user created", "user_id", u.ID, "prefix", u.Prefix)
		for _, h := range l.onCreated {
			h(ctx, u)
		}
	}
	return u, nil
}

func (l *Ledger) GetQuota(ctx context.Context, subjectID string) (*QuotaInfo, error) {
	u, err := l.repo.GetBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return quotaOf(u), nil
}

// QuotaFor is GetQuota by user id.
func (l *Ledger) QuotaFor(ctx context.Context, userID string) (*QuotaInfo, error) {
	u, err := l.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return quotaOf(u), nil
}

// Reserve claims n bytes before an object write. It fails with
// ErrQuotaExceeded without changing anything when the quota would be passed.
// The claim stays marked as reserved until Settle or CancelReservation.
func (l *Ledger) Reserve(ctx context.Context, userID string, n int64) error {
	if n < 0 {
		return ErrInvalidSize
	}
	return l.repo.Reserve(ctx, userID, n)
}

// Settle marks n reserved bytes as backed by a registered file. Used bytes
// do not change.
func (l *Ledger) Settle(ctx context.Context, userID string, n int64) error {
	if n < 0 {
		return ErrInvalidSize
	}
	if n == 0 {
		return nil
	}
	return l.repo.Settle(ctx, userID, n)
}

// CancelReservation gives back n reserved bytes whose upload failed.
func (l *Ledger) CancelReservation(ctx context.Context, userID string, n int64) error {
	if n < 0 {
		return ErrInvalidSize
	}
	if n == 0 {
		return nil
	}
	return l.repo.CancelReservation(ctx, userID, n)
}

// Release returns n previously reserved or used bytes.
func (l *Ledger) Release(ctx context.Context, userID string, n int64) error {
	if n < 0 {
		return ErrInvalidSize
	}
	if n == 0 {
		return nil
	}
	return l.repo.AdjustUsed(ctx, userID, -n)
}

// AdjustUsed applies delta after a confirmed object-store mutation.
func (l *Ledger) AdjustUsed(ctx context.Context, subjectID string, delta int64) error {
	u, err := l.repo.GetBySubject(ctx, subjectID)
	if err != nil {
		return err
	}
	return l.repo.AdjustUsed(ctx, u.ID, delta)
}

func (l *Ledger) SetQuota(ctx context.Context, userID string, quota int64) error {
	if quota <= 0 {
		return ErrInvalidQuota
	}
	return l.repo.SetQuota(ctx, userID, quota)
}

// Reconcile recomputes storage_used as the registered file sizes plus the
// open reservations and returns it. Uploads in flight keep their claim.
func (l *Ledger) Reconcile(ctx context.Context, userID string) (int64, error) {
	before, err := l.repo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := l.repo.Recompute(ctx, userID); err != nil {
		return 0, err
	}
	after, err := l.repo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if after.StorageUsed != before.StorageUsed {
		l.log.Warn(ctx, "storage usage corrected", "user_id", userID, "was", before.StorageUsed, "now", after.StorageUsed)
	}
	return after.StorageUsed, nil
}

// DropReservations forgets reservations left by uploads that never
// finished. Only safe while no upload is running.
func (l *Ledger) DropReservations(ctx context.Context, userID string) error {
	return l.repo.DropReservations(ctx, userID)
}

func (l *Ledger) UserIDs(ctx context.Context) ([]string, error) {
	return l.repo.ListIDs(ctx)
}
