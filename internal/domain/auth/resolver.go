// Package auth resolves who is calling. API keys are tried first; a request
// without a usable key falls back to the identity provider's session.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"filevault/internal/domain/access"
	"filevault/internal/domain/apikey"
	"filevault/internal/domain/identity"
	"filevault/internal/domain/user"
	"filevault/internal/logging"
	"filevault/internal/pkg/apperr"
)

// APIKeyHeader carries an API key without the Bearer scheme.
const APIKeyHeader = "X-API-Key"

var ErrUnauthenticated = apperr.New(apperr.KindUnauthenticated, "authentication required")

type KeyValidator interface {
	Validate(ctx context.Context, plaintext string) (*apikey.Validation, bool)
}

// Accounts is the part of the user ledger the resolver needs.
type Accounts interface {
	Upsert(ctx context.Context, id identity.Identity) (*user.User, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type Resolver struct {
	keys     KeyValidator
	provider identity.Provider
	accounts Accounts
	log      logging.Logger
}

func NewResolver(keys KeyValidator, provider identity.Provider, accounts Accounts, log logging.Logger) *Resolver {
	return &Resolver{keys: keys, provider: provider, accounts: accounts, log: log}
}

// Resolve returns the principal for r. Only collaborator outages surface as
// something other than Unauthenticated.
func (a *Resolver) Resolve(r *http.Request) (*access.Principal, error) {
	ctx := r.Context()

	if key := presentedKey(r); key != "" {
		p, err := a.fromKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}

	id, err := a.provider.Resolve(r)
	if err != nil {
		if apperr.Is(err, apperr.KindUnauthenticated) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	u, err := a.accounts.Upsert(ctx, *id)
	if err != nil {
		return nil, err
	}
	return &access.Principal{
		UserID:      u.ID,
		SubjectID:   u.SubjectID,
		Prefix:      u.Prefix,
		Permissions: access.Full(),
		AuthType:    access.AuthSession,
	}, nil
}

// fromKey returns nil without error when the key is not usable.
func (a *Resolver) fromKey(ctx context.Context, key string) (*access.Principal, error) {
	v, ok := a.keys.Validate(ctx, key)
	if !ok {
		return nil, nil
	}

	u, err := a.accounts.GetByID(ctx, v.UserID)
	if errors.Is(err, user.ErrUserNotFound) {
		a.log.Warn(ctx, "api key owner missing", "key_id", v.KeyID, "user_id", v.UserID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &access.Principal{
		UserID:      u.ID,
		SubjectID:   u.SubjectID,
		Prefix:      u.Prefix,
		Permissions: v.Permissions,
		AuthType:    access.AuthAPIKey,
		APIKeyID:    v.KeyID,
	}, nil
}

func presentedKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get(APIKeyHeader)); k != "" {
		return k
	}
	if token, ok := identity.BearerToken(r); ok && strings.HasPrefix(token, apikey.KeyPrefix) {
		return token
	}
	return ""
}
