package apikey

import (
	"time"

	"filevault/internal/domain/access"
)

// APIKey is a stored credential. Only the digest of the plaintext is kept.
type APIKey struct {
	ID           string     `gorm:"column:id;primaryKey"`
	UserID       string     `gorm:"column:user_id"`
	Name         string     `gorm:"column:name"`
	Digest       string     `gorm:"column:digest"`
	MaskedSuffix string     `gorm:"column:masked_suffix"`
	Permissions  string     `gorm:"column:permissions"`
	Active       bool       `gorm:"column:active"`
	ExpiresAt    *time.Time `gorm:"column:expires_at"`
	LastUsedAt   *time.Time `gorm:"column:last_used_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (APIKey) TableName() string { return "api_keys" }

func (k *APIKey) Scopes() access.Set { return access.Decode(k.Permissions) }

// Masked is the only form of the key ever shown after creation.
func (k *APIKey) Masked() string { return KeyPrefix + "****" + k.MaskedSuffix }

func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// Usable reports whether the key may authenticate at now.
func (k *APIKey) Usable(now time.Time) bool {
	return k.Active && !k.Expired(now)
}

// View is the listing representation.
type View struct {
	ID          string     `json:"id"`
	Name        string     `json:"key_name"`
	Key         string     `json:"api_key"`
	Permissions []string   `json:"permissions"`
	Active      bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at"`
	LastUsedAt  *time.Time `json:"last_used"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (k *APIKey) View() View {
	return View{
		ID:          k.ID,
		Name:        k.Name,
		Key:         k.Masked(),
		Permissions: k.Scopes().Strings(),
		Active:      k.Active,
		ExpiresAt:   k.ExpiresAt,
		LastUsedAt:  k.LastUsedAt,
		CreatedAt:   k.CreatedAt,
	}
}

// Validation is what a successful key check yields to the resolver.
type Validation struct {
	KeyID       string
	UserID      string
	Permissions access.Set
}
