package user

import "time"

// DefaultQuota is 5 GiB.
const DefaultQuota int64 = 5 * 1024 * 1024 * 1024

// User is the local record of an identity-provider account plus its
// storage ledger. Rows are upserted by subject and never hard-deleted.
// StorageReserved is the part of StorageUsed claimed by uploads whose file
// row is not written yet.
type User struct {
	ID              string    `gorm:"column:id;primaryKey" json:"id"`
	SubjectID       string    `gorm:"column:subject_id" json:"subject_id"`
	Email           string    `gorm:"column:email" json:"email"`
	FirstName       string    `gorm:"column:first_name" json:"first_name"`
	LastName        string    `gorm:"column:last_name" json:"last_name"`
	ImageURL        string    `gorm:"column:image_url" json:"image_url"`
	Prefix          string    `gorm:"column:namespace_prefix" json:"namespace_prefix"`
	StorageQuota    int64     `gorm:"column:storage_quota" json:"storage_quota"`
	StorageUsed     int64     `gorm:"column:storage_used" json:"storage_used"`
	StorageReserved int64     `gorm:"column:storage_reserved" json:"-"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) NamespacePrefix() string { return u.Prefix }

// QuotaInfo is the caller-facing view of the ledger.
type QuotaInfo struct {
	Used         int64   `json:"used"`
	Quota        int64   `json:"quota"`
	Available    int64   `json:"available"`
	UsagePercent float64 `json:"usage_percent"`
	Prefix       string  `json:"prefix"`
}

func quotaOf(u *User) *QuotaInfo {
	available := u.StorageQuota - u.StorageUsed
	if available < 0 {
		available = 0
	}
	var pct float64
	if u.StorageQuota > 0 {
		pct = float64(u.StorageUsed) * 100 / float64(u.StorageQuota)
	}
	return &QuotaInfo{
		Used:         u.StorageUsed,
		Quota:        u.StorageQuota,
		Available:    available,
		UsagePercent: pct,
		Prefix:       u.Prefix,
	}
}
