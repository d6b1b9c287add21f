package file

import (
	"time"

	"filevault/internal/domain/access"
)

// File is a registry entry. Folders share the table, have IsFolder set and
// no backing object. A nil ParentID means the root.
type File struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	UserID         string    `gorm:"column:user_id" json:"-"`
	ParentID       *string   `gorm:"column:parent_id" json:"parent_id"`
	Name           string    `gorm:"column:name" json:"name"`
	ObjectKey      string    `gorm:"column:object_key" json:"-"`
	Size           int64     `gorm:"column:size" json:"size"`
	ContentType    string    `gorm:"column:content_type" json:"content_type"`
	IsFolder       bool      `gorm:"column:is_folder" json:"is_folder"`
	UploadedAt     time.Time `gorm:"column:uploaded_at" json:"uploaded_at"`
	LastAccessedAt time.Time `gorm:"column:last_accessed_at" json:"last_accessed_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (File) TableName() string { return "files" }

// Owner identifies whose namespace an operation runs in.
type Owner struct {
	UserID string
	Prefix string
}

func OwnerOf(p *access.Principal) Owner {
	return Owner{UserID: p.UserID, Prefix: p.Prefix}
}

// DownloadLink is a time-limited URL for one file.
type DownloadLink struct {
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
}

type Order string

const (
	OrderNewest Order = "newest"
	OrderOldest Order = "oldest"
	OrderName   Order = "name"
	OrderSize   Order = "size"
)

// ParseOrder maps a query value to an Order; empty means newest first.
func ParseOrder(v string) (Order, error) {
	switch Order(v) {
	case "", OrderNewest:
		return OrderNewest, nil
	case OrderOldest, OrderName, OrderSize:
		return Order(v), nil
	}
	return "", ErrInvalidOrder
}

func (o Order) clause() string {
	switch o {
	case OrderOldest:
		return "uploaded_at ASC, id ASC"
	case OrderName:
		return "is_folder DESC, name ASC, id ASC"
	case OrderSize:
		return "size DESC, id ASC"
	default:
		return "uploaded_at DESC, id DESC"
	}
}
