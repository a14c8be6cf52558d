package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Document is one uploaded file owned by a user. Content shared across owners
// is recorded through SharedContentID.
type Document struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_document_owner_fingerprint,priority:1" json:"owner_id"`
	Title           string     `gorm:"column:title;not null" json:"title"`
	OriginalName    string     `gorm:"column:original_name" json:"original_name"`
	MimeType        string     `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes       int64      `gorm:"column:size_bytes;not null;default:0" json:"size_bytes"`
	StorageKey      string     `gorm:"column:storage_key" json:"storage_key"`
	Fingerprint     string     `gorm:"column:fingerprint;not null;index;uniqueIndex:idx_document_owner_fingerprint,priority:2" json:"fingerprint"`
	SharedContentID *uuid.UUID `gorm:"type:uuid;column:shared_content_id;index" json:"shared_content_id,omitempty"`
	PageCount       int        `gorm:"column:page_count;not null;default:0" json:"page_count"`
	Status          Status     `gorm:"column:status;not null;index" json:"status"`
	Error           string     `gorm:"column:error" json:"error,omitempty"`
	CreatedAt       time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (Document) TableName() string { return "document" }

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
	return nil
}
