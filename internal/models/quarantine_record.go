package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuarantineRecord owns a durable copy of an isolated file's original bytes.
// OriginalContent is retained on the row so restore stays lossless even if
// the vault file is lost. At most one record with restored_at = null may
// exist per file_path at a time.
type QuarantineRecord struct {
	ID              string     `gorm:"primaryKey" json:"id"`
	ThreatID        *string    `gorm:"index" json:"threat_id,omitempty"`
	FilePath        string     `gorm:"index" json:"file_path"`
	OriginalSize    int64      `json:"original_size"`
	OriginalContent []byte     `gorm:"type:blob" json:"-"`
	BackupLocation  string     `json:"backup_location"`
	QuarantinedAt   time.Time  `json:"quarantined_at"`
	RestoredAt      *time.Time `gorm:"index" json:"restored_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (r *QuarantineRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.QuarantinedAt.IsZero() {
		r.QuarantinedAt = time.Now()
	}
	return
}
