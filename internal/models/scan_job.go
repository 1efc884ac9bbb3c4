package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScanType string

const (
	ScanTypeQuick   ScanType = "quick"
	ScanTypeFull    ScanType = "full"
	ScanTypePlugins ScanType = "plugins"
	ScanTypeThemes  ScanType = "themes"
	ScanTypeCustom  ScanType = "custom"
)

// ValidScanType reports whether t names a known scan profile.
func ValidScanType(t ScanType) bool {
	switch t {
	case ScanTypeQuick, ScanTypeFull, ScanTypePlugins, ScanTypeThemes, ScanTypeCustom:
		return true
	}
	return false
}

type ScanStatus string

const (
	ScanStatusQueued    ScanStatus = "queued"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// ScanJob tracks one run of the detection pipeline over a bounded file set.
// Counters are mutated only by the owning scan worker while the job is
// running; once status is completed or failed the row is immutable.
type ScanJob struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	ScanType    ScanType   `json:"scan_type"`
	Status      ScanStatus `gorm:"index" json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	FilesScanned int    `json:"files_scanned"`
	ThreatsFound int    `json:"threats_found"`
	Progress     int    `json:"progress"` // 0-100
	TotalFiles   int    `json:"total_files"`
	CurrentFile  string `json:"current_file"`
	ErrorMessage string `json:"error_message,omitempty"`

	CancelRequested bool `json:"cancel_requested"`

	Threats []Threat `gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE" json:"threats,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *ScanJob) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	if j.Status == "" {
		j.Status = ScanStatusQueued
	}
	return
}

// Terminal reports whether the job reached a final state.
func (j *ScanJob) Terminal() bool {
	return j.Status == ScanStatusCompleted || j.Status == ScanStatusFailed
}
