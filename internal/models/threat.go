package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

type ThreatStatus string

const (
	ThreatStatusActive      ThreatStatus = "active"
	ThreatStatusQuarantined ThreatStatus = "quarantined"
	ThreatStatusIgnored     ThreatStatus = "ignored"
)

// Threat records one detection rule match against one file within one scan job.
type Threat struct {
	ID         string       `gorm:"primaryKey" json:"id"`
	ScanID     string       `gorm:"index" json:"scan_id"`
	FilePath   string       `json:"file_path"` // relative to the scan root
	ThreatType string       `json:"threat_type"`
	Severity   Severity     `json:"severity"`
	Signature  string       `json:"signature_description"`
	Snippet    string       `json:"matched_snippet"`
	Status     ThreatStatus `gorm:"index" json:"status"`
	DetectedAt time.Time    `json:"detected_at"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Threat) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = ThreatStatusActive
	}
	if t.DetectedAt.IsZero() {
		t.DetectedAt = time.Now()
	}
	return
}
