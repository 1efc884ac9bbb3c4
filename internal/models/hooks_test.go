package models

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&ScanJob{}, &Threat{}, &QuarantineRecord{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func TestScanJob_BeforeCreate(t *testing.T) {
	db := setupTestDB(t)
	job := &ScanJob{
		ScanType: ScanTypeQuick,
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if job.ID == "" {
		t.Fatalf("expected ID to be populated by BeforeCreate")
	}
	if job.Status != ScanStatusQueued {
		t.Fatalf("expected default Status 'queued', got %q", job.Status)
	}
}

func TestThreat_BeforeCreate(t *testing.T) {
	db := setupTestDB(t)
	threat := &Threat{
		ScanID:     "scan-1",
		FilePath:   "wp-content/plugins/x.php",
		ThreatType: "eval_base64",
		Severity:   SeverityCritical,
	}
	if err := db.Create(threat).Error; err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if threat.ID == "" {
		t.Fatalf("expected ID to be populated by BeforeCreate")
	}
	if threat.Status != ThreatStatusActive {
		t.Fatalf("expected default Status 'active', got %q", threat.Status)
	}
	if threat.DetectedAt.IsZero() {
		t.Fatalf("expected DetectedAt to be stamped")
	}
}

func TestQuarantineRecord_BeforeCreate(t *testing.T) {
	db := setupTestDB(t)
	rec := &QuarantineRecord{
		FilePath:       "wp-content/uploads/shell.php",
		BackupLocation: "/var/lib/warden/vault/x.wq",
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("expected ID to be populated by BeforeCreate")
	}
	if rec.QuarantinedAt.IsZero() {
		t.Fatalf("expected QuarantinedAt to be stamped")
	}
}

func TestScanJob_Terminal(t *testing.T) {
	cases := []struct {
		status ScanStatus
		want   bool
	}{
		{ScanStatusQueued, false},
		{ScanStatusRunning, false},
		{ScanStatusCompleted, true},
		{ScanStatusFailed, true},
	}
	for _, tc := range cases {
		job := ScanJob{Status: tc.status}
		if got := job.Terminal(); got != tc.want {
			t.Errorf("Terminal() with status %q = %v, want %v", tc.status, got, tc.want)
		}
	}
}
