package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/warden-sec/warden/internal/models"
)

func setupThreatService(t *testing.T) (*gorm.DB, *ThreatService, string) {
	t.Helper()
	db := setupQuarantineTestDB(t)
	root := t.TempDir()
	qs := NewQuarantineService(db, filepath.Join(t.TempDir(), "vault"))
	return db, NewThreatService(db, qs, root), root
}

func seedThreat(t *testing.T, db *gorm.DB, root, relPath string) *models.Threat {
	t.Helper()
	writeTestFile(t, filepath.Join(root, relPath), `<?php eval(base64_decode('x')); ?>`)
	threat := &models.Threat{
		ScanID:     "scan-1",
		FilePath:   relPath,
		ThreatType: "eval_base64",
		Severity:   models.SeverityCritical,
		Status:     models.ThreatStatusActive,
	}
	require.NoError(t, db.Create(threat).Error)
	return threat
}

func TestQuarantineThreat(t *testing.T) {
	db, svc, root := setupThreatService(t)
	threat := seedThreat(t, db, root, "shell.php")

	record, err := svc.QuarantineThreat(threat.ID)
	require.NoError(t, err)
	require.NotNil(t, record.ThreatID)
	assert.Equal(t, threat.ID, *record.ThreatID)

	var reloaded models.Threat
	require.NoError(t, db.First(&reloaded, "id = ?", threat.ID).Error)
	assert.Equal(t, models.ThreatStatusQuarantined, reloaded.Status)
	require.NotNil(t, reloaded.ResolvedAt)

	// The file on disk was neutralized.
	content, err := os.ReadFile(filepath.Join(root, "shell.php"))
	require.NoError(t, err)
	assert.NotContains(t, string(content), "eval")
}

func TestQuarantineThreatNotFound(t *testing.T) {
	_, svc, _ := setupThreatService(t)
	_, err := svc.QuarantineThreat("missing")
	require.ErrorIs(t, err, ErrThreatNotFound)
}

func TestQuarantineThreatMissingFile(t *testing.T) {
	db, svc, root := setupThreatService(t)
	threat := seedThreat(t, db, root, "gone.php")
	require.NoError(t, os.Remove(filepath.Join(root, "gone.php")))

	_, err := svc.QuarantineThreat(threat.ID)
	require.ErrorIs(t, err, ErrFileNotFound)

	// The threat stays active when isolation failed.
	var reloaded models.Threat
	require.NoError(t, db.First(&reloaded, "id = ?", threat.ID).Error)
	assert.Equal(t, models.ThreatStatusActive, reloaded.Status)
}

func TestQuarantineThreatNotActive(t *testing.T) {
	db, svc, root := setupThreatService(t)
	threat := seedThreat(t, db, root, "a.php")
	require.NoError(t, db.Model(threat).Update("status", models.ThreatStatusIgnored).Error)

	_, err := svc.QuarantineThreat(threat.ID)
	require.ErrorIs(t, err, ErrThreatNotActive)
}

func TestIgnoreThreat(t *testing.T) {
	db, svc, root := setupThreatService(t)
	threat := seedThreat(t, db, root, "fp.php")

	require.NoError(t, svc.IgnoreThreat(threat.ID))

	var reloaded models.Threat
	require.NoError(t, db.First(&reloaded, "id = ?", threat.ID).Error)
	assert.Equal(t, models.ThreatStatusIgnored, reloaded.Status)
	require.NotNil(t, reloaded.ResolvedAt)

	// Ignore never touches the filesystem.
	content, err := os.ReadFile(filepath.Join(root, "fp.php"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "eval")

	require.ErrorIs(t, svc.IgnoreThreat(threat.ID), ErrThreatNotActive)
	require.ErrorIs(t, svc.IgnoreThreat("missing"), ErrThreatNotFound)
}

func TestListActiveThreats(t *testing.T) {
	db, svc, root := setupThreatService(t)
	seedThreat(t, db, root, "one.php")
	two := seedThreat(t, db, root, "two.php")
	require.NoError(t, svc.IgnoreThreat(two.ID))

	active, err := svc.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "one.php", active[0].FilePath)
}
