package services

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/warden-sec/warden/internal/logger"
	"github.com/warden-sec/warden/internal/metrics"
	"github.com/warden-sec/warden/internal/models"
)

var (
	ErrQuarantineNotFound = errors.New("quarantine record not found")
	ErrAlreadyRestored    = errors.New("quarantine record already restored")
	ErrAlreadyQuarantined = errors.New("file already has an unrestored quarantine record")
	ErrFileNotFound       = errors.New("file not found")
	ErrInvalidAction      = errors.New("invalid bulk action")
)

// neutralizedStub replaces a quarantined file on disk. It refuses execution
// and points the reader at the vault.
const neutralizedStub = `<?php
// This file was quarantined after matching a malicious code signature.
// The original content is held in the quarantine vault and can be
// restored by an administrator.
exit('This file has been quarantined.');
`

// QuarantineService isolates flagged files into a vault directory and
// supports restore, permanent delete and download. Vault content is encoded
// (base64 over reversed bytes); this is obfuscation against accidental
// execution, not encryption.
type QuarantineService struct {
	DB       *gorm.DB
	VaultDir string

	neutralize func(path string) error
}

func NewQuarantineService(db *gorm.DB, vaultDir string) *QuarantineService {
	s := &QuarantineService{DB: db, VaultDir: vaultDir}
	s.neutralize = s.neutralizeFile
	return s
}

// QuarantineFile reads the file at path, stores an encoded copy in the vault,
// records a QuarantineRecord, then overwrites the original with a harmless
// stub marked read-only. A failure at any step after the vault write rolls
// back whatever was created so no partial state survives.
func (s *QuarantineService) QuarantineFile(path string, threatID *string) (*models.QuarantineRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("read file for quarantine: %w", err)
	}

	var existing int64
	err = s.DB.Model(&models.QuarantineRecord{}).
		Where("file_path = ? AND restored_at IS NULL", path).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyQuarantined
	}

	if err := os.MkdirAll(s.VaultDir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure vault directory: %w", err)
	}

	vaultName := fmt.Sprintf("%s_%s.wq", time.Now().Format("20060102_150405"), uuid.New().String())
	vaultPath := filepath.Join(s.VaultDir, vaultName)
	if err := os.WriteFile(vaultPath, []byte(encodeVault(content)), 0o600); err != nil {
		return nil, fmt.Errorf("write vault copy: %w", err)
	}

	record := &models.QuarantineRecord{
		ThreatID:        threatID,
		FilePath:        path,
		OriginalSize:    int64(len(content)),
		OriginalContent: content,
		BackupLocation:  vaultPath,
	}
	if err := s.DB.Create(record).Error; err != nil {
		// Compensating cleanup: a vault file without a record is an orphan.
		if rmErr := os.Remove(vaultPath); rmErr != nil {
			logger.WithFields(map[string]interface{}{"vault": vaultPath}).WithError(rmErr).Error("remove orphaned vault file")
		}
		return nil, fmt.Errorf("record quarantine: %w", err)
	}

	if err := s.neutralize(path); err != nil {
		logger.WithFields(map[string]interface{}{"file": path}).WithError(err).Error("neutralize quarantined file")
		// The file is still live, so the record and vault copy must not
		// survive either; otherwise the dup-check blocks every retry.
		if delErr := s.DB.Delete(&models.QuarantineRecord{}, "id = ?", record.ID).Error; delErr != nil {
			logger.WithFields(map[string]interface{}{"record": record.ID}).WithError(delErr).Error("remove quarantine record after failed neutralize")
		}
		if rmErr := os.Remove(vaultPath); rmErr != nil {
			logger.WithFields(map[string]interface{}{"vault": vaultPath}).WithError(rmErr).Error("remove orphaned vault file")
		}
		return nil, fmt.Errorf("neutralize file: %w", err)
	}

	metrics.IncQuarantineOp("quarantine")
	return record, nil
}

// neutralizeFile overwrites the original with the stub and marks it read-only.
func (s *QuarantineService) neutralizeFile(path string) error {
	if err := os.WriteFile(path, []byte(neutralizedStub), 0o644); err != nil {
		return err
	}
	if err := os.Chmod(path, 0o444); err != nil {
		logger.WithFields(map[string]interface{}{"file": path}).WithError(err).Warn("mark neutralized file read-only")
	}
	return nil
}

// Restore writes the original bytes back to the file's location. The vault
// copy is kept as an audit trail. Restoring an already-restored record fails.
func (s *QuarantineService) Restore(id string) error {
	record, err := s.get(id)
	if err != nil {
		return err
	}
	if record.RestoredAt != nil {
		return ErrAlreadyRestored
	}

	if err := os.MkdirAll(filepath.Dir(record.FilePath), 0o755); err != nil {
		return fmt.Errorf("recreate parent directory: %w", err)
	}
	// The neutralized file was marked read-only.
	if _, statErr := os.Stat(record.FilePath); statErr == nil {
		if err := os.Chmod(record.FilePath, 0o644); err != nil {
			return fmt.Errorf("unlock neutralized file: %w", err)
		}
	}
	content, err := s.originalBytes(record)
	if err != nil {
		return err
	}
	if err := os.WriteFile(record.FilePath, content, 0o644); err != nil {
		return fmt.Errorf("restore file content: %w", err)
	}

	now := time.Now()
	if err := s.DB.Model(&models.QuarantineRecord{}).Where("id = ?", record.ID).Update("restored_at", now).Error; err != nil {
		return err
	}

	metrics.IncQuarantineOp("restore")
	return nil
}

// Delete permanently removes the vault file and the record. There is no
// original-bytes fallback once this runs.
func (s *QuarantineService) Delete(id string) error {
	record, err := s.get(id)
	if err != nil {
		return err
	}

	if err := os.Remove(record.BackupLocation); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove vault file: %w", err)
	}
	if err := s.DB.Delete(&models.QuarantineRecord{}, "id = ?", record.ID).Error; err != nil {
		return err
	}

	metrics.IncQuarantineOp("delete")
	return nil
}

// Download returns the original bytes and a safe attachment name for offline
// analysis.
func (s *QuarantineService) Download(id string) ([]byte, string, error) {
	record, err := s.get(id)
	if err != nil {
		return nil, "", err
	}
	content, err := s.originalBytes(record)
	if err != nil {
		return nil, "", err
	}
	name := filepath.Base(record.FilePath) + ".quarantined"
	return content, name, nil
}

// originalBytes prefers the bytes stored on the record and falls back to
// decoding the vault copy when the row predates content retention.
func (s *QuarantineService) originalBytes(record *models.QuarantineRecord) ([]byte, error) {
	if len(record.OriginalContent) > 0 || record.OriginalSize == 0 {
		return record.OriginalContent, nil
	}
	encoded, err := os.ReadFile(record.BackupLocation)
	if err != nil {
		return nil, fmt.Errorf("read vault copy: %w", err)
	}
	content, err := decodeVault(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode vault copy: %w", err)
	}
	return content, nil
}

// BulkResult reports the outcome of a bulk restore or delete.
type BulkResult struct {
	Success  int           `json:"success"`
	Failed   int           `json:"failed"`
	Failures []BulkFailure `json:"failures,omitempty"`
}

type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkAction applies restore or delete across ids. Failures are isolated per
// item; one bad id never aborts the rest.
func (s *QuarantineService) BulkAction(action string, ids []string) (*BulkResult, error) {
	var op func(string) error
	switch action {
	case "restore":
		op = s.Restore
	case "delete":
		op = s.Delete
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}

	result := &BulkResult{}
	for _, id := range ids {
		if err := op(id); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BulkFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Success++
	}
	return result, nil
}

// QuarantineList is a paginated listing plus aggregate vault usage.
type QuarantineList struct {
	Records   []models.QuarantineRecord `json:"records"`
	Total     int64                     `json:"total"`
	VaultSize int64                     `json:"vault_size"`
}

// List returns records filtered to active (not yet restored) or restored,
// newest first.
func (s *QuarantineService) List(status string, page, perPage int) (*QuarantineList, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := s.DB.Model(&models.QuarantineRecord{})
	switch status {
	case "", "active":
		query = query.Where("restored_at IS NULL")
	case "restored":
		query = query.Where("restored_at IS NOT NULL")
	default:
		return nil, fmt.Errorf("unknown status filter: %s", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var records []models.QuarantineRecord
	err := query.Order("quarantined_at desc").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	var vaultSize int64
	err = s.DB.Model(&models.QuarantineRecord{}).
		Where("restored_at IS NULL").
		Select("COALESCE(SUM(original_size), 0)").
		Scan(&vaultSize).Error
	if err != nil {
		return nil, err
	}

	return &QuarantineList{Records: records, Total: total, VaultSize: vaultSize}, nil
}

func (s *QuarantineService) get(id string) (*models.QuarantineRecord, error) {
	var record models.QuarantineRecord
	if err := s.DB.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuarantineNotFound
		}
		return nil, err
	}
	return &record, nil
}

// encodeVault obfuscates content for at-rest vault storage: bytes reversed,
// then base64. Reversible; not confidentiality.
func encodeVault(content []byte) string {
	reversed := make([]byte, len(content))
	for i, b := range content {
		reversed[len(content)-1-i] = b
	}
	return base64.StdEncoding.EncodeToString(reversed)
}

// decodeVault reverses encodeVault.
func decodeVault(encoded string) ([]byte, error) {
	reversed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	content := make([]byte, len(reversed))
	for i, b := range reversed {
		content[len(reversed)-1-i] = b
	}
	return content, nil
}
