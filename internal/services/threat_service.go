package services

import (
	"errors"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/warden-sec/warden/internal/models"
)

var (
	ErrThreatNotFound  = errors.New("threat not found")
	ErrThreatNotActive = errors.New("threat is not active")
)

// ThreatService applies operator decisions to detected threats.
type ThreatService struct {
	DB         *gorm.DB
	Quarantine *QuarantineService
	// ScanRoot resolves the relative paths stored on threat rows.
	ScanRoot string
}

func NewThreatService(db *gorm.DB, qs *QuarantineService, scanRoot string) *ThreatService {
	return &ThreatService{DB: db, Quarantine: qs, ScanRoot: scanRoot}
}

// QuarantineThreat isolates the threat's file and moves the threat from
// active to quarantined.
func (s *ThreatService) QuarantineThreat(threatID string) (*models.QuarantineRecord, error) {
	threat, err := s.get(threatID)
	if err != nil {
		return nil, err
	}
	if threat.Status != models.ThreatStatusActive {
		return nil, ErrThreatNotActive
	}

	record, err := s.Quarantine.QuarantineFile(filepath.Join(s.ScanRoot, threat.FilePath), &threat.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.DB.Model(&models.Threat{}).Where("id = ?", threat.ID).Updates(map[string]interface{}{
		"status":      models.ThreatStatusQuarantined,
		"resolved_at": now,
	}).Error
	if err != nil {
		return record, err
	}
	return record, nil
}

// IgnoreThreat marks an operator-confirmed false positive. It never touches
// the filesystem.
func (s *ThreatService) IgnoreThreat(threatID string) error {
	threat, err := s.get(threatID)
	if err != nil {
		return err
	}
	if threat.Status != models.ThreatStatusActive {
		return ErrThreatNotActive
	}

	now := time.Now()
	return s.DB.Model(&models.Threat{}).Where("id = ?", threat.ID).Updates(map[string]interface{}{
		"status":      models.ThreatStatusIgnored,
		"resolved_at": now,
	}).Error
}

// ListActive returns active threats ordered most recent first.
func (s *ThreatService) ListActive() ([]models.Threat, error) {
	var threats []models.Threat
	err := s.DB.Where("status = ?", models.ThreatStatusActive).Order("detected_at desc").Find(&threats).Error
	return threats, err
}

func (s *ThreatService) get(id string) (*models.Threat, error) {
	var threat models.Threat
	if err := s.DB.First(&threat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThreatNotFound
		}
		return nil, err
	}
	return &threat, nil
}
