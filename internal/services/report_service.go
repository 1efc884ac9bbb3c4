package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/warden-sec/warden/internal/models"
)

// SeverityWeight maps a severity to its display label and relative risk
// weight used in downstream security scoring.
type SeverityWeight struct {
	Label  string `json:"label"`
	Weight int    `json:"weight"`
}

// ReportService provides read-only rollups over scan jobs and threats.
type ReportService struct {
	DB *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{DB: db}
}

// ActiveThreatCounts groups active threats by severity. Severities with no
// active threats are present with a zero count.
func (s *ReportService) ActiveThreatCounts() (map[models.Severity]int64, error) {
	counts := map[models.Severity]int64{
		models.SeverityCritical: 0,
		models.SeverityHigh:     0,
		models.SeverityMedium:   0,
		models.SeverityLow:      0,
	}

	rows := []struct {
		Severity models.Severity
		Count    int64
	}{}
	err := s.DB.Model(&models.Threat{}).
		Select("severity, COUNT(*) as count").
		Where("status = ?", models.ThreatStatusActive).
		Group("severity").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.Severity] = row.Count
	}
	return counts, nil
}

// LastScan returns the most recently started scan job, or nil when no scan
// has ever run.
func (s *ReportService) LastScan() (*models.ScanJob, error) {
	var job models.ScanJob
	err := s.DB.Order("started_at desc").First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// RecentScans returns a newest-first page of scan jobs plus the total count.
func (s *ReportService) RecentScans(page, perPage int) ([]models.ScanJob, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var total int64
	if err := s.DB.Model(&models.ScanJob{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []models.ScanJob
	err := s.DB.Order("started_at desc").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// SeverityWeights returns the fixed severity to label/risk-weight mapping.
func (s *ReportService) SeverityWeights() map[models.Severity]SeverityWeight {
	return map[models.Severity]SeverityWeight{
		models.SeverityCritical: {Label: "Critical", Weight: 40},
		models.SeverityHigh:     {Label: "High", Weight: 25},
		models.SeverityMedium:   {Label: "Medium", Weight: 15},
		models.SeverityLow:      {Label: "Low", Weight: 5},
	}
}
