package services

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/warden-sec/warden/internal/logger"
	"github.com/warden-sec/warden/internal/metrics"
	"github.com/warden-sec/warden/internal/models"
	"github.com/warden-sec/warden/internal/scanner"
)

var (
	ErrInvalidScanType = errors.New("invalid scan type")
	ErrNoFilesFound    = errors.New("no files found to scan")
	ErrScanNotFound    = errors.New("scan job not found")
	ErrScanTerminal    = errors.New("scan job already finished")
)

// progressBatch is how many files are processed between persisted progress
// updates. The final file always flushes regardless of batch position.
const progressBatch = 5

// ScanService owns the scan job lifecycle: it creates jobs, runs the
// discovery/detection pipeline on a worker goroutine, and finalizes status.
// Workers communicate with pollers only through the persisted ScanJob row.
type ScanService struct {
	DB            *gorm.DB
	Engine        *scanner.Engine
	Discovery     *scanner.Discovery
	Notifications *NotificationService

	// Deadline is the soft execution budget per scan; zero disables it.
	Deadline time.Duration
	// FilePause is slept between files so a scan never starves other work.
	FilePause time.Duration
}

func NewScanService(db *gorm.DB, engine *scanner.Engine, discovery *scanner.Discovery, ns *NotificationService) *ScanService {
	return &ScanService{
		DB:            db,
		Engine:        engine,
		Discovery:     discovery,
		Notifications: ns,
		Deadline:      300 * time.Second,
		FilePause:     10 * time.Millisecond,
	}
}

// Start validates the request, runs discovery, persists a queued job and
// launches the worker. It returns immediately; the job id is the handle for
// later polling. Zero discovered files is a synchronous failure and creates
// no job row.
func (s *ScanService) Start(scanType models.ScanType, customPaths []string) (*models.ScanJob, error) {
	if !models.ValidScanType(scanType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidScanType, scanType)
	}

	refs, err := s.Discovery.Discover(scanType, customPaths)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	if len(refs) == 0 {
		return nil, ErrNoFilesFound
	}

	job := &models.ScanJob{
		ScanType:   scanType,
		Status:     models.ScanStatusQueued,
		StartedAt:  time.Now(),
		TotalFiles: len(refs),
	}
	if err := s.DB.Create(job).Error; err != nil {
		return nil, fmt.Errorf("create scan job: %w", err)
	}

	go s.run(job.ID, refs)

	return job, nil
}

// run is the scan worker. It is the only writer of this job's counters.
func (s *ScanService) run(jobID string, refs []scanner.FileRef) {
	log := logger.WithFields(map[string]interface{}{"scan_id": jobID})
	metrics.IncScanStarted()

	res := s.DB.Model(&models.ScanJob{}).
		Where("id = ? AND status = ?", jobID, models.ScanStatusQueued).
		Update("status", models.ScanStatusRunning)
	if res.Error != nil || res.RowsAffected == 0 {
		log.WithError(res.Error).Error("scan job vanished before processing began")
		s.finalize(jobID, models.ScanStatusFailed, "job left queued state unexpectedly")
		return
	}

	var deadline time.Time
	if s.Deadline > 0 {
		deadline = time.Now().Add(s.Deadline)
	}

	total := len(refs)
	scanned := 0
	threats := 0

	for i, ref := range refs {
		if !deadline.IsZero() && time.Now().After(deadline) {
			log.Warn("scan deadline exceeded")
			s.flushProgress(jobID, scanned, threats, total, ref.RelativePath)
			s.finalize(jobID, models.ScanStatusFailed, "scan deadline exceeded")
			return
		}

		content, err := os.ReadFile(ref.Path)
		if err != nil {
			// Unreadable files are skipped, never fatal to the scan.
			log.WithFields(map[string]interface{}{"file": ref.RelativePath}).WithError(err).Warn("unreadable file skipped")
			scanned++
			continue
		}

		for _, match := range s.Engine.ScanContent(content) {
			threat := models.Threat{
				ScanID:     jobID,
				FilePath:   ref.RelativePath,
				ThreatType: match.Rule,
				Severity:   match.Severity,
				Signature:  match.Description,
				Snippet:    match.Snippet,
				Status:     models.ThreatStatusActive,
			}
			if err := s.DB.Create(&threat).Error; err != nil {
				log.WithError(err).Error("persist threat")
				continue
			}
			threats++
			metrics.IncThreatDetected(string(match.Severity))
		}

		scanned++

		if scanned%progressBatch == 0 || i == total-1 {
			s.flushProgress(jobID, scanned, threats, total, ref.RelativePath)

			if s.cancelRequested(jobID) {
				log.Info("scan cancelled by operator")
				s.finalize(jobID, models.ScanStatusFailed, "cancelled")
				return
			}
		}

		if s.FilePause > 0 {
			time.Sleep(s.FilePause)
		}
	}

	metrics.AddFilesScanned(scanned)
	s.finalize(jobID, models.ScanStatusCompleted, "")
	s.reportCompletion(jobID)
}

// flushProgress applies one transactional counter update. The status guard
// keeps terminal rows immutable even if a stray flush races a finalize.
func (s *ScanService) flushProgress(jobID string, scanned, threats, total int, currentFile string) {
	progress := 0
	if total > 0 {
		progress = int(math.Round(float64(scanned) / float64(total) * 100))
	}
	// 100 is reserved for the completed finalize; an in-flight job never
	// reads fully done.
	if progress > 99 {
		progress = 99
	}

	err := s.DB.Model(&models.ScanJob{}).
		Where("id = ? AND status = ?", jobID, models.ScanStatusRunning).
		Updates(map[string]interface{}{
			"files_scanned": scanned,
			"threats_found": threats,
			"progress":      progress,
			"current_file":  currentFile,
		}).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{"scan_id": jobID}).WithError(err).Error("persist scan progress")
	}
}

func (s *ScanService) cancelRequested(jobID string) bool {
	var flagged bool
	err := s.DB.Model(&models.ScanJob{}).
		Where("id = ?", jobID).
		Pluck("cancel_requested", &flagged).Error
	if err != nil {
		return false
	}
	return flagged
}

// finalize moves a job into a terminal state exactly once.
func (s *ScanService) finalize(jobID string, status models.ScanStatus, reason string) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":        status,
		"completed_at":  now,
		"error_message": reason,
	}
	if status == models.ScanStatusCompleted {
		updates["progress"] = 100
	}

	res := s.DB.Model(&models.ScanJob{}).
		Where("id = ? AND status NOT IN ?", jobID, []models.ScanStatus{models.ScanStatusCompleted, models.ScanStatusFailed}).
		Updates(updates)
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{"scan_id": jobID}).WithError(res.Error).Error("finalize scan job")
		return
	}
	if res.RowsAffected == 0 {
		return
	}

	if status == models.ScanStatusCompleted {
		metrics.IncScanCompleted()
	} else {
		metrics.IncScanFailed()
	}
}

// reportCompletion emits the scan summary and, when threats were found, a
// threats-detected event. Best-effort: failures are logged and never touch
// the job's terminal state.
func (s *ScanService) reportCompletion(jobID string) {
	if s.Notifications == nil {
		return
	}

	var job models.ScanJob
	if err := s.DB.First(&job, "id = ?", jobID).Error; err != nil {
		logger.WithError(err).Error("load completed scan for summary")
		return
	}

	summary := fmt.Sprintf("%s scan finished: %d files scanned, %d threats found", job.ScanType, job.FilesScanned, job.ThreatsFound)
	s.Notifications.SendExternal("scan", "Scan completed", summary)

	if job.ThreatsFound > 0 {
		title := fmt.Sprintf("%d threats detected", job.ThreatsFound)
		if _, err := s.Notifications.Create(models.NotificationTypeWarning, title, summary); err != nil {
			logger.WithError(err).Error("record threat notification")
		}
		s.Notifications.SendExternal("threats", title, fmt.Sprintf("%s (scan %s)", summary, job.ID))
	}
}

// Progress is the polling view of a running or finished scan.
type Progress struct {
	Status       models.ScanStatus `json:"status"`
	Progress     int               `json:"progress"`
	FilesScanned int               `json:"files_scanned"`
	ThreatsFound int               `json:"threats_found"`
	CurrentFile  string            `json:"current_file"`
}

// GetProgress reads the persisted job row. Pollers and the worker share no
// in-memory state, so progress survives a poller reconnect.
func (s *ScanService) GetProgress(jobID string) (*Progress, error) {
	job, err := s.getJob(jobID)
	if err != nil {
		return nil, err
	}
	return &Progress{
		Status:       job.Status,
		Progress:     job.Progress,
		FilesScanned: job.FilesScanned,
		ThreatsFound: job.ThreatsFound,
		CurrentFile:  job.CurrentFile,
	}, nil
}

// GetResults returns the job along with its threats.
func (s *ScanService) GetResults(jobID string) (*models.ScanJob, error) {
	var job models.ScanJob
	err := s.DB.Preload("Threats").First(&job, "id = ?", jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Cancel flags a running job; the worker observes the flag at the next batch
// boundary and finalizes the job as failed. Terminal jobs reject cancel.
func (s *ScanService) Cancel(jobID string) error {
	job, err := s.getJob(jobID)
	if err != nil {
		return err
	}
	if job.Terminal() {
		return ErrScanTerminal
	}
	return s.DB.Model(&models.ScanJob{}).Where("id = ?", jobID).Update("cancel_requested", true).Error
}

func (s *ScanService) getJob(jobID string) (*models.ScanJob, error) {
	var job models.ScanJob
	if err := s.DB.First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, err
	}
	return &job, nil
}

// PurgeOldScans deletes terminal jobs older than the horizon together with
// their non-active threats. Active threats are never purged on age alone;
// jobs that still own one are kept so the threat stays linked to its scan.
func (s *ScanService) PurgeOldScans(horizon time.Duration) (int, error) {
	cutoff := time.Now().Add(-horizon)

	var jobs []models.ScanJob
	err := s.DB.
		Where("status IN ? AND started_at < ?", []models.ScanStatus{models.ScanStatusCompleted, models.ScanStatusFailed}, cutoff).
		Find(&jobs).Error
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, job := range jobs {
		var activeCount int64
		if err := s.DB.Model(&models.Threat{}).
			Where("scan_id = ? AND status = ?", job.ID, models.ThreatStatusActive).
			Count(&activeCount).Error; err != nil {
			return purged, err
		}
		if activeCount > 0 {
			continue
		}

		if err := s.DB.Where("scan_id = ?", job.ID).Delete(&models.Threat{}).Error; err != nil {
			return purged, err
		}
		if err := s.DB.Delete(&models.ScanJob{}, "id = ?", job.ID).Error; err != nil {
			return purged, err
		}
		purged++
	}
	return purged, nil
}

// FailStalledScans resolves jobs stuck in queued or running past the timeout
// to failed. Covers workers that died mid-run; a stalled job must never stay
// running forever.
func (s *ScanService) FailStalledScans(timeout time.Duration) (int, error) {
	cutoff := time.Now().Add(-timeout)
	res := s.DB.Model(&models.ScanJob{}).
		Where("status IN ? AND updated_at < ?", []models.ScanStatus{models.ScanStatusQueued, models.ScanStatusRunning}, cutoff).
		Updates(map[string]interface{}{
			"status":        models.ScanStatusFailed,
			"completed_at":  time.Now(),
			"error_message": "scan stalled and was resolved by supervisor",
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		logger.WithFields(map[string]interface{}{"count": res.RowsAffected}).Warn("resolved stalled scans")
	}
	return int(res.RowsAffected), nil
}
