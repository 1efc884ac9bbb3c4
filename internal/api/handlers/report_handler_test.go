package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/warden-sec/warden/internal/api/handlers"
	"github.com/warden-sec/warden/internal/models"
	"github.com/warden-sec/warden/internal/services"
)

func setupReportHandlerTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := handlers.OpenTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.ScanJob{}, &models.Threat{}))

	handler := handlers.NewReportHandler(services.NewReportService(db))

	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/scans", handler.Scans)
	api.GET("/reports/summary", handler.Summary)

	return r, db
}

func TestReportHandler_Summary(t *testing.T) {
	r, db := setupReportHandlerTest(t)

	job := models.ScanJob{ScanType: models.ScanTypeFull, Status: models.ScanStatusCompleted, StartedAt: time.Now(), Progress: 100}
	require.NoError(t, db.Create(&job).Error)
	require.NoError(t, db.Create(&models.Threat{ScanID: job.ID, FilePath: "a.php", ThreatType: "eval_base64", Severity: models.SeverityCritical, Status: models.ThreatStatusActive}).Error)

	req, _ := http.NewRequest("GET", "/api/v1/reports/summary", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var summary struct {
		ActiveThreats   map[string]int64 `json:"active_threats"`
		LastScan        *models.ScanJob  `json:"last_scan"`
		SeverityWeights map[string]struct {
			Label  string `json:"label"`
			Weight int    `json:"weight"`
		} `json:"severity_weights"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, int64(1), summary.ActiveThreats["critical"])
	require.NotNil(t, summary.LastScan)
	assert.Equal(t, job.ID, summary.LastScan.ID)
	assert.Equal(t, 40, summary.SeverityWeights["critical"].Weight)
}

func TestReportHandler_Scans(t *testing.T) {
	r, db := setupReportHandlerTest(t)

	for i := 0; i < 3; i++ {
		job := models.ScanJob{ScanType: models.ScanTypeQuick, Status: models.ScanStatusCompleted, StartedAt: time.Now().Add(-time.Duration(i) * time.Minute)}
		require.NoError(t, db.Create(&job).Error)
	}

	req, _ := http.NewRequest("GET", "/api/v1/scans?page=1&per_page=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Scans []models.ScanJob `json:"scans"`
		Total int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Total)
	assert.Len(t, resp.Scans, 2)
}
