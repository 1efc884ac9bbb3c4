package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/warden-sec/warden/internal/api/handlers"
	"github.com/warden-sec/warden/internal/models"
	"github.com/warden-sec/warden/internal/services"
)

func setupThreatHandlerTest(t *testing.T) (*gin.Engine, *gorm.DB, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := handlers.OpenTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Threat{}, &models.QuarantineRecord{}))

	root := t.TempDir()
	qs := services.NewQuarantineService(db, filepath.Join(t.TempDir(), "vault"))
	svc := services.NewThreatService(db, qs, root)
	handler := handlers.NewThreatHandler(svc)

	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/threats", handler.List)
	api.POST("/threats/:id/quarantine", handler.Quarantine)
	api.POST("/threats/:id/ignore", handler.Ignore)

	return r, db, root
}

func createThreatFixture(t *testing.T, db *gorm.DB, root, relPath string) *models.Threat {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(`<?php eval(base64_decode('x')); ?>`), 0o644))
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

func TestThreatHandler_List(t *testing.T) {
	r, db, root := setupThreatHandlerTest(t)
	createThreatFixture(t, db, root, "a.php")

	req, _ := http.NewRequest("GET", "/api/v1/threats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var threats []models.Threat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &threats))
	require.Len(t, threats, 1)
	assert.Equal(t, "a.php", threats[0].FilePath)
}

func TestThreatHandler_Quarantine(t *testing.T) {
	r, db, root := setupThreatHandlerTest(t)
	threat := createThreatFixture(t, db, root, "shell.php")

	req, _ := http.NewRequest("POST", "/api/v1/threats/"+threat.ID+"/quarantine", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Threat
	require.NoError(t, db.First(&reloaded, "id = ?", threat.ID).Error)
	assert.Equal(t, models.ThreatStatusQuarantined, reloaded.Status)

	// A second quarantine of the same threat is a conflict.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/v1/threats/"+threat.ID+"/quarantine", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestThreatHandler_QuarantineNotFound(t *testing.T) {
	r, _, _ := setupThreatHandlerTest(t)

	req, _ := http.NewRequest("POST", "/api/v1/threats/missing/quarantine", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestThreatHandler_Ignore(t *testing.T) {
	r, db, root := setupThreatHandlerTest(t)
	threat := createThreatFixture(t, db, root, "fp.php")

	req, _ := http.NewRequest("POST", "/api/v1/threats/"+threat.ID+"/ignore", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Threat
	require.NoError(t, db.First(&reloaded, "id = ?", threat.ID).Error)
	assert.Equal(t, models.ThreatStatusIgnored, reloaded.Status)

	req, _ = http.NewRequest("POST", "/api/v1/threats/missing/ignore", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
