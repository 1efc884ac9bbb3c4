package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/warden-sec/warden/internal/services"
)

type ReportHandler struct {
	service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Summary returns active threat counts by severity, the last scan, and the
// severity weight table.
func (h *ReportHandler) Summary(c *gin.Context) {
	counts, err := h.service.ActiveThreatCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate threats"})
		return
	}

	lastScan, err := h.service.LastScan()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load last scan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active_threats":   counts,
		"last_scan":        lastScan,
		"severity_weights": h.service.SeverityWeights(),
	})
}

// Scans returns a paginated, newest-first scan history.
func (h *ReportHandler) Scans(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	jobs, total, err := h.service.RecentScans(page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list scans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": jobs, "total": total})
}
