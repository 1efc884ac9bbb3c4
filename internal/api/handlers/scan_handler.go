package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/warden-sec/warden/internal/models"
	"github.com/warden-sec/warden/internal/services"
)

type ScanHandler struct {
	service *services.ScanService
}

func NewScanHandler(service *services.ScanService) *ScanHandler {
	return &ScanHandler{service: service}
}

type startScanRequest struct {
	ScanType string   `json:"scan_type" binding:"required"`
	Paths    []string `json:"paths"`
}

// Start kicks off a background scan and returns the job id immediately.
func (h *ScanHandler) Start(c *gin.Context) {
	var req startScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.service.Start(models.ScanType(req.ScanType), req.Paths)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidScanType):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNoFilesFound):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No files found to scan"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start scan"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": job.Status, "total_files": job.TotalFiles})
}

// Progress returns the persisted progress view for polling clients.
func (h *ScanHandler) Progress(c *gin.Context) {
	progress, err := h.service.GetProgress(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrScanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Scan job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read scan progress"})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// Results returns the job record plus its threats.
func (h *ScanHandler) Results(c *gin.Context) {
	job, err := h.service.GetResults(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrScanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Scan job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read scan results"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// Cancel flags a running scan for cancellation.
func (h *ScanHandler) Cancel(c *gin.Context) {
	err := h.service.Cancel(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrScanNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Scan job not found"})
		case errors.Is(err, services.ErrScanTerminal):
			c.JSON(http.StatusConflict, gin.H{"error": "Scan job already finished"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel scan"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cancellation requested"})
}
