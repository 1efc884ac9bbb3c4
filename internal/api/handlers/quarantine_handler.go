package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/warden-sec/warden/internal/services"
)

type QuarantineHandler struct {
	service *services.QuarantineService
}

func NewQuarantineHandler(service *services.QuarantineService) *QuarantineHandler {
	return &QuarantineHandler{service: service}
}

// List returns quarantine records filtered by status with pagination.
func (h *QuarantineHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	list, err := h.service.List(c.DefaultQuery("status", "active"), page, perPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

type quarantinePathRequest struct {
	Path string `json:"path" binding:"required"`
}

// Create quarantines a file directly by path, without a threat link.
func (h *QuarantineHandler) Create(c *gin.Context) {
	var req quarantinePathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.service.QuarantineFile(req.Path, nil)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrFileNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		case errors.Is(err, services.ErrAlreadyQuarantined):
			c.JSON(http.StatusConflict, gin.H{"error": "File already quarantined"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to quarantine file"})
		}
		return
	}
	c.JSON(http.StatusCreated, record)
}

// Restore writes the original bytes back to the file's location.
func (h *QuarantineHandler) Restore(c *gin.Context) {
	err := h.service.Restore(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuarantineNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Quarantine record not found"})
		case errors.Is(err, services.ErrAlreadyRestored):
			c.JSON(http.StatusConflict, gin.H{"error": "Quarantine record already restored"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to restore file"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File restored"})
}

// Delete permanently removes the vault copy and the record.
func (h *QuarantineHandler) Delete(c *gin.Context) {
	err := h.service.Delete(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrQuarantineNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Quarantine record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete quarantine record"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quarantine record deleted"})
}

// Download streams the original bytes as a non-executable attachment.
func (h *QuarantineHandler) Download(c *gin.Context) {
	content, name, err := h.service.Download(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrQuarantineNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Quarantine record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to download quarantined file"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/octet-stream", content)
}

type bulkActionRequest struct {
	Action string   `json:"action" binding:"required"`
	IDs    []string `json:"ids" binding:"required"`
}

// Bulk applies restore or delete across a set of records, isolating per-item
// failures.
func (h *QuarantineHandler) Bulk(c *gin.Context) {
	var req bulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.BulkAction(req.Action, req.IDs)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAction) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Bulk action failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}
