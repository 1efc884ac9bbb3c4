package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/warden-sec/warden/internal/services"
)

type ThreatHandler struct {
	service *services.ThreatService
}

func NewThreatHandler(service *services.ThreatService) *ThreatHandler {
	return &ThreatHandler{service: service}
}

// List returns all active threats.
func (h *ThreatHandler) List(c *gin.Context) {
	threats, err := h.service.ListActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list threats"})
		return
	}
	c.JSON(http.StatusOK, threats)
}

// Quarantine isolates the threat's file and marks the threat quarantined.
func (h *ThreatHandler) Quarantine(c *gin.Context) {
	record, err := h.service.QuarantineThreat(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrThreatNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Threat not found"})
		case errors.Is(err, services.ErrThreatNotActive):
			c.JSON(http.StatusConflict, gin.H{"error": "Threat is not active"})
		case errors.Is(err, services.ErrFileNotFound):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Threat file no longer exists"})
		case errors.Is(err, services.ErrAlreadyQuarantined):
			c.JSON(http.StatusConflict, gin.H{"error": "File already quarantined"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to quarantine threat"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Threat quarantined", "quarantine_id": record.ID})
}

// Ignore marks an operator-confirmed false positive.
func (h *ThreatHandler) Ignore(c *gin.Context) {
	err := h.service.IgnoreThreat(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrThreatNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Threat not found"})
		case errors.Is(err, services.ErrThreatNotActive):
			c.JSON(http.StatusConflict, gin.H{"error": "Threat is not active"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ignore threat"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Threat ignored"})
}
