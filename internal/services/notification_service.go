package services

import (
	"fmt"

	"github.com/containrrr/shoutrrr"
	"gorm.io/gorm"

	"github.com/warden-sec/warden/internal/logger"
	"github.com/warden-sec/warden/internal/models"
)

// NotificationService records internal notifications and fans events out to
// configured external providers via shoutrrr. External sends are best-effort:
// failures are logged and never propagate to the caller.
type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Internal Notifications (DB)

func (s *NotificationService) Create(nType models.NotificationType, title, message string) (*models.Notification, error) {
	notification := &models.Notification{
		Type:    nType,
		Title:   title,
		Message: message,
		Read:    false,
	}
	result := s.DB.Create(notification)
	return notification, result.Error
}

func (s *NotificationService) List(unreadOnly bool) ([]models.Notification, error) {
	var notifications []models.Notification
	query := s.DB.Order("created_at desc")
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	result := query.Find(&notifications)
	return notifications, result.Error
}

func (s *NotificationService) MarkAsRead(id string) error {
	return s.DB.Model(&models.Notification{}).Where("id = ?", id).Update("read", true).Error
}

func (s *NotificationService) MarkAllAsRead() error {
	return s.DB.Model(&models.Notification{}).Where("read = ?", false).Update("read", true).Error
}

// External Notifications (Shoutrrr)

// SendExternal delivers an event to every enabled provider that opted into
// the event type. Each send runs on its own goroutine so scan workers and
// handlers never block on provider latency.
func (s *NotificationService) SendExternal(eventType, title, message string) {
	var providers []models.NotificationProvider
	if err := s.DB.Where("enabled = ?", true).Find(&providers).Error; err != nil {
		logger.WithError(err).Error("fetch notification providers")
		return
	}

	for _, provider := range providers {
		shouldSend := true
		switch eventType {
		case "threats":
			shouldSend = provider.NotifyThreats
		case "scan":
			shouldSend = provider.NotifyScans
		}
		if !shouldSend {
			continue
		}

		go func(p models.NotificationProvider) {
			msg := fmt.Sprintf("%s\n\n%s", title, message)
			if err := shoutrrr.Send(p.URL, msg); err != nil {
				logger.WithFields(map[string]interface{}{"provider": p.Name}).WithError(err).Error("send notification")
			}
		}(provider)
	}
}

// TestProvider sends a test message through the provider's URL.
func (s *NotificationService) TestProvider(provider models.NotificationProvider) error {
	return shoutrrr.Send(provider.URL, "Test notification from Warden")
}

// Provider Management

func (s *NotificationService) ListProviders() ([]models.NotificationProvider, error) {
	var providers []models.NotificationProvider
	result := s.DB.Find(&providers)
	return providers, result.Error
}

func (s *NotificationService) CreateProvider(provider *models.NotificationProvider) error {
	return s.DB.Create(provider).Error
}

func (s *NotificationService) UpdateProvider(provider *models.NotificationProvider) error {
	return s.DB.Save(provider).Error
}

func (s *NotificationService) DeleteProvider(id string) error {
	return s.DB.Delete(&models.NotificationProvider{}, "id = ?", id).Error
}
