package service

import (
	"context"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/logger"
	"trainingportal-backend/internal/repository"
)

type notificationService struct {
	noteRepo repository.NotificationRepository
}

func NewNotificationService(noteRepo repository.NotificationRepository) NotificationService {
	return &notificationService{noteRepo: noteRepo}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, userID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID int32) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, userID)
}

// Notify records an in-portal notification. Failures are logged and dropped.
func (s *notificationService) Notify(ctx context.Context, userID, applicationID int32, title, message string, attrs map[string]string) {
	note := &domain.Notification{
		UserID:        userID,
		ApplicationID: &applicationID,
		Title:         title,
		Message:       message,
		Attributes:    attrs,
	}
	if err := s.noteRepo.Create(ctx, note); err != nil {
		logger.WithApplication(ctx, applicationID).Warn("Failed to create notification", "user_id", userID, "error", err)
	}
}
