package service

import (
	"context"
	"encoding/json"

	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// NotificationService manages per-user notification records. Rows are
// written by the event consumer; this service serves the read side.
type NotificationService struct {
	notifications *repository.NotificationRepository
	logger        *logger.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(notifications *repository.NotificationRepository, log *logger.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		logger:        log,
	}
}

// Notify writes a notification for one user
func (s *NotificationService) Notify(ctx context.Context, userID, notifType, title, message string, data any) error {
	n := &repository.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
	}
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return err
		}
		n.Data = payload
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		return err
	}

	s.logger.Debug().
		Str("notification_id", n.ID).
		Str("user_id", userID).
		Str("type", notifType).
		Msg("notification created")

	return nil
}

// List lists a user's notifications
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*repository.Notification, error) {
	return s.notifications.ListForUser(ctx, userID, unreadOnly, limit)
}

// CountUnread counts a user's unread notifications
func (s *NotificationService) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// MarkRead marks one notification as read
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.notifications.MarkRead(ctx, id, userID)
}

// MarkAllRead marks all of a user's notifications as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.notifications.MarkAllRead(ctx, userID)
}
