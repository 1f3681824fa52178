package services

import (
	"context"
	"log/slog"

	"github.com/esportsarena/arena/models"
	"github.com/esportsarena/arena/repositories"
)

// Broadcaster pushes a real-time event into a hub room. Satisfied by
// *brackets.Hub; fan-out is fire-and-forget.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

type NotificationService interface {
	// Notify records a notification for the user. Failures are logged and
	// swallowed so a notification problem never aborts the operation that
	// triggered it.
	Notify(ctx context.Context, userID int, kind models.NotificationKind, message string)
	ListByUser(ctx context.Context, userID int, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID int) error
}

type notificationService struct {
	repo   repositories.NotificationRepository
	logger *slog.Logger
}

func NewNotificationService(repo repositories.NotificationRepository, logger *slog.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) Notify(ctx context.Context, userID int, kind models.NotificationKind, message string) {
	n := &models.Notification{
		UserID:  userID,
		Kind:    kind,
		Message: message,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("failed to create notification",
			slog.Int("user_id", userID),
			slog.String("kind", string(kind)),
			slog.Any("error", err))
	}
}

func (s *notificationService) ListByUser(ctx context.Context, userID int, unreadOnly bool) ([]*models.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		return []*models.Notification{}, nil
	}
	return notifications, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID int) error {
	return s.repo.MarkRead(ctx, id, userID)
}
