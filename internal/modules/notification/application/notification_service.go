package application

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ishflow/ishflow-backend/internal/modules/notification/domain"
)

// Publisher fans a freshly inserted notification out to live listeners.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

type NotificationService struct {
	repo      domain.NotificationRepository
	publisher Publisher
}

func NewNotificationService(repo domain.NotificationRepository, publisher Publisher) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher}
}

// Create persists a notification and announces it to live subscribers.
// The row is the source of truth; a failed publish is logged and dropped,
// the next bounded fetch will surface the record anyway.
func (s *NotificationService) Create(ctx context.Context, userID uuid.UUID, type_ domain.NotificationType, title, message string) (*domain.Notification, error) {
	notification := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      type_,
		Title:     title,
		Message:   message,
		IsRead:    false,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, *notification); err != nil {
			log.Printf("[Notification] publish failed for %s: %v", notification.ID, err)
		}
	}

	return notification, nil
}

func (s *NotificationService) GetUserNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	return s.repo.GetByUserID(ctx, userID, limit)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, notificationID, userID)
}

func (s *NotificationService) MarkManyAsRead(ctx context.Context, notificationIDs []uuid.UUID, userID uuid.UUID) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	return s.repo.MarkManyAsRead(ctx, notificationIDs, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}
