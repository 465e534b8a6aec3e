// Package notifications manages per-user notifications and the fan-out side
// effects of blog publish and share.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusconnect/backend/internal/apperror"
	"github.com/campusconnect/backend/internal/storage"
	"go.uber.org/zap"
)

var errMissingStore = errors.New("notifications: store is required")

// ServiceConfig describes the dependencies of the notification service.
type ServiceConfig struct {
	Store  storage.Store
	Clock  func() time.Time
	Logger *zap.Logger
}

// Service lists, dismisses and synthesizes notifications.
type Service struct {
	store  storage.Store
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the notification service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: cfg.Store, clock: clock, logger: logger}, nil
}

// ListForUser returns the user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]storage.Notification, error) {
	notifications, err := s.store.NotificationsForRecipient(ctx, userID)
	if err != nil {
		s.logger.Error("notification listing failed", zap.String("user_id", userID), zap.Error(err))
		return nil, apperror.Server(err)
	}
	return notifications, nil
}

// Dismiss deletes a notification owned by the requesting user. Dismissing
// another user's notification is rejected as not found.
func (s *Service) Dismiss(ctx context.Context, userID, notificationID string) error {
	if strings.TrimSpace(notificationID) == "" {
		return apperror.Validation("id required")
	}
	err := s.store.DeleteNotification(ctx, userID, notificationID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperror.NotFound("Notification not found")
	}
	if err != nil {
		s.logger.Error("notification dismissal failed",
			zap.String("user_id", userID),
			zap.String("notification_id", notificationID),
			zap.Error(err))
		return apperror.Server(err)
	}
	return nil
}

// BlogPublished fans a notification out to every known user except the
// author. Failures are logged and swallowed; the triggering publish must not
// fail because of them.
func (s *Service) BlogPublished(ctx context.Context, authorID string, blog storage.Blog) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Warn("publish fan-out skipped, user listing failed", zap.Error(err))
		return
	}
	message := fmt.Sprintf("%s published a new blog: %s", authorID, blog.Title)
	for _, user := range users {
		if user.ID == authorID {
			continue
		}
		s.create(ctx, storage.Notification{
			RecipientID: user.ID,
			SenderID:    authorID,
			Message:     message,
			URL:         blogURL(blog.ID),
			CreatedAt:   s.clock().UTC(),
		})
	}
}

// BlogShared notifies the blog's author that someone shared their post. A
// self-share produces nothing.
func (s *Service) BlogShared(ctx context.Context, senderID string, blog storage.Blog) {
	if blog.AuthorID == senderID {
		return
	}
	s.create(ctx, storage.Notification{
		RecipientID: blog.AuthorID,
		SenderID:    senderID,
		Message:     fmt.Sprintf("%s shared your blog: %s", senderID, blog.Title),
		URL:         blogURL(blog.ID),
		CreatedAt:   s.clock().UTC(),
	})
}

func (s *Service) create(ctx context.Context, notification storage.Notification) {
	if _, err := s.store.CreateNotification(ctx, notification); err != nil {
		s.logger.Warn("notification creation failed",
			zap.String("recipient_id", notification.RecipientID),
			zap.Error(err))
	}
}

func blogURL(id string) string {
	return "/blog.html#" + id
}
