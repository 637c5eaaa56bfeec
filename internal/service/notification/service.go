package notification

import (
	"context"
	"fmt"

	"github.com/oggyb/campus-match/internal/app"
	"github.com/oggyb/campus-match/internal/db"
	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/notifier"
	"github.com/oggyb/campus-match/internal/repository"
	"github.com/oggyb/campus-match/internal/utils/pagination"
)

var errAlreadyRead = fmt.Errorf("%w: notification already read", svcErr.ErrAlreadyInTerminalState)

// Service persists notifications and pushes them to live sessions.
type Service struct {
	appCtx *app.AppContext
	repo   *repository.NotificationRepository

	// afterCount runs between the DB count and the cache write in UnreadCount.
	afterCount func()
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		repo:   repository.NewNotificationRepository(appCtx.DB),
	}
}

// Notify stores a notification for userID and pushes it on the user's
// notifications channel.
//
// Behavior:
//   - The store write happens first, a failing push never loses the record.
//   - Push errors are logged and never returned.
//   - The cached unread counter is dropped.
//
// Example:
//
//	svc.Notify(ctx, 42, "New match", "You and Sam liked each other")
func (s *Service) Notify(ctx context.Context, userID uint64, header, message string) (*db.Notification, error) {
	n := &db.Notification{UserID: userID, Header: header, Message: message}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)

	payload, err := notifier.Encode(notifier.TypeNotification, n)
	if err != nil {
		s.appCtx.Logger.Error("encode notification failed", "notification_id", n.ID, "err", err)
		return n, nil
	}
	if err := s.appCtx.Notifier.Push(ctx, notifier.Notifications(userID), payload); err != nil {
		s.appCtx.Logger.Warn("notification push failed", "user_id", userID, "notification_id", n.ID, "err", err)
	}
	return n, nil
}

// List returns the viewer's notifications, newest first.
// read filters by read state when non-nil.
func (s *Service) List(ctx context.Context, viewer uint64, read *bool, page pagination.Page) ([]db.Notification, error) {
	return s.repo.List(ctx, viewer, read, page)
}

// Get returns one notification owned by viewer.
func (s *Service) Get(ctx context.Context, id, viewer uint64) (*db.Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != viewer {
		return nil, svcErr.ErrAccessDenied
	}
	return n, nil
}

// MarkRead flips one notification to read. Read is terminal.
func (s *Service) MarkRead(ctx context.Context, id, viewer uint64) error {
	if _, err := s.Get(ctx, id, viewer); err != nil {
		return err
	}
	ok, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errAlreadyRead
	}
	s.invalidate(ctx, viewer)
	return nil
}

// MarkAllRead returns how many notifications changed.
func (s *Service) MarkAllRead(ctx context.Context, viewer uint64) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, viewer)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, viewer)
	return n, nil
}

// UnreadCount returns how many unread notifications viewer has.
// Cache-first strategy:
//  1. Attempts to read from Redis (notifications:unread:userID).
//  2. On a miss or a corrupted value, counts in the DB.
//  3. Writes the DB count back with a 1h TTL, unless a write invalidated
//     the counter while counting. The next call then counts again.
func (s *Service) UnreadCount(ctx context.Context, viewer uint64) (int64, error) {
	cache := s.appCtx.RedisCache
	key := cache.KeyForUnreadNotifications(viewer)

	// try cache first
	if n, ok, err := cache.GetCounter(ctx, key); err == nil && ok {
		return n, nil
	} else if err != nil {
		s.appCtx.Logger.Warn("unread counter cache read failed", "user_id", viewer, "err", err)
	}

	version, verErr := cache.CounterVersion(ctx, key)

	// fallback: DB
	n, err := s.repo.CountUnread(ctx, viewer)
	if err != nil {
		return 0, err
	}
	if s.afterCount != nil {
		s.afterCount()
	}
	if verErr == nil {
		if _, err := cache.SetCounterIfCurrent(ctx, key, version, n); err != nil {
			s.appCtx.Logger.Warn("unread counter cache write failed", "user_id", viewer, "err", err)
		}
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id, viewer uint64) error {
	if _, err := s.Get(ctx, id, viewer); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, viewer)
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID uint64) {
	key := s.appCtx.RedisCache.KeyForUnreadNotifications(userID)
	if err := s.appCtx.RedisCache.Invalidate(ctx, key); err != nil {
		s.appCtx.Logger.Warn("unread counter invalidation failed", "user_id", userID, "err", err)
	}
}
