package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/campus-match/internal/db"
	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/utils/pagination"
)

// NotificationRepository persists user notifications.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: database}
}

func (r *NotificationRepository) Create(ctx context.Context, n *db.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) Get(ctx context.Context, id uint64) (*db.Notification, error) {
	var n db.Notification
	err := r.db.WithContext(ctx).Take(&n, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("notification")
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns userID's notifications newest first.
// read filters by read state when non-nil.
func (r *NotificationRepository) List(ctx context.Context, userID uint64, read *bool, page pagination.Page) ([]db.Notification, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if read != nil {
		query = query.Where("is_read = ?", *read)
	}
	var out []db.Notification
	err := query.
		Order("created_at DESC, id DESC").
		Scopes(page.Scope()).
		Find(&out).Error
	return out, err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips one notification. It returns false if it was already read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Update("is_read", true)
	return res.RowsAffected == 1, res.Error
}

// MarkAllRead flips every unread notification of userID and returns how many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&db.Notification{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return svcErr.NotFound("notification")
	}
	return nil
}
