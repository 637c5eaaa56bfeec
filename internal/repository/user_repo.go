package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/campus-match/internal/db"
	svcErr "github.com/oggyb/campus-match/internal/errors"
)

// UserRepository reads user profiles.
// Registration and profile editing live outside this service.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Get loads a user with hobbies.
func (r *UserRepository) Get(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).Preload("Hobbies").Take(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDs batch-loads users keyed by id. Missing ids are absent from the map.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []uint64, withHobbies bool) (map[uint64]db.User, error) {
	out := make(map[uint64]db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := r.db.WithContext(ctx).Where("id IN ?", ids)
	if withHobbies {
		query = query.Preload("Hobbies")
	}
	var users []db.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// ActiveExists reports whether id is an active user.
func (r *UserRepository) ActiveExists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ? AND active = ?", id, true).
		Count(&count).Error
	return count > 0, err
}

// Deactivate hides the user from recommendations without deleting their history.
func (r *UserRepository) Deactivate(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return svcErr.NotFound("user")
	}
	return nil
}
