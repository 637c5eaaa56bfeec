package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/campus-match/internal/db"
	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/utils/pagination"
)

// LikeRepository provides data access methods for the UserLike model.
// It encapsulates all queries related to likes/dislikes between users.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// Upsert inserts or updates the edge userID -> likedUserID.
//
// Behavior:
//   - If the pair exists → liked and updated_at are overwritten.
//   - If it doesn't exist → a new row is inserted.
//   - Composite PK makes the write atomic, concurrent calls never duplicate the edge.
//   - Returns whether the edge was liked=true before this call.
//
// Example:
//
//	wasLiked, edge, err := repo.Upsert(ctx, 1, 2, true) // user 1 liked user 2
func (r *LikeRepository) Upsert(
	ctx context.Context,
	userID, likedUserID uint64,
	liked bool,
) (wasLiked bool, edge db.UserLike, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev db.UserLike
		err := tx.Where("user_id = ? AND liked_user_id = ?", userID, likedUserID).Take(&prev).Error
		switch {
		case err == nil:
			wasLiked = prev.Liked
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		edge = db.UserLike{UserID: userID, LikedUserID: likedUserID, Liked: liked}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "liked_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
		}).Create(&edge).Error
	})
	return wasLiked, edge, err
}

// Get returns the edge userID -> likedUserID or ErrNotFound.
func (r *LikeRepository) Get(ctx context.Context, userID, likedUserID uint64) (*db.UserLike, error) {
	var edge db.UserLike
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND liked_user_id = ?", userID, likedUserID).
		Take(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("like")
	}
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

// HasLiked checks whether userID has liked likedUserID.
//
// Behavior:
//   - Returns true if there exists an edge where user_id = X,
//     liked_user_id = Y, and liked = true.
//   - Used for checking mutual likes in SetLike.
func (r *LikeRepository) HasLiked(ctx context.Context, userID, likedUserID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.UserLike{}).
		Where("user_id = ? AND liked_user_id = ? AND liked = ?", userID, likedUserID, true).
		Count(&count).Error
	return count > 0, err
}

// ListMatches returns users that userID liked and who liked userID back.
//
// Behavior:
//   - Ordered by userID's own like timestamp DESC, user id DESC.
//   - Hobbies are batch-loaded for the returned page only.
func (r *LikeRepository) ListMatches(ctx context.Context, userID uint64, page pagination.Page) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Select("users.*").
		Joins("JOIN user_likes l ON l.liked_user_id = users.id AND l.user_id = ? AND l.liked = ?", userID, true).
		Where(`EXISTS (
			SELECT 1 FROM user_likes b
			WHERE b.user_id = users.id
			  AND b.liked_user_id = ?
			  AND b.liked = ?
		)`, userID, true).
		Order("l.updated_at DESC, users.id DESC").
		Scopes(page.Scope()).
		Preload("Hobbies").
		Find(&users).Error
	return users, err
}

// ListLiked returns the outgoing liked=true edges of userID, newest first.
func (r *LikeRepository) ListLiked(ctx context.Context, userID uint64, page pagination.Page) ([]db.UserLike, error) {
	var edges []db.UserLike
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND liked = ?", userID, true).
		Order("updated_at DESC, liked_user_id DESC").
		Scopes(page.Scope()).
		Find(&edges).Error
	return edges, err
}

// LikedBackBy returns which of ids have liked userID.
func (r *LikeRepository) LikedBackBy(ctx context.Context, userID uint64, ids []uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var likers []uint64
	err := r.db.WithContext(ctx).
		Model(&db.UserLike{}).
		Where("liked_user_id = ? AND liked = ? AND user_id IN ?", userID, true, ids).
		Pluck("user_id", &likers).Error
	if err != nil {
		return nil, err
	}
	for _, id := range likers {
		out[id] = true
	}
	return out, nil
}

// Recommend picks one candidate for userID.
//
// Behavior:
//   - Excludes userID, inactive users and users without a profile image.
//   - Excludes everyone userID already liked or disliked.
//   - hobbyIDs (optional): candidate shares at least one hobby, more shared first.
//   - institutionIDs (optional): candidate belongs to one of them.
//   - Ties broken by registration date ASC, id ASC.
func (r *LikeRepository) Recommend(
	ctx context.Context,
	userID uint64,
	hobbyIDs, institutionIDs []uint64,
) (*db.User, error) {
	decided := r.db.Model(&db.UserLike{}).Select("liked_user_id").Where("user_id = ?", userID)

	query := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("users.id <> ? AND users.active = ? AND users.image_ref IS NOT NULL", userID, true).
		Where("users.id NOT IN (?)", decided)

	if len(hobbyIDs) > 0 {
		query = query.
			Select(`users.*, (
				SELECT COUNT(*) FROM user_hobbies uh
				WHERE uh.user_id = users.id AND uh.hobby_id IN ?
			) AS shared_hobbies`, hobbyIDs).
			Where(`EXISTS (
				SELECT 1 FROM user_hobbies uh
				WHERE uh.user_id = users.id AND uh.hobby_id IN ?
			)`, hobbyIDs).
			Order("shared_hobbies DESC")
	}
	if len(institutionIDs) > 0 {
		query = query.Where("users.institution_id IN ?", institutionIDs)
	}

	var users []db.User
	err := query.
		Order("users.created_at ASC, users.id ASC").
		Limit(1).
		Preload("Hobbies").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, svcErr.NotFound("recommendation")
	}
	return &users[0], nil
}
