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

// VerificationRepository stores identity verification requests.
type VerificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(database *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: database}
}

func (r *VerificationRepository) Create(ctx context.Context, req *db.VerificationRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// CreatePending inserts req unless its user already has a request waiting
// for review. The user row is locked for the check, so concurrent submissions
// of one user serialize and only the first is stored.
func (r *VerificationRepository) CreatePending(ctx context.Context, req *db.VerificationRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user db.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Take(&user, req.UserID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return svcErr.NotFound("user")
		}
		if err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&db.VerificationRequest{}).
			Where("user_id = ? AND reviewed = ?", req.UserID, false).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return svcErr.Conflict("a verification request is already pending")
		}
		return tx.Create(req).Error
	})
}

func (r *VerificationRepository) Get(ctx context.Context, id uint64) (*db.VerificationRequest, error) {
	var req db.VerificationRequest
	err := r.db.WithContext(ctx).Take(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("verification request")
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Latest returns the most recent request of userID.
func (r *VerificationRepository) Latest(ctx context.Context, userID uint64) (*db.VerificationRequest, error) {
	var req db.VerificationRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Take(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("verification request")
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// HasPending reports whether userID has a request waiting for review.
func (r *VerificationRepository) HasPending(ctx context.Context, userID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.VerificationRequest{}).
		Where("user_id = ? AND reviewed = ?", userID, false).
		Count(&count).Error
	return count > 0, err
}

// ListPending returns unreviewed requests, oldest first.
func (r *VerificationRepository) ListPending(ctx context.Context, page pagination.Page) ([]db.VerificationRequest, error) {
	var out []db.VerificationRequest
	err := r.db.WithContext(ctx).
		Where("reviewed = ?", false).
		Order("created_at ASC, id ASC").
		Scopes(page.Scope()).
		Find(&out).Error
	return out, err
}

// Review closes the request and, when approved, copies the verified
// name, birthdate and institution onto the user. Both writes share one transaction.
func (r *VerificationRepository) Review(ctx context.Context, id uint64, approved bool) (*db.VerificationRequest, error) {
	var req db.VerificationRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db.VerificationRequest{}).
			Where("id = ? AND reviewed = ?", id, false).
			Updates(map[string]any{"reviewed": true, "approved": approved})
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Take(&req, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return svcErr.NotFound("verification request")
			}
			return err
		}
		if res.RowsAffected == 0 {
			return svcErr.ErrAlreadyReviewed
		}
		if !approved {
			return nil
		}
		return tx.Model(&db.User{}).
			Where("id = ?", req.UserID).
			Updates(map[string]any{
				"verified":       true,
				"name":           req.Name,
				"birthdate":      req.Birthdate,
				"institution_id": req.InstitutionID,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}
