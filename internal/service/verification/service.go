package verification

import (
	"context"
	"strings"
	"time"

	"github.com/oggyb/campus-match/internal/app"
	"github.com/oggyb/campus-match/internal/db"
	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/repository"
	"github.com/oggyb/campus-match/internal/utils/pagination"
)

// Notifier delivers the review outcome to the user.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, header, message string) (*db.Notification, error)
}

// Service handles identity verification requests reviewed by admins.
type Service struct {
	appCtx   *app.AppContext
	requests *repository.VerificationRepository
	users    *repository.UserRepository
	notifier Notifier
}

func NewService(appCtx *app.AppContext, notifier Notifier) *Service {
	return &Service{
		appCtx:   appCtx,
		requests: repository.NewVerificationRepository(appCtx.DB),
		users:    repository.NewUserRepository(appCtx.DB),
		notifier: notifier,
	}
}

// Submit files a verification request for user.
//
// Behavior:
//   - Already verified users → validation error.
//   - One pending request per user, a second one → ErrConflict.
func (s *Service) Submit(
	ctx context.Context,
	user, institutionID uint64,
	name string,
	birthdate time.Time,
) (*db.VerificationRequest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, svcErr.Validation("name must not be empty")
	}
	if birthdate.IsZero() || birthdate.After(time.Now()) {
		return nil, svcErr.Validation("birthdate must be in the past")
	}

	u, err := s.users.Get(ctx, user)
	if err != nil {
		return nil, err
	}
	if u.Verified {
		return nil, svcErr.Validation("user is already verified")
	}
	req := &db.VerificationRequest{
		UserID:        user,
		InstitutionID: institutionID,
		Name:          name,
		Birthdate:     birthdate,
	}
	if err := s.requests.CreatePending(ctx, req); err != nil {
		return nil, err
	}
	s.appCtx.Logger.Info("verification requested", "user_id", user, "request_id", req.ID)
	return req, nil
}

// Review closes a pending request and notifies its owner.
// Approval copies name, birthdate and institution onto the user.
func (s *Service) Review(ctx context.Context, requestID uint64, approved bool) (*db.VerificationRequest, error) {
	req, err := s.requests.Review(ctx, requestID, approved)
	if err != nil {
		return nil, err
	}

	header, message := "Verification rejected", "Your verification request was rejected."
	if approved {
		header, message = "Verification approved", "Your profile is now verified."
	}
	if _, err := s.notifier.Notify(ctx, req.UserID, header, message); err != nil {
		s.appCtx.Logger.Error("verification notification failed", "request_id", req.ID, "err", err)
	}
	return req, nil
}

// Pending lists unreviewed requests, oldest first.
func (s *Service) Pending(ctx context.Context, page pagination.Page) ([]db.VerificationRequest, error) {
	return s.requests.ListPending(ctx, page)
}

// Latest returns user's most recent request.
func (s *Service) Latest(ctx context.Context, user uint64) (*db.VerificationRequest, error) {
	return s.requests.Latest(ctx, user)
}
