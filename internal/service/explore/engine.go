package explore

import (
	"context"
	"fmt"
	"time"

	"github.com/oggyb/campus-match/internal/app"
	"github.com/oggyb/campus-match/internal/db"
	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/repository"
	"github.com/oggyb/campus-match/internal/utils/pagination"
)

// MatchNotifier delivers the "new match" notification.
type MatchNotifier interface {
	Notify(ctx context.Context, userID uint64, header, message string) (*db.Notification, error)
}

// LikeResult is the outcome of SetLike.
type LikeResult struct {
	Edge db.UserLike
	// Matched is true when both users now like each other.
	Matched bool
}

// LikedUser is one outgoing like with its match state.
type LikedUser struct {
	User    db.User
	IsMatch bool
	LikedAt time.Time
}

// Engine holds the like/match rules on top of LikeRepository.
type Engine struct {
	appCtx   *app.AppContext
	likes    *repository.LikeRepository
	users    *repository.UserRepository
	notifier MatchNotifier
}

func NewEngine(appCtx *app.AppContext, notifier MatchNotifier) *Engine {
	return &Engine{
		appCtx:   appCtx,
		likes:    repository.NewLikeRepository(appCtx.DB),
		users:    repository.NewUserRepository(appCtx.DB),
		notifier: notifier,
	}
}

// SetLike records actor's like or dislike of target.
//
// Behavior:
//   - actor == target → ErrSelfReference.
//   - Unknown or inactive target → ErrNotFound.
//   - The edge is upserted, repeating the same call changes nothing.
//   - When the actor's edge turns to like while target already likes actor,
//     target (who liked first) gets one "new match" notification.
//
// Example:
//
//	res, err := engine.SetLike(ctx, 1, 2, true)
func (e *Engine) SetLike(ctx context.Context, actor, target uint64, like bool) (*LikeResult, error) {
	if actor == target {
		return nil, svcErr.ErrSelfReference
	}
	ok, err := e.users.ActiveExists(ctx, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, svcErr.NotFound("user")
	}

	wasLiked, edge, err := e.likes.Upsert(ctx, actor, target, like)
	if err != nil {
		return nil, err
	}

	res := &LikeResult{Edge: edge}
	if !like {
		return res, nil
	}

	// check if target also liked actor → mutual
	res.Matched, err = e.likes.HasLiked(ctx, target, actor)
	if err != nil {
		return nil, err
	}
	if res.Matched && !wasLiked {
		e.notifyMatch(ctx, actor, target)
	}
	return res, nil
}

func (e *Engine) notifyMatch(ctx context.Context, actor, target uint64) {
	name := "Someone"
	if u, err := e.users.Get(ctx, actor); err == nil {
		name = u.Name
	}
	if _, err := e.notifier.Notify(ctx, target, "New match",
		fmt.Sprintf("You and %s liked each other", name)); err != nil {
		e.appCtx.Logger.Error("match notification failed", "actor", actor, "target", target, "err", err)
	}
}

// CheckMatch reports whether a and b like each other. Symmetric.
func (e *Engine) CheckMatch(ctx context.Context, a, b uint64) (bool, error) {
	ok, err := e.likes.HasLiked(ctx, a, b)
	if err != nil || !ok {
		return false, err
	}
	return e.likes.HasLiked(ctx, b, a)
}

// ListMatches returns user's matches, most recently liked by user first.
func (e *Engine) ListMatches(ctx context.Context, user uint64, page pagination.Page) ([]db.User, error) {
	return e.likes.ListMatches(ctx, user, page)
}

// ListLikes returns users liked by user with their match state.
//
// Behavior:
//   - Three batched reads: the edges of the page, the liked users, and which
//     of them liked back.
//   - Ordered by like timestamp DESC.
func (e *Engine) ListLikes(ctx context.Context, user uint64, page pagination.Page) ([]LikedUser, error) {
	edges, err := e.likes.ListLiked(ctx, user, page)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return []LikedUser{}, nil
	}

	ids := make([]uint64, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.LikedUserID)
	}
	users, err := e.users.GetByIDs(ctx, ids, true)
	if err != nil {
		return nil, err
	}
	back, err := e.likes.LikedBackBy(ctx, user, ids)
	if err != nil {
		return nil, err
	}

	out := make([]LikedUser, 0, len(edges))
	for _, edge := range edges {
		u, ok := users[edge.LikedUserID]
		if !ok {
			continue
		}
		out = append(out, LikedUser{User: u, IsMatch: back[u.ID], LikedAt: edge.UpdatedAt})
	}
	return out, nil
}

// Recommend returns one candidate user has not decided on yet.
// Empty filters are ignored. ErrNotFound when nobody qualifies.
func (e *Engine) Recommend(ctx context.Context, user uint64, hobbyIDs, institutionIDs []uint64) (*db.User, error) {
	return e.likes.Recommend(ctx, user, hobbyIDs, institutionIDs)
}
