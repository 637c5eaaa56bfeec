package explore

import (
	"context"
	"strconv"
	"time"

	"github.com/oggyb/campus-match/internal/app"
	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/utils/pagination"
)

// Service implements the Explore gRPC API.
// It parses wire ids, calls the Engine and maps errors to gRPC status codes.
type Service struct {
	appCtx *app.AppContext
	engine *Engine
}

// NewExploreService creates a new Explore service backed by engine.
func NewExploreService(appCtx *app.AppContext, engine *Engine) *Service {
	return &Service{appCtx: appCtx, engine: engine}
}

var _ ExploreServer = (*Service)(nil)

// PutLike inserts or updates a like and returns whether it resulted in a match.
//
// Example:
//
//	svc.PutLike(ctx, &PutLikeRequest{ActorUserID: "1", TargetUserID: "2", Liked: true})
func (s *Service) PutLike(ctx context.Context, req *PutLikeRequest) (*PutLikeResponse, error) {
	s.appCtx.Logger.Debug(
		"PutLike called",
		"actor", req.ActorUserID,
		"target", req.TargetUserID,
		"liked", req.Liked,
	)
	actorID, err := parseID("actor_user_id", req.ActorUserID)
	if err != nil {
		return nil, err
	}
	targetID, err := parseID("target_user_id", req.TargetUserID)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.SetLike(ctx, actorID, targetID, req.Liked)
	if err != nil {
		s.appCtx.Logger.Error("SetLike failed", "actor", actorID, "target", targetID, "err", err)
		return nil, svcErr.Map(err)
	}
	return &PutLikeResponse{
		Matched:       res.Matched,
		UnixTimestamp: uint64(res.Edge.UpdatedAt.UnixMilli()),
	}, nil
}

func (s *Service) CheckMatch(ctx context.Context, req *CheckMatchRequest) (*CheckMatchResponse, error) {
	a, err := parseID("user_id", req.UserID)
	if err != nil {
		return nil, err
	}
	b, err := parseID("other_user_id", req.OtherUserID)
	if err != nil {
		return nil, err
	}

	matched, err := s.engine.CheckMatch(ctx, a, b)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &CheckMatchResponse{Matched: matched}, nil
}

// ListMatches returns one page of mutual likes, newest like first.
func (s *Service) ListMatches(ctx context.Context, req *ListRequest) (*ListMatchesResponse, error) {
	s.appCtx.Logger.Debug("ListMatches called", "user", req.UserID, "page", req.Page)

	userID, page, err := s.parseList(req)
	if err != nil {
		return nil, err
	}

	users, err := s.engine.ListMatches(ctx, userID, page)
	if err != nil {
		s.appCtx.Logger.Error("ListMatches failed", "err", err)
		return nil, svcErr.Map(err)
	}

	now := time.Now()
	resp := &ListMatchesResponse{Users: make([]*UserSummary, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, Summarize(u, now))
	}
	return resp, nil
}

// ListLikes returns one page of users liked by the caller with their match state.
func (s *Service) ListLikes(ctx context.Context, req *ListRequest) (*ListLikesResponse, error) {
	userID, page, err := s.parseList(req)
	if err != nil {
		return nil, err
	}

	likes, err := s.engine.ListLikes(ctx, userID, page)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	now := time.Now()
	resp := &ListLikesResponse{Likes: make([]*Like, 0, len(likes))}
	for _, l := range likes {
		resp.Likes = append(resp.Likes, &Like{
			User:          Summarize(l.User, now),
			IsMatch:       l.IsMatch,
			UnixTimestamp: uint64(l.LikedAt.UnixMilli()),
		})
	}
	return resp, nil
}

func (s *Service) Recommend(ctx context.Context, req *RecommendRequest) (*RecommendResponse, error) {
	userID, err := parseID("user_id", req.UserID)
	if err != nil {
		return nil, err
	}
	hobbies, err := parseIDs("hobby_ids", req.HobbyIDs)
	if err != nil {
		return nil, err
	}
	institutions, err := parseIDs("institution_ids", req.InstitutionIDs)
	if err != nil {
		return nil, err
	}

	u, err := s.engine.Recommend(ctx, userID, hobbies, institutions)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &RecommendResponse{User: Summarize(*u, time.Now())}, nil
}

func (s *Service) parseList(req *ListRequest) (uint64, pagination.Page, error) {
	userID, err := parseID("user_id", req.UserID)
	if err != nil {
		return 0, pagination.Page{}, err
	}
	number := int(req.Page)
	if number == 0 {
		number = 1
	}
	page, err := pagination.New(number, s.appCtx.PageSize())
	if err != nil {
		return 0, pagination.Page{}, svcErr.Map(err)
	}
	return userID, page, nil
}

func parseID(field, value string) (uint64, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, svcErr.InvalidArgument(field + " must be a valid uint64")
	}
	return id, nil
}

func parseIDs(field string, values []string) ([]uint64, error) {
	out := make([]uint64, 0, len(values))
	for _, v := range values {
		id, err := parseID(field, v)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
