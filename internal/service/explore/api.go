package explore

import (
	"context"
	"strconv"
	"time"

	"google.golang.org/grpc"

	"github.com/oggyb/campus-match/internal/db"
	"github.com/oggyb/campus-match/internal/server"
)

// Wire types of explore.ExploreService. Encoded with the JSON codec,
// ids travel as decimal strings.

type PutLikeRequest struct {
	ActorUserID  string `json:"actor_user_id"`
	TargetUserID string `json:"target_user_id"`
	Liked        bool   `json:"liked"`
}

type PutLikeResponse struct {
	Matched       bool   `json:"matched"`
	UnixTimestamp uint64 `json:"unix_timestamp"`
}

type CheckMatchRequest struct {
	UserID      string `json:"user_id"`
	OtherUserID string `json:"other_user_id"`
}

type CheckMatchResponse struct {
	Matched bool `json:"matched"`
}

type ListRequest struct {
	UserID string `json:"user_id"`
	// Page is 1-indexed, 0 means the first page.
	Page int32 `json:"page"`
}

type ListMatchesResponse struct {
	Users []*UserSummary `json:"users"`
}

type ListLikesResponse struct {
	Likes []*Like `json:"likes"`
}

type Like struct {
	User          *UserSummary `json:"user"`
	IsMatch       bool         `json:"is_match"`
	UnixTimestamp uint64       `json:"unix_timestamp"`
}

type RecommendRequest struct {
	UserID         string   `json:"user_id"`
	HobbyIDs       []string `json:"hobby_ids,omitempty"`
	InstitutionIDs []string `json:"institution_ids,omitempty"`
}

type RecommendResponse struct {
	User *UserSummary `json:"user"`
}

type UserSummary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Age           int      `json:"age"`
	Description   string   `json:"description,omitempty"`
	ImageRef      string   `json:"image_ref,omitempty"`
	Verified      bool     `json:"verified"`
	InstitutionID string   `json:"institution_id,omitempty"`
	Hobbies       []string `json:"hobbies,omitempty"`
}

func Summarize(u db.User, now time.Time) *UserSummary {
	s := &UserSummary{
		ID:          strconv.FormatUint(u.ID, 10),
		Name:        u.Name,
		Age:         u.Age(now),
		Description: u.Description,
		Verified:    u.Verified,
	}
	if u.ImageRef != nil {
		s.ImageRef = *u.ImageRef
	}
	if u.InstitutionID != nil {
		s.InstitutionID = strconv.FormatUint(*u.InstitutionID, 10)
	}
	for _, h := range u.Hobbies {
		s.Hobbies = append(s.Hobbies, h.Name)
	}
	return s
}

// ExploreServer is the server API for explore.ExploreService.
type ExploreServer interface {
	PutLike(context.Context, *PutLikeRequest) (*PutLikeResponse, error)
	CheckMatch(context.Context, *CheckMatchRequest) (*CheckMatchResponse, error)
	ListMatches(context.Context, *ListRequest) (*ListMatchesResponse, error)
	ListLikes(context.Context, *ListRequest) (*ListLikesResponse, error)
	Recommend(context.Context, *RecommendRequest) (*RecommendResponse, error)
}

const serviceName = "explore.ExploreService"

// ServiceDesc describes explore.ExploreService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ExploreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PutLike", Handler: unaryHandler("PutLike", ExploreServer.PutLike)},
		{MethodName: "CheckMatch", Handler: unaryHandler("CheckMatch", ExploreServer.CheckMatch)},
		{MethodName: "ListMatches", Handler: unaryHandler("ListMatches", ExploreServer.ListMatches)},
		{MethodName: "ListLikes", Handler: unaryHandler("ListLikes", ExploreServer.ListLikes)},
		{MethodName: "Recommend", Handler: unaryHandler("Recommend", ExploreServer.Recommend)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "explore",
}

// unaryHandler adapts a typed ExploreServer method to grpc.MethodHandler.
func unaryHandler[Req, Resp any](
	method string,
	call func(ExploreServer, context.Context, *Req) (*Resp, error),
) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExploreServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExploreServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls explore.ExploreService over the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(server.JSONCodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PutLike(ctx context.Context, in *PutLikeRequest, opts ...grpc.CallOption) (*PutLikeResponse, error) {
	return invoke[PutLikeResponse](ctx, c.cc, "PutLike", in, opts)
}

func (c *Client) CheckMatch(ctx context.Context, in *CheckMatchRequest, opts ...grpc.CallOption) (*CheckMatchResponse, error) {
	return invoke[CheckMatchResponse](ctx, c.cc, "CheckMatch", in, opts)
}

func (c *Client) ListMatches(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListMatchesResponse, error) {
	return invoke[ListMatchesResponse](ctx, c.cc, "ListMatches", in, opts)
}

func (c *Client) ListLikes(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListLikesResponse, error) {
	return invoke[ListLikesResponse](ctx, c.cc, "ListLikes", in, opts)
}

func (c *Client) Recommend(ctx context.Context, in *RecommendRequest, opts ...grpc.CallOption) (*RecommendResponse, error) {
	return invoke[RecommendResponse](ctx, c.cc, "Recommend", in, opts)
}
