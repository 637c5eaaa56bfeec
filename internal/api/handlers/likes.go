package handlers

import (
	"net/http"
	"time"

	"github.com/oggyb/campus-match/internal/app"
	"github.com/oggyb/campus-match/internal/service/explore"
)

type LikeHandler struct {
	appCtx *app.AppContext
	engine *explore.Engine
}

func NewLikeHandler(appCtx *app.AppContext, engine *explore.Engine) *LikeHandler {
	return &LikeHandler{appCtx: appCtx, engine: engine}
}

type SetLikeRequest struct {
	Like *bool `json:"like" validate:"required"`
}

type SetLikeResponse struct {
	UserID  uint64    `json:"user_id"`
	Like    bool      `json:"like"`
	Matched bool      `json:"matched"`
	LikedAt time.Time `json:"like_date"`
}

type LikeEntry struct {
	User    *explore.UserSummary `json:"user"`
	IsMatch bool                 `json:"is_match"`
	LikedAt time.Time            `json:"like_date"`
}

// Set handles PUT /likes/{userID}.
func (h *LikeHandler) Set(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	target, err := idParam(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req SetLikeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.engine.SetLike(r.Context(), userID, target, *req.Like)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SetLikeResponse{
		UserID:  target,
		Like:    res.Edge.Liked,
		Matched: res.Matched,
		LikedAt: res.Edge.UpdatedAt,
	})
}

// List handles GET /likes.
func (h *LikeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, err := pageParam(r, h.appCtx.PageSize())
	if err != nil {
		writeError(w, r, err)
		return
	}

	likes, err := h.engine.ListLikes(r.Context(), userID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := time.Now()
	out := make([]LikeEntry, 0, len(likes))
	for _, l := range likes {
		out = append(out, LikeEntry{User: explore.Summarize(l.User, now), IsMatch: l.IsMatch, LikedAt: l.LikedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

// Matches handles GET /likes/matches.
func (h *LikeHandler) Matches(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, err := pageParam(r, h.appCtx.PageSize())
	if err != nil {
		writeError(w, r, err)
		return
	}

	users, err := h.engine.ListMatches(r.Context(), userID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := time.Now()
	out := make([]*explore.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, explore.Summarize(u, now))
	}
	writeJSON(w, http.StatusOK, out)
}

// CheckMatch handles GET /likes/matches/{userID}.
func (h *LikeHandler) CheckMatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	other, err := idParam(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	matched, err := h.engine.CheckMatch(r.Context(), userID, other)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"matched": matched})
}

// Recommend handles GET /likes/recommendation?hobby=1&hobby=2&institution=3.
func (h *LikeHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	hobbies, err := idsParam(r, "hobby")
	if err != nil {
		writeError(w, r, err)
		return
	}
	institutions, err := idsParam(r, "institution")
	if err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.engine.Recommend(r.Context(), userID, hobbies, institutions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, explore.Summarize(*u, time.Now()))
}
