package handlers

import (
	"net/http"
	"time"

	"github.com/oggyb/campus-match/internal/app"
	"github.com/oggyb/campus-match/internal/service/verification"
)

type VerificationHandler struct {
	appCtx       *app.AppContext
	verification *verification.Service
}

func NewVerificationHandler(appCtx *app.AppContext, svc *verification.Service) *VerificationHandler {
	return &VerificationHandler{appCtx: appCtx, verification: svc}
}

type SubmitVerificationRequest struct {
	InstitutionID uint64 `json:"institution_id" validate:"required"`
	Name          string `json:"name" validate:"required,max=128"`
	Birthdate     string `json:"birthdate" validate:"required,datetime=2006-01-02"`
}

type ReviewVerificationRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

// Submit handles POST /verification.
func (h *VerificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req SubmitVerificationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	// format already checked by the datetime tag
	birthdate, _ := time.Parse(time.DateOnly, req.Birthdate)

	created, err := h.verification.Submit(r.Context(), userID, req.InstitutionID, req.Name, birthdate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Latest handles GET /verification.
func (h *VerificationHandler) Latest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	req, err := h.verification.Latest(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// Pending handles GET /verification/pending (admin).
func (h *VerificationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r, h.appCtx.PageSize())
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := h.verification.Pending(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Review handles POST /verification/{id}/review (admin).
func (h *VerificationHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ReviewVerificationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	reviewed, err := h.verification.Review(r.Context(), id, *req.Approved)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewed)
}
