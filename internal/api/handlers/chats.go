package handlers

import (
	"net/http"

	"github.com/oggyb/campus-match/internal/app"
	"github.com/oggyb/campus-match/internal/service/chat"
)

type ChatHandler struct {
	appCtx *app.AppContext
	chats  *chat.Service
}

func NewChatHandler(appCtx *app.AppContext, chats *chat.Service) *ChatHandler {
	return &ChatHandler{appCtx: appCtx, chats: chats}
}

type CreateChatRequest struct {
	UserID  uint64 `json:"user_id" validate:"required"`
	Message string `json:"message" validate:"required,max=4096"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4096"`
}

// Create handles POST /chats.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req CreateChatRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.chats.CreateChat(r.Context(), userID, req.UserID, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// List handles GET /chats?page=&name=.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, err := pageParam(r, h.appCtx.PageSize())
	if err != nil {
		writeError(w, r, err)
		return
	}

	views, err := h.chats.ListUserChats(r.Context(), userID, page, r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// FindWith handles GET /chats/with/{userID}.
func (h *ChatHandler) FindWith(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	other, err := idParam(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	found, err := h.chats.FindChatByUsers(r.Context(), userID, other)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.chats.GetChat(r.Context(), found.ID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Get handles GET /chats/{chatID}.
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	chatID, err := idParam(r, "chatID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.chats.GetChat(r.Context(), chatID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Delete handles DELETE /chats/{chatID}.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	chatID, err := idParam(r, "chatID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.chats.DeleteChat(r.Context(), chatID, userID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Messages handles GET /chats/{chatID}/messages?page=.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	chatID, err := idParam(r, "chatID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := pageParam(r, h.appCtx.PageSize())
	if err != nil {
		writeError(w, r, err)
		return
	}

	msgs, err := h.chats.ListMessages(r.Context(), chatID, userID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// Send handles POST /chats/{chatID}/messages.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	chatID, err := idParam(r, "chatID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req SendMessageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := h.chats.SendMessage(r.Context(), chatID, userID, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// ReadAll handles POST /chats/{chatID}/read.
func (h *ChatHandler) ReadAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	chatID, err := idParam(r, "chatID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ids, err := h.chats.MarkAllRead(r.Context(), chatID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"message_ids": ids})
}

// Unread handles GET /chats/{chatID}/unread.
func (h *ChatHandler) Unread(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	chatID, err := idParam(r, "chatID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	n, err := h.chats.UnreadCount(r.Context(), chatID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread_count": n})
}

// ReadMessage handles POST /messages/{messageID}/read.
func (h *ChatHandler) ReadMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	messageID, err := idParam(r, "messageID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := h.chats.MarkRead(r.Context(), messageID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
