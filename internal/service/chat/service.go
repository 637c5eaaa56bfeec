package chat

import (
	"context"
	"strings"
	"time"

	"github.com/oggyb/campus-match/internal/app"
	"github.com/oggyb/campus-match/internal/db"
	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/notifier"
	"github.com/oggyb/campus-match/internal/repository"
	"github.com/oggyb/campus-match/internal/utils/pagination"
)

// MaxContentLength bounds a message body in runes.
const MaxContentLength = 4096

// Participant is the public part of a chat member.
type Participant struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	ImageRef *string `json:"image_ref,omitempty"`
}

// ChatView is a chat as seen by one participant.
type ChatView struct {
	ID          uint64        `json:"id"`
	Users       []Participant `json:"users"`
	CreatedAt   time.Time     `json:"creation_date"`
	LastMessage *db.Message   `json:"last_message,omitempty"`
	UnreadCount int64         `json:"unread_count"`
}

// ReadReceipt tells the author which of their messages were read.
type ReadReceipt struct {
	ChatID     uint64    `json:"chat_id"`
	MessageIDs []uint64  `json:"message_ids"`
	ReaderID   uint64    `json:"reader_id"`
	ReadAt     time.Time `json:"read_date"`
}

// Service implements one-to-one chats with unread accounting.
// Every write that the other participant should see live is pushed through
// the Notifier after it is stored. Push failures are logged only.
type Service struct {
	appCtx *app.AppContext
	chats  *repository.ChatRepository
	users  *repository.UserRepository
	now    func() time.Time
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		chats:  repository.NewChatRepository(appCtx.DB),
		users:  repository.NewUserRepository(appCtx.DB),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateChat opens a chat between actor and target with a first message.
//
// Behavior:
//   - actor == target or empty content → validation error.
//   - Unknown target → ErrNotFound.
//   - A chat for the pair in either direction → ErrChatExists.
//   - Chat and first message are written in one transaction.
//   - target receives the new chat on its chats channel.
func (s *Service) CreateChat(ctx context.Context, actor, target uint64, content string) (*ChatView, error) {
	if actor == target {
		return nil, svcErr.Validation("cannot open a chat with yourself")
	}
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	ok, err := s.users.ActiveExists(ctx, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, svcErr.NotFound("user")
	}

	chat := &db.Chat{UserID1: actor, UserID2: target}
	first := &db.Message{AuthorID: actor, Content: content}
	if err := s.chats.Create(ctx, chat, first); err != nil {
		return nil, err
	}

	views, err := s.views(ctx, []db.Chat{*chat}, actor)
	if err != nil {
		return nil, err
	}
	view := views[0]

	forTarget := view
	forTarget.UnreadCount = 1
	s.push(ctx, notifier.Chats(target), notifier.TypeChat, forTarget)

	return &view, nil
}

// FindChatByUsers returns the chat of the unordered pair or ErrNotFound.
func (s *Service) FindChatByUsers(ctx context.Context, a, b uint64) (*db.Chat, error) {
	return s.chats.FindByUsers(ctx, a, b)
}

// GetChat returns the chat with participants, last message and viewer's unread count.
func (s *Service) GetChat(ctx context.Context, chatID, viewer uint64) (*ChatView, error) {
	chat, err := s.participantChat(ctx, chatID, viewer)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []db.Chat{*chat}, viewer)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// SendMessage appends an unread message and pushes it to the recipient.
func (s *Service) SendMessage(ctx context.Context, chatID, author uint64, content string) (*db.Message, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	chat, err := s.participantChat(ctx, chatID, author)
	if err != nil {
		return nil, err
	}

	msg := &db.Message{ChatID: chat.ID, AuthorID: author, Content: content}
	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.push(ctx, notifier.Chats(chat.Other(author)), notifier.TypeMessage, msg)
	return msg, nil
}

// ListMessages returns a page of messages, newest first.
func (s *Service) ListMessages(ctx context.Context, chatID, viewer uint64, page pagination.Page) ([]db.Message, error) {
	if _, err := s.participantChat(ctx, chatID, viewer); err != nil {
		return nil, err
	}
	return s.chats.ListMessages(ctx, chatID, page)
}

// MarkRead marks a message as read by reader.
//
// Behavior:
//   - Missing message, or reader outside the chat → ErrNotFound.
//   - reader is the author → ErrSelfRead.
//   - Already read → ErrAlreadyRead. The flip is a guarded update, so
//     concurrent callers see exactly one success.
//   - The author receives a read receipt on the chat:{id} channel.
func (s *Service) MarkRead(ctx context.Context, messageID, reader uint64) (*db.Message, error) {
	msg, err := s.chats.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	chat, err := s.chats.Get(ctx, msg.ChatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(reader) {
		return nil, svcErr.NotFound("message")
	}
	if msg.AuthorID == reader {
		return nil, svcErr.ErrSelfRead
	}

	at := s.now()
	ok, err := s.chats.MarkRead(ctx, messageID, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, svcErr.ErrAlreadyRead
	}
	msg.Read, msg.ReadAt = true, &at

	s.push(ctx, notifier.Chat(chat.ID, msg.AuthorID), notifier.TypeRead, ReadReceipt{
		ChatID:     chat.ID,
		MessageIDs: []uint64{msg.ID},
		ReaderID:   reader,
		ReadAt:     at,
	})
	return msg, nil
}

// MarkAllRead marks every unread message of the other participant as read
// and sends one receipt covering all of them. It returns the ids flipped.
func (s *Service) MarkAllRead(ctx context.Context, chatID, reader uint64) ([]uint64, error) {
	chat, err := s.participantChat(ctx, chatID, reader)
	if err != nil {
		return nil, err
	}
	at := s.now()
	ids, err := s.chats.MarkAllRead(ctx, chatID, reader, at)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		s.push(ctx, notifier.Chat(chat.ID, chat.Other(reader)), notifier.TypeRead, ReadReceipt{
			ChatID:     chat.ID,
			MessageIDs: ids,
			ReaderID:   reader,
			ReadAt:     at,
		})
	}
	return ids, nil
}

// UnreadCount counts messages addressed to viewer that are still unread.
func (s *Service) UnreadCount(ctx context.Context, chatID, viewer uint64) (int64, error) {
	if _, err := s.participantChat(ctx, chatID, viewer); err != nil {
		return 0, err
	}
	counts, err := s.chats.UnreadCounts(ctx, []uint64{chatID}, viewer)
	if err != nil {
		return 0, err
	}
	return counts[chatID], nil
}

// ListUserChats returns user's chats by most recent message.
// nameFilter (optional) matches the other participant's name, case-insensitive.
func (s *Service) ListUserChats(ctx context.Context, user uint64, page pagination.Page, nameFilter string) ([]ChatView, error) {
	chats, err := s.chats.ListForUser(ctx, user, nameFilter, page)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, chats, user)
}

// DeleteChat removes the chat and its messages. Participants only.
func (s *Service) DeleteChat(ctx context.Context, chatID, actor uint64) error {
	if _, err := s.participantChat(ctx, chatID, actor); err != nil {
		return err
	}
	return s.chats.Delete(ctx, chatID)
}

func (s *Service) participantChat(ctx context.Context, chatID, userID uint64) (*db.Chat, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, svcErr.ErrAccessDenied
	}
	return chat, nil
}

// views batch-loads participants, last messages and unread counts.
func (s *Service) views(ctx context.Context, chats []db.Chat, viewer uint64) ([]ChatView, error) {
	out := make([]ChatView, 0, len(chats))
	if len(chats) == 0 {
		return out, nil
	}

	chatIDs := make([]uint64, 0, len(chats))
	userIDs := make([]uint64, 0, len(chats)+1)
	for _, c := range chats {
		chatIDs = append(chatIDs, c.ID)
		userIDs = append(userIDs, c.UserID1, c.UserID2)
	}

	users, err := s.users.GetByIDs(ctx, userIDs, false)
	if err != nil {
		return nil, err
	}
	last, err := s.chats.LastMessages(ctx, chatIDs)
	if err != nil {
		return nil, err
	}
	unread, err := s.chats.UnreadCounts(ctx, chatIDs, viewer)
	if err != nil {
		return nil, err
	}

	for _, c := range chats {
		v := ChatView{ID: c.ID, CreatedAt: c.CreatedAt, UnreadCount: unread[c.ID]}
		for _, id := range []uint64{c.UserID1, c.UserID2} {
			u := users[id]
			v.Users = append(v.Users, Participant{ID: id, Name: u.Name, ImageRef: u.ImageRef})
		}
		if m, ok := last[c.ID]; ok {
			v.LastMessage = &m
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) push(ctx context.Context, addr notifier.Address, typ string, data any) {
	payload, err := notifier.Encode(typ, data)
	if err != nil {
		s.appCtx.Logger.Error("encode push failed", "type", typ, "err", err)
		return
	}
	if err := s.appCtx.Notifier.Push(ctx, addr, payload); err != nil {
		s.appCtx.Logger.Warn("push failed", "address", addr.String(), "type", typ, "err", err)
	}
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", svcErr.Validation("message content must not be empty")
	}
	if len([]rune(content)) > MaxContentLength {
		return "", svcErr.Validation("message content is too long")
	}
	return content, nil
}
