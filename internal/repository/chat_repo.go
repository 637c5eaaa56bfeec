package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/campus-match/internal/db"
	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/utils/pagination"
)

// likeEscaper makes LIKE wildcards in user input literal. '!' is the escape
// character since a backslash is itself an escape inside MySQL literals.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ChatRepository stores chats and their messages.
type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(database *gorm.DB) *ChatRepository {
	return &ChatRepository{db: database}
}

// Create inserts the chat together with its first message.
//
// Behavior:
//   - The unordered pair is unique (idx_chat_pair), a second chat between
//     the same users fails with ErrChatExists and nothing is written.
//   - chat.ID and first.ChatID are filled on success.
func (r *ChatRepository) Create(ctx context.Context, chat *db.Chat, first *db.Message) error {
	chat.PairLow, chat.PairHigh = chat.UserID1, chat.UserID2
	if chat.PairLow > chat.PairHigh {
		chat.PairLow, chat.PairHigh = chat.PairHigh, chat.PairLow
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_low"}, {Name: "pair_high"}},
			DoNothing: true,
		}).Create(chat)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return svcErr.ErrChatExists
		}

		first.ChatID = chat.ID
		return tx.Create(first).Error
	})
}

// Get loads a chat by id.
func (r *ChatRepository) Get(ctx context.Context, id uint64) (*db.Chat, error) {
	var chat db.Chat
	err := r.db.WithContext(ctx).Take(&chat, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("chat")
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// FindByUsers returns the chat between a and b in either order.
func (r *ChatRepository) FindByUsers(ctx context.Context, a, b uint64) (*db.Chat, error) {
	if a > b {
		a, b = b, a
	}
	var chat db.Chat
	err := r.db.WithContext(ctx).
		Where("pair_low = ? AND pair_high = ?", a, b).
		Take(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("chat")
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// Delete removes the chat and all of its messages.
func (r *ChatRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&db.Message{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&db.Chat{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return svcErr.NotFound("chat")
		}
		return nil
	})
}

// ListForUser returns the chats userID takes part in, most recent activity first.
//
// Behavior:
//   - Activity is the newest message creation time of the chat.
//   - nameFilter (optional) keeps chats whose other participant's name
//     contains it, case-insensitive.
func (r *ChatRepository) ListForUser(
	ctx context.Context,
	userID uint64,
	nameFilter string,
	page pagination.Page,
) ([]db.Chat, error) {
	lastActivity := r.db.Model(&db.Message{}).
		Select("chat_id, MAX(created_at) AS last_at").
		Group("chat_id")

	query := r.db.WithContext(ctx).
		Model(&db.Chat{}).
		Select("chats.*").
		Joins("LEFT JOIN (?) lm ON lm.chat_id = chats.id", lastActivity).
		Where("chats.user_id_1 = ? OR chats.user_id_2 = ?", userID, userID)

	if nameFilter = strings.TrimSpace(nameFilter); nameFilter != "" {
		query = query.Where(`EXISTS (
			SELECT 1 FROM users u
			WHERE u.id = CASE WHEN chats.user_id_1 = ? THEN chats.user_id_2 ELSE chats.user_id_1 END
			  AND LOWER(u.name) LIKE ? ESCAPE '!'
		)`, userID, "%"+likeEscaper.Replace(strings.ToLower(nameFilter))+"%")
	}

	var chats []db.Chat
	err := query.
		Order("lm.last_at DESC, chats.id DESC").
		Scopes(page.Scope()).
		Find(&chats).Error
	return chats, err
}

// CreateMessage appends a message to an existing chat.
func (r *ChatRepository) CreateMessage(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// GetMessage loads a message by id.
func (r *ChatRepository) GetMessage(ctx context.Context, id uint64) (*db.Message, error) {
	var msg db.Message
	err := r.db.WithContext(ctx).Take(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("message")
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns a page of chat messages, newest first.
func (r *ChatRepository) ListMessages(ctx context.Context, chatID uint64, page pagination.Page) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		Scopes(page.Scope()).
		Find(&msgs).Error
	return msgs, err
}

// LastMessages returns the newest message of each chat in chatIDs.
func (r *ChatRepository) LastMessages(ctx context.Context, chatIDs []uint64) (map[uint64]db.Message, error) {
	out := make(map[uint64]db.Message, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("chat_id IN ?", chatIDs).
		Where("created_at = (SELECT MAX(m2.created_at) FROM messages m2 WHERE m2.chat_id = messages.chat_id)").
		Order("id DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		// same-timestamp ties: the highest id wins
		if _, seen := out[m.ChatID]; !seen {
			out[m.ChatID] = m
		}
	}
	return out, nil
}

// MarkRead flips a message to read. It returns false when the message
// was already read, the flip happens at most once under concurrency.
func (r *ChatRepository) MarkRead(ctx context.Context, messageID uint64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("id = ? AND is_read = ?", messageID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected == 1, res.Error
}

// MarkAllRead marks every unread message in the chat not authored by readerID.
// It returns only the ids this call flipped, a message flipped concurrently
// by MarkRead is left to that caller.
func (r *ChatRepository) MarkAllRead(ctx context.Context, chatID, readerID uint64, at time.Time) ([]uint64, error) {
	flipped := []uint64{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []uint64
		if err := tx.Model(&db.Message{}).
			Where("chat_id = ? AND author_id <> ? AND is_read = ?", chatID, readerID, false).
			Order("id").
			Pluck("id", &candidates).Error; err != nil {
			return err
		}
		for _, id := range candidates {
			res := tx.Model(&db.Message{}).
				Where("id = ? AND is_read = ?", id, false).
				Updates(map[string]any{"is_read": true, "read_at": at})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				flipped = append(flipped, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flipped, nil
}

// UnreadCounts returns, per chat, the unread messages addressed to viewerID.
// Chats without unread messages are absent from the map.
func (r *ChatRepository) UnreadCounts(ctx context.Context, chatIDs []uint64, viewerID uint64) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ChatID uint64
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Select("chat_id, COUNT(*) AS count").
		Where("chat_id IN ? AND author_id <> ? AND is_read = ?", chatIDs, viewerID, false).
		Group("chat_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ChatID] = row.Count
	}
	return out, nil
}
