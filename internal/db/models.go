package db

import (
	"time"
)

// User table. Age is derived from Birthdate and never stored.
type User struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email         string    `gorm:"uniqueIndex;size:128;not null" json:"-"`
	Name          string    `gorm:"size:128;not null;index" json:"name"`
	PasswordHash  string    `gorm:"size:255;not null" json:"-"`
	Birthdate     time.Time `gorm:"not null" json:"birthdate"`
	ImageRef      *string   `gorm:"size:255" json:"image_ref,omitempty"`
	Description   string    `gorm:"size:1024;not null;default:''" json:"description"`
	Verified      bool      `gorm:"not null;default:false" json:"verified"`
	IsAdmin       bool      `gorm:"not null;default:false" json:"-"`
	Active        bool      `gorm:"not null;default:true" json:"-"`
	InstitutionID *uint64   `gorm:"index" json:"institution_id,omitempty"`
	Hobbies       []Hobby   `gorm:"many2many:user_hobbies;" json:"hobbies,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"register_date"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"-"`
}

// Age returns full years between Birthdate and now.
func (u User) Age(now time.Time) int {
	age := now.Year() - u.Birthdate.Year()
	if now.Month() < u.Birthdate.Month() ||
		(now.Month() == u.Birthdate.Month() && now.Day() < u.Birthdate.Day()) {
		age--
	}
	return age
}

type Hobby struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:64;not null;uniqueIndex" json:"name"`
}

// UserHobby is the user_hobbies join table.
type UserHobby struct {
	UserID  uint64 `gorm:"primaryKey"`
	HobbyID uint64 `gorm:"primaryKey;index"`
}

type Institution struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:255;not null;uniqueIndex" json:"name"`
}

// UserLike is a directed like/dislike edge: user -> liked user.
//
// Composite PK: (UserID, LikedUserID)
//   - Ensures a single row per ordered pair, writes are upserts.
//
// Indexes:
//   - idx_liked_user_like(liked_user_id, liked)
//     Serves reverse-edge lookups for match checks and match lists.
//
// Fields:
//   - Liked: true if liked, false if disliked.
//   - UpdatedAt: the like timestamp, refreshed on every upsert.
type UserLike struct {
	UserID      uint64    `gorm:"primaryKey" json:"user_id"`
	LikedUserID uint64    `gorm:"primaryKey;index:idx_liked_user_like,priority:1" json:"liked_user_id"`
	Liked       bool      `gorm:"not null;index:idx_liked_user_like,priority:2" json:"like"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"like_date"`
}

// Chat between two users.
//
// PairLow/PairHigh hold the participant ids in ascending order so the unique
// index idx_chat_pair covers the unordered pair.
type Chat struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID1   uint64    `gorm:"column:user_id_1;not null;index" json:"user_id_1"`
	UserID2   uint64    `gorm:"column:user_id_2;not null;index" json:"user_id_2"`
	PairLow   uint64    `gorm:"not null;uniqueIndex:idx_chat_pair,priority:1" json:"-"`
	PairHigh  uint64    `gorm:"not null;uniqueIndex:idx_chat_pair,priority:2" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"creation_date"`
}

// HasParticipant reports whether userID is one of the two chat members.
func (c Chat) HasParticipant(userID uint64) bool {
	return c.UserID1 == userID || c.UserID2 == userID
}

// Other returns the participant that is not userID.
func (c Chat) Other(userID uint64) uint64 {
	if c.UserID1 == userID {
		return c.UserID2
	}
	return c.UserID1
}

// Message belongs to exactly one chat. Read only goes false -> true.
// The column is is_read because READ is reserved in MySQL.
type Message struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    uint64     `gorm:"not null;index:idx_message_chat_created,priority:1" json:"chat_id"`
	AuthorID  uint64     `gorm:"not null" json:"from_user_id"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	Read      bool       `gorm:"column:is_read;not null;default:false" json:"read"`
	ReadAt    *time.Time `json:"read_date,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index:idx_message_chat_created,priority:2" json:"creation_date"`
}

type Notification struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;index:idx_notification_user_read,priority:1" json:"user_id"`
	Header    string    `gorm:"size:255;not null" json:"header"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Read      bool      `gorm:"column:is_read;not null;default:false;index:idx_notification_user_read,priority:2" json:"read"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"creation_date"`
}

// VerificationRequest asks an admin to confirm a user's identity and institution.
type VerificationRequest struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint64    `gorm:"not null;index" json:"user_id"`
	InstitutionID uint64    `gorm:"not null" json:"institution_id"`
	Name          string    `gorm:"size:128;not null" json:"name"`
	Birthdate     time.Time `gorm:"not null" json:"birthdate"`
	Reviewed      bool      `gorm:"not null;default:false" json:"reviewed"`
	Approved      bool      `gorm:"not null;default:false" json:"approved"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"creation_date"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_date"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&Institution{}, &Hobby{}, &User{}, &UserHobby{},
		&UserLike{}, &Chat{}, &Message{}, &Notification{}, &VerificationRequest{},
	}
}
