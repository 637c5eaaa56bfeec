// Package notifier fans payloads out to the live sessions of a user.
//
// A payload is pushed to an Address (topic + user). Every connection
// registered for that address receives it. A connection whose Send fails is
// dropped, the others are unaffected.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Topics.
const (
	TopicChats         = "chats"
	TopicNotifications = "notifications"
	topicChatPrefix    = "chat:"
)

// Envelope types.
const (
	TypeMessage      = "message"
	TypeChat         = "chat"
	TypeRead         = "read"
	TypeNotification = "notification"
)

// Address identifies one per-user channel.
type Address struct {
	Topic  string
	UserID uint64
}

func (a Address) String() string {
	return a.Topic + ":" + strconv.FormatUint(a.UserID, 10)
}

// Chats is the channel carrying new chats and messages for userID.
func Chats(userID uint64) Address {
	return Address{Topic: TopicChats, UserID: userID}
}

// Chat is the per-chat channel of userID, used for read receipts.
func Chat(chatID, userID uint64) Address {
	return Address{Topic: topicChatPrefix + strconv.FormatUint(chatID, 10), UserID: userID}
}

// Notifications is the channel carrying persisted notifications for userID.
func Notifications(userID uint64) Address {
	return Address{Topic: TopicNotifications, UserID: userID}
}

// Conn is a live session able to receive payloads.
// Implementations must be usable as map keys (pointer receivers).
type Conn interface {
	Send(ctx context.Context, payload []byte) error
}

// Notifier is implemented by Local and Broker.
type Notifier interface {
	// Connect registers conn for addr.
	Connect(ctx context.Context, addr Address, conn Conn) error
	// Push hands payload over for delivery to every connection of addr.
	Push(ctx context.Context, addr Address, payload []byte) error
	// Disconnect removes conn only. Unknown connections are ignored.
	Disconnect(addr Address, conn Conn)
	// Close stops background delivery. Pushes after Close fail.
	Close() error
}

// Envelope is the JSON frame pushed to clients.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Encode marshals an envelope of the given type.
func Encode(typ string, data any) ([]byte, error) {
	b, err := json.Marshal(Envelope{Type: typ, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", typ, err)
	}
	return b, nil
}
