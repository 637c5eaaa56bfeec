package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/oggyb/campus-match/internal/app"
	"github.com/oggyb/campus-match/internal/logger"
	"github.com/oggyb/campus-match/internal/notifier"
	"github.com/oggyb/campus-match/internal/service/chat"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

var (
	errClientClosed = errors.New("websocket client closed")
	errClientSlow   = errors.New("websocket send buffer full")
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one WebSocket session subscribed to a single address.
type Client struct {
	conn      *ws.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *ws.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Send queues payload for the write pump. A slow or closed client fails
// instead of blocking the notifier.
func (c *Client) Send(_ context.Context, payload []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		c.close()
		return errClientSlow
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// ReadPump only services control frames, clients never send data.
func (c *Client) ReadPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(ws.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.TextMessage, message); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

type WebSocketHandler struct {
	appCtx *app.AppContext
	chats  *chat.Service
}

func NewWebSocketHandler(appCtx *app.AppContext, chats *chat.Service) *WebSocketHandler {
	return &WebSocketHandler{appCtx: appCtx, chats: chats}
}

// Chats streams new chats and messages addressed to the caller.
func (h *WebSocketHandler) Chats(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.serve(w, r, notifier.Chats(userID))
}

// Chat streams read receipts of one chat.
func (h *WebSocketHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	chatID, err := idParam(r, "chatID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.chats.GetChat(r.Context(), chatID, userID); err != nil {
		writeError(w, r, err)
		return
	}
	h.serve(w, r, notifier.Chat(chatID, userID))
}

// Notifications streams the caller's notifications.
func (h *WebSocketHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.serve(w, r, notifier.Notifications(userID))
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, addr notifier.Address) {
	log := logger.FromContext(r.Context()).With("address", addr.String())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := newClient(conn)
	// the request context ends with the upgrade, the session outlives it
	if err := h.appCtx.Notifier.Connect(context.WithoutCancel(r.Context()), addr, client); err != nil {
		log.Error("notifier connect failed", "err", err)
		_ = conn.Close()
		return
	}
	log.Debug("websocket connected")

	go client.WritePump()
	go func() {
		client.ReadPump()
		h.appCtx.Notifier.Disconnect(addr, client)
		log.Debug("websocket disconnected")
	}()
}
