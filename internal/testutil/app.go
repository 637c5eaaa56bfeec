package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/oggyb/campus-match/internal/app"
	"github.com/oggyb/campus-match/internal/config"
	"github.com/oggyb/campus-match/internal/logger"
	"github.com/oggyb/campus-match/internal/notifier"
)

// NewAppContext wires sqlite, miniredis and n. A nil n gets a Local notifier.
func NewAppContext(t *testing.T, n notifier.Notifier) *app.AppContext {
	t.Helper()
	database := NewDB(t)
	c, _ := NewCache(t)

	cfg := config.New()
	cfg.Paging.PageSize = 10
	if n == nil {
		n = notifier.NewLocal(logger.Discard())
	}
	return app.New(cfg, database, c, n, logger.Discard())
}

// Pushed is one payload seen by PushRecorder.
type Pushed struct {
	Addr    notifier.Address
	Payload []byte
}

// PushRecorder is a Notifier that records pushes instead of delivering them.
type PushRecorder struct {
	mu     sync.Mutex
	pushes []Pushed
	// Err is returned by Push when set.
	Err error
}

func (r *PushRecorder) Connect(context.Context, notifier.Address, notifier.Conn) error { return nil }

func (r *PushRecorder) Push(_ context.Context, addr notifier.Address, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.pushes = append(r.pushes, Pushed{Addr: addr, Payload: append([]byte(nil), payload...)})
	return nil
}

func (r *PushRecorder) Disconnect(notifier.Address, notifier.Conn) {}

func (r *PushRecorder) Close() error { return nil }

// To returns the payloads pushed to addr.
func (r *PushRecorder) To(addr notifier.Address) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out [][]byte
	for _, p := range r.pushes {
		if p.Addr == addr {
			out = append(out, p.Payload)
		}
	}
	return out
}

// All returns every recorded push.
func (r *PushRecorder) All() []Pushed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Pushed(nil), r.pushes...)
}
