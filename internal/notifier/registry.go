package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/metrics"
)

// registry holds the live connections of this process.
type registry struct {
	mu    sync.RWMutex
	conns map[Address]map[Conn]string // conn -> connection id
	log   *slog.Logger
}

func newRegistry(log *slog.Logger) *registry {
	return &registry{conns: make(map[Address]map[Conn]string), log: log}
}

func (r *registry) add(addr Address, conn Conn) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[addr]
	if !ok {
		set = make(map[Conn]string)
		r.conns[addr] = set
	}
	if id, ok := set[conn]; ok {
		return id
	}
	id := uuid.NewString()
	set[conn] = id
	metrics.NotifierConnections.WithLabelValues(topicLabel(addr)).Inc()
	return id
}

// remove reports whether conn was registered.
func (r *registry) remove(addr Address, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[addr]
	if !ok {
		return false
	}
	if _, ok := set[conn]; !ok {
		return false
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.conns, addr)
	}
	metrics.NotifierConnections.WithLabelValues(topicLabel(addr)).Dec()
	return true
}

func (r *registry) count(addr Address) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[addr])
}

type entry struct {
	conn Conn
	id   string
}

func (r *registry) snapshot(addr Address) []entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entry, 0, len(r.conns[addr]))
	for c, id := range r.conns[addr] {
		out = append(out, entry{conn: c, id: id})
	}
	return out
}

// broadcast sends payload to every connection registered right now.
// A failing connection is removed and never retried. It returns the
// number of successful deliveries.
func (r *registry) broadcast(ctx context.Context, addr Address, payload []byte) int {
	delivered := 0
	for _, e := range r.snapshot(addr) {
		if err := e.conn.Send(ctx, payload); err != nil {
			r.remove(addr, e.conn)
			metrics.NotifierDeliveries.WithLabelValues(metrics.DeliveryFailed).Inc()
			r.log.Warn("connection dropped",
				"address", addr.String(),
				"conn_id", e.id,
				"error", fmt.Errorf("%w: %w", svcErr.ErrDeliveryFailure, err),
			)
			continue
		}
		metrics.NotifierDeliveries.WithLabelValues(metrics.DeliveryOK).Inc()
		delivered++
	}
	return delivered
}

// topicLabel keeps metric cardinality bounded: chat:{id} collapses to chat.
func topicLabel(addr Address) string {
	if strings.HasPrefix(addr.Topic, topicChatPrefix) {
		return "chat"
	}
	return addr.Topic
}
