package notifier

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/oggyb/campus-match/internal/metrics"
)

// ErrClosed is returned by operations on a closed notifier.
var ErrClosed = errors.New("notifier closed")

// Local delivers in-process only. Payloads pushed while no connection is
// registered are dropped, so it suits a single instance or development.
type Local struct {
	reg    *registry
	log    *slog.Logger
	closed atomic.Bool
}

func NewLocal(log *slog.Logger) *Local {
	return &Local{reg: newRegistry(log), log: log}
}

func (l *Local) Connect(_ context.Context, addr Address, conn Conn) error {
	if l.closed.Load() {
		return ErrClosed
	}
	id := l.reg.add(addr, conn)
	l.log.Debug("connection registered", "address", addr.String(), "conn_id", id)
	return nil
}

// Push delivers synchronously to the connections registered at call time.
func (l *Local) Push(ctx context.Context, addr Address, payload []byte) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if l.reg.count(addr) == 0 {
		metrics.NotifierPushes.WithLabelValues("memory", "dropped").Inc()
		metrics.NotifierDeliveries.WithLabelValues(metrics.DeliveryDropped).Inc()
		return nil
	}
	l.reg.broadcast(ctx, addr, payload)
	metrics.NotifierPushes.WithLabelValues("memory", "ok").Inc()
	return nil
}

func (l *Local) Disconnect(addr Address, conn Conn) {
	l.reg.remove(addr, conn)
}

func (l *Local) Close() error {
	l.closed.Store(true)
	return nil
}
