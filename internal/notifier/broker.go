package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/oggyb/campus-match/internal/config"
	"github.com/oggyb/campus-match/internal/metrics"
)

const keyPrefix = "notifier:"

// BrokerConfig tunes the durable notifier.
type BrokerConfig struct {
	// PollTimeout bounds one blocking pop. Redis rounds it up to a second.
	PollTimeout      time.Duration
	FailureThreshold uint32
	BreakerTimeout   time.Duration
	QueueCap         int
}

// BrokerConfigFrom reads the notifier section of cfg.
func BrokerConfigFrom(cfg *config.Config) BrokerConfig {
	return BrokerConfig{
		PollTimeout:      cfg.Notifier.PollTimeout,
		FailureThreshold: cfg.Notifier.FailureThreshold,
		BreakerTimeout:   cfg.Notifier.BreakerTimeout,
		QueueCap:         cfg.Notifier.QueueCap,
	}
}

// Broker keeps a durable Redis stream per address.
//
// Behavior:
//   - Push appends to the address stream (XADD, capped at QueueCap) whether
//     or not anybody is connected, so any instance can publish for a user
//     connected elsewhere.
//   - The first Connect for an address on an instance starts a consumer that
//     reads the stream on its own (XREAD), so every instance holding a
//     connection of the address sees every payload.
//   - A shared cursor per address records the newest payload handed to at
//     least one connection. A consumer starts reading after the cursor, so
//     payloads pushed while the user was offline wait for the next Connect.
//   - A payload no connection accepted does not move the cursor. The consumer
//     stops once the address has no connections and the payload is read again
//     by the next consumer (at-least-once).
type Broker struct {
	client redis.UniversalClient
	cfg    BrokerConfig
	reg    *registry
	cb     *gobreaker.CircuitBreaker[any]
	log    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	consumers map[Address]struct{}
	closed    bool
}

func NewBroker(client redis.UniversalClient, cfg BrokerConfig, log *slog.Logger) *Broker {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Broker{
		client:    client,
		cfg:       cfg,
		reg:       newRegistry(log),
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		consumers: make(map[Address]struct{}),
	}
	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "notifier-publish",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerState(name, to)
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return b
}

const (
	payloadField = "payload"
	readBatch    = 16
	streamStart  = "0"
)

func streamKey(addr Address) string { return keyPrefix + "stream:" + addr.String() }
func cursorKey(addr Address) string { return keyPrefix + "cursor:" + addr.String() }

// advanceCursor moves the cursor forward only. Stream ids are "ms-seq".
var advanceCursor = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local cms, cseq = string.match(cur, '(%d+)-(%d+)')
  local nms, nseq = string.match(ARGV[1], '(%d+)-(%d+)')
  cms, cseq, nms, nseq = tonumber(cms), tonumber(cseq), tonumber(nms), tonumber(nseq)
  if nms < cms or (nms == cms and nseq <= cseq) then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[1])
return 1
`)

// Connect registers conn. When no consumer runs for addr on this instance,
// one is started from the shared cursor, so conn sees everything pushed
// after the cursor was read.
func (b *Broker) Connect(ctx context.Context, addr Address, conn Conn) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	_, running := b.consumers[addr]
	var start string
	if !running {
		var err error
		if start, err = b.cursor(ctx, addr); err != nil {
			return fmt.Errorf("read cursor of %s: %w", addr, err)
		}
	}

	id := b.reg.add(addr, conn)
	b.log.Debug("connection registered", "address", addr.String(), "conn_id", id)

	if !running {
		b.consumers[addr] = struct{}{}
		b.wg.Add(1)
		go b.consume(addr, start)
	}
	return nil
}

func (b *Broker) cursor(ctx context.Context, addr Address) (string, error) {
	id, err := b.client.Get(ctx, cursorKey(addr)).Result()
	if errors.Is(err, redis.Nil) {
		return streamStart, nil
	}
	return id, err
}

// Push appends payload to the address stream. Delivery happens on every
// instance holding connections of the address.
func (b *Broker) Push(ctx context.Context, addr Address, payload []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	args := &redis.XAddArgs{
		Stream: streamKey(addr),
		Values: map[string]any{payloadField: payload},
	}
	if b.cfg.QueueCap > 0 {
		args.MaxLen = int64(b.cfg.QueueCap)
	}
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.client.XAdd(ctx, args).Err()
	})
	if err != nil {
		metrics.NotifierPushes.WithLabelValues("redis", "failed").Inc()
		return fmt.Errorf("publish to %s: %w", addr, err)
	}
	metrics.NotifierPushes.WithLabelValues("redis", "ok").Inc()
	return nil
}

func (b *Broker) Disconnect(addr Address, conn Conn) {
	b.reg.remove(addr, conn)
}

// Close stops every consumer and waits for them. The redis client is not closed.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	return nil
}

func (b *Broker) consume(addr Address, last string) {
	defer b.wg.Done()

	log := b.log.With("address", addr.String())
	stream := streamKey(addr)

	for {
		if b.ctx.Err() != nil || b.stopIfIdle(addr) {
			return
		}

		res, err := b.client.XRead(b.ctx, &redis.XReadArgs{
			Streams: []string{stream, last},
			Count:   readBatch,
			Block:   b.cfg.PollTimeout,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if b.ctx.Err() != nil {
				return
			}
			log.Error("stream read failed", "error", err)
			select {
			case <-b.ctx.Done():
				return
			case <-time.After(b.cfg.PollTimeout):
			}
			continue
		}

		for _, s := range res {
			last = b.deliver(addr, s.Messages, last, log)
		}
	}
}

// deliver broadcasts msgs in order and returns the id of the last one a
// connection accepted. It stops at the first payload nobody accepted, that
// payload is read again on the next pass.
func (b *Broker) deliver(addr Address, msgs []redis.XMessage, last string, log *slog.Logger) string {
	// the cursor must move even while closing
	ctx := context.WithoutCancel(b.ctx)

	for _, msg := range msgs {
		payload, _ := msg.Values[payloadField].(string)
		if b.reg.broadcast(b.ctx, addr, []byte(payload)) == 0 {
			metrics.NotifierDeliveries.WithLabelValues(metrics.DeliveryHeld).Inc()
			log.Warn("payload not accepted by any connection, keeping it", "id", msg.ID)
			return last
		}
		last = msg.ID
		if err := advanceCursor.Run(ctx, b.client, []string{cursorKey(addr)}, last).Err(); err != nil {
			log.Error("cursor update failed", "id", last, "error", err)
		}
	}
	return last
}

// stopIfIdle unregisters the consumer of addr when it has no connections.
// Runs under b.mu so a concurrent Connect either sees the consumer or starts a new one.
func (b *Broker) stopIfIdle(addr Address) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reg.count(addr) > 0 {
		return false
	}
	delete(b.consumers, addr)
	return true
}
