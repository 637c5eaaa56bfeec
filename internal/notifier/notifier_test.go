package notifier_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/campus-match/internal/logger"
	"github.com/oggyb/campus-match/internal/notifier"
)

// recorder is a fake session.
type recorder struct {
	mu    sync.Mutex
	got   []string
	calls int
	fail  error
}

func (r *recorder) Send(_ context.Context, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail != nil {
		return r.fail
	}
	r.got = append(r.got, string(payload))
	return nil
}

func (r *recorder) payloads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func (r *recorder) sendCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "chats:7", notifier.Chats(7).String())
	assert.Equal(t, "chat:3:7", notifier.Chat(3, 7).String())
	assert.Equal(t, "notifications:7", notifier.Notifications(7).String())
}

func TestEncodeEnvelope(t *testing.T) {
	b, err := notifier.Encode(notifier.TypeRead, map[string]uint64{"message_id": 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"read","data":{"message_id":5}}`, string(b))
}

func TestLocalDropsWithoutConnection(t *testing.T) {
	ctx := context.Background()
	n := notifier.NewLocal(logger.Discard())
	addr := notifier.Chats(1)

	require.NoError(t, n.Push(ctx, addr, []byte("lost")))

	conn := &recorder{}
	require.NoError(t, n.Connect(ctx, addr, conn))
	require.NoError(t, n.Push(ctx, addr, []byte("seen")))

	assert.Equal(t, []string{"seen"}, conn.payloads(), "earlier push is not replayed")
}

func TestLocalBroadcastsToEveryConnection(t *testing.T) {
	ctx := context.Background()
	n := notifier.NewLocal(logger.Discard())
	addr := notifier.Notifications(1)

	a, b := &recorder{}, &recorder{}
	require.NoError(t, n.Connect(ctx, addr, a))
	require.NoError(t, n.Connect(ctx, addr, b))
	other := &recorder{}
	require.NoError(t, n.Connect(ctx, notifier.Notifications(2), other))

	require.NoError(t, n.Push(ctx, addr, []byte("p1")))
	assert.Equal(t, []string{"p1"}, a.payloads())
	assert.Equal(t, []string{"p1"}, b.payloads())
	assert.Empty(t, other.payloads())

	n.Disconnect(addr, a)
	require.NoError(t, n.Push(ctx, addr, []byte("p2")))
	assert.Equal(t, []string{"p1"}, a.payloads())
	assert.Equal(t, []string{"p1", "p2"}, b.payloads())
}

func TestLocalRemovesFailingConnection(t *testing.T) {
	ctx := context.Background()
	n := notifier.NewLocal(logger.Discard())
	addr := notifier.Chats(1)

	bad := &recorder{fail: errors.New("broken pipe")}
	good := &recorder{}
	require.NoError(t, n.Connect(ctx, addr, bad))
	require.NoError(t, n.Connect(ctx, addr, good))

	require.NoError(t, n.Push(ctx, addr, []byte("p1")))
	require.NoError(t, n.Push(ctx, addr, []byte("p2")))

	assert.Equal(t, 1, bad.sendCalls(), "no retry, no second attempt")
	assert.Equal(t, []string{"p1", "p2"}, good.payloads())
}

func TestLocalClosed(t *testing.T) {
	ctx := context.Background()
	n := notifier.NewLocal(logger.Discard())
	require.NoError(t, n.Close())

	assert.ErrorIs(t, n.Push(ctx, notifier.Chats(1), []byte("x")), notifier.ErrClosed)
	assert.ErrorIs(t, n.Connect(ctx, notifier.Chats(1), &recorder{}), notifier.ErrClosed)
}
