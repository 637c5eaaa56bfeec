package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/notifier"
	"github.com/oggyb/campus-match/internal/service/notification"
	"github.com/oggyb/campus-match/internal/testutil"
	"github.com/oggyb/campus-match/internal/utils/pagination"
)

func TestNotifyPersistsAndPushes(t *testing.T) {
	ctx := context.Background()
	rec := &testutil.PushRecorder{}
	svc := notification.NewService(testutil.NewAppContext(t, rec))

	n, err := svc.Notify(ctx, 5, "New match", "You and Sam liked each other")
	require.NoError(t, err)
	assert.NotZero(t, n.ID)

	pushed := rec.To(notifier.Notifications(5))
	require.Len(t, pushed, 1)

	var env struct {
		Type string `json:"type"`
		Data struct {
			ID     uint64 `json:"id"`
			Header string `json:"header"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(pushed[0], &env))
	assert.Equal(t, "notification", env.Type)
	assert.Equal(t, n.ID, env.Data.ID)
	assert.Equal(t, "New match", env.Data.Header)
}

func TestNotifySurvivesPushFailure(t *testing.T) {
	ctx := context.Background()
	rec := &testutil.PushRecorder{Err: errors.New("redis down")}
	svc := notification.NewService(testutil.NewAppContext(t, rec))

	n, err := svc.Notify(ctx, 5, "h", "m")
	require.NoError(t, err)

	got, err := svc.Get(ctx, n.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, "h", got.Header)
}

func TestUnreadCountCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	appCtx := testutil.NewAppContext(t, nil)
	svc := notification.NewService(appCtx)

	n1, _ := svc.Notify(ctx, 1, "a", "a")
	_, _ = svc.Notify(ctx, 1, "b", "b")

	count, err := svc.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// second read is served from redis
	key := appCtx.RedisCache.KeyForUnreadNotifications(1)
	cached, ok, err := appCtx.RedisCache.GetCounter(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), cached)

	require.NoError(t, svc.MarkRead(ctx, n1.ID, 1))
	count, err = svc.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "mark read drops the cached counter")

	changed, err := svc.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)
	count, _ = svc.UnreadCount(ctx, 1)
	assert.Zero(t, count)
}

func TestOwnershipAndTerminalRead(t *testing.T) {
	ctx := context.Background()
	svc := notification.NewService(testutil.NewAppContext(t, nil))

	n, err := svc.Notify(ctx, 1, "h", "m")
	require.NoError(t, err)

	_, err = svc.Get(ctx, n.ID, 2)
	assert.ErrorIs(t, err, svcErr.ErrAccessDenied)
	assert.ErrorIs(t, svc.MarkRead(ctx, n.ID, 2), svcErr.ErrAccessDenied)
	assert.ErrorIs(t, svc.Delete(ctx, n.ID, 2), svcErr.ErrAccessDenied)

	require.NoError(t, svc.MarkRead(ctx, n.ID, 1))
	assert.ErrorIs(t, svc.MarkRead(ctx, n.ID, 1), svcErr.ErrAlreadyInTerminalState)

	unread := false
	list, err := svc.List(ctx, 1, &unread, pagination.First(10))
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, svc.Delete(ctx, n.ID, 1))
	_, err = svc.Get(ctx, n.ID, 1)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestUnreadCountIgnoresCountOverlappingNotify(t *testing.T) {
	ctx := context.Background()
	appCtx := testutil.NewAppContext(t, nil)
	svc := notification.NewService(appCtx)

	// a notification lands after the DB count but before the cache write
	fired := false
	svc.SetAfterCount(func() {
		if fired {
			return
		}
		fired = true
		_, err := svc.Notify(ctx, 1, "late", "late")
		require.NoError(t, err)
	})

	count, err := svc.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count, "the count taken before the notification")

	_, ok, err := appCtx.RedisCache.GetCounter(ctx, appCtx.RedisCache.KeyForUnreadNotifications(1))
	require.NoError(t, err)
	assert.False(t, ok, "the stale count is not cached")

	count, err = svc.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
