package explore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/campus-match/internal/app"
	"github.com/oggyb/campus-match/internal/db"
	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/notifier"
	"github.com/oggyb/campus-match/internal/service/explore"
	"github.com/oggyb/campus-match/internal/service/notification"
	"github.com/oggyb/campus-match/internal/testutil"
	"github.com/oggyb/campus-match/internal/utils/pagination"
)

type fixture struct {
	appCtx *app.AppContext
	engine *explore.Engine
	pushes *testutil.PushRecorder
}

func setup(t *testing.T) fixture {
	t.Helper()
	rec := &testutil.PushRecorder{}
	appCtx := testutil.NewAppContext(t, rec)
	engine := explore.NewEngine(appCtx, notification.NewService(appCtx))
	return fixture{appCtx: appCtx, engine: engine, pushes: rec}
}

func (f fixture) user(t *testing.T, name string) db.User {
	return testutil.CreateUser(t, f.appCtx.DB, db.User{Name: name})
}

func (f fixture) notifications(t *testing.T, userID uint64) []db.Notification {
	var out []db.Notification
	require.NoError(t, f.appCtx.DB.Where("user_id = ?", userID).Find(&out).Error)
	return out
}

func TestSetLikeRejectsSelf(t *testing.T) {
	f := setup(t)
	a := f.user(t, "a")

	_, err := f.engine.SetLike(context.Background(), a.ID, a.ID, true)
	assert.ErrorIs(t, err, svcErr.ErrSelfReference)
	assert.ErrorIs(t, err, svcErr.ErrValidation)
}

func TestSetLikeUnknownTarget(t *testing.T) {
	f := setup(t)
	a := f.user(t, "a")

	_, err := f.engine.SetLike(context.Background(), a.ID, 999, true)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestMutualLikeNotifiesFirstLikerOnce(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a, b := f.user(t, "alice"), f.user(t, "bob")

	res, err := f.engine.SetLike(ctx, a.ID, b.ID, true)
	require.NoError(t, err)
	assert.False(t, res.Matched)

	res, err = f.engine.SetLike(ctx, b.ID, a.ID, true)
	require.NoError(t, err)
	assert.True(t, res.Matched)

	ab, err := f.engine.CheckMatch(ctx, a.ID, b.ID)
	require.NoError(t, err)
	ba, err := f.engine.CheckMatch(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ab)
	assert.Equal(t, ab, ba, "symmetric")

	// repeating the like is not a new transition
	_, err = f.engine.SetLike(ctx, b.ID, a.ID, true)
	require.NoError(t, err)

	toA := f.notifications(t, a.ID)
	require.Len(t, toA, 1)
	assert.Equal(t, "New match", toA[0].Header)
	assert.Contains(t, toA[0].Message, "bob")
	assert.Empty(t, f.notifications(t, b.ID))

	assert.Len(t, f.pushes.To(notifier.Notifications(a.ID)), 1)
}

func TestRepeatedLikeKeepsOneEdge(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a, b := f.user(t, "a"), f.user(t, "b")

	for i := 0; i < 3; i++ {
		_, err := f.engine.SetLike(ctx, a.ID, b.ID, true)
		require.NoError(t, err)
	}

	var edges []db.UserLike
	require.NoError(t, f.appCtx.DB.Find(&edges).Error)
	require.Len(t, edges, 1)
	assert.True(t, edges[0].Liked)
}

func TestRetractAndRematchNotifiesAgain(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a, b := f.user(t, "a"), f.user(t, "b")

	_, _ = f.engine.SetLike(ctx, a.ID, b.ID, true)
	_, _ = f.engine.SetLike(ctx, b.ID, a.ID, true)

	_, err := f.engine.SetLike(ctx, b.ID, a.ID, false)
	require.NoError(t, err)
	ok, _ := f.engine.CheckMatch(ctx, a.ID, b.ID)
	assert.False(t, ok)

	res, err := f.engine.SetLike(ctx, b.ID, a.ID, true)
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Len(t, f.notifications(t, a.ID), 2, "each transition notifies once")
}

func TestListLikesMarksMatches(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	me, a, b, c := f.user(t, "me"), f.user(t, "a"), f.user(t, "b"), f.user(t, "c")

	_, _ = f.engine.SetLike(ctx, me.ID, a.ID, true)
	_, _ = f.engine.SetLike(ctx, me.ID, b.ID, true)
	_, _ = f.engine.SetLike(ctx, me.ID, c.ID, false)
	_, _ = f.engine.SetLike(ctx, b.ID, me.ID, true)

	base := time.Now().UTC()
	f.appCtx.DB.Model(&db.UserLike{}).Where("user_id = ? AND liked_user_id = ?", me.ID, a.ID).Update("updated_at", base)
	f.appCtx.DB.Model(&db.UserLike{}).Where("user_id = ? AND liked_user_id = ?", me.ID, b.ID).Update("updated_at", base.Add(time.Second))

	likes, err := f.engine.ListLikes(ctx, me.ID, pagination.First(10))
	require.NoError(t, err)
	require.Len(t, likes, 2)
	assert.Equal(t, b.ID, likes[0].User.ID)
	assert.True(t, likes[0].IsMatch)
	assert.Equal(t, a.ID, likes[1].User.ID)
	assert.False(t, likes[1].IsMatch)

	matches, err := f.engine.ListMatches(ctx, me.ID, pagination.First(10))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, b.ID, matches[0].ID)

	empty, err := f.engine.ListLikes(ctx, c.ID, pagination.First(10))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRecommendSkipsDecided(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	me, a := f.user(t, "me"), f.user(t, "a")

	got, err := f.engine.Recommend(ctx, me.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, _ = f.engine.SetLike(ctx, me.ID, a.ID, false)
	_, err = f.engine.Recommend(ctx, me.ID, nil, nil)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}
