package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/campus-match/internal/db"
	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/repository"
	"github.com/oggyb/campus-match/internal/testutil"
	"github.com/oggyb/campus-match/internal/utils/pagination"
)

func TestNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewNotificationRepository(testutil.NewDB(t))

	for _, h := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Create(ctx, &db.Notification{UserID: 7, Header: h, Message: h}))
	}
	require.NoError(t, repo.Create(ctx, &db.Notification{UserID: 8, Header: "other", Message: "x"}))

	all, err := repo.List(ctx, 7, nil, pagination.First(10))
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].Header)

	n, err := repo.CountUnread(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	ok, err := repo.MarkRead(ctx, all[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = repo.MarkRead(ctx, all[0].ID)
	assert.False(t, ok)

	read := true
	readOnly, err := repo.List(ctx, 7, &read, pagination.First(10))
	require.NoError(t, err)
	assert.Len(t, readOnly, 1)

	changed, err := repo.MarkAllRead(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	n, _ = repo.CountUnread(ctx, 8)
	assert.Equal(t, int64(1), n, "other users untouched")

	require.NoError(t, repo.Delete(ctx, all[1].ID))
	_, err = repo.Get(ctx, all[1].ID)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, all[1].ID), svcErr.ErrNotFound)
}
