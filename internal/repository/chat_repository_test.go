package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/campus-match/internal/db"
	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/repository"
	"github.com/oggyb/campus-match/internal/testutil"
	"github.com/oggyb/campus-match/internal/utils/pagination"
)

func newChat(t *testing.T, repo *repository.ChatRepository, from, to uint64, content string) *db.Chat {
	t.Helper()
	chat := &db.Chat{UserID1: from, UserID2: to}
	require.NoError(t, repo.Create(context.Background(), chat, &db.Message{AuthorID: from, Content: content}))
	return chat
}

func TestCreateChatUniquePair(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewChatRepository(dbase)

	chat := newChat(t, repo, 2, 1, "hi")
	assert.NotZero(t, chat.ID)
	assert.Equal(t, uint64(1), chat.PairLow)
	assert.Equal(t, uint64(2), chat.PairHigh)

	// reverse direction is the same pair
	err := repo.Create(ctx, &db.Chat{UserID1: 1, UserID2: 2}, &db.Message{AuthorID: 1, Content: "again"})
	assert.ErrorIs(t, err, svcErr.ErrChatExists)
	assert.ErrorIs(t, err, svcErr.ErrConflict)

	var msgs int64
	dbase.Model(&db.Message{}).Count(&msgs)
	assert.Equal(t, int64(1), msgs, "failed create writes no message")

	found, err := repo.FindByUsers(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, found.ID)

	_, err = repo.FindByUsers(ctx, 1, 3)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestListMessagesPaging(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewChatRepository(testutil.NewDB(t))

	chat := newChat(t, repo, 1, 2, "m0")
	for i := 1; i < 25; i++ {
		require.NoError(t, repo.CreateMessage(ctx, &db.Message{ChatID: chat.ID, AuthorID: 1, Content: fmt.Sprintf("m%d", i)}))
	}

	first, err := repo.ListMessages(ctx, chat.ID, pagination.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, first, 10)
	assert.Equal(t, "m24", first[0].Content)

	second, err := repo.ListMessages(ctx, chat.ID, pagination.Page{Number: 2, Size: 10})
	require.NoError(t, err)
	require.Len(t, second, 10)
	assert.Equal(t, "m14", second[0].Content)
	assert.Equal(t, "m5", second[9].Content)

	third, err := repo.ListMessages(ctx, chat.ID, pagination.Page{Number: 3, Size: 10})
	require.NoError(t, err)
	assert.Len(t, third, 5)
}

func TestMarkReadOnce(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewChatRepository(testutil.NewDB(t))

	chat := newChat(t, repo, 1, 2, "hi")
	msgs, err := repo.ListMessages(ctx, chat.ID, pagination.First(10))
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	now := time.Now().UTC()
	ok, err := repo.MarkRead(ctx, msgs[0].ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkRead(ctx, msgs[0].ID, now)
	require.NoError(t, err)
	assert.False(t, ok, "second flip is a no-op")

	msg, err := repo.GetMessage(ctx, msgs[0].ID)
	require.NoError(t, err)
	assert.True(t, msg.Read)
	assert.NotNil(t, msg.ReadAt)
}

func TestUnreadCountsAndMarkAll(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewChatRepository(testutil.NewDB(t))

	chat := newChat(t, repo, 1, 2, "a")
	require.NoError(t, repo.CreateMessage(ctx, &db.Message{ChatID: chat.ID, AuthorID: 1, Content: "b"}))
	require.NoError(t, repo.CreateMessage(ctx, &db.Message{ChatID: chat.ID, AuthorID: 2, Content: "c"}))

	counts, err := repo.UnreadCounts(ctx, []uint64{chat.ID}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[chat.ID])

	counts, err = repo.UnreadCounts(ctx, []uint64{chat.ID}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[chat.ID])

	ids, err := repo.MarkAllRead(ctx, chat.ID, 2, time.Now().UTC())
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	counts, err = repo.UnreadCounts(ctx, []uint64{chat.ID}, 2)
	require.NoError(t, err)
	assert.Zero(t, counts[chat.ID])

	// other direction untouched
	counts, _ = repo.UnreadCounts(ctx, []uint64{chat.ID}, 1)
	assert.Equal(t, int64(1), counts[chat.ID])
}

func TestListForUserOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewChatRepository(dbase)

	me := testutil.CreateUser(t, dbase, db.User{Name: "me"})
	alice := testutil.CreateUser(t, dbase, db.User{Name: "Alice"})
	bob := testutil.CreateUser(t, dbase, db.User{Name: "Bob"})

	withAlice := newChat(t, repo, me.ID, alice.ID, "hi alice")
	withBob := newChat(t, repo, bob.ID, me.ID, "hi me")

	// alice's chat gets the latest message
	later := db.Message{ChatID: withAlice.ID, AuthorID: alice.ID, Content: "back", CreatedAt: time.Now().UTC().Add(time.Minute)}
	require.NoError(t, repo.CreateMessage(ctx, &later))

	chats, err := repo.ListForUser(ctx, me.ID, "", pagination.First(10))
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, withAlice.ID, chats[0].ID)
	assert.Equal(t, withBob.ID, chats[1].ID)

	chats, err = repo.ListForUser(ctx, me.ID, "bO", pagination.First(10))
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, withBob.ID, chats[0].ID)

	last, err := repo.LastMessages(ctx, []uint64{withAlice.ID, withBob.ID})
	require.NoError(t, err)
	assert.Equal(t, "back", last[withAlice.ID].Content)
	assert.Equal(t, "hi me", last[withBob.ID].Content)
}

func TestListForUserFilterIsLiteral(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewChatRepository(dbase)

	me := testutil.CreateUser(t, dbase, db.User{Name: "me"})
	plain := testutil.CreateUser(t, dbase, db.User{Name: "Carol"})
	under := testutil.CreateUser(t, dbase, db.User{Name: "dan_d"})
	pct := testutil.CreateUser(t, dbase, db.User{Name: "100% erin"})

	newChat(t, repo, me.ID, plain.ID, "hi")
	withUnder := newChat(t, repo, me.ID, under.ID, "hi")
	withPct := newChat(t, repo, me.ID, pct.ID, "hi")

	cases := []struct {
		filter string
		want   []uint64
	}{
		{"_", []uint64{withUnder.ID}},
		{"%", []uint64{withPct.ID}},
		{"c_rol", nil},
		{"!", nil},
	}
	for _, tc := range cases {
		t.Run(tc.filter, func(t *testing.T) {
			chats, err := repo.ListForUser(ctx, me.ID, tc.filter, pagination.First(10))
			require.NoError(t, err)
			var got []uint64
			for _, c := range chats {
				got = append(got, c.ID)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMarkAllReadSkipsAlreadyRead(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewChatRepository(testutil.NewDB(t))

	chat := newChat(t, repo, 1, 2, "a")
	require.NoError(t, repo.CreateMessage(ctx, &db.Message{ChatID: chat.ID, AuthorID: 1, Content: "b"}))
	require.NoError(t, repo.CreateMessage(ctx, &db.Message{ChatID: chat.ID, AuthorID: 1, Content: "c"}))

	msgs, err := repo.ListMessages(ctx, chat.ID, pagination.First(10))
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// a single read lands first; its receipt belongs to that caller
	ok, err := repo.MarkRead(ctx, msgs[1].ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	ids, err := repo.MarkAllRead(ctx, chat.ID, 2, time.Now().UTC())
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.NotContains(t, ids, msgs[1].ID)

	ids, err = repo.MarkAllRead(ctx, chat.ID, 2, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDeleteChatCascades(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewChatRepository(dbase)

	chat := newChat(t, repo, 1, 2, "hi")
	require.NoError(t, repo.Delete(ctx, chat.ID))

	var msgs int64
	dbase.Model(&db.Message{}).Where("chat_id = ?", chat.ID).Count(&msgs)
	assert.Zero(t, msgs)

	_, err := repo.Get(ctx, chat.ID)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, chat.ID), svcErr.ErrNotFound)
}
