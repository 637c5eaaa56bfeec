package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/campus-match/internal/db"
	svcErr "github.com/oggyb/campus-match/internal/errors"
	"github.com/oggyb/campus-match/internal/repository"
	"github.com/oggyb/campus-match/internal/testutil"
	"github.com/oggyb/campus-match/internal/utils/pagination"
)

func TestUpsertLike(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)

	// insert like
	wasLiked, edge, err := repo.Upsert(ctx, 1, 2, true)
	require.NoError(t, err)
	assert.False(t, wasLiked)
	assert.True(t, edge.Liked)

	// repeat like
	wasLiked, _, err = repo.Upsert(ctx, 1, 2, true)
	require.NoError(t, err)
	assert.True(t, wasLiked)

	// overwrite with dislike
	wasLiked, _, err = repo.Upsert(ctx, 1, 2, false)
	require.NoError(t, err)
	assert.True(t, wasLiked)

	var count int64
	dbase.Model(&db.UserLike{}).Count(&count)
	assert.Equal(t, int64(1), count, "single row per ordered pair")

	got, err := repo.Get(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, got.Liked)

	_, err = repo.Get(ctx, 2, 1)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestHasLiked(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewLikeRepository(testutil.NewDB(t))

	_, _, _ = repo.Upsert(ctx, 1, 2, true)
	_, _, _ = repo.Upsert(ctx, 3, 2, false)

	ok, err := repo.HasLiked(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = repo.HasLiked(ctx, 3, 2)
	assert.False(t, ok, "dislike is not a like")

	ok, _ = repo.HasLiked(ctx, 2, 1)
	assert.False(t, ok, "edges are directed")
}

func TestListMatchesOrderAndMutuality(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)

	me := testutil.CreateUser(t, dbase, db.User{Name: "me"})
	a := testutil.CreateUser(t, dbase, db.User{Name: "a"})
	b := testutil.CreateUser(t, dbase, db.User{Name: "b"})
	c := testutil.CreateUser(t, dbase, db.User{Name: "c"})

	// a and b are mutual, c only liked by me
	for _, u := range []db.User{a, b, c} {
		_, _, err := repo.Upsert(ctx, me.ID, u.ID, true)
		require.NoError(t, err)
	}
	_, _, _ = repo.Upsert(ctx, a.ID, me.ID, true)
	_, _, _ = repo.Upsert(ctx, b.ID, me.ID, true)

	// my like on a is the newest
	base := time.Now().UTC()
	dbase.Model(&db.UserLike{}).Where("user_id = ? AND liked_user_id = ?", me.ID, a.ID).Update("updated_at", base.Add(time.Minute))
	dbase.Model(&db.UserLike{}).Where("user_id = ? AND liked_user_id = ?", me.ID, b.ID).Update("updated_at", base)

	users, err := repo.ListMatches(ctx, me.ID, pagination.First(10))
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, a.ID, users[0].ID)
	assert.Equal(t, b.ID, users[1].ID)

	// retraction removes the match
	_, _, _ = repo.Upsert(ctx, b.ID, me.ID, false)
	users, err = repo.ListMatches(ctx, me.ID, pagination.First(10))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, a.ID, users[0].ID)

	// page 2 of size 1 is empty
	users, err = repo.ListMatches(ctx, me.ID, pagination.Page{Number: 2, Size: 1})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestListLikedAndLikedBackBy(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewLikeRepository(testutil.NewDB(t))

	_, _, _ = repo.Upsert(ctx, 1, 2, true)
	_, _, _ = repo.Upsert(ctx, 1, 3, true)
	_, _, _ = repo.Upsert(ctx, 1, 4, false)
	_, _, _ = repo.Upsert(ctx, 3, 1, true)

	edges, err := repo.ListLiked(ctx, 1, pagination.First(10))
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	back, err := repo.LikedBackBy(ctx, 1, []uint64{2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]bool{3: true}, back)

	back, err = repo.LikedBackBy(ctx, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestRecommendFilters(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)

	hobbies := []db.Hobby{{Name: "chess"}, {Name: "cinema"}, {Name: "running"}}
	require.NoError(t, dbase.Create(&hobbies).Error)
	inst := db.Institution{Name: "North"}
	require.NoError(t, dbase.Create(&inst).Error)

	me := testutil.CreateUser(t, dbase, db.User{Name: "me"})
	one := testutil.CreateUser(t, dbase, db.User{Name: "one", Hobbies: hobbies[:1]})
	two := testutil.CreateUser(t, dbase, db.User{Name: "two", Hobbies: hobbies[:2], InstitutionID: &inst.ID})
	_ = testutil.CreateUser(t, dbase, db.User{Name: "noimg", Hobbies: hobbies}, testutil.NoImage())
	_ = testutil.CreateUser(t, dbase, db.User{Name: "gone", Hobbies: hobbies}, testutil.Inactive())

	// no filters: oldest registration first
	got, err := repo.Recommend(ctx, me.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, one.ID, got.ID)

	// more shared hobbies first
	got, err = repo.Recommend(ctx, me.ID, []uint64{hobbies[0].ID, hobbies[1].ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, two.ID, got.ID)
	assert.Len(t, got.Hobbies, 2)

	got, err = repo.Recommend(ctx, me.ID, nil, []uint64{inst.ID})
	require.NoError(t, err)
	assert.Equal(t, two.ID, got.ID)

	// decided users are excluded, dislikes included
	_, _, _ = repo.Upsert(ctx, me.ID, one.ID, false)
	_, _, _ = repo.Upsert(ctx, me.ID, two.ID, true)
	_, err = repo.Recommend(ctx, me.ID, nil, nil)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestUpsertRollsBackOnError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 mockDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "user_likes"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	repo := repository.NewLikeRepository(gdb)
	_, _, err = repo.Upsert(context.Background(), 1, 2, true)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
