// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/campus-match/internal/cache"
	"github.com/oggyb/campus-match/internal/config"
	"github.com/oggyb/campus-match/internal/db"
)

// NewDB opens a migrated in-memory sqlite database.
// The pool is pinned to one connection, every connection to :memory: is a new database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

// NewCache starts a miniredis server and returns a cache bound to it.
func NewCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

// CreateUser inserts u after filling required fields left empty.
// Users get a profile image unless NoImage is passed.
func CreateUser(t *testing.T, database *gorm.DB, u db.User, opts ...UserOption) db.User {
	t.Helper()
	o := userOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if u.Name == "" {
		u.Name = fmt.Sprintf("user-%d", time.Now().UnixNano())
	}
	if u.Email == "" {
		u.Email = u.Name + "@example.com"
	}
	if u.PasswordHash == "" {
		u.PasswordHash = "x"
	}
	if u.Birthdate.IsZero() {
		u.Birthdate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if u.ImageRef == nil && !o.noImage {
		ref := "images/" + u.Name + ".jpg"
		u.ImageRef = &ref
	}
	u.Active = true
	if err := database.Create(&u).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	// default:true swallows a false Active on insert
	if o.inactive {
		if err := database.Model(&u).Update("active", false).Error; err != nil {
			t.Fatalf("failed to deactivate user: %v", err)
		}
		u.Active = false
	}
	return u
}

type userOptions struct {
	noImage  bool
	inactive bool
}

type UserOption func(*userOptions)

func NoImage() UserOption  { return func(o *userOptions) { o.noImage = true } }
func Inactive() UserOption { return func(o *userOptions) { o.inactive = true } }
