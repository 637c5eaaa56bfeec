package main

import (
	"fmt"
	"os"

	"github.com/oggyb/campus-match/internal/auth"
	"github.com/oggyb/campus-match/internal/config"
	"github.com/oggyb/campus-match/internal/db"
	"github.com/oggyb/campus-match/internal/logger"
)

func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if err := db.SeedTestData(database); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	var users []db.User
	if err := database.Order("id").Find(&users).Error; err != nil {
		log.Error("failed to load users", "err", err)
		os.Exit(1)
	}

	// tokens for trying the API by hand
	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	for _, u := range users {
		tok, err := tokens.Issue(u.ID, u.IsAdmin)
		if err != nil {
			log.Error("failed to issue token", "user_id", u.ID, "err", err)
			os.Exit(1)
		}
		fmt.Printf("%d\t%s\t%s\n", u.ID, u.Name, tok)
	}

	log.Info("seeding completed", "users", len(users))
}
