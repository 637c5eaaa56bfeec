package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedTables = []string{
	"verification_requests", "notifications", "messages", "chats",
	"user_likes", "user_hobbies", "users", "hobbies", "institutions",
}

// SeedTestData resets the database and populates it with demo data.
//
// Behavior:
//  1. Clears every table owned by the service.
//  2. Creates 3 institutions, 6 hobbies and 20 users with hashed passwords,
//     random hobbies and, for most users, a profile image.
//  3. Generates ~200 likes with ~70% likes; every 3rd pair is made mutual.
//  4. Opens a chat between user1 and user2 with a first message.
//
// Compatible with MySQL, PostgreSQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := clearTables(db); err != nil {
		return err
	}
	log.Println("Cleared existing data")

	institutions := []Institution{{Name: "North Campus"}, {Name: "Harbor Institute"}, {Name: "Valley College"}}
	if err := db.Create(&institutions).Error; err != nil {
		return fmt.Errorf("failed to seed institutions: %w", err)
	}
	hobbies := []Hobby{
		{Name: "climbing"}, {Name: "chess"}, {Name: "cinema"},
		{Name: "cooking"}, {Name: "running"}, {Name: "photography"},
	}
	if err := db.Create(&hobbies).Error; err != nil {
		return fmt.Errorf("failed to seed hobbies: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := make([]User, 0, 20)
	for i := 1; i <= 20; i++ {
		inst := institutions[r.Intn(len(institutions))].ID
		user := User{
			Email:         fmt.Sprintf("user%d@example.com", i),
			Name:          fmt.Sprintf("user%d", i),
			PasswordHash:  string(hash),
			Birthdate:     time.Now().AddDate(-18-r.Intn(10), -r.Intn(12), 0).UTC(),
			Active:        true,
			IsAdmin:       i == 1,
			InstitutionID: &inst,
			Hobbies:       []Hobby{hobbies[i%len(hobbies)], hobbies[(i+1+r.Intn(len(hobbies)-1))%len(hobbies)]},
		}
		if i%5 != 0 {
			ref := fmt.Sprintf("images/user%d.jpg", i)
			user.ImageRef = &ref
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("Seeded %d users.", len(users))

	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "liked_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
	}

	counter := 0
	for _, actor := range users {
		for j := 0; j < 10; j++ {
			target := users[r.Intn(len(users))]
			if actor.ID == target.ID {
				continue
			}

			liked := r.Intn(100) < 70

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				liked = true
				back := UserLike{UserID: target.ID, LikedUserID: actor.ID, Liked: true}
				if err := db.Clauses(upsert).Create(&back).Error; err != nil {
					return fmt.Errorf("failed to seed like: %w", err)
				}
			}

			like := UserLike{UserID: actor.ID, LikedUserID: target.ID, Liked: liked}
			if err := db.Clauses(upsert).Create(&like).Error; err != nil {
				return fmt.Errorf("failed to seed like: %w", err)
			}
			counter++
		}
	}
	log.Printf("Seeded %d likes.", counter)

	return db.Transaction(func(tx *gorm.DB) error {
		a, b := users[0], users[1]
		chat := Chat{UserID1: a.ID, UserID2: b.ID, PairLow: a.ID, PairHigh: b.ID}
		if err := tx.Create(&chat).Error; err != nil {
			return fmt.Errorf("failed to seed chat: %w", err)
		}
		msg := Message{ChatID: chat.ID, AuthorID: a.ID, Content: "hi"}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("failed to seed message: %w", err)
		}
		return nil
	})
}

func clearTables(db *gorm.DB) error {
	for _, table := range seedTables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences where the dialect supports it.
	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range seedTables {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		for _, table := range seedTables {
			db.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table)
		}
	}
	return nil
}
