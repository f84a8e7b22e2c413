package database

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/festify/festify/internal/auth"
	"github.com/festify/festify/internal/config"
	"github.com/festify/festify/internal/models"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("Database connected and migrated successfully")
	return db, nil
}

func SeedData(db *gorm.DB) error {
	// Check if data already exists
	var count int64
	db.Model(&models.Stage{}).Count(&count)
	if count > 0 {
		log.Println("Data already seeded, skipping...")
		return nil
	}

	password, err := auth.HashPassword("password123", bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	users := []models.User{
		{Username: "lena", Email: "lena@festify.dev", PasswordHash: password, Profile: models.Profile{IsOrganizer: true}},
		{Username: "marco", Email: "marco@festify.dev", PasswordHash: password, Profile: models.Profile{IsOrganizer: true}},
		{Username: "sofia", Email: "sofia@festify.dev", PasswordHash: password, Profile: models.Profile{IsOrganizer: false}},
	}
	for i := range users {
		if err := db.Create(&users[i]).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
	}

	stages := []models.Stage{
		{Name: "Main Stage", Location: "North field", DisplayOrder: 1},
		{Name: "River Stage", Location: "East bank", DisplayOrder: 2},
		{Name: "Night Tent", Location: "South meadow", DisplayOrder: 3},
	}
	for i := range stages {
		if err := db.Create(&stages[i]).Error; err != nil {
			return fmt.Errorf("failed to create stage: %w", err)
		}
	}

	artists := []models.Artist{
		{Name: "The Midnight Sons", Genre: "Indie Rock", Description: "Four-piece from Hamburg"},
		{Name: "Aurora Fields", Genre: "Electronic", Description: "Ambient live sets"},
		{Name: "Cobalt Quartet", Genre: "Jazz", Description: "Modern jazz standards"},
		{Name: "Vera Lune", Genre: "Pop", Description: "Singer-songwriter"},
	}
	for i := range artists {
		if err := db.Create(&artists[i]).Error; err != nil {
			return fmt.Errorf("failed to create artist: %w", err)
		}
	}

	summerEnd := time.Date(2026, 7, 2, 23, 0, 0, 0, time.Local)
	events := []models.Event{
		{
			HostID:       users[0].ID,
			Title:        "Riverside Summer Festival",
			Description:  "Four days of music across three stages",
			StartTime:    time.Date(2026, 6, 29, 14, 0, 0, 0, time.Local),
			EndTime:      &summerEnd,
			LocationName: "Riverside Park",
			Address:      "1 Park Lane",
			Artists:      []models.Artist{artists[0], artists[1], artists[3]},
			TicketPrice:  decimal.NewFromFloat(89.50),
			Capacity:     5000,
		},
		{
			HostID:       users[1].ID,
			Title:        "Jazz in the Courtyard",
			Description:  "An intimate evening of jazz",
			StartTime:    time.Date(2026, 8, 14, 19, 30, 0, 0, time.Local),
			LocationName: "Old Brewery Courtyard",
			Address:      "12 Brewer Street",
			Artists:      []models.Artist{artists[2]},
			TicketPrice:  decimal.NewFromFloat(35.00),
			Capacity:     250,
		},
	}
	for i := range events {
		if err := db.Create(&events[i]).Error; err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}
	}

	performances := []models.Performance{
		{EventID: events[0].ID, ArtistID: artists[0].ID, StageID: stages[0].ID, StartTime: models.NewClockTime(20, 0), EndTime: models.NewClockTime(21, 30)},
		{EventID: events[0].ID, ArtistID: artists[1].ID, StageID: stages[2].ID, StartTime: models.NewClockTime(23, 0), EndTime: models.NewClockTime(23, 59), Title: "Late Night Set"},
		{EventID: events[0].ID, ArtistID: artists[3].ID, StageID: stages[1].ID, StartTime: models.NewClockTime(17, 0), EndTime: models.NewClockTime(18, 0)},
		{EventID: events[1].ID, ArtistID: artists[2].ID, StageID: stages[0].ID, StartTime: models.NewClockTime(19, 30), EndTime: models.NewClockTime(22, 0)},
	}
	for i := range performances {
		if err := db.Create(&performances[i]).Error; err != nil {
			return fmt.Errorf("failed to create performance: %w", err)
		}
	}

	log.Println("Sample data seeded successfully")
	return nil
}
