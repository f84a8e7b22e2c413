package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrTicketCounter reports a tickets_sold counter outside [0, capacity].
// It should be unreachable while all mutations go through the admission
// transaction; callers surface it as an internal failure, never clamp it.
var ErrTicketCounter = errors.New("tickets sold counter out of range")

type User struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`

	Profile Profile `json:"profile" gorm:"constraint:OnDelete:CASCADE"`
}

// Profile carries the organizer flag; one per user, created at registration.
type Profile struct {
	ID          uint `json:"-" gorm:"primarykey"`
	UserID      uint `json:"-" gorm:"uniqueIndex;not null"`
	IsOrganizer bool `json:"is_organizer"`
}

type Artist struct {
	ID          uint   `json:"id" gorm:"primarykey"`
	Name        string `json:"name" gorm:"not null"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// Stage is a physical venue area. DisplayOrder sorts stages in every
// aggregated view.
type Stage struct {
	ID           uint   `json:"id" gorm:"primarykey"`
	Name         string `json:"name" gorm:"not null"`
	Location     string `json:"location"`
	DisplayOrder int    `json:"display_order" gorm:"not null;default:1"`
}

type Event struct {
	ID           uint            `json:"id" gorm:"primarykey"`
	HostID       uint            `json:"host_id" gorm:"not null;index"`
	Host         *User           `json:"host,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Title        string          `json:"title" gorm:"not null"`
	Description  string          `json:"description"`
	StartTime    time.Time       `json:"start_time" gorm:"not null;index"`
	EndTime      *time.Time      `json:"end_time"`
	LocationName string          `json:"location_name"`
	Address      string          `json:"address"`
	Latitude     *float64        `json:"latitude"`
	Longitude    *float64        `json:"longitude"`
	ImageURL     string          `json:"image_url"`
	Artists      []Artist        `json:"artists" gorm:"many2many:event_artists"`
	TicketPrice  decimal.Decimal `json:"ticket_price" gorm:"type:numeric(10,2)"`
	Capacity     int             `json:"capacity" gorm:"not null"`
	TicketsSold  int             `json:"tickets_sold" gorm:"not null;default:0"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Performances []Performance `json:"performances,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Tickets      []Ticket      `json:"-" gorm:"constraint:OnDelete:CASCADE"`

	// Remaining is derived from Capacity and TicketsSold for API
	// responses; it is never persisted. See FillRemaining.
	Remaining int `json:"remaining_tickets" gorm:"-"`
}

// RemainingTickets returns capacity minus tickets sold. The result is
// negative only when the store is inconsistent; see CheckIntegrity.
func (e *Event) RemainingTickets() int {
	return e.Capacity - e.TicketsSold
}

// CheckIntegrity reports ErrTicketCounter when the sold counter has left
// the [0, capacity] range.
func (e *Event) CheckIntegrity() error {
	if e.TicketsSold < 0 || e.TicketsSold > e.Capacity {
		return fmt.Errorf("event %d: sold=%d capacity=%d: %w", e.ID, e.TicketsSold, e.Capacity, ErrTicketCounter)
	}
	return nil
}

// FillRemaining populates the derived Remaining field on each event
// before it is serialized.
func FillRemaining(events []Event) {
	for i := range events {
		events[i].Remaining = events[i].RemainingTickets()
	}
}

// Performance is one artist on one stage at a clock time within an event.
type Performance struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	EventID     uint      `json:"event_id" gorm:"not null;index"`
	Event       *Event    `json:"event,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	ArtistID    uint      `json:"artist_id" gorm:"not null"`
	Artist      *Artist   `json:"artist,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	StageID     uint      `json:"stage_id" gorm:"not null;index"`
	Stage       *Stage    `json:"stage,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   ClockTime `json:"start_time" gorm:"not null"`
	EndTime     ClockTime `json:"end_time" gorm:"not null"`
}

// Ticket is immutable once created and removed only by cascade. The
// composite unique index is the second safety net behind the admission
// transaction: a user holds at most one ticket per event.
type Ticket struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	UserID      uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_event"`
	User        *User     `json:"user,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	EventID     uint      `json:"event_id" gorm:"not null;uniqueIndex:idx_user_event"`
	Event       *Event    `json:"event,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	PurchasedAt time.Time `json:"purchased_at"`
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Profile{},
		&Artist{},
		&Stage{},
		&Event{},
		&Performance{},
		&Ticket{},
	)
}
