// Package admission enforces the one-ticket-per-user-per-event rule and
// the capacity ceiling. The check-then-act sequence runs as a single
// transaction against the store; the unique (user, event) index on
// tickets is an independent second net against duplicates under races.
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/festify/festify/internal/models"
	"github.com/festify/festify/internal/monitoring"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrAlreadyHasTicket = errors.New("user already has a ticket for this event")
	ErrSoldOut          = errors.New("event is sold out")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Purchase buys one ticket for the user. Inside one transaction it
// rejects duplicates and sold-out events, creates the ticket, and
// increments the sold counter with a capacity-guarded update, so the
// counter can never pass capacity even when two purchases race for the
// last slot. Business failures roll back without mutation and are
// never retried; a store failure retries the whole transaction once
// before surfacing.
func (s *Service) Purchase(ctx context.Context, userID, eventID uint) (*models.Ticket, error) {
	start := time.Now()

	ticket, err := s.purchase(ctx, userID, eventID)
	if err != nil && !isBusinessError(err) {
		ticket, err = s.purchase(ctx, userID, eventID)
	}

	monitoring.ObserveAdmission(outcome(err), time.Since(start))
	return ticket, err
}

func (s *Service) purchase(ctx context.Context, userID, eventID uint) (*models.Ticket, error) {
	var ticket models.Ticket

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.First(&event, eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("load event: %w", err)
		}

		if err := event.CheckIntegrity(); err != nil {
			return err
		}

		var count int64
		err := tx.Model(&models.Ticket{}).
			Where("user_id = ? AND event_id = ?", userID, eventID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("check existing ticket: %w", err)
		}
		if count > 0 {
			return ErrAlreadyHasTicket
		}

		if event.TicketsSold >= event.Capacity {
			return ErrSoldOut
		}

		// The unique (user, event) index rejects a duplicate that
		// slipped past the count under a race; the retry then
		// reports ErrAlreadyHasTicket.
		ticket = models.Ticket{
			UserID:      userID,
			EventID:     eventID,
			PurchasedAt: time.Now(),
		}
		if err := tx.Create(&ticket).Error; err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}

		// Guarded increment: the predicate re-evaluates under the
		// row lock, so the loser of a race for the last remaining
		// slot matches zero rows and rolls back.
		result := tx.Model(&models.Event{}).
			Where("id = ? AND tickets_sold < capacity", eventID).
			UpdateColumn("tickets_sold", gorm.Expr("tickets_sold + 1"))
		if result.Error != nil {
			return fmt.Errorf("increment tickets sold: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrSoldOut
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// isBusinessError distinguishes rule violations, which must not be
// retried, from store failures, which get one retry.
func isBusinessError(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrAlreadyHasTicket) ||
		errors.Is(err, ErrSoldOut) ||
		errors.Is(err, models.ErrTicketCounter)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "purchased"
	case errors.Is(err, ErrAlreadyHasTicket):
		return "duplicate"
	case errors.Is(err, ErrSoldOut):
		return "sold_out"
	case errors.Is(err, ErrEventNotFound):
		return "not_found"
	case errors.Is(err, models.ErrTicketCounter):
		return "integrity_error"
	default:
		return "store_error"
	}
}
