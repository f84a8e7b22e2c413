// Package event serves the event surface: filtered listing, CRUD under
// the access policy, and the ticket purchase endpoint.
package event

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/festify/festify/internal/admission"
	"github.com/festify/festify/internal/auth"
	"github.com/festify/festify/internal/config"
	"github.com/festify/festify/internal/models"
	"github.com/festify/festify/internal/policy"
)

type Service struct {
	db     *gorm.DB
	config *config.Config
	tokens auth.TokenStore
	admit  *admission.Service
	rules  policy.Rules
}

func NewService(db *gorm.DB, cfg *config.Config, tokens auth.TokenStore, rules policy.Rules) *Service {
	return &Service{
		db:     db,
		config: cfg,
		tokens: tokens,
		admit:  admission.NewService(db),
		rules:  rules,
	}
}

func (s *Service) SetupRoutes(r *gin.Engine) {
	authed := auth.Middleware(s.config, s.tokens)

	r.GET("/api/events", s.ListEvents)
	r.GET("/api/events/:id", s.GetEvent)
	r.POST("/api/events", authed, s.CreateEvent)
	r.PUT("/api/events/:id", authed, s.UpdateEvent)
	r.DELETE("/api/events/:id", authed, s.DeleteEvent)
	r.POST("/api/events/:id/buy", authed, s.BuyTicket)
}

type eventRequest struct {
	Title        string          `json:"title" binding:"required"`
	Description  string          `json:"description"`
	StartTime    time.Time       `json:"start_time" binding:"required"`
	EndTime      *time.Time      `json:"end_time"`
	LocationName string          `json:"location_name"`
	Address      string          `json:"address"`
	Latitude     *float64        `json:"latitude"`
	Longitude    *float64        `json:"longitude"`
	ImageURL     string          `json:"image_url"`
	TicketPrice  decimal.Decimal `json:"ticket_price"`
	Capacity     int             `json:"capacity"`
	ArtistIDs    []uint          `json:"artist_ids"`
}

func (s *Service) ListEvents(c *gin.Context) {
	query := s.db.Model(&models.Event{}).Preload("Artists").Order("start_time")

	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?) OR LOWER(location_name) LIKE LOWER(?)",
			pattern, pattern, pattern,
		)
	}

	if startDate := c.Query("start_date"); startDate != "" {
		parsed, err := parseDate(startDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date"})
			return
		}
		query = query.Where("start_time >= ?", parsed)
	}

	if endDate := c.Query("end_date"); endDate != "" {
		parsed, err := parseDate(endDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date"})
			return
		}
		// Inclusive date bound: anything starting that day counts.
		query = query.Where("start_time < ?", parsed.AddDate(0, 0, 1))
	}

	if upcoming, _ := strconv.ParseBool(c.Query("upcoming")); upcoming {
		query = query.Where("start_time >= ?", time.Now())
	}

	var events []models.Event
	if err := query.Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch events",
		})
		return
	}
	models.FillRemaining(events)

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

func (s *Service) GetEvent(c *gin.Context) {
	eventID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	var event models.Event
	result := s.db.Preload("Host").Preload("Host.Profile").Preload("Artists").
		Preload("Performances").Preload("Performances.Artist").Preload("Performances.Stage").
		First(&event, eventID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch event",
		})
		return
	}
	event.Remaining = event.RemainingTickets()

	c.JSON(http.StatusOK, event)
}

func (s *Service) CreateEvent(c *gin.Context) {
	claims, _ := auth.ClaimsFromContext(c)
	verdict := s.rules.Decide(actorFor(claims), policy.ActionCreate, policy.Resource{Kind: policy.ResourceEvent})
	if !verdict.Allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": verdict.Reason})
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid event data",
			"details": err.Error(),
		})
		return
	}
	if req.Capacity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Capacity must not be negative"})
		return
	}

	artists, err := s.loadArtists(req.ArtistIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := models.Event{
		HostID:       claims.UserID,
		Title:        req.Title,
		Description:  req.Description,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		LocationName: req.LocationName,
		Address:      req.Address,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		ImageURL:     req.ImageURL,
		TicketPrice:  req.TicketPrice,
		Capacity:     req.Capacity,
		Artists:      artists,
	}

	if err := s.db.Create(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create event",
		})
		return
	}

	event.Remaining = event.RemainingTickets()
	c.JSON(http.StatusCreated, event)
}

func (s *Service) UpdateEvent(c *gin.Context) {
	claims, _ := auth.ClaimsFromContext(c)
	eventID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	var event models.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch event",
		})
		return
	}

	verdict := s.rules.Decide(actorFor(claims), policy.ActionUpdate, policy.Resource{Kind: policy.ResourceEvent, OwnerID: event.HostID})
	if !verdict.Allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": verdict.Reason})
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid event data",
			"details": err.Error(),
		})
		return
	}
	if req.Capacity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Capacity must not be negative"})
		return
	}

	artists, err := s.loadArtists(req.ArtistIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// tickets_sold is deliberately absent: only the admission
	// transaction writes that column.
	updates := map[string]interface{}{
		"title":         req.Title,
		"description":   req.Description,
		"start_time":    req.StartTime,
		"end_time":      req.EndTime,
		"location_name": req.LocationName,
		"address":       req.Address,
		"latitude":      req.Latitude,
		"longitude":     req.Longitude,
		"image_url":     req.ImageURL,
		"ticket_price":  req.TicketPrice,
		"capacity":      req.Capacity,
	}
	if err := s.db.Model(&event).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update event",
		})
		return
	}

	if req.ArtistIDs != nil {
		if err := s.db.Model(&event).Association("Artists").Replace(artists); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update event artists",
			})
			return
		}
	}

	s.db.Preload("Artists").First(&event, event.ID)
	event.Remaining = event.RemainingTickets()
	c.JSON(http.StatusOK, event)
}

func (s *Service) DeleteEvent(c *gin.Context) {
	claims, _ := auth.ClaimsFromContext(c)
	eventID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	var event models.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch event",
		})
		return
	}

	verdict := s.rules.Decide(actorFor(claims), policy.ActionDelete, policy.Resource{Kind: policy.ResourceEvent, OwnerID: event.HostID})
	if !verdict.Allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": verdict.Reason})
		return
	}

	// Cascades to the event's tickets, performances, and artist links.
	if err := s.db.Select(clause.Associations).Delete(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete event",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event deleted successfully",
	})
}

func (s *Service) BuyTicket(c *gin.Context) {
	claims, _ := auth.ClaimsFromContext(c)
	eventID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	ticket, err := s.admit.Purchase(c.Request.Context(), claims.UserID, eventID)
	if err != nil {
		switch {
		case errors.Is(err, admission.ErrEventNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		case errors.Is(err, admission.ErrAlreadyHasTicket):
			c.JSON(http.StatusBadRequest, gin.H{"error": "You already have a ticket for this event"})
		case errors.Is(err, admission.ErrSoldOut):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Event is sold out"})
		default:
			log.Printf("ticket purchase failed for user %d event %d: %v", claims.UserID, eventID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to purchase ticket"})
		}
		return
	}

	c.JSON(http.StatusCreated, ticket)
}

func (s *Service) loadArtists(ids []uint) ([]models.Artist, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var artists []models.Artist
	if err := s.db.Find(&artists, ids).Error; err != nil {
		return nil, errors.New("failed to fetch artists")
	}
	if len(artists) != len(ids) {
		return nil, errors.New("unknown artist id")
	}
	return artists, nil
}

func actorFor(claims *auth.Claims) policy.Actor {
	if claims == nil {
		return policy.Actor{}
	}
	return policy.Actor{
		Authenticated: true,
		UserID:        claims.UserID,
		IsOrganizer:   claims.IsOrganizer,
	}
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
