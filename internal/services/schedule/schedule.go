// Package schedule serves the aggregated views: the month calendar,
// the per-stage "today" lineup, stage pages, and event programs. The
// bucketing itself lives in internal/schedule; this layer only loads
// rows and serializes results.
package schedule

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/festify/festify/internal/models"
	core "github.com/festify/festify/internal/schedule"
)

type Service struct {
	db *gorm.DB

	// now is swapped out by tests; everything date-dependent goes
	// through it.
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

func (s *Service) SetupRoutes(r *gin.Engine) {
	r.GET("/api/calendar", s.Calendar)
	r.GET("/api/home", s.Home)
	r.GET("/api/stages", s.ListStages)
	r.GET("/api/stages/:id", s.GetStage)
	r.GET("/api/events/:id/program", s.EventProgram)
}

func (s *Service) Calendar(c *gin.Context) {
	now := s.now()
	year, err := intQuery(c, "year", now.Year())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
		return
	}
	monthNum, err := intQuery(c, "month", int(now.Month()))
	if err != nil || monthNum < 1 || monthNum > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid month"})
		return
	}
	month := time.Month(monthNum)

	// Coarse range filter; exact day intersection happens in
	// MonthGrid. The grid can reach up to six days either side of
	// the month, so over-fetch by a week.
	rangeStart := time.Date(year, month, 1, 0, 0, 0, 0, time.Local).AddDate(0, 0, -7)
	rangeEnd := time.Date(year, month, 1, 0, 0, 0, 0, time.Local).AddDate(0, 1, 7)

	var events []*models.Event
	err = s.db.Preload("Artists").
		Where("start_time < ? AND (end_time >= ? OR (end_time IS NULL AND start_time >= ?))",
			rangeEnd, rangeStart, rangeStart).
		Order("start_time").
		Find(&events).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch events",
		})
		return
	}
	for _, e := range events {
		e.Remaining = e.RemainingTickets()
	}

	c.JSON(http.StatusOK, gin.H{
		"year":  year,
		"month": int(month),
		"weeks": core.MonthGrid(year, month, events),
	})
}

func (s *Service) Home(c *gin.Context) {
	today := s.now()

	var events []*models.Event
	err := s.db.
		Where("start_time < ? AND (end_time >= ? OR end_time IS NULL)",
			endOfDay(today), startOfDay(today)).
		Find(&events).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch events",
		})
		return
	}

	eventIDs := make([]uint, 0, len(events))
	for _, e := range events {
		eventIDs = append(eventIDs, e.ID)
	}

	var performances []models.Performance
	if len(eventIDs) > 0 {
		err = s.db.Preload("Artist").
			Where("event_id IN ?", eventIDs).
			Find(&performances).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to fetch performances",
			})
			return
		}
	}

	var stages []models.Stage
	if err := s.db.Order("display_order, id").Find(&stages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch stages",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":   startOfDay(today).Format("2006-01-02"),
		"stages": core.TodayLineup(today, events, performances, stages),
	})
}

func (s *Service) ListStages(c *gin.Context) {
	var stages []models.Stage
	if err := s.db.Order("display_order, id").Find(&stages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch stages",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stages": stages,
		"count":  len(stages),
	})
}

func (s *Service) GetStage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stage ID"})
		return
	}

	var stage models.Stage
	if err := s.db.First(&stage, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stage not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch stage",
		})
		return
	}

	var performances []models.Performance
	err = s.db.Preload("Event").Preload("Artist").
		Where("stage_id = ?", stage.ID).
		Find(&performances).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch performances",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stage":        stage,
		"performances": core.StageProgram(performances),
	})
}

func (s *Service) EventProgram(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	var event models.Event
	if err := s.db.First(&event, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch event",
		})
		return
	}

	var performances []models.Performance
	err = s.db.Preload("Stage").Preload("Artist").
		Where("event_id = ?", event.ID).
		Find(&performances).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch performances",
		})
		return
	}

	event.Remaining = event.RemainingTickets()
	c.JSON(http.StatusOK, gin.H{
		"event":        event,
		"performances": core.EventProgram(performances),
	})
}

func intQuery(c *gin.Context, name string, defaultValue int) (int, error) {
	value := c.Query(name)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1)
}
