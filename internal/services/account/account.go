// Package account serves registration, login, logout, and the current
// actor's profile and tickets.
package account

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/festify/festify/internal/auth"
	"github.com/festify/festify/internal/config"
	"github.com/festify/festify/internal/models"
	"github.com/festify/festify/internal/monitoring"
)

type Service struct {
	db     *gorm.DB
	config *config.Config
	tokens auth.TokenStore
}

func NewService(db *gorm.DB, cfg *config.Config, tokens auth.TokenStore) *Service {
	return &Service{
		db:     db,
		config: cfg,
		tokens: tokens,
	}
}

func (s *Service) SetupRoutes(r *gin.Engine) {
	r.POST("/api/auth/register", s.Register)
	r.POST("/api/auth/login", s.Login)

	authed := r.Group("/", auth.Middleware(s.config, s.tokens))
	{
		authed.POST("/api/auth/logout", s.Logout)
		authed.GET("/api/profile", s.Profile)
		authed.GET("/api/profile/tickets", s.Tickets)
	}
}

func (s *Service) Register(c *gin.Context) {
	var req struct {
		Username        string `json:"username" binding:"required"`
		Email           string `json:"email" binding:"required,email"`
		Password        string `json:"password" binding:"required,min=6"`
		ConfirmPassword string `json:"confirm_password" binding:"required"`
		IsOrganizer     bool   `json:"is_organizer"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Passwords do not match",
		})
		return
	}

	var existing models.User
	if err := s.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Email already exists",
		})
		return
	}
	if err := s.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Username already taken",
		})
		return
	}

	hash, err := auth.HashPassword(req.Password, s.config.BcryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create user",
		})
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Profile:      models.Profile{IsOrganizer: req.IsOrganizer},
	}

	// Profile row is created alongside the user in one transaction.
	if err := s.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create user",
		})
		return
	}

	token, err := auth.GenerateToken(s.config, &user, user.Profile.IsOrganizer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	monitoring.IncRegistration()
	c.JSON(http.StatusCreated, gin.H{
		"user":  user,
		"token": token,
	})
}

func (s *Service) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Username/email and password required",
		})
		return
	}

	// The username field accepts either a username or an email.
	column := "username"
	if strings.Contains(req.Username, "@") {
		column = "email"
	}

	var user models.User
	err := s.db.Preload("Profile").Where(column+" = ?", req.Username).First(&user).Error
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		monitoring.IncLogin("failure")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid credentials",
		})
		return
	}

	token, err := auth.GenerateToken(s.config, &user, user.Profile.IsOrganizer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	monitoring.IncLogin("success")
	c.JSON(http.StatusOK, gin.H{
		"user":  user,
		"token": token,
	})
}

func (s *Service) Logout(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid token",
		})
		return
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.tokens.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
		log.Printf("revoke token %s: %v", claims.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to log out",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logout successful",
	})
}

func (s *Service) Profile(c *gin.Context) {
	claims, _ := auth.ClaimsFromContext(c)

	var user models.User
	err := s.db.Preload("Profile").First(&user, claims.UserID).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
		return
	}

	var tickets []models.Ticket
	err = s.db.Preload("Event").Preload("Event.Artists").
		Where("user_id = ?", user.ID).
		Find(&tickets).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch tickets",
		})
		return
	}
	fillTicketEvents(tickets)

	hostedEvents := []models.Event{}
	if user.Profile.IsOrganizer {
		err = s.db.Preload("Artists").
			Where("host_id = ?", user.ID).
			Order("start_time").
			Find(&hostedEvents).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to fetch hosted events",
			})
			return
		}
		models.FillRemaining(hostedEvents)
	}

	c.JSON(http.StatusOK, gin.H{
		"username":      user.Username,
		"email":         user.Email,
		"is_organizer":  user.Profile.IsOrganizer,
		"tickets":       tickets,
		"hosted_events": hostedEvents,
	})
}

func (s *Service) Tickets(c *gin.Context) {
	claims, _ := auth.ClaimsFromContext(c)

	var tickets []models.Ticket
	err := s.db.Preload("Event").Preload("Event.Artists").
		Where("user_id = ?", claims.UserID).
		Order("purchased_at").
		Find(&tickets).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch tickets",
		})
		return
	}
	fillTicketEvents(tickets)

	c.JSON(http.StatusOK, gin.H{
		"tickets": tickets,
		"count":   len(tickets),
	})
}

func fillTicketEvents(tickets []models.Ticket) {
	for i := range tickets {
		if tickets[i].Event != nil {
			tickets[i].Event.Remaining = tickets[i].Event.RemainingTickets()
		}
	}
}
