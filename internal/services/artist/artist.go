// Package artist serves artist CRUD. Mutation requires authentication
// only; see the policy package for why artists are looser than events.
package artist

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/festify/festify/internal/auth"
	"github.com/festify/festify/internal/config"
	"github.com/festify/festify/internal/models"
	"github.com/festify/festify/internal/policy"
)

type Service struct {
	db     *gorm.DB
	config *config.Config
	tokens auth.TokenStore
	rules  policy.Rules
}

func NewService(db *gorm.DB, cfg *config.Config, tokens auth.TokenStore, rules policy.Rules) *Service {
	return &Service{
		db:     db,
		config: cfg,
		tokens: tokens,
		rules:  rules,
	}
}

func (s *Service) SetupRoutes(r *gin.Engine) {
	authed := auth.Middleware(s.config, s.tokens)

	r.GET("/api/artists", s.ListArtists)
	r.GET("/api/artists/:id", s.GetArtist)
	r.POST("/api/artists", authed, s.CreateArtist)
	r.PUT("/api/artists/:id", authed, s.UpdateArtist)
	r.DELETE("/api/artists/:id", authed, s.DeleteArtist)
}

type artistRequest struct {
	Name        string `json:"name" binding:"required"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

func (s *Service) ListArtists(c *gin.Context) {
	var artists []models.Artist
	if err := s.db.Order("name").Find(&artists).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch artists",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"artists": artists,
		"count":   len(artists),
	})
}

func (s *Service) GetArtist(c *gin.Context) {
	artist, ok := s.findArtist(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, artist)
}

func (s *Service) CreateArtist(c *gin.Context) {
	if !s.allowMutation(c) {
		return
	}

	var req artistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid artist data",
			"details": err.Error(),
		})
		return
	}

	artist := models.Artist{
		Name:        req.Name,
		Genre:       req.Genre,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if err := s.db.Create(&artist).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create artist",
		})
		return
	}

	c.JSON(http.StatusCreated, artist)
}

func (s *Service) UpdateArtist(c *gin.Context) {
	if !s.allowMutation(c) {
		return
	}
	artist, ok := s.findArtist(c)
	if !ok {
		return
	}

	var req artistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid artist data",
			"details": err.Error(),
		})
		return
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"genre":       req.Genre,
		"description": req.Description,
		"image_url":   req.ImageURL,
	}
	if err := s.db.Model(&artist).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update artist",
		})
		return
	}

	c.JSON(http.StatusOK, artist)
}

func (s *Service) DeleteArtist(c *gin.Context) {
	if !s.allowMutation(c) {
		return
	}
	artist, ok := s.findArtist(c)
	if !ok {
		return
	}

	if err := s.db.Delete(&artist).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete artist",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Artist deleted successfully",
	})
}

func (s *Service) allowMutation(c *gin.Context) bool {
	claims, _ := auth.ClaimsFromContext(c)
	actor := policy.Actor{}
	if claims != nil {
		actor = policy.Actor{
			Authenticated: true,
			UserID:        claims.UserID,
			IsOrganizer:   claims.IsOrganizer,
		}
	}

	verdict := s.rules.Decide(actor, policy.ActionUpdate, policy.Resource{Kind: policy.ResourceArtist})
	if !verdict.Allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": verdict.Reason})
		return false
	}
	return true
}

func (s *Service) findArtist(c *gin.Context) (*models.Artist, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid artist ID"})
		return nil, false
	}

	var artist models.Artist
	if err := s.db.First(&artist, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Artist not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch artist",
		})
		return nil, false
	}
	return &artist, true
}
