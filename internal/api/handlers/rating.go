package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brikr/codetango/internal/service"
)

type RatingHandler struct {
	recalc *service.RecalcService
}

func NewRatingHandler(recalc *service.RecalcService) *RatingHandler {
	return &RatingHandler{
		recalc: recalc,
	}
}

// GetHighestRating returns the user's best non-provisional rating ever.
func (h *RatingHandler) GetHighestRating(c *gin.Context) {
	userID := c.Param("id")

	rating, err := h.recalc.HighestRating(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get highest rating",
		})
		return
	}

	if rating == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No non-provisional rating history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":     userID,
		"highestElo": *rating,
	})
}

// GetRatingBefore returns the user's most recent snapshot strictly before the
// `before` query param (epoch millis, defaults to now).
func (h *RatingHandler) GetRatingBefore(c *gin.Context) {
	userID := c.Param("id")

	before := time.Now().UnixMilli()
	if raw := c.Query("before"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid 'before' timestamp",
			})
			return
		}
		before = parsed
	}

	stats, err := h.recalc.LatestBefore(c.Request.Context(), userID, before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get rating snapshot",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
