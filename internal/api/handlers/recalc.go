package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brikr/codetango/internal/repository"
	"github.com/brikr/codetango/internal/service"
)

type RecalcHandler struct {
	coordinator *service.RecalcCoordinator
	recalc      *service.RecalcService
	matches     *repository.MatchRepository
}

func NewRecalcHandler(coordinator *service.RecalcCoordinator, recalc *service.RecalcService, matches *repository.MatchRepository) *RecalcHandler {
	return &RecalcHandler{
		coordinator: coordinator,
		recalc:      recalc,
		matches:     matches,
	}
}

type recalcRequest struct {
	// Epoch millis lower bound; 0 resumes from the stored cursor.
	From int64 `json:"from"`
}

// TriggerRecalc queues a recalculation pass. The pass itself runs on
// whichever instance wins the recalc lock.
func (h *RecalcHandler) TriggerRecalc(c *gin.Context) {
	// Body is optional; an empty body resumes from the stored cursor.
	var req recalcRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}
	}

	if err := h.coordinator.Publish(c.Request.Context(), service.RecalcRequest{From: req.From}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to queue recalculation",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "queued",
		"from":   req.From,
	})
}

// PurgeMatchHistory deletes every ledger entry for a match and queues a
// compensation pass carrying the match's rosters, so the participants'
// profiles get re-derived from the surviving history.
func (h *RecalcHandler) PurgeMatchHistory(c *gin.Context) {
	matchID := c.Param("id")

	match, err := h.matches.FindByID(c.Request.Context(), matchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to look up match",
		})
		return
	}
	if match == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Match not found",
		})
		return
	}

	// An in-progress match has no ledger rows to purge, and compensating for
	// one would rebuild its participants from empty history.
	if !match.Completed() {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Match is not completed",
		})
		return
	}

	if err := h.recalc.PurgeMatch(c.Request.Context(), matchID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to purge match history",
		})
		return
	}

	req := service.RecalcRequest{From: *match.CompletedAt, DeletedMatch: match}

	if err := h.coordinator.Publish(c.Request.Context(), req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "History purged but compensation could not be queued",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "purged",
		"matchId": matchID,
	})
}
