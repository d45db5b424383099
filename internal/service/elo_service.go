package service

import (
	"math"

	"github.com/brikr/codetango/internal/config"
	"github.com/brikr/codetango/internal/models"
)

// EloService computes rating deltas from a symmetric logistic expected-score
// model, with an optional provisional-period multiplier for new players.
type EloService struct {
	kFactor          float64
	scale            float64
	baseRating       float64
	provisionalGames int
}

func NewEloService() *EloService {
	return &EloService{
		kFactor:          32,
		scale:            400,
		baseRating:       1200,
		provisionalGames: 0,
	}
}

func NewEloServiceFromConfig(cfg *config.Config) *EloService {
	return &EloService{
		kFactor:          cfg.KFactor,
		scale:            cfg.EloScale,
		baseRating:       cfg.BaseRating,
		provisionalGames: cfg.ProvisionalGames,
	}
}

// Change returns the raw rating delta for a match between two aggregate
// ratings: K * (1 - expected winner score). Always non-negative; the caller
// applies it positively to the winners and negatively to the losers.
func (s *EloService) Change(winnerRating, loserRating float64) float64 {
	return s.kFactor * (1 - s.expectedScore(winnerRating, loserRating))
}

// DeltaWithProvisional scales a raw delta by the player's provisional
// multiplier: ceil((P - gamesPlayed) / 2) while inside the provisional
// window, 1 outside it. With P = 0 the multiplier is always 1.
func (s *EloService) DeltaWithProvisional(gamesPlayed int, change float64) float64 {
	if gamesPlayed >= s.provisionalGames {
		return change
	}
	return change * math.Ceil(float64(s.provisionalGames-gamesPlayed)/2)
}

func (s *EloService) expectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/s.scale))
}

func (s *EloService) BaseRating() float64 {
	return s.baseRating
}

func (s *EloService) ProvisionalGames() int {
	return s.provisionalGames
}

// NewBaseStats returns the snapshot a user starts from when they have no
// rating history before the given timestamp.
func (s *EloService) NewBaseStats(userID, matchID string, ts int64) *models.Stats {
	return &models.Stats{
		UserID:      userID,
		MatchID:     matchID,
		Rating:      s.baseRating,
		Provisional: true,
		Timestamp:   ts,
	}
}
