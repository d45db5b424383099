package api

import (
	"github.com/gin-gonic/gin"

	"github.com/brikr/codetango/internal/api/handlers"
	"github.com/brikr/codetango/internal/api/middleware"
	"github.com/brikr/codetango/internal/config"
	"github.com/brikr/codetango/internal/repository"
	"github.com/brikr/codetango/internal/service"
)

// SetupRouter wires the HTTP surface over the already-constructed services.
func SetupRouter(
	cfg *config.Config,
	matchRepo *repository.MatchRepository,
	recalcService *service.RecalcService,
	userService *service.UserService,
	coordinator *service.RecalcCoordinator,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	recalcHandler := handlers.NewRecalcHandler(coordinator, recalcService, matchRepo)
	ratingHandler := handlers.NewRatingHandler(recalcService)
	leaderboardHandler := handlers.NewLeaderboardHandler(userService)

	// Health check
	router.GET("/health", handlers.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Recalculation triggers
		v1.POST("/recalc", recalcHandler.TriggerRecalc)

		// Match history
		matches := v1.Group("/matches")
		{
			matches.DELETE("/:id/history", recalcHandler.PurgeMatchHistory)
		}

		// Rating point queries
		users := v1.Group("/users")
		{
			users.GET("/:id/rating", ratingHandler.GetRatingBefore)
			users.GET("/:id/rating/highest", ratingHandler.GetHighestRating)
		}

		// Leaderboard
		v1.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
	}

	return router
}
