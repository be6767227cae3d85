package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/estudy/estudy-backend/internal/config"
	"github.com/estudy/estudy-backend/internal/handler"
	"github.com/estudy/estudy-backend/internal/middleware"
	"github.com/estudy/estudy-backend/internal/response"
	"github.com/estudy/estudy-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Portal *handler.PortalHandler
	Test   *handler.TestHandler
	WS     *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.GET("/learner/me", middleware.RequireLearnerJWT(authService), handlers.Auth.Me)
		auth.POST("/learner/logout", middleware.RequireLearnerJWT(authService), handlers.Auth.Logout)
		auth.GET("/author/me", middleware.RequireAuthorJWT(authService), handlers.Auth.Me)
		auth.POST("/author/logout", middleware.RequireAuthorJWT(authService), handlers.Auth.Logout)
	}

	// ─── 2. Learner Group (JWT + Single Device) ────────────────────────
	learnerAPI := router.Group("/api/v1/learner")
	learnerAPI.Use(
		middleware.RequireLearnerJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		learnerAPI.GET("/lobby", handlers.Portal.GetLobby)
		learnerAPI.POST("/tests/:test_id/begin", handlers.Portal.BeginAttempt)
		learnerAPI.GET("/tests/:test_id/paper", handlers.Portal.GetPaper)
		learnerAPI.GET("/tests/:test_id/state", handlers.Portal.GetState)
		learnerAPI.POST("/tests/:test_id/answers", handlers.Portal.SaveAnswer)
		learnerAPI.POST("/tests/:test_id/submit", handlers.Portal.SubmitAttempt)
		learnerAPI.GET("/tests/:test_id/result", handlers.Portal.GetResult)
	}

	// ─── 3. WebSocket Group (Learner WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireLearnerWSAuth(authService))
	{
		ws.GET("/learner/tests/:test_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Author Group (JWT) ─────────────────────────────────────────
	authorAPI := router.Group("/api/v1/author")
	authorAPI.Use(middleware.RequireAuthorJWT(authService))
	{
		authorAPI.POST("/users", handlers.Test.CreateUser)
		authorAPI.POST("/learners/:learner_id/reset-session", handlers.Auth.ResetLearnerSession)

		authorAPI.GET("/tests", handlers.Test.ListTests)
		authorAPI.POST("/tests", handlers.Test.CreateTest)
		authorAPI.GET("/tests/:test_id", handlers.Test.GetTest)
		authorAPI.PUT("/tests/:test_id", handlers.Test.UpdateTest)
		authorAPI.DELETE("/tests/:test_id", handlers.Test.DeleteTest)

		authorAPI.GET("/tests/:test_id/structure", handlers.Test.GetStructure)
		authorAPI.PUT("/tests/:test_id/structure", handlers.Test.ReplaceStructure)

		authorAPI.POST("/tests/:test_id/publish", handlers.Test.PublishTest)
		authorAPI.POST("/tests/:test_id/archive", handlers.Test.ArchiveTest)
		authorAPI.POST("/tests/:test_id/refresh-cache", handlers.Test.RefreshCache)

		authorAPI.GET("/tests/:test_id/results", handlers.Test.GetResults)
	}

	return router
}
