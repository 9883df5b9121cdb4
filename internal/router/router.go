package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/handler"
	"github.com/stemsi/exstem-access/internal/logger"
	"github.com/stemsi/exstem-access/internal/middleware"
	"github.com/stemsi/exstem-access/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Candidate *handler.CandidateHandler
	Test      *handler.TestHandler
	Media     *handler.MediaHandler
	WS        *handler.WSHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.TokenValidator,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// AllowedOrigins restricts the list; empty allows all for development.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(logger.RequestLogger(log))

	// XLSX downloads are already zip-compressed.
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality:   middleware.DefaultBrotliConfig.Quality,
		MinLength: middleware.DefaultBrotliConfig.MinLength,
		Skipper:   middleware.SkipPathSuffix("/export"),
	}))

	// Uploaded question media is immutable (random file names), cache for a year.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	candidateLimiter := middleware.NewRateLimiter(cfg.CandidateRateLimit, time.Minute)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	authAPI := router.Group("/api/v1/auth")
	authAPI.Use(candidateLimiter.Middleware())
	{
		authAPI.POST("/admin/login", handlers.Auth.AdminLogin)
		authAPI.GET("/admin/me", middleware.RequireAdminJWT(auth), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Candidate Group (access code only, rate limited) ───────────
	candidateAPI := router.Group("/api/v1/test")
	candidateAPI.Use(candidateLimiter.Middleware(), middleware.NoStore())
	{
		candidateAPI.POST("/verify-code", handlers.Candidate.VerifyCode)
		candidateAPI.POST("/submit", handlers.Candidate.SubmitExam)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(candidateLimiter.Middleware())
	{
		ws.GET("/proctor/:code", handlers.WS.ProctorStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(auth))
	{
		adminAPI.POST("/media/upload", handlers.Media.UploadMedia)

		adminAPI.GET("/tests", handlers.Test.ListTests)
		adminAPI.POST("/tests", handlers.Test.CreateTest)
		adminAPI.GET("/tests/:test_id", handlers.Test.GetTest)
		adminAPI.POST("/tests/:test_id/codes", handlers.Test.IssueCode)
		adminAPI.GET("/tests/:test_id/results", handlers.Test.ListResults)
		adminAPI.GET("/tests/:test_id/results/export", handlers.Test.ExportResults)

		// Original flat shapes.
		adminAPI.POST("/generate-code", handlers.Test.GenerateCode)
		adminAPI.GET("/results/:test_id", handlers.Test.ListResults)

		adminAPI.GET("/codes/:code/proctor", handlers.Test.ProctorTally)
		adminAPI.GET("/system/status", handlers.System.Status)
	}

	return router
}
