package http

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/harsh99/anonqa/internal/auth"
	"github.com/harsh99/anonqa/internal/service"
	"github.com/harsh99/anonqa/internal/ws"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, db *gorm.DB, hub *ws.Hub) {

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// Fail closed: sessions signed with a guessable key are worthless.
		panic("CRITICAL: JWT_SECRET environment variable not set.")
	}

	env := &Env{
		Svc:       service.New(db),
		Hub:       hub,
		JWTSecret: []byte(secret),
	}

	// --- Global middleware ---
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// --- Rate limiter for content writes ---
	limiter := NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			limiter.Cleanup()
		}
	}()

	requireAuth := RequireAuth(env.JWTSecret)
	optionalAuth := OptionalAuth(env.JWTSecret)

	// --- API Routes ---
	api := router.Group("/api")
	{
		api.POST("/auth/signup", env.Signup)
		api.POST("/auth/login", env.Login)
		api.GET("/auth/me", requireAuth, env.Me)

		api.GET("/feed", env.GetFeed)
		api.GET("/questions", requireAuth, env.GetMyQuestions)
		api.POST("/questions", requireAuth, RateLimitMiddleware(limiter), env.CreateQuestion)
		api.GET("/questions/:id", optionalAuth, env.GetQuestion)

		api.POST("/answers", requireAuth, RateLimitMiddleware(limiter), env.CreateAnswer)

		// Voting works before login; the voter key falls back to the IP.
		api.POST("/upvote", optionalAuth, env.Upvote)
		api.DELETE("/upvote", optionalAuth, env.RemoveUpvote)

		api.POST("/answers/:id/reveal-requests", requireAuth, env.RequestReveal)
		api.DELETE("/answers/:id/reveal-requests", requireAuth, env.CancelRevealRequest)
		api.POST("/answers/:id/reveal", requireAuth, env.RevealIdentity)

		api.GET("/notifications", requireAuth, env.GetNotifications)
		api.POST("/notifications/:id/read", requireAuth, env.MarkNotificationRead)

		api.GET("/leaderboard", env.GetLeaderboard)
	}

	// --- WebSocket change feed ---
	router.GET("/ws", func(c *gin.Context) {
		userID := ""
		if token := c.Query("token"); token != "" {
			if id, err := auth.UserIDFromToken(token, env.JWTSecret); err == nil {
				userID = id
			}
		}
		ws.ServeWs(hub, c.Writer, c.Request, userID)
	})
}
