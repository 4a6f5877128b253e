package routes

import (
	"net/http"
	"time"

	"relay-service/internal/api/handlers"
	"relay-service/internal/api/middleware"
	"relay-service/internal/auth"
	"relay-service/internal/services"
	"relay-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

type Router struct {
	engine      *gin.Engine
	wsHandler   *handlers.WSHandler
	authHandler *handlers.AuthHandler
	wsAuthMW    *middleware.WSAuthMiddleware
	rateLimitMW *middleware.RateLimitMiddleware
}

// NewRouter wires the HTTP surface. redisService may be nil; rate
// limiting is skipped in that case.
func NewRouter(
	hub *websocket.Hub,
	redisService *services.RedisService,
	tokens *auth.TokenService,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	var rateLimitMW *middleware.RateLimitMiddleware
	if redisService != nil {
		rateLimitMW = middleware.NewRateLimitMiddleware(redisService)
	}

	return &Router{
		engine:      engine,
		wsHandler:   handlers.NewWSHandler(hub),
		authHandler: handlers.NewAuthHandler(tokens),
		wsAuthMW:    middleware.NewWSAuthMiddleware(tokens),
		rateLimitMW: rateLimitMW,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "Server running!",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := r.engine.Group("/api/v1")

	ws := api.Group("/ws")
	ws.Use(r.wsAuthMW.Authenticate())
	if r.rateLimitMW != nil {
		ws.Use(r.rateLimitMW.WebSocketRateLimit(5, time.Minute))
	}
	ws.GET("", r.wsHandler.HandleWebSocket)

	authRoutes := api.Group("/auth")
	if r.rateLimitMW != nil {
		authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute))
	}
	authRoutes.POST("/token", r.authHandler.IssueToken)
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
