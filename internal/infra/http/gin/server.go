package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"campusconnect/internal/infra/config"
	"campusconnect/internal/infra/obs"
)

type RealtimeHTTP interface {
	Connect(c *gin.Context)
}

type Handlers struct {
	Negotiation    NegotiationHTTP
	Listing        ListingHTTP
	User           UserHTTP
	Complaint      ComplaintHTTP
	Admin          AdminHTTP
	Auth           AuthHTTP
	Realtime       RealtimeHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine with every route mounted under /api/v1.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Negotiation != nil {
		msg := api.Group("/messages")
		msg.POST("/initiate", h.Negotiation.Initiate)
		msg.POST("/initiate-sale", h.Negotiation.InitiateSale)
		msg.POST("/confirm-sale", h.Negotiation.ConfirmSale)
		msg.GET("/conversations", h.Negotiation.Conversations)
		msg.POST("/conversations/:id/accept", h.Negotiation.Accept)
		msg.POST("/conversations/:id/rate", h.Negotiation.Rate)
		msg.GET("", h.Negotiation.Messages)
		msg.POST("", h.Negotiation.Send)
	}
	if h.Listing != nil {
		lg := api.Group("/listings")
		lg.GET("", h.Listing.Search)
		lg.POST("", h.Listing.Create)
		lg.GET("/categories", h.Listing.Categories)
		lg.GET("/departments", h.Listing.Departments)
		lg.GET("/purchases", h.Listing.Purchases)
		lg.GET("/:id", h.Listing.Get)
		lg.PUT("/:id", h.Listing.Update)
		lg.DELETE("/:id", h.Listing.Delete)
		lg.PUT("/:id/sold", h.Listing.MarkSold)
		lg.GET("/:id/reviews", h.Listing.Reviews)
		lg.POST("/:id/reviews", h.Listing.AddReview)
	}
	if h.User != nil {
		api.GET("/users/profile", h.User.Profile)
		api.PUT("/users/profile", h.User.UpdateProfile)
		api.GET("/users/all", h.User.Contacts)
	}
	if h.Complaint != nil {
		api.POST("/complaints", h.Complaint.Create)
		api.GET("/complaints", h.Complaint.List)
		api.PATCH("/complaints/:id/status", h.Complaint.UpdateStatus)
	}
	if h.Admin != nil {
		admin := api.Group("/admin")
		admin.GET("/users", h.Admin.ListUsers)
		admin.GET("/users/:id", h.Admin.GetUser)
		admin.GET("/listings", h.Admin.ListListings)
		admin.POST("/listings/:id/settle", h.Admin.SettleListing)
		if h.Complaint != nil {
			admin.GET("/complaints", h.Complaint.List)
		}
	}
	if h.Realtime != nil {
		router.GET(wsPath, h.Realtime.Connect)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
