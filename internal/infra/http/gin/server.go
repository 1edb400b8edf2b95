package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"xrent/internal/infra/config"
	"xrent/internal/infra/obs"
)

type ListingHTTP interface {
	Catalog(c *gin.Context)
	Get(c *gin.Context)
	Quote(c *gin.Context)
	Preview(c *gin.Context)
	Create(c *gin.Context)
	Cancel(c *gin.Context)
	ListMine(c *gin.Context)
}

type RentalHTTP interface {
	Submit(c *gin.Context)
	Return(c *gin.Context)
	Reclaim(c *gin.Context)
	ListMine(c *gin.Context)
	ListLending(c *gin.Context)
}

type TokenHTTP interface {
	List(c *gin.Context)
}

type Handlers struct {
	Listing ListingHTTP
	Rental  RentalHTTP
	Token   TokenHTTP
	Wallet  gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the engine without touching the global gin mode.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", walletHeader, "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.Wallet != nil {
		router.Use(h.Wallet)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Token != nil {
		api.GET("/tokens", h.Token.List)
	}
	if h.Listing != nil {
		api.GET("/listings", h.Listing.Catalog)
		api.POST("/listings", h.Listing.Create)
		api.POST("/listings/preview", h.Listing.Preview)
		api.GET("/listings/:id", h.Listing.Get)
		api.GET("/listings/:id/quote", h.Listing.Quote)
		api.POST("/listings/:id/cancel", h.Listing.Cancel)
	}
	meGroup := api.Group("/me")
	if h.Listing != nil {
		meGroup.GET("/listings", h.Listing.ListMine)
	}
	if h.Rental != nil {
		api.POST("/rentals", h.Rental.Submit)
		api.POST("/rentals/:id/return", h.Rental.Return)
		api.POST("/rentals/:id/reclaim", h.Rental.Reclaim)
		meGroup.GET("/rentals", h.Rental.ListMine)
		meGroup.GET("/lending", h.Rental.ListLending)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
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
