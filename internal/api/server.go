package api

import (
	"context"
	"fmt"
	"net/http"

	"pitchup/internal/cache"
	"pitchup/internal/config"
	"pitchup/internal/database"
	"pitchup/internal/external"
	"pitchup/internal/handlers"
	"pitchup/internal/logger"
	"pitchup/internal/messaging"
	"pitchup/internal/middleware"
	"pitchup/internal/repository"
	"pitchup/internal/search"
	"pitchup/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	search   *search.ElasticsearchClient
	services *service.Services
	repos    *repository.Repositories
}

// NewServer создает новый экземпляр сервера. Postgres is required; NATS,
// Valkey and Elasticsearch are used when reachable.
func NewServer(cfg *config.Config) (*Server, error) {
	// Устанавливаем режим Gin
	gin.SetMode(cfg.GinMode)

	// Подключаемся к базе данных
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Запускаем миграции
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	server := &Server{
		config: cfg,
		db:     db,
		repos:  repository.NewRepositories(db),
	}

	// Events are best effort; without NATS the services publish nowhere.
	var publisher service.EventPublisher
	if natsClient, err := messaging.NewNATSClient(cfg.NATS); err != nil {
		logger.Get().Warn("NATS unavailable, domain events disabled", "error", err)
	} else {
		server.nats = natsClient
		publisher = natsClient
	}

	var venues service.VenueCatalog
	if valkeyClient, err := cache.NewValkeyClient(cfg.Cache); err != nil {
		logger.Get().Warn("Valkey unavailable, venue cache disabled", "error", err)
	} else {
		server.valkey = valkeyClient
		venues = cache.NewCachedVenues(server.repos.Venues, valkeyClient, cfg.Cache.VenueTTL)
	}

	var index service.VenueIndex
	if cfg.Elasticsearch.Enabled() {
		esClient, err := search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			logger.Get().Warn("Elasticsearch unavailable, venue search uses the database", "error", err)
		} else {
			server.search = esClient
			index = esClient
		}
	}

	paymentClient := external.NewPaymentClient(cfg.Payment)
	policy := service.NewPolicy(cfg.Booking, paymentClient.Currency())

	server.services = service.NewServices(server.repos, venues, index, paymentClient, publisher, policy)

	// Создаем роутер
	router := gin.New()

	// Применяем middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	server.router = router

	// Настраиваем роуты
	server.setupRoutes()

	return server, nil
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	{
		api.POST("/checkout", h.Checkout)
		api.POST("/webhook", h.PaymentWebhook)

		bookings := api.Group("/bookings")
		{
			bookings.GET("", h.ListBookings)
			bookings.POST("/cancel", h.CancelBooking)
		}

		api.GET("/slots", h.ListSlots)
		api.GET("/venues", h.ListVenues)

		// Schedulers differ in the method they send.
		cron := api.Group("/cron")
		cron.Use(middleware.CronAuth(s.config.CronSecret))
		{
			cron.GET("/reclaim", h.ReclaimExpired)
			cron.POST("/reclaim", h.ReclaimExpired)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	db := s.db.HealthCheck(ctx)

	status := http.StatusOK
	if db.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   db.Status,
		"service":  "pitchup-api",
		"version":  "1.0.0",
		"database": db,
		"nats":     s.nats != nil,
		"cache":    s.pingCache(ctx),
		"search":   s.pingSearch(ctx),
	})
}

func (s *Server) pingCache(ctx context.Context) string {
	if s.valkey == nil {
		return "disabled"
	}
	if err := s.valkey.Ping(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

func (s *Server) pingSearch(ctx context.Context) string {
	if s.search == nil {
		return "disabled"
	}
	if err := s.search.HealthCheck(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			logger.Get().Error("Error closing Valkey connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
