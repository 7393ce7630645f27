package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pawprint-grooming/service-booking/internal/application"
	"github.com/pawprint-grooming/service-booking/internal/cache"
	"github.com/pawprint-grooming/service-booking/internal/config"
	"github.com/pawprint-grooming/service-booking/internal/domain/alert"
	"github.com/pawprint-grooming/service-booking/internal/domain/booking"
	"github.com/pawprint-grooming/service-booking/internal/domain/catalog"
	"github.com/pawprint-grooming/service-booking/internal/domain/customer"
	"github.com/pawprint-grooming/service-booking/internal/domain/pet"
	"github.com/pawprint-grooming/service-booking/internal/events"
	"github.com/pawprint-grooming/service-booking/internal/handler"
	"github.com/pawprint-grooming/service-booking/internal/platform/auth"
	"github.com/pawprint-grooming/service-booking/internal/platform/database"
	"github.com/pawprint-grooming/service-booking/internal/platform/health"
	"github.com/pawprint-grooming/service-booking/internal/platform/kafka"
	"github.com/pawprint-grooming/service-booking/internal/platform/logger"
	"github.com/pawprint-grooming/service-booking/internal/platform/metrics"
	"github.com/pawprint-grooming/service-booking/internal/platform/middleware"
	"github.com/pawprint-grooming/service-booking/internal/repository"
	"github.com/pawprint-grooming/service-booking/internal/repository/memory"
)

const serviceName = "service-booking"

type stores struct {
	bookings  booking.BookingRepository
	pets      pet.PetRepository
	customers customer.Repository
	catalog   catalog.Repository
	alerts    alert.Repository
	db        *gorm.DB
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
		zap.String("storage", cfg.StorageDriver),
	)

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	// Storage
	st, err := openStores(cfg, log)
	if err != nil {
		log.Fatal("failed to open storage", zap.Error(err))
	}

	var checks []health.Checker
	if st.db != nil {
		checks = append(checks, health.CheckFunc{Label: "postgres", Fn: func(ctx context.Context) error {
			sqlDB, err := st.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}})
	}

	// Availability cache
	var availabilityCache application.Cache = cache.NopCache{}
	if cfg.RedisConfig.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		defer func() { _ = redisClient.Close() }()

		redisCache := cache.NewRedisCache(redisClient, log)
		availabilityCache = redisCache
		checks = append(checks, health.CheckFunc{Label: "redis", Fn: redisCache.Ping})
		log.Info("availability cache enabled", zap.String("addr", cfg.RedisConfig.Addr))
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.Issuer, cfg.JWTConfig.TokenTTL)

	alertService := application.NewAlertService(st.alerts, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Notifications go through Kafka when it is enabled, otherwise they are discarded.
	var notifier application.Notifier = application.NopNotifier{}
	if cfg.KafkaConfig.Enabled {
		kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()

		dispatcher := events.NewAsyncDispatcher(kafkaProducer, alertService, cfg.Dispatcher, bookingMetrics, log)
		dispatcher.Start()
		// Runs before the producer close so queued events drain first.
		defer dispatcher.Close()
		notifier = dispatcher

		failureConsumer := events.NewNotificationFailureConsumer(
			cfg.KafkaConfig.Brokers,
			cfg.KafkaConfig.GroupID,
			alertService,
			log,
		)
		defer func() { _ = failureConsumer.Close() }()

		go func() {
			log.Info("starting notification failure consumer")
			if err := failureConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification failure consumer error", zap.Error(err))
			}
		}()
	} else {
		log.Warn("kafka disabled, notifications will not be sent")
	}

	// Initialize application services
	catalogService := application.NewCatalogService(st.catalog, log)
	partyRegistry := application.NewPartyRegistry(st.customers, st.pets, notifier, log)
	availabilityService := application.NewAvailabilityService(
		st.bookings,
		st.pets,
		cfg.Hours,
		availabilityCache,
		cfg.RedisConfig.TTL,
		bookingMetrics,
		log,
	)
	bookingService := application.NewBookingService(
		st.bookings,
		catalogService,
		partyRegistry,
		availabilityService,
		notifier,
		bookingMetrics,
		log,
	)
	petService := application.NewPetService(st.pets, log)

	// Initialize HTTP handlers
	bookingHandler := handler.NewBookingHandler(bookingService, availabilityService, catalogService, partyRegistry)
	adminHandler := handler.NewAdminHandler(bookingService, availabilityService, catalogService, partyRegistry, alertService)
	petHandler := handler.NewPetHandler(petService)

	// Setup Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.MetricsMiddleware(httpMetrics))

	// Register health check and metrics routes
	healthHandler := health.NewHandler(serviceName, checks...)
	healthHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	// Register routes
	bookingHandler.RegisterRoutes(&router.RouterGroup)
	adminHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	petHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-booking stopped")
}

// openStores builds the repositories for the configured storage driver. The
// memory driver keeps everything in process and is meant for local runs.
func openStores(cfg *config.ServiceConfig, log *zap.Logger) (*stores, error) {
	if cfg.StorageDriver == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return &stores{
			bookings:  memory.NewBookingRepository(),
			pets:      memory.NewPetRepository(),
			customers: memory.NewCustomerRepository(),
			catalog:   memory.NewCatalogRepository(catalog.DefaultServices()...),
			alerts:    memory.NewAlertRepository(),
		}, nil
	}

	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if cfg.IsDevelopment() {
		if err := db.AutoMigrate(
			&repository.CustomerModel{},
			&repository.PetModel{},
			&repository.ServiceModel{},
			&repository.AppointmentModel{},
			&repository.AppointmentServiceModel{},
			&repository.AlertModel{},
		); err != nil {
			return nil, fmt.Errorf("failed to run auto-migration: %w", err)
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), "migrations", log); err != nil {
			return nil, err
		}
	}

	catalogRepo := repository.NewGormCatalogRepository(db)
	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := catalogRepo.Seed(seedCtx, catalog.DefaultServices()); err != nil {
		return nil, err
	}

	return &stores{
		bookings:  repository.NewGormBookingRepository(db),
		pets:      repository.NewGormPetRepository(db),
		customers: repository.NewGormCustomerRepository(db),
		catalog:   catalogRepo,
		alerts:    repository.NewGormAlertRepository(db),
		db:        db,
	}, nil
}
