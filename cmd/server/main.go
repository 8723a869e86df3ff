package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gocargo/internal/config"
	"gocargo/internal/handlers"
	"gocargo/internal/middleware"
	"gocargo/internal/repositories/mongodb"
	"gocargo/internal/services"
	"gocargo/pkg/cache"
	"gocargo/pkg/database"
	"gocargo/pkg/logger"
	"gocargo/pkg/maps"
	"gocargo/pkg/payment"
	"gocargo/pkg/push"
	"gocargo/pkg/sms"
	"gocargo/pkg/websocket"
	"gocargo/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: "json",
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Close()

	if err := database.NewMigrator(db.Database).Up(); err != nil {
		appLogger.WithError(err).Fatal("Failed to run migrations")
	}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	cacheService := services.NewCacheService(redisCache)

	// Repositories
	bookingRepo := mongodb.NewBookingRepository(db.Database, cacheService)
	driverRepo := mongodb.NewDriverRepository(db.Database, cacheService)
	pricingRuleRepo := mongodb.NewPricingRuleRepository(db.Database, cacheService)
	promotionRepo := mongodb.NewPromotionRepository(db.Database, cacheService)

	// External providers
	wallet := newWalletGateway(cfg, appLogger)
	pushProvider := newPushProvider(cfg, appLogger)
	smsProvider := newSMSProvider(cfg, appLogger)
	mapsProvider := newMapsProvider(cfg, appLogger)

	wsHandler := websocket.NewHandler(websocket.Options{
		ReadBufferSize:    cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:   cfg.WebSocket.WriteBufferSize,
		AllowedOrigins:    cfg.WebSocket.AllowedOrigins,
		EnableCompression: cfg.WebSocket.EnableCompression,
	})

	// Services
	geoService := services.NewGeoService(driverRepo, cacheService, cfg.Dispatch.LocationFreshness, appLogger)
	pricingService := services.NewPricingService(pricingRuleRepo, promotionRepo, driverRepo, bookingRepo, cacheService, appLogger)
	rankingService := services.NewRankingService()
	eventPublisher := services.NewEventPublisher(wsHandler.GetHub(), pushProvider, smsProvider, cacheService, appLogger)
	stateMachine := services.NewStateMachineService(bookingRepo, driverRepo, wallet, eventPublisher, cfg.Dispatch.DriverShare, appLogger)
	dispatchService := services.NewDispatchService(bookingRepo, driverRepo, geoService, rankingService, cacheService, eventPublisher, services.DispatchConfig{
		SearchRadiusKM:    cfg.Dispatch.SearchRadiusKM,
		BroadcastRadiusKM: cfg.Dispatch.BroadcastRadiusKM,
		MaxCandidates:     cfg.Dispatch.MaxCandidates,
	}, appLogger)
	bookingService := services.NewBookingService(bookingRepo, driverRepo, pricingService, mapsProvider, eventPublisher, appLogger)
	driverService := services.NewDriverService(driverRepo, bookingRepo, geoService, appLogger)

	// Handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, stateMachine, pricingService, driverService)
	dispatchHandler := handlers.NewDispatchHandler(dispatchService, driverService, stateMachine)
	driverHandler := handlers.NewDriverHandler(driverService, bookingService, geoService)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())

	v1 := router.Group("/api/v1")
	{
		routes.SetupBookingRoutes(v1, bookingHandler, cfg.Security.JWTSecret)
		routes.SetupDispatchRoutes(v1, dispatchHandler, cfg.Security.JWTSecret)
		routes.SetupDriverRoutes(v1, driverHandler, cfg.Security.JWTSecret)
	}

	ws := router.Group(cfg.WebSocket.Path)
	ws.Use(middleware.AuthRequired(cfg.Security.JWTSecret))
	{
		ws.GET("", wsHandler.HandleWebSocket)
	}

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := db.Ping(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		if err := redisCache.Ping(c.Request.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": cfg.App.Version,
		})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("addr", server.Addr).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Error("Forced shutdown")
	}
}

func newWalletGateway(cfg *config.Config, log *logger.Logger) payment.WalletGateway {
	switch cfg.Payment.DefaultProvider {
	case "razorpay":
		return payment.NewRazorpayGateway(cfg.Payment.Razorpay.KeyID, cfg.Payment.Razorpay.KeySecret)
	default:
		return payment.NewStripeGateway(cfg.Payment.Stripe.SecretKey)
	}
}

func newPushProvider(cfg *config.Config, log *logger.Logger) push.PushProvider {
	switch cfg.Push.Provider {
	case "apns":
		provider, err := push.NewAPNSProvider(
			cfg.Push.APNS.KeyFile,
			cfg.Push.APNS.KeyID,
			cfg.Push.APNS.TeamID,
			cfg.Push.APNS.BundleID,
			cfg.Push.APNS.Production,
		)
		if err != nil {
			log.WithError(err).Warn("APNS unavailable, push notifications disabled")
			return nil
		}
		return provider
	default:
		provider, err := push.NewFCMProvider(cfg.Push.FCM.Credentials)
		if err != nil {
			log.WithError(err).Warn("FCM unavailable, push notifications disabled")
			return nil
		}
		return provider
	}
}

func newSMSProvider(cfg *config.Config, log *logger.Logger) sms.SMSProvider {
	switch cfg.SMS.Provider {
	case "aws":
		provider, err := sms.NewAWSSNSProvider(cfg.SMS.AWS.Region)
		if err != nil {
			log.WithError(err).Warn("AWS SNS unavailable, SMS disabled")
			return nil
		}
		return provider
	default:
		return sms.NewTwilioProvider(cfg.SMS.Twilio.AccountSID, cfg.SMS.Twilio.AuthToken, cfg.SMS.Twilio.FromNumber)
	}
}

func newMapsProvider(cfg *config.Config, log *logger.Logger) maps.MapsProvider {
	provider, err := maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey)
	if err != nil {
		log.WithError(err).Warn("Geocoding unavailable, falling back to raw coordinates")
		return nil
	}
	return provider
}
