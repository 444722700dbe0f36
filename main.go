//go:generate swag init -g main.go -o docs

// @title Delivery Marketplace API
// @version 1.0
// @description Restaurants, carts, orders and deliveries with role-based access.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token issued by /auth/login
package main

import (
	"context"
	"os"

	"delivery-marketplace/auth"
	"delivery-marketplace/authz"
	"delivery-marketplace/cache"
	"delivery-marketplace/config"
	"delivery-marketplace/events"
	"delivery-marketplace/handlers"
	"delivery-marketplace/middleware"
	"delivery-marketplace/repository"
	"delivery-marketplace/routes"
	"delivery-marketplace/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	configureLogger(log, cfg)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	db, err := config.OpenDB(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	if err := config.Migrate(db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	redisCache := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if redisCache != nil {
		if err := redisCache.Ping(context.Background()); err != nil {
			log.WithError(err).Warn("redis unreachable, continuing without cache")
		}
		defer redisCache.Close()
	}

	publisher := connectEvents(cfg, log)
	defer publisher.Close()

	store := repository.NewStore(db, redisCache, cfg.RoleCacheTTL)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	revoked := auth.NewTokenStore(redisCache)
	authorizer := authz.NewAuthorizer(auth.NewAuthenticator(tokens, revoked), store.Roles)

	authService := service.NewAuthService(store, tokens, revoked, log)
	if err := authService.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.WithError(err).Fatal("bootstrap admin")
	}

	h := handlers.New(handlers.Services{
		Auth:        authService,
		Restaurants: service.NewRestaurantService(store, log),
		Carts:       service.NewCartService(store, log),
		Orders:      service.NewOrderService(store, publisher, cfg.DeliveryFee, log),
		Roles:       service.NewRoleService(store, log),
	}, log, gin.Mode() == gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS())
	routes.SetupRoutes(r, h, authorizer)

	log.WithFields(logrus.Fields{"port": cfg.Port, "db_driver": cfg.DBDriver}).Info("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func configureLogger(log *logrus.Logger, cfg *config.Config) {
	log.SetOutput(os.Stdout)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
}

// connectEvents returns the MQTT publisher, or a no-op one when no broker is configured or reachable.
func connectEvents(cfg *config.Config, log *logrus.Logger) events.Publisher {
	if cfg.MQTTBroker == "" {
		return events.Noop{}
	}
	publisher, err := events.Connect(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix, log)
	if err != nil {
		log.WithError(err).Warn("mqtt broker unreachable, order events disabled")
		return events.Noop{}
	}
	return publisher
}
