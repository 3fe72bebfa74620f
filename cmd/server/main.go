package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"vaanifill/internal/auth"
	"vaanifill/internal/cache"
	"vaanifill/internal/config"
	"vaanifill/internal/db"
	"vaanifill/internal/handler"
	"vaanifill/internal/logging"
	"vaanifill/internal/repository"
	"vaanifill/internal/router"
	"vaanifill/internal/service"
)

// @title Vaanifill Forms API
// @version 1.0
// @description Dynamic forms service: author forms with user-defined fields, share them by id, and collect validated responses.
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.NewMySQL(ctx, cfg.MySQLDSN, db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if cfg.ResetDB {
		log.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			log.Fatalf("reset database: %v", err)
		}
	}

	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if cacheClient == nil {
		log.Info("REDIS_ADDR not set, form cache disabled")
	} else if err := cacheClient.Ping(ctx); err != nil {
		log.WithError(err).Warn("redis unreachable, form lookups will go to the database")
	}
	defer cacheClient.Close()

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(gormDB)
	formRepo := repository.NewFormRepository(gormDB)
	responseRepo := repository.NewResponseRepository(gormDB)

	// Initialize auth components
	tokens := auth.NewTokenService(cfg.JWTSecret)

	// Initialize services
	authService := service.NewAuthService(accountRepo, tokens, log)
	formService := service.NewFormService(formRepo, cacheClient, log)
	responseService := service.NewResponseService(formService, responseRepo, log)

	guard := auth.NewGuard(tokens, authService, log)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	formHandler := handler.NewFormHandler(formService)
	responseHandler := handler.NewResponseHandler(responseService)

	e := echo.New()
	e.HideBanner = true

	// Register routes
	router.Register(
		e,
		cfg,
		log,
		guard,
		authHandler,
		formHandler,
		responseHandler,
	)

	log.Infof("Swagger documentation available at: %s", swaggerURL(cfg.SwaggerHost, cfg.ServerPort))

	go func() {
		addr := ":" + cfg.ServerPort
		log.Infof("listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func swaggerURL(host, port string) string {
	if host == "" {
		host = "localhost:" + port
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
