package main

import (
	"context"
	"flag"

	"vaanifill/internal/auth"
	"vaanifill/internal/cache"
	"vaanifill/internal/config"
	"vaanifill/internal/db"
	"vaanifill/internal/logging"
	"vaanifill/internal/repository"
	"vaanifill/internal/seed"
	"vaanifill/internal/service"
)

func main() {
	source := flag.String("source", "cmd/seed/demo.json", "seed document: a file path or an http(s) URL")
	flag.Parse()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	log.Info("Starting seed script...")

	ctx := context.Background()

	gormDB, err := db.NewMySQL(ctx, cfg.MySQLDSN, db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Info("Connected to database")

	// Run migrations to ensure schema is up to date
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	data, err := seed.Load(ctx, *source)
	if err != nil {
		log.Fatalf("Failed to load seed data: %v", err)
	}
	log.WithField("source", *source).
		WithField("accounts", len(data.Accounts)).
		WithField("forms", len(data.Forms)).
		Info("Loaded seed data")

	tokens := auth.NewTokenService(cfg.JWTSecret)
	authService := service.NewAuthService(repository.NewAccountRepository(gormDB), tokens, log)
	// seeding runs without redis
	var noCache *cache.Client
	formService := service.NewFormService(repository.NewFormRepository(gormDB), noCache, log)

	res, err := seed.Run(ctx, authService, formService, data, log)
	if err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	log.WithField("accounts_created", res.AccountsCreated).
		WithField("accounts_existing", res.AccountsExisted).
		WithField("forms_created", res.FormsCreated).
		WithField("forms_existing", res.FormsExisted).
		Info("Seed completed successfully")
}
