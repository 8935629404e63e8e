package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/bogo-voucher/internal/cache"
	"github.com/fairyhunter13/bogo-voucher/internal/clock"
	"github.com/fairyhunter13/bogo-voucher/internal/codegen"
	"github.com/fairyhunter13/bogo-voucher/internal/config"
	"github.com/fairyhunter13/bogo-voucher/internal/handler"
	"github.com/fairyhunter13/bogo-voucher/internal/metrics"
	"github.com/fairyhunter13/bogo-voucher/internal/repository"
	"github.com/fairyhunter13/bogo-voucher/internal/service"
	"github.com/fairyhunter13/bogo-voucher/internal/validator"
	"github.com/fairyhunter13/bogo-voucher/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	loc, err := cfg.App.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}
	clk := clock.New(loc)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
		log.Info().Msg("schema applied")
	}

	// Offer cache is optional; without Redis every read goes to PostgreSQL
	var offerCache service.OfferCache = cache.Nop{}
	var cachePinger handler.Pinger
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, offer cache will fall back to database")
		}
		offerCache = cache.NewOfferCache(rdb, time.Duration(cfg.Redis.OfferTTL)*time.Second)
		cachePinger = handler.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	if cfg.Voucher.SigningSecret == config.DevSigningSecret {
		log.Warn().Msg("VOUCHER_SIGNING_SECRET is the development default, set it before going to production")
	}
	signer, err := codegen.NewSigner(cfg.Voucher.SigningSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create voucher signer")
	}
	codes, err := codegen.NewGenerator(codegen.Options{
		ReservationLength: cfg.Voucher.ReservationCodeLength,
		VoucherLength:     cfg.Voucher.VoucherCodeLength,
		MaxAttempts:       cfg.Voucher.MaxCodeAttempts,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create code generator")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "BOGO Voucher Service",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	validate := validator.New()

	// Repositories
	offerRepo := repository.NewOfferRepository(pool)
	reservationRepo := repository.NewReservationRepository(pool)
	voucherRepo := repository.NewVoucherRepository(pool)
	ledger := repository.NewCapacityLedger()

	// Services
	offerService := service.NewOfferService(offerRepo, ledger, pool, offerCache, clk)
	reservationService := service.NewReservationService(pool, service.ReservationDeps{
		OfferRepo:       offerRepo,
		Ledger:          ledger,
		ReservationRepo: reservationRepo,
		VoucherRepo:     voucherRepo,
		Codes:           codes,
		Signer:          signer,
		Clock:           clk,
	})
	redeemService := service.NewRedeemService(pool, voucherRepo, reservationRepo, signer, clk)

	// Handlers
	offerHandler := handler.NewOfferHandler(offerService, validate)
	reservationHandler := handler.NewReservationHandler(reservationService, validate)
	voucherHandler := handler.NewVoucherHandler(redeemService, validate)
	healthHandler := handler.NewHealthHandler(pool, cachePinger)

	app.Get("/health", healthHandler.Check)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Offer routes
	app.Post("/api/offers", offerHandler.CreateOffer)
	app.Get("/api/offers/:id", offerHandler.GetOffer)
	app.Put("/api/offers/:id/validity", offerHandler.UpdateValidity)
	app.Put("/api/offers/:id/status", offerHandler.SetStatus)
	app.Get("/api/offers/:id/validity", offerHandler.GetValidity)

	// Reservation routes
	app.Post("/api/offers/:id/reservations", reservationHandler.Reserve)
	app.Get("/api/offers/:id/reservations", reservationHandler.ListByOffer)
	app.Post("/api/reservations/:id/cancel", reservationHandler.Cancel)

	// Voucher routes
	app.Post("/api/vouchers/redeem", voucherHandler.Redeem)
	app.Get("/api/vouchers/:code/qr", voucherHandler.QRCode)

	// Start server with graceful shutdown
	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("timezone", loc.String()).
			Bool("offer_cache", cfg.Redis.Enabled).
			Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close stores AFTER server shutdown (even if shutdown timed out)
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis client")
		}
	}
	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
