// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tupichanga/courtbook/internal/api/auth"
	"github.com/tupichanga/courtbook/internal/api/bookings"
	"github.com/tupichanga/courtbook/internal/api/courts"
	"github.com/tupichanga/courtbook/internal/api/venues"
	"github.com/tupichanga/courtbook/internal/booking"
	"github.com/tupichanga/courtbook/internal/cache"
	"github.com/tupichanga/courtbook/internal/clock"
	"github.com/tupichanga/courtbook/internal/config"
	"github.com/tupichanga/courtbook/internal/db"
	"github.com/tupichanga/courtbook/internal/ratelimit"
	"github.com/tupichanga/courtbook/internal/schedule"
	"github.com/tupichanga/courtbook/internal/scheduler"
	"github.com/tupichanga/courtbook/internal/stats"
	"github.com/tupichanga/courtbook/internal/store"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	st := store.New(database)
	clk := clock.NewSystem()

	var bookingOpts []booking.Option
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
		bookingOpts = append(bookingOpts, booking.WithViewCache(cache.NewInvalidator(client)))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("View cache invalidation enabled")
	}

	bookingSvc := booking.NewService(st, clk, bookingOpts...)
	scheduleSvc := schedule.NewService(st)
	statsSvc := stats.NewService(st, clk)

	limiter := ratelimit.New(nil)
	defer limiter.Close()

	trustProxy := cfg.App.Environment == "production"
	auth.Init(st, cfg.App.Environment)
	auth.InitHandlers(limiter, cfg.Booking.DefaultPhoneRegion, trustProxy)
	venues.InitHandlers(st, statsSvc)
	courts.InitHandlers(st, bookingSvc, scheduleSvc, clk)
	bookings.InitHandlers(bookingSvc)

	if err := scheduler.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if err := scheduler.RegisterSweepJob(bookingSvc, cfg.Booking.SweepCron); err != nil {
		log.Fatal().Err(err).Msg("Failed to register expiration sweep job")
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	server := newServer(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("environment", cfg.App.Environment).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown failed")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
