package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/tupichanga/courtbook/internal/booking"
)

const sweepTimeout = 2 * time.Minute

// RegisterSweepJob registers the periodic expiration sweep. Availability
// reads already sweep lazily; this job keeps reporting accurate for courts
// nobody is looking at.
func RegisterSweepJob(bookingSvc *booking.Service, cronExpr string) error {
	if bookingSvc == nil {
		return fmt.Errorf("sweep job requires booking service")
	}

	jobName := "booking_expiration_sweep"
	jobLogger := log.With().
		Str("component", "booking_expiration_sweep_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		if err := bookingSvc.ExpireOverdue(ctx); err != nil {
			jobLogger.Error().Err(err).Msg("Expiration sweep failed")
		}
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return fmt.Errorf("add expiration sweep job: %w", err)
	}

	jobLogger.Info().Msg("Expiration sweep job registered")
	return nil
}
