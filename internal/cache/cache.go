// Package cache invalidates cached page views in Redis after booking
// mutations. Rendering layers populate the keys; the core only deletes
// them, so a missing Redis just means colder pages, never wrong ones.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	venueViewKey        = "views:venue:%d"
	userBookingsViewKey = "views:user:%d:bookings"
)

type Invalidator struct {
	client redis.UniversalClient
}

func NewInvalidator(client redis.UniversalClient) *Invalidator {
	return &Invalidator{client: client}
}

// InvalidateVenue drops the cached venue page, forcing the next
// availability render to recompute slots.
func (i *Invalidator) InvalidateVenue(ctx context.Context, venueID int64) error {
	if err := i.client.Del(ctx, fmt.Sprintf(venueViewKey, venueID)).Err(); err != nil {
		return fmt.Errorf("invalidate venue view: %w", err)
	}
	return nil
}

// InvalidateUserBookings drops a user's cached booking list.
func (i *Invalidator) InvalidateUserBookings(ctx context.Context, userID int64) error {
	if err := i.client.Del(ctx, fmt.Sprintf(userBookingsViewKey, userID)).Err(); err != nil {
		return fmt.Errorf("invalidate user bookings view: %w", err)
	}
	return nil
}
