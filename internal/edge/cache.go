package edge

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/vikramraju/attendedge/internal/models"
)

// ScheduleFetcher is the cloud call the cache refreshes from.
type ScheduleFetcher interface {
	FetchSchedule(ctx context.Context, roomID string) (*models.ScheduleSnapshot, error)
}

// ScheduleCache holds the active class and roster for this device's room.
// The snapshot is swapped atomically, so the recognition loop always sees
// either the previous roster or the fully built new one, never a mix. On a
// transient refresh failure the previous snapshot is retained; the cache only
// clears when a successful refresh reports no active class.
type ScheduleCache struct {
	fetcher ScheduleFetcher
	roomID  string
	current atomic.Pointer[models.ScheduleSnapshot]

	// invoked outside any lock after every successful refresh, with the
	// previous and new snapshots; the roster may change even when the course
	// does not (mid-course enrollment, re-captured embeddings)
	onSwap func(previous, current *models.ScheduleSnapshot)
}

func NewScheduleCache(fetcher ScheduleFetcher, roomID string, onSwap func(previous, current *models.ScheduleSnapshot)) *ScheduleCache {
	return &ScheduleCache{
		fetcher: fetcher,
		roomID:  roomID,
		onSwap:  onSwap,
	}
}

// Current returns the active snapshot, or nil when no class is scheduled.
func (c *ScheduleCache) Current() *models.ScheduleSnapshot {
	return c.current.Load()
}

// Refresh fetches the schedule and swaps it in. Readers are never blocked; a
// refresh in flight leaves the previous snapshot visible until the new one is
// complete.
func (c *ScheduleCache) Refresh(ctx context.Context) error {
	snapshot, err := c.fetcher.FetchSchedule(ctx, c.roomID)
	if err != nil {
		// Keep serving the previous snapshot on transient failure
		return err
	}

	previous := c.current.Swap(snapshot)

	if c.onSwap != nil {
		c.onSwap(previous, snapshot)
	}
	return nil
}

// Run refreshes immediately and then on every interval tick until the
// context is cancelled.
func (c *ScheduleCache) Run(ctx context.Context, interval time.Duration) error {
	if err := c.Refresh(ctx); err != nil {
		log.Printf("schedule: initial refresh failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				log.Printf("schedule: refresh failed, keeping previous snapshot: %v", err)
			}
		}
	}
}
