package edge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vikramraju/attendedge/internal/models"
)

type fakeFetcher struct {
	mu       sync.Mutex
	snapshot *models.ScheduleSnapshot
	err      error
}

func (f *fakeFetcher) FetchSchedule(ctx context.Context, roomID string) (*models.ScheduleSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot, f.err
}

func (f *fakeFetcher) set(snapshot *models.ScheduleSnapshot, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = snapshot
	f.err = err
}

func snapshotFor(courseID string) *models.ScheduleSnapshot {
	return &models.ScheduleSnapshot{
		CourseID:    courseID,
		CourseCode:  courseID,
		ClassroomID: "LAB-301",
		Roster: []models.RosterEntry{
			{StudentID: "S001", Embedding: make([]float32, 128)},
		},
	}
}

func TestScheduleCache_RetainsSnapshotOnRefreshFailure(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := NewScheduleCache(fetcher, "LAB-301", nil)
	ctx := context.Background()

	fetcher.set(snapshotFor("CS101"), nil)
	require.NoError(t, cache.Refresh(ctx))
	require.NotNil(t, cache.Current())

	// Transient network failure must not clear the cache
	fetcher.set(nil, errors.New("connection refused"))
	require.Error(t, cache.Refresh(ctx))

	current := cache.Current()
	require.NotNil(t, current, "previous snapshot retained on failure")
	assert.Equal(t, "CS101", current.CourseID)
}

func TestScheduleCache_ClearsOnSuccessfulEmptyRefresh(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := NewScheduleCache(fetcher, "LAB-301", nil)
	ctx := context.Background()

	fetcher.set(snapshotFor("CS101"), nil)
	require.NoError(t, cache.Refresh(ctx))

	// A successful refresh reporting "no active class" clears the cache
	fetcher.set(nil, nil)
	require.NoError(t, cache.Refresh(ctx))
	assert.Nil(t, cache.Current())
}

func TestScheduleCache_SwapHookSeesEveryRefresh(t *testing.T) {
	fetcher := &fakeFetcher{}

	type swap struct{ prev, next string }
	var swaps []swap
	cache := NewScheduleCache(fetcher, "LAB-301", func(previous, current *models.ScheduleSnapshot) {
		s := swap{}
		if previous != nil {
			s.prev = previous.CourseID
		}
		if current != nil {
			s.next = current.CourseID
		}
		swaps = append(swaps, s)
	})
	ctx := context.Background()

	fetcher.set(snapshotFor("CS101"), nil)
	require.NoError(t, cache.Refresh(ctx))

	// Same course again: the hook still fires, the roster may have changed
	require.NoError(t, cache.Refresh(ctx))

	fetcher.set(snapshotFor("MA201"), nil)
	require.NoError(t, cache.Refresh(ctx))

	fetcher.set(nil, nil)
	require.NoError(t, cache.Refresh(ctx))

	assert.Equal(t, []swap{
		{"", "CS101"},
		{"CS101", "CS101"},
		{"CS101", "MA201"},
		{"MA201", ""},
	}, swaps)
}

func TestScheduleCache_SwapHookCarriesUpdatedRoster(t *testing.T) {
	fetcher := &fakeFetcher{}

	var lastRoster []models.RosterEntry
	cache := NewScheduleCache(fetcher, "LAB-301", func(previous, current *models.ScheduleSnapshot) {
		if current != nil {
			lastRoster = current.Roster
		}
	})
	ctx := context.Background()

	fetcher.set(snapshotFor("CS101"), nil)
	require.NoError(t, cache.Refresh(ctx))
	require.Len(t, lastRoster, 1)

	// A student enrolls mid-course: same course ID, bigger roster
	grown := snapshotFor("CS101")
	grown.Roster = append(grown.Roster, models.RosterEntry{
		StudentID: "S002",
		Embedding: make([]float32, 128),
	})
	fetcher.set(grown, nil)
	require.NoError(t, cache.Refresh(ctx))

	require.Len(t, lastRoster, 2, "same-course refresh delivers the new roster")
	assert.Equal(t, "S002", lastRoster[1].StudentID)
}

// Concurrent readers during refreshes must always observe either the old or
// the fully new snapshot, never a partial roster.
func TestScheduleCache_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := NewScheduleCache(fetcher, "LAB-301", nil)
	ctx := context.Background()

	fetcher.set(snapshotFor("CS101"), nil)
	require.NoError(t, cache.Refresh(ctx))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if current := cache.Current(); current != nil {
				assert.Len(t, current.Roster, 1)
				assert.NotEmpty(t, current.CourseID)
			}
		}
	}()

	for i := 0; i < 100; i++ {
		course := "CS101"
		if i%2 == 1 {
			course = "MA201"
		}
		fetcher.set(snapshotFor(course), nil)
		require.NoError(t, cache.Refresh(ctx))
	}
	close(done)
	wg.Wait()
}
