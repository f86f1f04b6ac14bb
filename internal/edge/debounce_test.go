package edge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebounceFilter_Admit(t *testing.T) {
	filter := NewDebounceFilter(30 * time.Second)
	base := time.Date(2026, 3, 2, 9, 5, 23, 0, time.UTC)

	// First sighting is always admitted
	assert.True(t, filter.Admit("S001", "CS101", base))

	// 29s later: inside the window, rejected
	assert.False(t, filter.Admit("S001", "CS101", base.Add(29*time.Second)))

	// 31s after the admitted time: window elapsed
	assert.True(t, filter.Admit("S001", "CS101", base.Add(31*time.Second)))
}

func TestDebounceFilter_RejectionDoesNotExtendWindow(t *testing.T) {
	filter := NewDebounceFilter(30 * time.Second)
	base := time.Now()

	assert.True(t, filter.Admit("S001", "CS101", base))

	// Rapid-fire rejected detections must not push the window forward
	assert.False(t, filter.Admit("S001", "CS101", base.Add(10*time.Second)))
	assert.False(t, filter.Admit("S001", "CS101", base.Add(20*time.Second)))

	// Judged against the original admitted time, not the rejected ones
	assert.True(t, filter.Admit("S001", "CS101", base.Add(31*time.Second)))
}

func TestDebounceFilter_IndependentKeys(t *testing.T) {
	filter := NewDebounceFilter(30 * time.Second)
	now := time.Now()

	assert.True(t, filter.Admit("S001", "CS101", now))
	assert.True(t, filter.Admit("S002", "CS101", now), "different student is independent")
	assert.True(t, filter.Admit("S001", "MA201", now), "different course is independent")
	assert.False(t, filter.Admit("S001", "CS101", now.Add(time.Second)))
}

func TestDebounceFilter_ResetOnCourseChange(t *testing.T) {
	filter := NewDebounceFilter(30 * time.Second)
	now := time.Now()

	assert.True(t, filter.Admit("S001", "CS101", now))
	assert.False(t, filter.Admit("S001", "CS101", now.Add(time.Second)))

	filter.Reset()

	assert.True(t, filter.Admit("S001", "CS101", now.Add(2*time.Second)))
}

func TestDebounceFilter_SweepDropsOnlyStaleEntries(t *testing.T) {
	filter := NewDebounceFilter(30 * time.Second)
	base := time.Now()

	filter.Admit("S001", "CS101", base)
	filter.Admit("S002", "CS101", base.Add(50*time.Second))

	// Older than 2x the window for S001 only
	filter.Sweep(base.Add(70 * time.Second))

	assert.True(t, filter.Admit("S001", "CS101", base.Add(71*time.Second)), "swept entry admits again")
	assert.False(t, filter.Admit("S002", "CS101", base.Add(71*time.Second)), "fresh entry still debounced")
}
