package edge

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/vikramraju/attendedge/internal/config"
	"github.com/vikramraju/attendedge/internal/models"
	"golang.org/x/sync/errgroup"
)

// ErrNoActiveClass is returned when attendance is marked while no class is
// scheduled for the room.
var ErrNoActiveClass = errors.New("no active class for this room")

// Agent wires the edge pipeline together: schedule cache feeding the matcher,
// debounce in front of the durable queue, uploader and heartbeat in the
// background. The recognition loop (external) calls Observe with embeddings;
// everything after that point is decoupled from its latency path.
type Agent struct {
	cfg      *config.EdgeConfig
	client   *CloudClient
	cache    *ScheduleCache
	debounce *DebounceFilter
	queue    *DurableLocalQueue
	uploader *BatchUploader
	matcher  *Matcher
	started  time.Time
}

func NewAgent(cfg *config.EdgeConfig) (*Agent, error) {
	queue, err := OpenDurableLocalQueue(cfg.QueuePath, cfg.MaxAttempts)
	if err != nil {
		return nil, err
	}

	client := NewCloudClient(cfg.APIBaseURL, cfg.APIToken, cfg.DeviceID, cfg.APITimeout)
	debounce := NewDebounceFilter(cfg.DebounceWindow)
	matcher := NewMatcher(cfg.EmbeddingDimension, cfg.MatchThreshold)

	agent := &Agent{
		cfg:      cfg,
		client:   client,
		debounce: debounce,
		queue:    queue,
		uploader: NewBatchUploader(queue, client, cfg.BatchSize, cfg.BatchInterval, cfg.MaxUploadBackoff),
		matcher:  matcher,
		started:  time.Now(),
	}

	agent.cache = NewScheduleCache(client, cfg.ClassroomID, func(previous, current *models.ScheduleSnapshot) {
		if courseOf(previous) != courseOf(current) {
			// A different class means distinct attendance semantics
			debounce.Reset()
		}
		// The roster can change under the same course: mid-course enrollment,
		// re-captured embeddings. Reload on every successful refresh.
		agent.applyRoster(current)
	})
	return agent, nil
}

func courseOf(snapshot *models.ScheduleSnapshot) string {
	if snapshot == nil {
		return ""
	}
	return snapshot.CourseID
}

func (a *Agent) applyRoster(snapshot *models.ScheduleSnapshot) {
	if snapshot == nil {
		if err := a.matcher.LoadRoster(nil); err != nil {
			log.Printf("agent: failed to clear roster: %v", err)
		}
		return
	}
	if err := a.matcher.LoadRoster(snapshot.Roster); err != nil {
		log.Printf("agent: failed to load roster for %s: %v", snapshot.CourseID, err)
		return
	}
	log.Printf("agent: loaded roster for %s (%d students)", snapshot.CourseID, len(snapshot.Roster))
}

// Observe handles one face embedding from the recognition loop: match against
// the roster, debounce, and queue the attendance event. Returns true when an
// event was queued.
func (a *Agent) Observe(embedding []float32, now time.Time) (bool, error) {
	snapshot := a.cache.Current()
	if snapshot == nil {
		return false, ErrNoActiveClass
	}

	studentID, confidence, ok := a.matcher.Match(embedding)
	if !ok {
		return false, nil
	}
	return a.MarkAttendance(studentID, confidence, now)
}

// MarkAttendance records a recognized student through debounce and into the
// durable queue.
func (a *Agent) MarkAttendance(studentID string, confidence float64, now time.Time) (bool, error) {
	snapshot := a.cache.Current()
	if snapshot == nil {
		return false, ErrNoActiveClass
	}

	if !a.debounce.Admit(studentID, snapshot.CourseID, now) {
		return false, nil
	}

	event := models.AttendanceEvent{
		StudentID:   studentID,
		CourseID:    snapshot.CourseID,
		ClassroomID: a.cfg.ClassroomID,
		DeviceID:    a.cfg.DeviceID,
		Timestamp:   now,
		Confidence:  confidence,
		Status:      models.StatusPresent,
	}

	if _, err := a.queue.Enqueue(event); err != nil {
		return false, err
	}
	log.Printf("agent: attendance marked for %s (confidence %.3f)", studentID, confidence)

	if a.queue.Depth() >= a.cfg.BatchSize {
		a.uploader.Notify()
	}
	return true, nil
}

// Queue exposes the durable queue for depth metrics and audit.
func (a *Agent) Queue() *DurableLocalQueue {
	return a.queue
}

// Run starts the background loops and blocks until the context is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.cache.Run(ctx, a.cfg.SyncInterval) })
	g.Go(func() error { return a.uploader.Run(ctx) })
	g.Go(func() error { return a.heartbeatLoop(ctx) })
	g.Go(func() error { return a.housekeepingLoop(ctx) })

	err := g.Wait()
	if closeErr := a.queue.Close(); closeErr != nil {
		log.Printf("agent: failed to close queue: %v", closeErr)
	}
	return err
}

func (a *Agent) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			depth := a.queue.Depth()
			uptime := int64(time.Since(a.started).Seconds())
			metrics := models.HealthMetrics{
				QueueDepth:    &depth,
				UptimeSeconds: &uptime,
			}
			if err := a.client.PostHeartbeat(ctx, metrics); err != nil {
				log.Printf("agent: heartbeat failed: %v", err)
			}
		}
	}
}

// housekeepingLoop sweeps stale debounce entries and compacts the journal.
func (a *Agent) housekeepingLoop(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			a.debounce.Sweep(now)
			if err := a.queue.Compact(); err != nil {
				log.Printf("agent: journal compaction failed: %v", err)
			}
		}
	}
}
