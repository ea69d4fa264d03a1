package updater

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/areanode/internal/model"
)

// ListEntry is a loose updatable object, as tracked by the original
// updater class for objects not resident in the spatial cache (e.g.
// connection-scoped timers, session objects).
type ListEntry struct {
	Object      *model.Object
	LastUpdated time.Time
}

// ListUpdater ticks a flat, mutex-protected list of objects, advancing a
// bounded window per tick just like CacheUpdater but without any spatial
// index underneath it.
type ListUpdater struct {
	handler        Handler
	tickInterval   time.Duration
	updatesPerTick int

	mu       sync.Mutex
	objects  []*ListEntry
	position int

	log zerolog.Logger
}

// NewListUpdater constructs a ListUpdater.
func NewListUpdater(handler Handler, tickInterval time.Duration, updatesPerTick int, log zerolog.Logger) *ListUpdater {
	if updatesPerTick <= 0 {
		updatesPerTick = 1
	}
	return &ListUpdater{
		handler:        handler,
		tickInterval:   tickInterval,
		updatesPerTick: updatesPerTick,
		log:            log.With().Str("component", "list_updater").Logger(),
	}
}

// Add registers an object for tick updates.
func (u *ListUpdater) Add(obj *model.Object, now time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects = append(u.objects, &ListEntry{Object: obj, LastUpdated: now})
}

// Remove unregisters the first entry matching id, if present.
func (u *ListUpdater) Remove(id model.ID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, e := range u.objects {
		if e.Object.ID == id {
			last := len(u.objects) - 1
			u.objects[i] = u.objects[last]
			u.objects = u.objects[:last]
			if u.position > i {
				u.position--
			}
			return
		}
	}
}

// Serve implements suture.Service.
func (u *ListUpdater) Serve(ctx context.Context) error {
	ticker := time.NewTicker(u.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			u.Tick(now)
		}
	}
}

// String implements fmt.Stringer for suture's event log.
func (u *ListUpdater) String() string { return "list-updater" }

// Tick advances up to updatesPerTick entries starting at the cursor. It is
// exported so tests and an admin debug endpoint can drive single ticks
// without waiting on the interval timer.
func (u *ListUpdater) Tick(now time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()

	n := len(u.objects)
	if n == 0 {
		return
	}
	if u.position >= n {
		u.position = 0
	}

	for i := 0; i < u.updatesPerTick && i < n; i++ {
		idx := (u.position + i) % n
		entry := u.objects[idx]
		delta := now.Sub(entry.LastUpdated)
		if delta < 0 {
			delta = 0
		}
		updated, err := u.handler(entry.Object, delta)
		if err != nil {
			u.log.Warn().Err(err).Uint64("id", uint64(entry.Object.ID)).Msg("tick handler failed")
			continue
		}
		if updated != nil {
			entry.Object = updated
		}
		entry.LastUpdated = now
	}
	u.position = (u.position + u.updatesPerTick) % n
}
