package cache

import "github.com/tomtom215/areanode/internal/model"

// NextUpdatable returns the object at position pos in the cache's
// updatable collection and the next position to try, wrapping to zero once
// pos runs past the end. ok is false when s is nil or not the active
// Session, or when the cache has no updatable objects at all. This is the Go equivalent of the original's
// cache_provider::get_next_updatable, exposed as a plain method rather
// than a C++-style friend since Go has no analogous access-control tool
// and the updater is the only intended caller.
func (c *WorldCache) NextUpdatable(s *Session, pos int) (obj *model.Object, next int, ok bool) {
	if s == nil || s != c.holder.Load() {
		return nil, pos, false
	}
	if len(c.updatable) == 0 {
		return nil, 0, false
	}
	if pos >= len(c.updatable) {
		pos = 0
	}
	id := c.updatable[pos]
	return c.idIdx[id].Clone(), pos + 1, true
}

// UpdatableCount returns the number of objects currently eligible for
// tick updates.
func (c *WorldCache) UpdatableCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updatable)
}

// StampUpdated advances the given object's UpdatableState.LastUpdated
// field to now and writes it back under a fresh Session, matching the
// original updater's post-update timestamp stamp.
func (c *WorldCache) StampUpdated(id model.ID) error {
	return c.withScope(nil, c.bounds.StartX, c.bounds.StartY, c.bounds.Width(), c.bounds.Height(), func(s *Session) error {
		existing, ok := c.idIdx[id]
		if !ok {
			return &NotFoundError{ID: id}
		}
		next := existing.Clone()
		next.Updatable.LastUpdated = now()
		return c.Update(s, next, existing.CacheVersion)
	})
}
