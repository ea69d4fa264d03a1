package cache

import (
	"strconv"

	"github.com/tomtom215/areanode/internal/metrics"
	"github.com/tomtom215/areanode/internal/model"
)

// Add inserts a clone of obj into the cache. The caller must hold s. If obj
// carries the spatial capability, every lattice point of its declared
// rectangle must be free or Add returns a *SyncError without writing
// anything, matching the original's ICacheProvider::add(IMap*) loop over
// the object's full footprint rather than just its origin.
func (c *WorldCache) Add(s *Session, obj *model.Object) error {
	if s == nil || s != c.holder.Load() {
		metrics.CacheOperations.WithLabelValues("add", "lock_error").Inc()
		return &LockError{Reason: "Add called without the active session"}
	}
	stored := obj.Clone()

	if stored.HasSpatial {
		points := rectPoints(stored.Spatial)
		for _, key := range points {
			if existing, ok := c.locIdx[key]; ok {
				metrics.CacheOperations.WithLabelValues("add", "conflict").Inc()
				return &SyncError{ID: stored.ID, Reason: "location already occupied by object " + idString(existing)}
			}
		}
		for _, key := range points {
			c.locIdx[key] = stored.ID
		}
	}

	stored.CacheVersion = c.bumpVersionLocked()
	c.idIdx[stored.ID] = stored

	if stored.IsOwned() {
		c.indexOwner(stored.ID, stored.Owner)
	}
	if stored.HasUpdatable {
		c.indexUpdatable(stored.ID)
	}

	metrics.CacheOperations.WithLabelValues("add", "ok").Inc()
	c.log.Debug().Uint64("id", uint64(stored.ID)).Msg("object added")
	return nil
}

// AddSingle is the convenience form that brackets its own update scope,
// matching the original's add_single: it behaves like Add but acquires and
// releases the lock itself.
func (c *WorldCache) AddSingle(obj *model.Object) error {
	x, y, w, h := c.bounds.StartX, c.bounds.StartY, c.bounds.Width(), c.bounds.Height()
	if obj.HasSpatial {
		x, y, w, h = obj.Spatial.X, obj.Spatial.Y, 1, 1
	}
	return c.withScope(nil, x, y, w, h, func(s *Session) error {
		return c.Add(s, obj)
	})
}

// Remove deletes the object with the given id. The caller must hold s and
// supply the CacheVersion it last observed; a mismatch means another
// writer touched the object since, and Remove returns a *SyncError rather
// than silently discarding the newer state — mirroring the original's
// last_updated_by_cache comparison in remove<T>.
func (c *WorldCache) Remove(s *Session, id model.ID, expectVersion uint64) error {
	if s == nil || s != c.holder.Load() {
		metrics.CacheOperations.WithLabelValues("remove", "lock_error").Inc()
		return &LockError{Reason: "Remove called without the active session"}
	}
	existing, ok := c.idIdx[id]
	if !ok {
		metrics.CacheOperations.WithLabelValues("remove", "not_found").Inc()
		return &NotFoundError{ID: id}
	}
	if existing.CacheVersion != expectVersion {
		metrics.CacheOperations.WithLabelValues("remove", "conflict").Inc()
		return &SyncError{ID: id, Reason: "stale cache version on remove"}
	}

	if existing.HasSpatial {
		for _, key := range rectPoints(existing.Spatial) {
			delete(c.locIdx, key)
		}
	}
	if existing.IsOwned() {
		c.unindexOwner(id, existing.Owner)
	}
	if existing.HasUpdatable {
		c.unindexUpdatable(id)
	}
	delete(c.idIdx, id)
	c.bumpVersionLocked()

	metrics.CacheOperations.WithLabelValues("remove", "ok").Inc()
	c.log.Debug().Uint64("id", uint64(id)).Msg("object removed")
	return nil
}

// RemoveSingle brackets its own update scope around Remove.
func (c *WorldCache) RemoveSingle(id model.ID, expectVersion uint64) error {
	return c.withScope(nil, c.bounds.StartX, c.bounds.StartY, c.bounds.Width(), c.bounds.Height(), func(s *Session) error {
		return c.Remove(s, id, expectVersion)
	})
}

// Update replaces the stored object matching next.ID with next, subject to
// optimistic-concurrency and location-collision checks equivalent to the
// original's update<T>:
//
//   - the existing object's CacheVersion must equal expectVersion, or
//     Update returns *SyncError;
//   - if next's declared location differs from the existing one and the
//     target lattice point is occupied by a different object, Update
//     returns *SyncError without mutating anything;
//   - on success the location and owner indices are adjusted for any
//     change, and a fresh CacheVersion is stamped.
func (c *WorldCache) Update(s *Session, next *model.Object, expectVersion uint64) error {
	if s == nil || s != c.holder.Load() {
		metrics.CacheOperations.WithLabelValues("update", "lock_error").Inc()
		return &LockError{Reason: "Update called without the active session"}
	}
	existing, ok := c.idIdx[next.ID]
	if !ok {
		metrics.CacheOperations.WithLabelValues("update", "not_found").Inc()
		return &NotFoundError{ID: next.ID}
	}
	if existing.CacheVersion != expectVersion {
		metrics.CacheOperations.WithLabelValues("update", "conflict").Inc()
		return &SyncError{ID: next.ID, Reason: "stale cache version on update"}
	}

	rectChanged := existing.HasSpatial != next.HasSpatial ||
		(existing.HasSpatial && next.HasSpatial && existing.Spatial != next.Spatial)
	ownChanged := existing.Owner != next.Owner

	var oldPoints, newPoints []locKey
	if rectChanged {
		oldSet := make(map[locKey]struct{})
		if existing.HasSpatial {
			oldPoints = rectPoints(existing.Spatial)
			for _, key := range oldPoints {
				oldSet[key] = struct{}{}
			}
		}
		if next.HasSpatial {
			newPoints = rectPoints(next.Spatial)
			for _, key := range newPoints {
				if _, ownedAlready := oldSet[key]; ownedAlready {
					continue
				}
				if occupant, occupied := c.locIdx[key]; occupied && occupant != next.ID {
					metrics.CacheOperations.WithLabelValues("update", "conflict").Inc()
					return &SyncError{ID: next.ID, Reason: "target location occupied by object " + idString(occupant)}
				}
			}
		}
	}

	stored := next.Clone()
	stored.CacheVersion = c.bumpVersionLocked()

	if rectChanged {
		for _, key := range oldPoints {
			delete(c.locIdx, key)
		}
		for _, key := range newPoints {
			c.locIdx[key] = stored.ID
		}
	}
	if ownChanged {
		if existing.IsOwned() {
			c.unindexOwner(existing.ID, existing.Owner)
		}
		if stored.IsOwned() {
			c.indexOwner(stored.ID, stored.Owner)
		}
	}
	if existing.HasUpdatable != stored.HasUpdatable {
		if stored.HasUpdatable {
			c.indexUpdatable(stored.ID)
		} else {
			c.unindexUpdatable(stored.ID)
		}
	}

	c.idIdx[stored.ID] = stored
	metrics.CacheOperations.WithLabelValues("update", "ok").Inc()
	c.log.Debug().Uint64("id", uint64(stored.ID)).Msg("object updated")
	return nil
}

// UpdateSingle brackets its own update scope around Update.
func (c *WorldCache) UpdateSingle(next *model.Object, expectVersion uint64) error {
	x, y, w, h := c.bounds.StartX, c.bounds.StartY, c.bounds.Width(), c.bounds.Height()
	return c.withScope(nil, x, y, w, h, func(s *Session) error {
		return c.Update(s, next, expectVersion)
	})
}

func (c *WorldCache) bumpVersionLocked() uint64 {
	c.version++
	metrics.CacheVersion.WithLabelValues("default").Set(float64(c.version))
	return c.version
}

func (c *WorldCache) indexOwner(id model.ID, owner model.OwnerID) {
	set, ok := c.ownerIdx[owner]
	if !ok {
		set = make(map[model.ID]struct{})
		c.ownerIdx[owner] = set
	}
	set[id] = struct{}{}
}

func (c *WorldCache) unindexOwner(id model.ID, owner model.OwnerID) {
	set, ok := c.ownerIdx[owner]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(c.ownerIdx, owner)
	}
}

func (c *WorldCache) indexUpdatable(id model.ID) {
	if _, ok := c.updPos[id]; ok {
		return
	}
	c.updPos[id] = len(c.updatable)
	c.updatable = append(c.updatable, id)
}

func (c *WorldCache) unindexUpdatable(id model.ID) {
	idx, ok := c.updPos[id]
	if !ok {
		return
	}
	last := len(c.updatable) - 1
	c.updatable[idx] = c.updatable[last]
	c.updPos[c.updatable[idx]] = idx
	c.updatable = c.updatable[:last]
	delete(c.updPos, id)
}

func idString(id model.ID) string {
	return strconv.FormatUint(uint64(id), 10)
}

// rectPoints enumerates every lattice point in sp's rectangle
// [X, X+Width) x [Y, Y+Height), matching ICacheProvider::add(IMap*)'s loop
// over an object's full footprint rather than just its origin.
func rectPoints(sp model.Spatial) []locKey {
	if sp.Width <= 0 || sp.Height <= 0 {
		return nil
	}
	points := make([]locKey, 0, int(sp.Width)*int(sp.Height))
	for dy := int32(0); dy < sp.Height; dy++ {
		for dx := int32(0); dx < sp.Width; dx++ {
			points = append(points, locKey{sp.X + dx, sp.Y + dy})
		}
	}
	return points
}
