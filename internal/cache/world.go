// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Package cache holds the authoritative, in-memory, multi-indexed object
// store for one area-node shard. It replaces the original C++
// cache_provider's thread-identity recursive mutex with an explicit
// Session token: a caller acquires one from BeginUpdate and threads it
// through every nested Add/Remove/Update/query call in the same logical
// transaction. Passing the wrong Session, or none, makes the call acquire
// a fresh scope: from a goroutine that holds no scope this only waits for
// the current holder, but from the goroutine that already holds one it
// waits on its own lock and never returns.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/areanode/internal/model"
)

// Bounds describes the rectangular region a WorldCache is responsible for,
// plus the line-of-sight radius used by the LOS query family.
type Bounds struct {
	StartX, StartY int32
	EndX, EndY     int32
	LOSRadius      int32
}

// Width returns the bounds' horizontal extent.
func (b Bounds) Width() int32 { return b.EndX - b.StartX }

// Height returns the bounds' vertical extent.
func (b Bounds) Height() int32 { return b.EndY - b.StartY }

// locKey is the location-index key: one cache serves a single planet, so
// the original's (planet,x,y) triple collapses to (x,y) here.
type locKey struct{ x, y int32 }

// WorldCache is the per-shard object store. Every exported mutation method
// requires a *Session obtained from BeginUpdate; query methods accept one
// too, reusing it instead of blocking on a fresh acquisition, but also
// accept nil to acquire and release their own scope.
//
// mu is held continuously for the lifetime of a Session, exactly like the
// original's recursive_mutex — it is locked in BeginUpdate and unlocked in
// the matching EndUpdate, not released in between. This gives the whole
// cache single-writer, single-reader-at-a-time semantics; the spec does not
// require concurrent reads from other goroutines during an active
// transaction, only that the goroutine holding the transaction can read its
// own in-flight writes, and a single lock is the simplest faithful
// translation of the original's design.
type WorldCache struct {
	bounds Bounds

	mu     sync.Mutex
	cond   *sync.Cond
	holder atomic.Pointer[Session]
	depth  int

	idIdx     map[model.ID]*model.Object
	ownerIdx  map[model.OwnerID]map[model.ID]struct{}
	locIdx    map[locKey]model.ID
	updatable []model.ID
	updPos    map[model.ID]int
	version   uint64

	log zerolog.Logger
}

// Session is the reentrancy token returned by BeginUpdate.
type Session struct {
	cache *WorldCache
	Rect  Bounds
}

// New constructs an empty WorldCache over the given bounds.
func New(bounds Bounds, log zerolog.Logger) *WorldCache {
	c := &WorldCache{
		bounds:   bounds,
		idIdx:    make(map[model.ID]*model.Object),
		ownerIdx: make(map[model.OwnerID]map[model.ID]struct{}),
		locIdx:   make(map[locKey]model.ID),
		updPos:   make(map[model.ID]int),
		log:      log.With().Str("component", "cache").Logger(),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Bounds returns the cache's configured area.
func (c *WorldCache) Bounds() Bounds { return c.bounds }

// Version returns the current cache-version counter. It increases by one
// on every successful Add, Remove, or Update.
func (c *WorldCache) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// clamp restricts a requested rectangle to the cache's bounds, matching the
// original cache_provider::clamp.
func (c *WorldCache) clamp(x, y, w, h int32) Bounds {
	sx, sy := x, y
	ex, ey := x+w, y+h
	if sx < c.bounds.StartX {
		sx = c.bounds.StartX
	}
	if sy < c.bounds.StartY {
		sy = c.bounds.StartY
	}
	if ex > c.bounds.EndX {
		ex = c.bounds.EndX
	}
	if ey > c.bounds.EndY {
		ey = c.bounds.EndY
	}
	return Bounds{StartX: sx, StartY: sy, EndX: ex, EndY: ey, LOSRadius: c.bounds.LOSRadius}
}

// BeginUpdate declares an update scope over [x,y,x+w,y+h), clamped to the
// cache's bounds, and blocks until no other scope is active. It returns a
// Session that must be passed to every nested call in the same logical
// transaction and, finally, to EndUpdate.
func (c *WorldCache) BeginUpdate(x, y, w, h int32) *Session {
	c.mu.Lock()
	for c.holder.Load() != nil {
		c.cond.Wait()
	}
	s := &Session{cache: c, Rect: c.clamp(x, y, w, h)}
	c.holder.Store(s)
	c.depth = 1
	return s
}

// EndUpdate releases one level of the scope held by s. When the reentrancy
// depth reaches zero, mu is unlocked and one waiter, if any, is woken.
func (c *WorldCache) EndUpdate(s *Session) {
	if c.holder.Load() != s {
		c.log.Warn().Msg("end_update called with a session that is not the current holder")
		return
	}
	c.depth--
	if c.depth <= 0 {
		c.holder.Store(nil)
		c.depth = 0
		c.mu.Unlock()
		c.cond.Signal()
	}
}

// withScope runs fn under a Session, acquiring one if s is nil or foreign
// and releasing exactly what it acquired. This backs the *Single
// convenience wrappers in mutate.go and the lock-free query helpers.
func (c *WorldCache) withScope(s *Session, x, y, w, h int32, fn func(*Session) error) error {
	active := c.reenter2(s, x, y, w, h)
	defer c.EndUpdate(active)
	return fn(active)
}

// reenter2 returns s one level deeper when s is the active Session, and
// otherwise waits for a fresh Session over the given rectangle, clamped to
// the cache's bounds.
//
// The reentrancy check must happen before mu is touched: mu is held
// continuously for a Session's whole lifetime, so a goroutine that already
// owns s would deadlock locking it again. Reading holder here without mu
// is safe because holder is an atomic.Pointer — the only goroutine that
// can observe s == holder is the one that installed it, and that goroutine
// already has the happens-before edge from its own prior Lock call.
func (c *WorldCache) reenter2(s *Session, x, y, w, h int32) *Session {
	if s != nil && s == c.holder.Load() {
		c.depth++
		return s
	}
	c.mu.Lock()
	for c.holder.Load() != nil {
		c.cond.Wait()
	}
	fresh := &Session{cache: c, Rect: c.clamp(x, y, w, h)}
	c.holder.Store(fresh)
	c.depth = 1
	return fresh
}

var now = time.Now
