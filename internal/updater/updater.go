// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Package updater drives per-tick advancement of cached objects. It ports
// the original Updater.cpp/.h pair: a plain list updater for objects
// outside the spatial cache, and a cache-backed updater that walks the
// cache's updatable collection through a moving cursor so that, across
// many ticks, every updatable object gets a turn without any one tick
// doing unbounded work.
package updater

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/areanode/internal/cache"
	"github.com/tomtom215/areanode/internal/model"
)

// Handler advances one object by the elapsed duration since it was last
// updated. Concrete entity behavior lives outside this repository, per
// spec.md §1 — Handler is the seam a game-logic package plugs into.
type Handler func(obj *model.Object, delta time.Duration) (*model.Object, error)

// CacheUpdater is a suture.Service that ticks a bounded number of
// updatable objects from a WorldCache on a fixed interval, advancing an
// internal cursor across calls. It is the Go counterpart of the original
// cache_updater.
//
// The original's tick() indexed objects[i] while advancing a logical
// position cursor — a latent inconsistency in the source where the
// position never actually changed which objects were visited within the
// bounded slice. This port fixes that: NextUpdatable always resolves the
// object AT the cursor, not at a fixed small index, so repeated ticks
// genuinely progress through the whole collection.
type CacheUpdater struct {
	cache           *cache.WorldCache
	handler         Handler
	tickInterval    time.Duration
	updatesPerTick  int
	position        int
	log             zerolog.Logger
}

// NewCacheUpdater constructs a CacheUpdater. updatesPerTick bounds how many
// objects are advanced in a single tick, keeping per-tick latency
// predictable regardless of world population.
func NewCacheUpdater(c *cache.WorldCache, handler Handler, tickInterval time.Duration, updatesPerTick int, log zerolog.Logger) *CacheUpdater {
	if updatesPerTick <= 0 {
		updatesPerTick = 1
	}
	return &CacheUpdater{
		cache:          c,
		handler:        handler,
		tickInterval:   tickInterval,
		updatesPerTick: updatesPerTick,
		log:            log.With().Str("component", "cache_updater").Logger(),
	}
}

// Serve implements suture.Service.
func (u *CacheUpdater) Serve(ctx context.Context) error {
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
func (u *CacheUpdater) String() string { return "cache-updater" }

// Tick advances up to updatesPerTick objects starting at the cursor,
// wrapping back to zero once the collection is exhausted. It is exported
// so tests and an admin debug endpoint can drive single ticks without
// waiting on the interval timer.
func (u *CacheUpdater) Tick(now time.Time) {
	if u.cache.UpdatableCount() == 0 {
		return
	}
	session := u.cache.BeginUpdate(u.cache.Bounds().StartX, u.cache.Bounds().StartY, u.cache.Bounds().Width(), u.cache.Bounds().Height())
	defer u.cache.EndUpdate(session)

	for i := 0; i < u.updatesPerTick; i++ {
		obj, next, ok := u.cache.NextUpdatable(session, u.position)
		if !ok {
			return
		}
		u.position = next

		delta := now.Sub(obj.Updatable.LastUpdated)
		if delta < 0 {
			delta = 0
		}
		updated, err := u.handler(obj, delta)
		if err != nil {
			u.log.Warn().Err(err).Uint64("id", uint64(obj.ID)).Msg("tick handler failed")
			continue
		}
		if updated == nil {
			updated = obj
		}
		updated.Updatable.LastUpdated = now
		if err := u.cache.Update(session, updated, obj.CacheVersion); err != nil {
			u.log.Warn().Err(err).Uint64("id", uint64(obj.ID)).Msg("failed to commit tick result")
		}
	}
}
