// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Package model defines the tagged-variant object that the world cache
// stores. The original C++ source (see original_source/) combined the
// "map object", "owned object", and "updatable" capabilities through
// multiple inheritance with runtime downcasting. This package re-architects
// that as a single struct with optional capability blocks, reached only
// through the id index — no downcasting required.
package model

import "time"

// ID identifies an object uniquely across the cache. Kept as a distinct
// named type from OwnerID so the two numeric domains can't be swapped by
// accident at a call site.
type ID uint64

// OwnerID identifies the owner of an object. The zero value means
// "no owner".
type OwnerID uint64

// NoOwner is the sentinel OwnerID meaning the object is unowned.
const NoOwner OwnerID = 0

// Type is an opaque single-byte object-type tag, interpreted by handlers
// outside this package.
type Type uint8

// Spatial holds the map-resident capability: planet, origin, and extent.
// An object occupies the axis-aligned rectangle
// [X, X+Width) x [Y, Y+Height).
type Spatial struct {
	PlanetID ID
	X, Y     int32
	Width    int32
	Height   int32
}

// Contains reports whether (x,y) lies within the rectangle.
func (s Spatial) Contains(x, y int32) bool {
	return x >= s.X && x < s.X+s.Width && y >= s.Y && y < s.Y+s.Height
}

// Intersects reports whether s overlaps the rectangle
// [x, x+w) x [y, y+h).
func (s Spatial) Intersects(x, y, w, h int32) bool {
	if w <= 0 || h <= 0 || s.Width <= 0 || s.Height <= 0 {
		return false
	}
	return s.X < x+w && x < s.X+s.Width && s.Y < y+h && y < s.Y+s.Height
}

// UpdatableState holds the updatable capability: the timestamp of the last
// tick applied and an opaque behavior tag the handler layer uses to pick
// the concrete update behavior (the business logic of concrete entity
// subtypes is outside this repository's scope, per spec.md §1).
type UpdatableState struct {
	LastUpdated  time.Time
	BehaviorTag  uint8
}

// Object is the tagged variant stored by the cache: a common header plus
// optional capability blocks. HasSpatial/HasUpdatable report which blocks
// are populated; a zero-value Spatial or UpdatableState field alone does
// not mean the capability is absent (an updatable plain object still has a
// zero Spatial).
type Object struct {
	ID           ID
	TypeTag      Type
	Owner        OwnerID
	CacheVersion uint64

	HasSpatial   bool
	Spatial      Spatial

	HasUpdatable bool
	Updatable    UpdatableState
}

// IsOwned reports whether the object has a non-zero owner.
func (o *Object) IsOwned() bool {
	return o.Owner != NoOwner
}

// Clone returns an independent deep copy, preserving identifier, type tag,
// owner, coordinates, and cache-version timestamp. Object contains no
// reference types today, so clone is a value copy, but Clone exists as the
// named capability the original spec requires (§4.1) and the one place
// future reference-typed fields would need to deep-copy.
func (o *Object) Clone() *Object {
	clone := *o
	return &clone
}

// NewPlain constructs a plain object: identifier, type tag, owner=0.
func NewPlain(id ID, typeTag Type) *Object {
	return &Object{ID: id, TypeTag: typeTag, Owner: NoOwner}
}

// NewMapObject constructs a map object with the spec's documented defaults:
// (x,y)=(0,0), (width,height)=(1,1), planet_id=0.
func NewMapObject(id ID, typeTag Type) *Object {
	return &Object{
		ID:      id,
		TypeTag: typeTag,
		Owner:   NoOwner,
		HasSpatial: true,
		Spatial: Spatial{Width: 1, Height: 1},
	}
}

// WithUpdatable returns o with the updatable capability attached, stamped
// with the given construction time as its initial LastUpdated.
func (o *Object) WithUpdatable(behaviorTag uint8, now time.Time) *Object {
	o.HasUpdatable = true
	o.Updatable = UpdatableState{LastUpdated: now, BehaviorTag: behaviorTag}
	return o
}

// WithOwner sets the owner in place and returns o for chaining.
func (o *Object) WithOwner(owner OwnerID) *Object {
	o.Owner = owner
	return o
}

// WithLocation sets the origin in place; it has no effect unless the
// object already carries the spatial capability.
func (o *Object) WithLocation(x, y int32) *Object {
	if o.HasSpatial {
		o.Spatial.X = x
		o.Spatial.Y = y
	}
	return o
}

// WithExtent sets the rectangle extent in place; it has no effect unless
// the object already carries the spatial capability.
func (o *Object) WithExtent(width, height int32) *Object {
	if o.HasSpatial {
		o.Spatial.Width = width
		o.Spatial.Height = height
	}
	return o
}
