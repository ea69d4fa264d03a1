package model

// MapResident is implemented by objects that occupy a location on a
// planet's lattice. model.Object implements it directly by checking
// HasSpatial; the interface exists so cache and handler code can accept
// "anything placeable" without importing concrete object logic.
type MapResident interface {
	Location() (planet ID, x, y int32, ok bool)
	Extent() (width, height int32)
}

// Ownable is implemented by objects that carry an owner.
type Ownable interface {
	OwnerID() OwnerID
}

// Updatable is implemented by objects the tick updater advances.
type Updatable interface {
	LastTick() (hasTick bool)
}

// Cloneable is implemented by anything the cache must deep-copy on entry
// and exit, so callers never alias cache-internal memory.
type Cloneable interface {
	Clone() *Object
}

// Location returns the object's planet and origin. The last return value,
// ok, is false when the object has no spatial capability.
func (o *Object) Location() (planet ID, x, y int32, ok bool) {
	if !o.HasSpatial {
		return 0, 0, 0, false
	}
	return o.Spatial.PlanetID, o.Spatial.X, o.Spatial.Y, true
}

// Extent returns the object's rectangle size, or (0,0) if it has no
// spatial capability.
func (o *Object) Extent() (width, height int32) {
	if !o.HasSpatial {
		return 0, 0
	}
	return o.Spatial.Width, o.Spatial.Height
}
