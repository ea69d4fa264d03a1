package cache

import (
	"github.com/tomtom215/areanode/internal/model"
)

// GetByID returns a clone of the object with the given id, or
// *NotFoundError. s may be nil, in which case GetByID acquires its own
// scope; pass the Session from an active BeginUpdate to call GetByID from
// inside a handler that already holds the scope, without deadlocking on
// the cache's non-reentrant mutex.
func (c *WorldCache) GetByID(s *Session, id model.ID) (*model.Object, error) {
	var out *model.Object
	err := c.withScope(s, c.bounds.StartX, c.bounds.StartY, c.bounds.Width(), c.bounds.Height(), func(*Session) error {
		obj, ok := c.idIdx[id]
		if !ok {
			return &NotFoundError{ID: id}
		}
		out = obj.Clone()
		return nil
	})
	return out, err
}

// GetAtLocation returns the object occupying (x,y), or *NotFoundError if
// the lattice point is empty. s follows the same reentrancy convention as
// GetByID.
func (c *WorldCache) GetAtLocation(s *Session, x, y int32) (*model.Object, error) {
	var out *model.Object
	err := c.withScope(s, x, y, 1, 1, func(*Session) error {
		id, ok := c.locIdx[locKey{x, y}]
		if !ok {
			return &NotFoundError{ID: locKey{x, y}}
		}
		out = c.idIdx[id].Clone()
		return nil
	})
	return out, err
}

// GetInArea returns clones of every object whose declared rectangle
// intersects [x,y,x+w,y+h). s follows the same reentrancy convention as
// GetByID.
func (c *WorldCache) GetInArea(s *Session, x, y, w, h int32) ([]*model.Object, error) {
	var out []*model.Object
	err := c.withScope(s, x, y, w, h, func(*Session) error {
		for _, obj := range c.idIdx {
			if obj.HasSpatial && obj.Spatial.Intersects(x, y, w, h) {
				out = append(out, obj.Clone())
			}
		}
		return nil
	})
	return out, err
}

// IsAreaEmpty reports whether no object's rectangle intersects
// [x,y,x+w,y+h). s follows the same reentrancy convention as GetByID.
func (c *WorldCache) IsAreaEmpty(s *Session, x, y, w, h int32) (bool, error) {
	objs, err := c.GetInArea(s, x, y, w, h)
	return len(objs) == 0, err
}

// IsLocationInBounds reports whether (x,y) falls within the cache's bounds.
func (c *WorldCache) IsLocationInBounds(x, y int32) bool {
	return x >= c.bounds.StartX && x < c.bounds.EndX && y >= c.bounds.StartY && y < c.bounds.EndY
}

// IsUserPresent reports whether an object owned by owner currently has the
// spatial capability (is placed on the map). s follows the same
// reentrancy convention as GetByID.
func (c *WorldCache) IsUserPresent(s *Session, owner model.OwnerID) (bool, error) {
	objs, err := c.GetByOwner(s, owner)
	if err != nil {
		return false, err
	}
	for _, o := range objs {
		if o.HasSpatial {
			return true, nil
		}
	}
	return false, nil
}

// GetByOwner returns clones of every object owned by owner. s follows the
// same reentrancy convention as GetByID.
func (c *WorldCache) GetByOwner(s *Session, owner model.OwnerID) ([]*model.Object, error) {
	var out []*model.Object
	err := c.withScope(s, c.bounds.StartX, c.bounds.StartY, c.bounds.Width(), c.bounds.Height(), func(*Session) error {
		for id := range c.ownerIdx[owner] {
			out = append(out, c.idIdx[id].Clone())
		}
		return nil
	})
	return out, err
}

// IsLocationInLOS reports whether (x,y) is within the cache's configured
// line-of-sight radius of (fromX,fromY), using a square (Chebyshev)
// neighborhood — the original's get_in_owner_los performs the identical
// bounded nested-loop scan rather than a circular radius.
func (c *WorldCache) IsLocationInLOS(fromX, fromY, x, y int32) bool {
	dx := x - fromX
	if dx < 0 {
		dx = -dx
	}
	dy := y - fromY
	if dy < 0 {
		dy = -dy
	}
	return dx <= c.bounds.LOSRadius && dy <= c.bounds.LOSRadius
}

// losRect returns the square scan rectangle centered on (x,y) with the
// cache's configured LOS radius. It does not clamp; a fresh scope acquired
// over it is clamped to the bounds by withScope.
func (c *WorldCache) losRect(x, y int32) (rx, ry, rw, rh int32) {
	r := c.bounds.LOSRadius
	rx = x - r
	ry = y - r
	rw = 2*r + 1
	rh = 2*r + 1
	return
}

// GetUsersWithLOSAt returns clones of every owned, spatial object within
// line-of-sight radius of (x,y). s follows the same reentrancy convention
// as GetByID.
func (c *WorldCache) GetUsersWithLOSAt(s *Session, x, y int32) ([]*model.Object, error) {
	rx, ry, rw, rh := c.losRect(x, y)
	var out []*model.Object
	err := c.withScope(s, rx, ry, rw, rh, func(*Session) error {
		for _, obj := range c.idIdx {
			if !obj.HasSpatial || !obj.IsOwned() {
				continue
			}
			if c.IsLocationInLOS(x, y, obj.Spatial.X, obj.Spatial.Y) {
				out = append(out, obj.Clone())
			}
		}
		return nil
	})
	return out, err
}

// GetInOwnerLOS returns clones of every spatial object within LOS radius of
// any object owned by owner. s follows the same reentrancy convention as
// GetByID.
func (c *WorldCache) GetInOwnerLOS(s *Session, owner model.OwnerID) ([]*model.Object, error) {
	anchors, err := c.GetByOwner(s, owner)
	if err != nil {
		return nil, err
	}
	seen := make(map[model.ID]struct{})
	var out []*model.Object
	for _, anchor := range anchors {
		if !anchor.HasSpatial {
			continue
		}
		nearby, err := c.GetUsersWithLOSAtAnyObject(s, anchor.Spatial.X, anchor.Spatial.Y)
		if err != nil {
			return nil, err
		}
		for _, obj := range nearby {
			if _, dup := seen[obj.ID]; dup {
				continue
			}
			seen[obj.ID] = struct{}{}
			out = append(out, obj)
		}
	}
	return out, nil
}

// GetInOwnerLOSRect is the bounding-rectangle overload: it returns clones
// of every spatial object within LOS radius of any object owned by owner
// AND within [x,y,x+w,y+h) — matching the original's two get_in_owner_los
// overloads, one unconstrained and one rectangle-constrained. s follows the
// same reentrancy convention as GetByID.
func (c *WorldCache) GetInOwnerLOSRect(s *Session, owner model.OwnerID, x, y, w, h int32) ([]*model.Object, error) {
	all, err := c.GetInOwnerLOS(s, owner)
	if err != nil {
		return nil, err
	}
	var out []*model.Object
	for _, obj := range all {
		if obj.HasSpatial && obj.Spatial.Intersects(x, y, w, h) {
			out = append(out, obj)
		}
	}
	return out, nil
}

// GetUsersWithLOSAtAnyObject returns clones of every spatial object
// (owned or not) within LOS radius of (x,y). It backs GetInOwnerLOS, which
// must consider map objects as well as other users as LOS targets. s
// follows the same reentrancy convention as GetByID.
func (c *WorldCache) GetUsersWithLOSAtAnyObject(s *Session, x, y int32) ([]*model.Object, error) {
	rx, ry, rw, rh := c.losRect(x, y)
	var out []*model.Object
	err := c.withScope(s, rx, ry, rw, rh, func(*Session) error {
		for _, obj := range c.idIdx {
			if !obj.HasSpatial {
				continue
			}
			if c.IsLocationInLOS(x, y, obj.Spatial.X, obj.Spatial.Y) {
				out = append(out, obj.Clone())
			}
		}
		return nil
	})
	return out, err
}
