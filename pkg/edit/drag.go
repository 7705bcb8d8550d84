package edit

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

// Zone is where a dragged node lands relative to the drop target.
type Zone int

const (
	ZoneNone Zone = iota
	ZoneChild
	ZoneBefore
	ZoneAfter
)

func (z Zone) String() string {
	switch z {
	case ZoneChild:
		return "child"
	case ZoneBefore:
		return "before"
	case ZoneAfter:
		return "after"
	}
	return "none"
}

// ParseZone is the inverse of Zone.String.
func ParseZone(s string) (Zone, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "child":
		return ZoneChild, nil
	case "before":
		return ZoneBefore, nil
	case "after":
		return ZoneAfter, nil
	}
	return ZoneNone, fmt.Errorf("unknown drop zone %q", s)
}

// Rect is the bounding box of a rendered node.
type Rect struct {
	X, Y, Width, Height float64
}

// ZoneAt maps a pointer position inside box to a drop zone: the right half
// makes the dragged node a child, the left half splits into before (upper)
// and after (lower). Points outside the box yield ZoneNone.
func ZoneAt(box Rect, x, y float64) Zone {
	if box.Width <= 0 || box.Height <= 0 {
		return ZoneNone
	}
	dx, dy := x-box.X, y-box.Y
	if dx < 0 || dy < 0 || dx > box.Width || dy > box.Height {
		return ZoneNone
	}
	if dx >= box.Width/2 {
		return ZoneChild
	}
	if dy < box.Height/2 {
		return ZoneBefore
	}
	return ZoneAfter
}

// Move reparents srcID relative to dstID according to zone.
func Move(root *domain.Node, srcID, dstID string, zone Zone) error {
	src := tree.PathTo(root, srcID)
	if src == nil {
		return reject("move", srcID, domain.ErrNodeNotFound)
	}
	dst := tree.PathTo(root, dstID)
	if dst == nil {
		return reject("move", dstID, domain.ErrNodeNotFound)
	}
	s, d := src[len(src)-1], dst[len(dst)-1]

	switch {
	case zone == ZoneNone:
		return reject("move", dstID, fmt.Errorf("%w: no drop zone", domain.ErrInvalidTarget))
	case s == d:
		return reject("move", dstID, fmt.Errorf("%w: node dropped onto itself", domain.ErrInvalidTarget))
	case tree.IsDescendant(s, d.ID):
		return reject("move", dstID, fmt.Errorf("%w: %s is a descendant of %s", domain.ErrCycleDetected, d.ID, s.ID))
	case zone != ZoneChild && len(dst) == 1:
		return reject("move", dstID, fmt.Errorf("%w: the root cannot have siblings", domain.ErrInvalidTarget))
	case tree.InSubtree(dst):
		return reject("move", dstID, fmt.Errorf("%w: target belongs to subtree %q", domain.ErrInvalidTarget, owner(dst).Path))
	case len(src) == 1:
		return reject("move", srcID, fmt.Errorf("%w: cannot move the root", domain.ErrInvalidTarget))
	case tree.InSubtree(src):
		return reject("move", srcID, fmt.Errorf("%w: node belongs to subtree %q", domain.ErrInvalidTarget, owner(src).Path))
	case zone == ZoneChild && d.IsSubtree():
		return reject("move", dstID, fmt.Errorf("%w: children of %q are transcluded", domain.ErrInvalidTarget, d.Path))
	}

	detach(src[len(src)-2], s)
	if zone == ZoneChild {
		d.Children = append(d.Children, s)
		return nil
	}
	parent := dst[len(dst)-2]
	idx := tree.IndexOf(parent, d)
	if zone == ZoneAfter {
		idx++
	}
	insertAt(parent, idx, s)
	return nil
}

// Drop resolves the zone from a pointer position and moves srcID accordingly.
func Drop(root *domain.Node, srcID, dstID string, box Rect, x, y float64) (Zone, error) {
	zone := ZoneAt(box, x, y)
	return zone, Move(root, srcID, dstID, zone)
}
