package inventory

import (
	"errors"
	"fmt"

	"jetgo.dev/internal/game/gameerr"
	"jetgo.dev/internal/game/item"
)

// ErrInvalidCellState flags a two-phase discipline violation: occupying an
// occupied cell or freeing a free one. It means map state has diverged from
// the item forest and is not a recoverable request error.
var ErrInvalidCellState = errors.New("invalid cell state")

// Rect is the footprint of one root-level item on the grid.
type Rect struct {
	X, Y, W, H int
}

// StashMap is the occupancy bitmap of one grid container plus the footprint
// of every root-level item placed on it. It is derived state: rebuilt from
// the item forest on load and patched incrementally afterwards.
type StashMap struct {
	width  int
	height int
	cells  []bool
	rects  map[string]Rect
}

func NewStashMap(width, height int) *StashMap {
	return &StashMap{
		width:  width,
		height: height,
		cells:  make([]bool, width*height),
		rects:  map[string]Rect{},
	}
}

func (m *StashMap) Width() int  { return m.width }
func (m *StashMap) Height() int { return m.height }

// Footprint reports the recorded rect for a placed root-level item.
func (m *StashMap) Footprint(id string) (Rect, bool) {
	r, ok := m.rects[id]
	return r, ok
}

func (m *StashMap) at(x, y int) bool { return m.cells[y*m.width+x] }

func (m *StashMap) set(x, y int, occupied bool) error {
	idx := y*m.width + x
	if m.cells[idx] == occupied {
		return fmt.Errorf("%w: cell (%d,%d) already %v", ErrInvalidCellState, x, y, occupied)
	}
	m.cells[idx] = occupied
	return nil
}

func (m *StashMap) inBounds(r Rect) bool {
	return r.X >= 0 && r.Y >= 0 && r.W > 0 && r.H > 0 &&
		r.X+r.W <= m.width && r.Y+r.H <= m.height
}

// CanPlace reports whether every cell of r is in bounds and free.
func (m *StashMap) CanPlace(r Rect) bool {
	if !m.inBounds(r) {
		return false
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			if m.at(x, y) {
				return false
			}
		}
	}
	return true
}

// FindLocation scans cells row-major and tries both orientations at each
// cell, returning the first placement that fits. The scan order is stable so
// placement is deterministic.
func (m *StashMap) FindLocation(w, h int) (item.GridLocation, error) {
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.CanPlace(Rect{X: x, Y: y, W: w, H: h}) {
				return item.GridLocation{X: x, Y: y, R: item.RotationHorizontal}, nil
			}
			if w != h && m.CanPlace(Rect{X: x, Y: y, W: h, H: w}) {
				return item.GridLocation{X: x, Y: y, R: item.RotationVertical}, nil
			}
		}
	}
	return item.GridLocation{}, gameerr.NoSpace("no free %dx%d slot in %dx%d grid", w, h, m.width, m.height)
}

// Add records r as id's footprint and occupies its cells.
func (m *StashMap) Add(id string, r Rect) error {
	if _, dup := m.rects[id]; dup {
		return fmt.Errorf("%w: footprint for %s already present", ErrInvalidCellState, id)
	}
	if !m.inBounds(r) {
		return gameerr.NoSpace("footprint %+v out of %dx%d bounds", r, m.width, m.height)
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			if err := m.set(x, y, true); err != nil {
				return err
			}
		}
	}
	m.rects[id] = r
	return nil
}

// Remove frees id's recorded footprint.
func (m *StashMap) Remove(id string) error {
	r, ok := m.rects[id]
	if !ok {
		return fmt.Errorf("%w: no footprint for %s", ErrInvalidCellState, id)
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			if err := m.set(x, y, false); err != nil {
				return err
			}
		}
	}
	delete(m.rects, id)
	return nil
}

// OccupiedCells counts occupied cells; used by tests and debug output.
func (m *StashMap) OccupiedCells() int {
	n := 0
	for _, c := range m.cells {
		if c {
			n++
		}
	}
	return n
}
