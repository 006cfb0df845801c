// Package item holds the mutable per-instance item record and the factory
// that mints items from templates and presets. Items form a forest keyed by
// ParentID; operations on that forest live in the inventory package and
// always receive the owning inventory explicitly.
package item

import (
	"encoding/json"
	"fmt"
)

type Rotation string

const (
	RotationHorizontal Rotation = "Horizontal"
	RotationVertical   Rotation = "Vertical"
)

// GridLocation is a placement inside a grid container.
type GridLocation struct {
	X int      `json:"x"`
	Y int      `json:"y"`
	R Rotation `json:"r"`
}

// Location is either a grid placement or a cartridge stack position inside a
// magazine; exactly one side is set. On the wire it is an object for grids
// and a bare integer for cartridges.
type Location struct {
	Grid      *GridLocation
	Cartridge *int
}

func GridAt(x, y int, r Rotation) *Location {
	return &Location{Grid: &GridLocation{X: x, Y: y, R: r}}
}

func CartridgeAt(pos int) *Location {
	p := pos
	return &Location{Cartridge: &p}
}

func (l *Location) MarshalJSON() ([]byte, error) {
	switch {
	case l.Grid != nil:
		return json.Marshal(l.Grid)
	case l.Cartridge != nil:
		return json.Marshal(*l.Cartridge)
	}
	return nil, fmt.Errorf("location: neither grid nor cartridge set")
}

func (l *Location) UnmarshalJSON(b []byte) error {
	var pos int
	if err := json.Unmarshal(b, &pos); err == nil {
		l.Cartridge = &pos
		l.Grid = nil
		return nil
	}
	var g GridLocation
	if err := json.Unmarshal(b, &g); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	l.Grid = &g
	l.Cartridge = nil
	return nil
}

func (l *Location) clone() *Location {
	if l == nil {
		return nil
	}
	out := &Location{}
	if l.Grid != nil {
		g := *l.Grid
		out.Grid = &g
	}
	if l.Cartridge != nil {
		p := *l.Cartridge
		out.Cartridge = &p
	}
	return out
}

// Item is one live item instance.
type Item struct {
	ID       string    `json:"_id"`
	Tpl      string    `json:"_tpl"`
	ParentID string    `json:"parentId,omitempty"`
	SlotID   string    `json:"slotId,omitempty"`
	Location *Location `json:"location,omitempty"`
	Upd      Upd       `json:"upd,omitempty"`
}

// Upd is the per-instance property bag. Pointer fields are absent unless the
// template gives the item that property.
type Upd struct {
	StackCount       int             `json:"stack_count,omitempty"`
	Durability       *Durability     `json:"durability,omitempty"`
	Foldable         *Foldable       `json:"foldable,omitempty"`
	Resource         *Resource       `json:"resource,omitempty"`
	MedKit           *MedKit         `json:"medkit,omitempty"`
	FireMode         *FireMode       `json:"fire_mode,omitempty"`
	BuyRestriction   *BuyRestriction `json:"buy_restriction,omitempty"`
	SpawnedInSession bool            `json:"spawned_in_session,omitempty"`
	UnlimitedCount   bool            `json:"unlimited_count,omitempty"`
}

type Durability struct {
	Cur float64 `json:"cur"`
	Max float64 `json:"max"`
}

type Foldable struct {
	Folded bool `json:"folded"`
}

type Resource struct {
	Value int `json:"value"`
}

type MedKit struct {
	HpResource int `json:"hp_resource"`
}

type FireMode struct {
	Mode string `json:"mode"`
}

type BuyRestriction struct {
	Count int `json:"count"`
	Max   int `json:"max"`
}

// Count reports the stack size; an unset StackCount means a single item.
func (i *Item) Count() int {
	if i.Upd.StackCount <= 0 {
		return 1
	}
	return i.Upd.StackCount
}

func (i *Item) SetCount(n int) {
	i.Upd.StackCount = n
}

// Folded reports the live fold state.
func (i *Item) Folded() bool {
	return i.Upd.Foldable != nil && i.Upd.Foldable.Folded
}

// Clone deep-copies the item, including its location and property bag.
func (i Item) Clone() Item {
	out := i
	out.Location = i.Location.clone()
	if i.Upd.Durability != nil {
		d := *i.Upd.Durability
		out.Upd.Durability = &d
	}
	if i.Upd.Foldable != nil {
		f := *i.Upd.Foldable
		out.Upd.Foldable = &f
	}
	if i.Upd.Resource != nil {
		r := *i.Upd.Resource
		out.Upd.Resource = &r
	}
	if i.Upd.MedKit != nil {
		m := *i.Upd.MedKit
		out.Upd.MedKit = &m
	}
	if i.Upd.FireMode != nil {
		fm := *i.Upd.FireMode
		out.Upd.FireMode = &fm
	}
	if i.Upd.BuyRestriction != nil {
		b := *i.Upd.BuyRestriction
		out.Upd.BuyRestriction = &b
	}
	return out
}

// CloneAll deep-copies a slice of items preserving order.
func CloneAll(items []Item) []Item {
	out := make([]Item, len(items))
	for n, it := range items {
		out[n] = it.Clone()
	}
	return out
}
