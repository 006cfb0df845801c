package inventory

import (
	"jetgo.dev/internal/content"
	"jetgo.dev/internal/game/item"
)

// ItemSize computes the grid footprint of it together with the sizing
// contribution of its recursive children: forced extra sizes add up across
// children, the rest merge componentwise max, and an engaged fold subtracts
// the reduction defined by whichever foldable component is folded.
// Orientation is applied by the caller.
func ItemSize(c *content.Content, it *item.Item, children []*item.Item) (int, int, error) {
	tpl, err := c.Template(it.Tpl)
	if err != nil {
		return 0, 0, err
	}
	w := tpl.Props.Width
	h := tpl.Props.Height
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}

	var forced content.ExtraSize
	var merged content.ExtraSize
	foldReduce := 0

	if tpl.Props.Foldable && it.Folded() {
		foldReduce = tpl.Props.SizeReduceRight
	}

	for _, ch := range children {
		ctpl, err := c.Template(ch.Tpl)
		if err != nil {
			return 0, 0, err
		}
		if ctpl.Props.Foldable && ch.Folded() && ctpl.Props.SizeReduceRight > foldReduce {
			foldReduce = ctpl.Props.SizeReduceRight
		}
		es := ctpl.Props.ExtraSize
		if es.IsZero() {
			continue
		}
		if es.ForceAdd {
			forced.Left += es.Left
			forced.Right += es.Right
			forced.Up += es.Up
			forced.Down += es.Down
		} else {
			merged.Left = maxInt(merged.Left, es.Left)
			merged.Right = maxInt(merged.Right, es.Right)
			merged.Up = maxInt(merged.Up, es.Up)
			merged.Down = maxInt(merged.Down, es.Down)
		}
	}

	w += forced.Left + forced.Right + merged.Left + merged.Right
	h += forced.Up + forced.Down + merged.Up + merged.Down

	if foldReduce > 0 {
		w -= foldReduce
		if w < 1 {
			w = 1
		}
	}
	return w, h, nil
}

// OrientedSize flips width/height for vertical placements.
func OrientedSize(w, h int, r item.Rotation) (int, int) {
	if r == item.RotationVertical {
		return h, w
	}
	return w, h
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
