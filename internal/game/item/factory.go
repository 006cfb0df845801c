package item

import (
	"github.com/google/uuid"

	"jetgo.dev/internal/content"
	"jetgo.dev/internal/game/gameerr"
)

// SlotCartridges is the slot id ammo occupies inside magazines and ammo boxes.
const SlotCartridges = "cartridges"

// Factory mints live items from catalog templates and presets. It owns id
// generation so every created or copied item gets a globally fresh id.
type Factory struct {
	content *content.Content
	newID   func() string
}

func NewFactory(c *content.Content) *Factory {
	return &Factory{
		content: c,
		newID:   func() string { return uuid.NewString() },
	}
}

// NewID mints a fresh item id.
func (f *Factory) NewID() string { return f.newID() }

// CreateItem builds one stack of tplID with the given count. When a preset is
// registered for the template the preset tree is deep-copied with regenerated
// ids; otherwise a bare item is created and seeded with its template-driven
// properties (packed ammo, resource charge, durability). count above the
// template's stack maximum is rejected.
func (f *Factory) CreateItem(tplID string, count int) (Item, []Item, error) {
	tpl, err := f.content.Template(tplID)
	if err != nil {
		return Item{}, nil, err
	}
	if count <= 0 {
		count = 1
	}
	if count > tpl.StackMax() {
		return Item{}, nil, gameerr.InvalidOperation("create %s: count %d exceeds stack max %d", tplID, count, tpl.StackMax())
	}

	if preset, ok := f.content.Presets.ByTpl[tplID]; ok {
		root, children := f.instantiatePreset(preset)
		if count > 1 {
			root.SetCount(count)
		}
		return root, children, nil
	}

	root := Item{ID: f.newID(), Tpl: tplID}
	if count > 1 || tpl.StackMax() > 1 {
		root.SetCount(count)
	}

	var children []Item
	for pos, slot := range tpl.Props.StackSlots {
		ammo := Item{
			ID:       f.newID(),
			Tpl:      slot.AmmoTpl,
			ParentID: root.ID,
			SlotID:   SlotCartridges,
			Location: CartridgeAt(pos),
		}
		ammo.SetCount(slot.Count)
		children = append(children, ammo)
	}

	if tpl.Props.MaxDurability > 0 {
		cur := tpl.Props.Durability
		if cur <= 0 {
			cur = tpl.Props.MaxDurability
		}
		root.Upd.Durability = &Durability{Cur: float64(cur), Max: float64(tpl.Props.MaxDurability)}
	}
	if tpl.Props.MaxHpResource > 0 {
		root.Upd.MedKit = &MedKit{HpResource: tpl.Props.MaxHpResource}
	}
	if tpl.Props.MaxResource > 0 {
		root.Upd.Resource = &Resource{Value: tpl.Props.MaxResource}
	}
	if tpl.Props.Foldable {
		root.Upd.Foldable = &Foldable{}
	}
	return root, children, nil
}

// CreateItems builds enough stacks of tplID to cover count: full stacks at
// the template maximum plus one remainder stack.
func (f *Factory) CreateItems(tplID string, count int) ([]ItemWithChildren, error) {
	tpl, err := f.content.Template(tplID)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, gameerr.InvalidOperation("create %s: count must be positive", tplID)
	}

	var out []ItemWithChildren
	max := tpl.StackMax()
	for count > 0 {
		n := count
		if n > max {
			n = max
		}
		root, children, err := f.CreateItem(tplID, n)
		if err != nil {
			return nil, err
		}
		out = append(out, ItemWithChildren{Item: root, Children: children})
		count -= n
	}
	return out, nil
}

// ItemWithChildren bundles a root item with its recursive children.
type ItemWithChildren struct {
	Item     Item
	Children []Item
}

func (f *Factory) instantiatePreset(p content.Preset) (Item, []Item) {
	items := make([]Item, 0, len(p.Items))
	for _, raw := range p.Items {
		it := Item{
			ID:       raw.ID,
			Tpl:      raw.Tpl,
			ParentID: raw.ParentID,
			SlotID:   raw.SlotID,
		}
		if raw.Upd != nil && raw.Upd.StackCount > 0 {
			it.SetCount(raw.Upd.StackCount)
		}
		items = append(items, it)
	}
	items = f.RegenerateIDs(items)
	return items[0], items[1:]
}

// RegenerateIDs assigns fresh ids to every item, rewriting ParentID links
// that point inside the slice so the tree keeps its shape. Links to ids
// outside the slice are left alone.
func (f *Factory) RegenerateIDs(items []Item) []Item {
	remap := make(map[string]string, len(items))
	for _, it := range items {
		remap[it.ID] = f.newID()
	}
	out := make([]Item, len(items))
	for n, it := range items {
		c := it.Clone()
		c.ID = remap[it.ID]
		if mapped, ok := remap[it.ParentID]; ok {
			c.ParentID = mapped
		}
		out[n] = c
	}
	return out
}
