package inventory

import (
	"jetgo.dev/internal/content"
	"jetgo.dev/internal/game/gameerr"
	"jetgo.dev/internal/game/item"
)

// GridInventory layers stash-map bookkeeping on top of Inventory for
// inventories anchored by a grid container (player stash, trader stash,
// mail attachment box). Items parented directly at the stash root occupy
// grid cells; everything else (equipment slots, nested containers,
// magazine wells) is tracked in the forest only.
type GridInventory struct {
	*Inventory
	rootID   string
	gridSlot string
	stash    *StashMap
}

// MoveTarget names a destination for MoveItem/SplitItem: a container id, a
// slot on it, and (for grid slots) an explicit location.
type MoveTarget struct {
	Container string
	Slot      string
	Location  *item.Location
}

// MoveOutcome reports how a move ended: the item in its new position, or the
// existing stack it merged into (cartridge moves only).
type MoveOutcome struct {
	Item       *item.Item
	MergedInto *item.Item
}

// SplitOutcome reports the result of SplitItem.
type SplitOutcome struct {
	New        *item.Item // newly created stack, nil when the donor moved whole
	Source     *item.Item // remaining donor stack, nil when fully consumed
	MergedInto *item.Item
}

// NewGrid builds a grid inventory around stashRoot and rebuilds the
// occupancy map from the supplied item forest.
func NewGrid(c *content.Content, stashRoot item.Item, items []item.Item) (*GridInventory, error) {
	tpl, err := c.Template(stashRoot.Tpl)
	if err != nil {
		return nil, err
	}
	if !tpl.HasGrids() {
		return nil, gameerr.InvalidOperation("stash root template %s has no grids", stashRoot.Tpl)
	}
	grid := tpl.Props.Grids[0]

	g := &GridInventory{
		Inventory: New(c),
		rootID:    stashRoot.ID,
		gridSlot:  grid.ID,
		stash:     NewStashMap(grid.CellsH, grid.CellsV),
	}
	g.insert(stashRoot)
	for _, it := range items {
		if g.Has(it.ID) {
			return nil, gameerr.InvalidOperation("duplicate item id %s", it.ID)
		}
		g.insert(it)
	}

	// Rebuild occupancy from scratch; the map must end up equal to the union
	// of root-level footprints.
	for _, it := range g.Children(g.rootID) {
		if it.SlotID != g.gridSlot {
			continue
		}
		r, err := g.rootRect(it)
		if err != nil {
			return nil, err
		}
		if !g.stash.CanPlace(r) {
			return nil, gameerr.InvalidOperation("item %s: stored footprint %+v conflicts", it.ID, r)
		}
		if err := g.stash.Add(it.ID, r); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *GridInventory) RootID() string   { return g.rootID }
func (g *GridInventory) GridSlot() string { return g.gridSlot }
func (g *GridInventory) Stash() *StashMap { return g.stash }

func (g *GridInventory) rootRect(it *item.Item) (Rect, error) {
	if it.Location == nil || it.Location.Grid == nil {
		return Rect{}, gameerr.InvalidOperation("item %s: grid container requires a grid location", it.ID)
	}
	w, h, err := g.sizeOf(it, g.ChildrenRecursive(it.ID))
	if err != nil {
		return Rect{}, err
	}
	w, h = OrientedSize(w, h, it.Location.Grid.R)
	return Rect{X: it.Location.Grid.X, Y: it.Location.Grid.Y, W: w, H: h}, nil
}

func (g *GridInventory) sizeOf(it *item.Item, children []*item.Item) (int, int, error) {
	return ItemSize(g.content, it, children)
}

// rootAncestor walks up to the nearest ancestor that sits on the stash grid,
// or nil when the item hangs off equipment or another non-grid anchor.
// The item itself qualifies.
func (g *GridInventory) rootAncestor(it *item.Item) *item.Item {
	cur := it
	for cur != nil {
		if cur.ParentID == g.rootID && cur.SlotID == g.gridSlot {
			return cur
		}
		parent, ok := g.items[cur.ParentID]
		if !ok {
			return nil
		}
		cur = parent
	}
	return nil
}

// AddItem inserts an item tree while keeping the stash map consistent. A
// tree rooted on the stash grid must carry a valid, conflict-free grid
// location; a tree attached under an already-placed root item triggers the
// two-phase footprint refresh of that ancestor.
func (g *GridInventory) AddItem(root item.Item, children []item.Item) error {
	if root.ParentID == g.rootID && root.SlotID == g.gridSlot {
		return g.addAtRoot(root, children)
	}
	if parent, ok := g.items[root.ParentID]; ok {
		if anc := g.rootAncestor(parent); anc != nil {
			return g.addUnderAncestor(anc, root, children)
		}
	}
	return g.Inventory.AddItem(root, children)
}

func (g *GridInventory) addAtRoot(root item.Item, children []item.Item) error {
	if root.Location == nil || root.Location.Grid == nil {
		return gameerr.InvalidOperation("item %s: grid placement requires a grid location", root.ID)
	}
	ptrs := make([]*item.Item, len(children))
	for n := range children {
		ptrs[n] = &children[n]
	}
	w, h, err := ItemSize(g.content, &root, ptrs)
	if err != nil {
		return err
	}
	w, h = OrientedSize(w, h, root.Location.Grid.R)
	r := Rect{X: root.Location.Grid.X, Y: root.Location.Grid.Y, W: w, H: h}
	if !g.stash.CanPlace(r) {
		return gameerr.NoSpace("item %s: footprint %+v not free", root.ID, r)
	}
	if err := g.Inventory.AddItem(root, children); err != nil {
		return err
	}
	return g.stash.Add(root.ID, r)
}

func (g *GridInventory) addUnderAncestor(anc *item.Item, root item.Item, children []item.Item) error {
	oldRect, tracked := g.stash.Footprint(anc.ID)
	if !tracked {
		return g.Inventory.AddItem(root, children)
	}
	// Snapshot old footprint, mutate the child set, recompute, diff-apply.
	if err := g.stash.Remove(anc.ID); err != nil {
		return err
	}
	if err := g.Inventory.AddItem(root, children); err != nil {
		_ = g.stash.Add(anc.ID, oldRect)
		return err
	}
	newRect, err := g.rootRect(anc)
	if err == nil && !g.stash.CanPlace(newRect) {
		err = gameerr.NoSpace("item %s: grown footprint %+v not free", anc.ID, newRect)
	}
	if err != nil {
		added := []string{root.ID}
		for _, ch := range children {
			added = append(added, ch.ID)
		}
		for _, id := range added {
			delete(g.items, id)
		}
		g.compactOrder()
		_ = g.stash.Add(anc.ID, oldRect)
		return err
	}
	return g.stash.Add(anc.ID, newRect)
}

// RemoveItem deletes an item (and children unless suppressed) and patches
// the footprint of whichever root-level item the removal affects.
func (g *GridInventory) RemoveItem(id string, removeChildren bool) ([]string, error) {
	it, err := g.Get(id)
	if err != nil {
		return nil, err
	}

	if it.ParentID == g.rootID && it.SlotID == g.gridSlot {
		if _, tracked := g.stash.Footprint(id); tracked {
			if err := g.stash.Remove(id); err != nil {
				return nil, err
			}
		}
		return g.Inventory.RemoveItem(id, removeChildren)
	}

	anc := g.rootAncestor(it)
	if anc == nil || anc.ID == id {
		return g.Inventory.RemoveItem(id, removeChildren)
	}

	oldRect, tracked := g.stash.Footprint(anc.ID)
	if !tracked {
		return g.Inventory.RemoveItem(id, removeChildren)
	}

	// Removing a child can grow the ancestor footprint (a folded stock no
	// longer reducing width), so the refresh must re-validate.
	snapshot := g.snapshotTree(id)
	if err := g.stash.Remove(anc.ID); err != nil {
		return nil, err
	}
	removed, err := g.Inventory.RemoveItem(id, removeChildren)
	if err != nil {
		_ = g.stash.Add(anc.ID, oldRect)
		return nil, err
	}
	newRect, err := g.rootRect(anc)
	if err == nil && !g.stash.CanPlace(newRect) {
		err = gameerr.NoSpace("item %s: grown footprint %+v not free", anc.ID, newRect)
	}
	if err != nil {
		for _, s := range snapshot {
			if !g.Has(s.ID) {
				g.insert(s)
			}
		}
		_ = g.stash.Add(anc.ID, oldRect)
		return nil, err
	}
	if err := g.stash.Add(anc.ID, newRect); err != nil {
		return nil, err
	}
	return removed, nil
}

func (g *GridInventory) snapshotTree(id string) []item.Item {
	var out []item.Item
	if it, ok := g.items[id]; ok {
		out = append(out, it.Clone())
		for _, ch := range g.ChildrenRecursive(id) {
			out = append(out, ch.Clone())
		}
	}
	return out
}

// PlaceItem puts an item tree onto the stash grid. A nil location asks the
// stash map for the first free spot; an explicit location is re-validated
// even when the caller already checked it.
func (g *GridInventory) PlaceItem(root item.Item, children []item.Item, loc *item.Location) error {
	if loc == nil {
		ptrs := make([]*item.Item, len(children))
		for n := range children {
			ptrs[n] = &children[n]
		}
		w, h, err := ItemSize(g.content, &root, ptrs)
		if err != nil {
			return err
		}
		found, err := g.stash.FindLocation(w, h)
		if err != nil {
			return err
		}
		loc = &item.Location{Grid: &found}
	} else if loc.Grid == nil {
		return gameerr.InvalidOperation("item %s: grid placement requires a grid location", root.ID)
	}
	root.ParentID = g.rootID
	root.SlotID = g.gridSlot
	root.Location = loc
	return g.AddItem(root, children)
}

// MoveItem relocates an item inside this inventory: onto the stash grid,
// into a magazine's cartridge well, or into a named slot. The item is
// detached first so its old footprint is cleared before the new placement is
// validated; on failure the original placement is restored.
func (g *GridInventory) MoveItem(id string, to MoveTarget) (MoveOutcome, error) {
	var out MoveOutcome

	it, err := g.Get(id)
	if err != nil {
		return out, err
	}
	if to.Container == id {
		return out, gameerr.InvalidOperation("move %s: cannot nest into itself", id)
	}
	for _, ch := range g.ChildrenRecursive(id) {
		if ch.ID == to.Container {
			return out, gameerr.InvalidOperation("move %s: cannot nest into own child %s", id, to.Container)
		}
	}

	orig := it.Clone()
	childSnap := make([]item.Item, 0)
	for _, ch := range g.ChildrenRecursive(id) {
		childSnap = append(childSnap, ch.Clone())
	}

	if _, err := g.RemoveItem(id, true); err != nil {
		return out, err
	}
	restore := func() {
		_ = g.AddItem(orig, childSnap)
	}

	moved := orig.Clone()
	switch {
	case to.Slot == item.SlotCartridges:
		if len(childSnap) > 0 {
			restore()
			return out, gameerr.InvalidOperation("move %s: only plain ammo stacks fit cartridges", id)
		}
		merged, placed, err := g.placeInMagazine(to.Container, moved)
		if err != nil {
			restore()
			return out, err
		}
		out.MergedInto = merged
		out.Item = placed
		return out, nil

	case to.Location != nil && to.Location.Grid != nil:
		moved.ParentID = to.Container
		moved.SlotID = to.Slot
		moved.Location = to.Location
		if !g.Has(to.Container) {
			restore()
			return out, gameerr.NotFound("move %s: container %s", id, to.Container)
		}
		if err := g.AddItem(moved, childSnap); err != nil {
			restore()
			return out, err
		}

	default:
		// Named attachment slot: no grid footprint of its own.
		if !g.Has(to.Container) {
			restore()
			return out, gameerr.NotFound("move %s: container %s", id, to.Container)
		}
		moved.ParentID = to.Container
		moved.SlotID = to.Slot
		moved.Location = nil
		if err := g.AddItem(moved, childSnap); err != nil {
			restore()
			return out, err
		}
	}

	placed, err := g.Get(moved.ID)
	if err != nil {
		return out, err
	}
	out.Item = placed
	return out, nil
}

// placeInMagazine applies the cartridge stacking rules: merge into the
// topmost stack when templates match, append at the next position when they
// differ, position zero when the magazine is empty. The ammo item must not
// be in the inventory; on success it is inserted (unless merged away).
func (g *GridInventory) placeInMagazine(magID string, ammo item.Item) (merged, placed *item.Item, err error) {
	mag, err := g.Get(magID)
	if err != nil {
		return nil, nil, err
	}
	magTpl, err := g.content.Template(mag.Tpl)
	if err != nil {
		return nil, nil, err
	}
	if !magTpl.HasCartridges() {
		return nil, nil, gameerr.InvalidOperation("item %s is not a magazine", magID)
	}

	loaded := 0
	var top *item.Item
	topPos := -1
	for _, ch := range g.Children(magID) {
		if ch.SlotID != item.SlotCartridges {
			continue
		}
		loaded += ch.Count()
		if ch.Location != nil && ch.Location.Cartridge != nil && *ch.Location.Cartridge > topPos {
			topPos = *ch.Location.Cartridge
			top = ch
		}
	}
	if loaded+ammo.Count() > magTpl.Props.Cartridges.Capacity {
		return nil, nil, gameerr.NoSpace("magazine %s: %d/%d loaded, stack of %d does not fit",
			magID, loaded, magTpl.Props.Cartridges.Capacity, ammo.Count())
	}

	if top != nil && top.Tpl == ammo.Tpl {
		top.SetCount(top.Count() + ammo.Count())
		return top, nil, nil
	}

	ammo.ParentID = magID
	ammo.SlotID = item.SlotCartridges
	ammo.Location = item.CartridgeAt(topPos + 1)
	if err := g.AddItem(ammo, nil); err != nil {
		return nil, nil, err
	}
	placed, err = g.Get(ammo.ID)
	return nil, placed, err
}

// SplitItem carves count units off a stack toward a destination. Grid
// destinations get a fresh-id copy; cartridge destinations consume the donor
// whole when it fits the magazine's remaining capacity and split off only
// what fits otherwise. A split of the full stack removes the source.
func (g *GridInventory) SplitItem(id string, to MoveTarget, count int) (SplitOutcome, error) {
	var out SplitOutcome

	donor, err := g.Get(id)
	if err != nil {
		return out, err
	}
	if count <= 0 || count > donor.Count() {
		return out, gameerr.InvalidOperation("split %s: count %d out of range for stack of %d", id, count, donor.Count())
	}

	if to.Slot == item.SlotCartridges {
		return g.splitToCartridges(donor, to, count)
	}

	if count == donor.Count() {
		mv, err := g.MoveItem(id, to)
		if err != nil {
			return out, err
		}
		out.New = mv.Item
		out.MergedInto = mv.MergedInto
		return out, nil
	}

	split := donor.Clone()
	split.ID = g.newID()
	split.SetCount(count)
	split.ParentID = to.Container
	split.SlotID = to.Slot
	split.Location = to.Location
	if err := g.AddItem(split, nil); err != nil {
		return out, err
	}
	donor.SetCount(donor.Count() - count)
	out.Source = donor
	out.New, err = g.Get(split.ID)
	return out, err
}

func (g *GridInventory) splitToCartridges(donor *item.Item, to MoveTarget, count int) (SplitOutcome, error) {
	var out SplitOutcome

	mag, err := g.Get(to.Container)
	if err != nil {
		return out, err
	}
	magTpl, err := g.content.Template(mag.Tpl)
	if err != nil {
		return out, err
	}
	if !magTpl.HasCartridges() {
		return out, gameerr.InvalidOperation("item %s is not a magazine", mag.ID)
	}
	loaded := 0
	for _, ch := range g.Children(mag.ID) {
		if ch.SlotID == item.SlotCartridges {
			loaded += ch.Count()
		}
	}
	free := magTpl.Props.Cartridges.Capacity - loaded
	if free <= 0 {
		return out, gameerr.NoSpace("magazine %s is full", mag.ID)
	}
	n := count
	if n > free {
		n = free
	}

	if n >= donor.Count() {
		// Whole stack fits: consumed, not copied.
		mv, err := g.MoveItem(donor.ID, to)
		if err != nil {
			return out, err
		}
		out.New = mv.Item
		out.MergedInto = mv.MergedInto
		return out, nil
	}

	split := donor.Clone()
	split.ID = g.newID()
	split.SetCount(n)
	merged, placed, err := g.placeInMagazine(mag.ID, split)
	if err != nil {
		return out, err
	}
	donor.SetCount(donor.Count() - n)
	out.Source = donor
	out.New = placed
	out.MergedInto = merged
	return out, nil
}

// SplitIntoStacks carves a stack into copies capped at the template stack
// maximum. The source is removed; the returned stacks carry fresh ids and no
// placement, ready to be listed or re-homed by the caller.
func (g *GridInventory) SplitIntoStacks(id string) ([]item.Item, error) {
	donor, err := g.Get(id)
	if err != nil {
		return nil, err
	}
	tpl, err := g.content.Template(donor.Tpl)
	if err != nil {
		return nil, err
	}
	max := tpl.StackMax()

	var out []item.Item
	remaining := donor.Count()
	for remaining > 0 {
		n := remaining
		if n > max {
			n = max
		}
		stack := donor.Clone()
		stack.ID = g.newID()
		stack.ParentID = ""
		stack.SlotID = ""
		stack.Location = nil
		stack.SetCount(n)
		out = append(out, stack)
		remaining -= n
	}
	if _, err := g.RemoveItem(id, true); err != nil {
		return nil, err
	}
	return out, nil
}

// Fold toggles the fold state of a foldable item, re-validating the affected
// root-level footprint. Unfolding can grow the footprint past neighbouring
// items; that fails NoSpace and leaves the fold state untouched.
func (g *GridInventory) Fold(id string, folded bool) error {
	it, err := g.Get(id)
	if err != nil {
		return err
	}
	tpl, err := g.content.Template(it.Tpl)
	if err != nil {
		return err
	}
	if !tpl.Props.Foldable {
		return gameerr.InvalidOperation("item %s (%s) is not foldable", id, it.Tpl)
	}
	if it.Folded() == folded {
		return nil
	}

	anc := g.rootAncestor(it)
	if anc == nil {
		setFolded(it, folded)
		return nil
	}

	// Remove-then-readd around the mutation so the footprint recalculation
	// picks up the new folded size.
	snapshot := g.snapshotTree(anc.ID)
	for n := range snapshot {
		if snapshot[n].ID == id {
			setFolded(&snapshot[n], folded)
		}
	}
	if _, err := g.RemoveItem(anc.ID, true); err != nil {
		return err
	}
	if err := g.AddItem(snapshot[0], snapshot[1:]); err != nil {
		for n := range snapshot {
			if snapshot[n].ID == id {
				setFolded(&snapshot[n], !folded)
			}
		}
		_ = g.AddItem(snapshot[0], snapshot[1:])
		return err
	}
	return nil
}

func setFolded(it *item.Item, folded bool) {
	if it.Upd.Foldable == nil {
		it.Upd.Foldable = &item.Foldable{}
	}
	it.Upd.Foldable.Folded = folded
}

// Merge shadows Inventory.Merge so a donor sitting on the stash grid frees
// its footprint. The donor is removed first; only then does the target grow,
// so a failed removal leaves both stacks untouched.
func (g *GridInventory) Merge(donorID, targetID string) error {
	donor, err := g.Get(donorID)
	if err != nil {
		return err
	}
	target, err := g.Get(targetID)
	if err != nil {
		return err
	}
	if donor.Tpl != target.Tpl {
		return gameerr.InvalidOperation("merge: template mismatch %s != %s", donor.Tpl, target.Tpl)
	}
	donorCount := donor.Count()
	if _, err := g.RemoveItem(donorID, true); err != nil {
		return err
	}
	target.SetCount(target.Count() + donorCount)
	return nil
}

// Transfer shadows Inventory.Transfer for the same footprint reason: a
// source drained to exactly zero leaves the grid through the grid-aware
// removal.
func (g *GridInventory) Transfer(fromID, toID string, count int) error {
	from, err := g.Get(fromID)
	if err != nil {
		return err
	}
	to, err := g.Get(toID)
	if err != nil {
		return err
	}
	if from.Tpl != to.Tpl {
		return gameerr.InvalidOperation("transfer: template mismatch %s != %s", from.Tpl, to.Tpl)
	}
	if count <= 0 || count > from.Count() {
		return gameerr.InvalidOperation("transfer: count %d out of range for stack of %d", count, from.Count())
	}
	if count == from.Count() {
		if _, err := g.RemoveItem(fromID, true); err != nil {
			return err
		}
	} else {
		from.SetCount(from.Count() - count)
	}
	to.SetCount(to.Count() + count)
	return nil
}

// TakeItem shadows Inventory.TakeItem, routing stack removals through the
// grid-aware RemoveItem. Same two-pass contract: sufficiency is checked
// before anything is mutated.
func (g *GridInventory) TakeItem(tpl string, amount int) (TakeResult, error) {
	var res TakeResult
	if amount <= 0 {
		return res, gameerr.InvalidOperation("take %s: amount must be positive", tpl)
	}

	total := 0
	var stacks []*item.Item
	for _, id := range g.order {
		it := g.items[id]
		if it.Tpl != tpl {
			continue
		}
		stacks = append(stacks, it)
		total += it.Count()
		if total >= amount {
			break
		}
	}
	if total < amount {
		return res, gameerr.InvalidOperation("take %s: need %d, have %d", tpl, amount, total)
	}

	remaining := amount
	for _, it := range stacks {
		if remaining >= it.Count() {
			remaining -= it.Count()
			if _, err := g.RemoveItem(it.ID, true); err != nil {
				return res, err
			}
			res.Deleted = append(res.Deleted, it.ID)
			continue
		}
		it.SetCount(it.Count() - remaining)
		remaining = 0
		res.Changed = append(res.Changed, it)
	}
	return res, nil
}
