// Package inventory implements the shared inventory abstraction: read-only
// forest traversal, the mutating stack operations, and the grid semantics
// layered on top for stash-backed inventories. All operations are scoped to
// the inventory they are called on; items never point back at an owner.
package inventory

import (
	"github.com/google/uuid"

	"jetgo.dev/internal/content"
	"jetgo.dev/internal/game/gameerr"
	"jetgo.dev/internal/game/item"
)

// Inventory is a mutable item forest with deterministic iteration order
// (insertion order, the way profile files list items).
type Inventory struct {
	content *content.Content
	items   map[string]*item.Item
	order   []string
	newID   func() string
}

func New(c *content.Content) *Inventory {
	return &Inventory{
		content: c,
		items:   map[string]*item.Item{},
		newID:   func() string { return uuid.NewString() },
	}
}

func (v *Inventory) Len() int { return len(v.items) }

// Items returns every item in insertion order. The pointers alias live
// inventory state.
func (v *Inventory) Items() []*item.Item {
	out := make([]*item.Item, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, v.items[id])
	}
	return out
}

func (v *Inventory) Has(id string) bool {
	_, ok := v.items[id]
	return ok
}

func (v *Inventory) Get(id string) (*item.Item, error) {
	it, ok := v.items[id]
	if !ok {
		return nil, gameerr.NotFound("item %s", id)
	}
	return it, nil
}

// GetByTpl returns the first item of the given template in iteration order.
func (v *Inventory) GetByTpl(tpl string) (*item.Item, error) {
	for _, id := range v.order {
		if v.items[id].Tpl == tpl {
			return v.items[id], nil
		}
	}
	return nil, gameerr.NotFound("no item of template %s", tpl)
}

// Children returns the direct children of parentID in iteration order.
func (v *Inventory) Children(parentID string) []*item.Item {
	var out []*item.Item
	for _, id := range v.order {
		if v.items[id].ParentID == parentID {
			out = append(out, v.items[id])
		}
	}
	return out
}

// ChildrenRecursive returns every descendant of parentID, depth-first via an
// explicit stack. It re-derives from the current item map each call, so the
// traversal is restartable.
func (v *Inventory) ChildrenRecursive(parentID string) []*item.Item {
	var out []*item.Item
	stack := []string{parentID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		kids := v.Children(cur)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i].ID)
		}
		if cur != parentID {
			out = append(out, v.items[cur])
		}
	}
	return out
}

// AddItem inserts root and its children. Any id already present fails the
// whole call before anything is inserted; there is no silent overwrite.
func (v *Inventory) AddItem(root item.Item, children []item.Item) error {
	if root.ID == "" {
		return gameerr.InvalidOperation("add item: empty id")
	}
	if v.Has(root.ID) {
		return gameerr.InvalidOperation("add item: id %s already present", root.ID)
	}
	seen := map[string]struct{}{root.ID: {}}
	for _, ch := range children {
		if _, dup := seen[ch.ID]; dup || v.Has(ch.ID) {
			return gameerr.InvalidOperation("add item: id %s already present", ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}

	v.insert(root)
	for _, ch := range children {
		v.insert(ch)
	}
	return nil
}

func (v *Inventory) insert(it item.Item) {
	cp := it.Clone()
	v.items[cp.ID] = &cp
	v.order = append(v.order, cp.ID)
}

// RemoveItem deletes id and, unless suppressed, all recursive children.
// It returns the removed ids in removal order.
func (v *Inventory) RemoveItem(id string, removeChildren bool) ([]string, error) {
	if _, err := v.Get(id); err != nil {
		return nil, err
	}
	removed := []string{id}
	if removeChildren {
		for _, ch := range v.ChildrenRecursive(id) {
			removed = append(removed, ch.ID)
		}
	}
	for _, rid := range removed {
		delete(v.items, rid)
	}
	v.compactOrder()
	return removed, nil
}

func (v *Inventory) compactOrder() {
	kept := v.order[:0]
	for _, id := range v.order {
		if _, ok := v.items[id]; ok {
			kept = append(kept, id)
		}
	}
	v.order = kept
}

// Merge folds the donor stack into target. Templates must match; the donor
// is fully removed and target's count grows by the donor's count. On error
// neither item is touched.
func (v *Inventory) Merge(donorID, targetID string) error {
	donor, err := v.Get(donorID)
	if err != nil {
		return err
	}
	target, err := v.Get(targetID)
	if err != nil {
		return err
	}
	if donor.Tpl != target.Tpl {
		return gameerr.InvalidOperation("merge: template mismatch %s != %s", donor.Tpl, target.Tpl)
	}
	target.SetCount(target.Count() + donor.Count())
	_, err = v.RemoveItem(donorID, true)
	return err
}

// Transfer moves count units from one stack to another of the same template.
// A source drained to exactly zero is removed. count must not exceed the
// source stack; callers pre-validate, a violation is rejected up front.
func (v *Inventory) Transfer(fromID, toID string, count int) error {
	from, err := v.Get(fromID)
	if err != nil {
		return err
	}
	to, err := v.Get(toID)
	if err != nil {
		return err
	}
	if from.Tpl != to.Tpl {
		return gameerr.InvalidOperation("transfer: template mismatch %s != %s", from.Tpl, to.Tpl)
	}
	if count <= 0 || count > from.Count() {
		return gameerr.InvalidOperation("transfer: count %d out of range for stack of %d", count, from.Count())
	}
	to.SetCount(to.Count() + count)
	if count == from.Count() {
		_, err := v.RemoveItem(fromID, true)
		return err
	}
	from.SetCount(from.Count() - count)
	return nil
}

// TakeResult lists what TakeItem consumed: stacks removed outright and the
// one stack left partially drained.
type TakeResult struct {
	Deleted []string
	Changed []*item.Item
}

// TakeItem greedily consumes stacks of tpl across the inventory until amount
// is satisfied. Sufficiency is checked before anything is mutated, so an
// insufficient inventory is never left half-drained.
func (v *Inventory) TakeItem(tpl string, amount int) (TakeResult, error) {
	var res TakeResult
	if amount <= 0 {
		return res, gameerr.InvalidOperation("take %s: amount must be positive", tpl)
	}

	// Pass one: plan.
	total := 0
	var stacks []*item.Item
	for _, id := range v.order {
		it := v.items[id]
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

	// Pass two: commit.
	remaining := amount
	for _, it := range stacks {
		if remaining >= it.Count() {
			remaining -= it.Count()
			if _, err := v.RemoveItem(it.ID, true); err != nil {
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

// CountOf sums the stack counts of every item of tpl.
func (v *Inventory) CountOf(tpl string) int {
	total := 0
	for _, id := range v.order {
		if v.items[id].Tpl == tpl {
			total += v.items[id].Count()
		}
	}
	return total
}
