// Package dispatch routes one batch of tagged actions against one opened
// profile. Actions run sequentially; a later action sees the effects of all
// earlier ones. Any error aborts the batch so the caller skips persistence
// and the whole batch vanishes with the discarded profile copy.
package dispatch

import (
	"encoding/json"
	"log"

	"jetgo.dev/internal/content"
	"jetgo.dev/internal/game/gameerr"
	"jetgo.dev/internal/game/hideout"
	"jetgo.dev/internal/game/inventory"
	"jetgo.dev/internal/game/item"
	"jetgo.dev/internal/game/profile"
	"jetgo.dev/internal/game/quest"
	"jetgo.dev/internal/game/trading"
	"jetgo.dev/internal/protocol"
)

type Dispatcher struct {
	content *content.Content
	factory *item.Factory
	trading *trading.Service
	hideout *hideout.Service
	quests  *quest.Service
	logger  *log.Logger
}

func New(c *content.Content, f *item.Factory, t *trading.Service, h *hideout.Service, q *quest.Service, logger *log.Logger) *Dispatcher {
	return &Dispatcher{content: c, factory: f, trading: t, hideout: h, quests: q, logger: logger}
}

// batch is the per-request working set: the profile, its grid inventory
// rebuilt from the stored item forest, and the three response buckets.
type batch struct {
	st  *profile.State
	inv *inventory.GridInventory

	newViews     []protocol.ItemView
	changedViews []protocol.ItemView
	deletedIDs   []string
	newIdx       map[string]int
	changedIdx   map[string]int
	deletedSet   map[string]struct{}
}

// dispatchFn is one specialized dispatcher: it reports whether it recognized
// the tag, and the action's outcome when it did.
type dispatchFn func(b *batch, tag string, raw json.RawMessage) (bool, error)

// Apply runs the batch against st. On success the inventory forest is written
// back to the profile and the response buckets are returned; on error the
// profile is left to the caller to discard.
func (d *Dispatcher) Apply(st *profile.State, actions []json.RawMessage) (protocol.ProfileChanges, error) {
	var none protocol.ProfileChanges

	inv, err := d.openInventory(st)
	if err != nil {
		return none, err
	}
	b := &batch{
		st:         st,
		inv:        inv,
		newIdx:     map[string]int{},
		changedIdx: map[string]int{},
		deletedSet: map[string]struct{}{},
	}

	// Fixed priority order: inventory, hideout, trading, quest, flea.
	chain := []dispatchFn{
		d.inventoryDispatch,
		d.hideoutDispatch,
		d.tradingDispatch,
		d.questDispatch,
		d.fleaDispatch,
	}

	for n, raw := range actions {
		tag, err := decodeTag(raw)
		if err != nil {
			return none, err
		}
		handled := false
		for _, fn := range chain {
			ok, err := fn(b, tag, raw)
			if err != nil {
				if d.logger != nil {
					d.logger.Printf("profile %s action %d (%s): %v", st.ID, n, tag, err)
				}
				return none, err
			}
			if ok {
				handled = true
				break
			}
		}
		if !handled {
			return none, gameerr.Unimplemented("action %s is not recognized", tag)
		}
	}

	d.closeInventory(st, inv)
	return b.changes(), nil
}

// openInventory rebuilds the grid inventory from the stored forest. The
// stash root anchors the grid; every other item rides along.
func (d *Dispatcher) openInventory(st *profile.State) (*inventory.GridInventory, error) {
	var root *item.Item
	rest := make([]item.Item, 0, len(st.Inventory.Items))
	for n := range st.Inventory.Items {
		if st.Inventory.Items[n].ID == st.Inventory.StashRoot {
			root = &st.Inventory.Items[n]
			continue
		}
		rest = append(rest, st.Inventory.Items[n])
	}
	if root == nil {
		return nil, gameerr.NotFound("profile %s: stash root %s", st.ID, st.Inventory.StashRoot)
	}
	return inventory.NewGrid(d.content, *root, rest)
}

// closeInventory writes the (possibly mutated) forest back as one unit.
func (d *Dispatcher) closeInventory(st *profile.State, inv *inventory.GridInventory) {
	live := inv.Items()
	items := make([]item.Item, 0, len(live))
	for _, it := range live {
		items = append(items, it.Clone())
	}
	st.Inventory.Items = items
}

func viewOf(it *item.Item) protocol.ItemView {
	v := protocol.ItemView{
		ID:       it.ID,
		Tpl:      it.Tpl,
		ParentID: it.ParentID,
		SlotID:   it.SlotID,
	}
	if it.Location != nil {
		v.Location, _ = json.Marshal(it.Location)
	}
	if it.Upd != (item.Upd{}) {
		v.Upd, _ = json.Marshal(it.Upd)
	}
	return v
}

// recordNew/recordChanged capture the item state at record time; a later
// action touching the same id overwrites the earlier view.
func (b *batch) recordNew(it *item.Item) {
	v := viewOf(it)
	if idx, ok := b.newIdx[it.ID]; ok {
		b.newViews[idx] = v
		return
	}
	b.newIdx[it.ID] = len(b.newViews)
	b.newViews = append(b.newViews, v)
	delete(b.deletedSet, it.ID)
}

func (b *batch) recordChanged(it *item.Item) {
	if _, isNew := b.newIdx[it.ID]; isNew {
		b.recordNew(it)
		return
	}
	v := viewOf(it)
	if idx, ok := b.changedIdx[it.ID]; ok {
		b.changedViews[idx] = v
		return
	}
	b.changedIdx[it.ID] = len(b.changedViews)
	b.changedViews = append(b.changedViews, v)
}

func (b *batch) recordDeleted(ids ...string) {
	for _, id := range ids {
		if _, dup := b.deletedSet[id]; dup {
			continue
		}
		b.deletedSet[id] = struct{}{}
		b.deletedIDs = append(b.deletedIDs, id)
	}
}

// changes assembles the response buckets. An id that ended up deleted wins
// over earlier new/changed records of the same id.
func (b *batch) changes() protocol.ProfileChanges {
	out := protocol.ProfileChanges{
		New:     make([]protocol.ItemView, 0, len(b.newViews)),
		Changed: make([]protocol.ItemView, 0, len(b.changedViews)),
		Deleted: make([]protocol.ItemRef, 0, len(b.deletedIDs)),
	}
	for _, v := range b.newViews {
		if _, gone := b.deletedSet[v.ID]; gone {
			continue
		}
		out.New = append(out.New, v)
	}
	for _, v := range b.changedViews {
		if _, gone := b.deletedSet[v.ID]; gone {
			continue
		}
		if _, isNew := b.newIdx[v.ID]; isNew {
			continue
		}
		out.Changed = append(out.Changed, v)
	}
	for _, id := range b.deletedIDs {
		out.Deleted = append(out.Deleted, protocol.ItemRef{ID: id})
	}
	return out
}

// recordTake maps a TakeItem result into the buckets.
func (b *batch) recordTake(res inventory.TakeResult) {
	b.recordDeleted(res.Deleted...)
	for _, it := range res.Changed {
		b.recordChanged(it)
	}
}

// settleCurrency resolves the trader's settlement currency template.
func (d *Dispatcher) settleCurrency(traderID string) (string, error) {
	t, err := d.trading.Trader(traderID)
	if err != nil {
		return "", err
	}
	cur, ok := d.content.Currencies.Defs[t.Base.Currency]
	if !ok {
		return "", gameerr.NotFound("currency %s", t.Base.Currency)
	}
	return cur.Tpl, nil
}
