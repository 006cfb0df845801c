package dispatch

import (
	"encoding/json"

	"jetgo.dev/internal/game/gameerr"
)

// fleaDispatch handles flea-market listings. Offer pricing and matching live
// outside the core; listing only pulls the stacks out of the inventory,
// splitting oversized stacks down to the template maximum first.
func (d *Dispatcher) fleaDispatch(b *batch, tag string, raw json.RawMessage) (bool, error) {
	if tag != ActRagfairAdd {
		return false, nil
	}
	var p RagfairAddAction
	if err := decodePayload(raw, tag, &p); err != nil {
		return true, err
	}
	if len(p.Items) == 0 {
		return true, gameerr.InvalidOperation("ragfair offer without items")
	}

	for _, id := range p.Items {
		it, err := b.inv.Get(id)
		if err != nil {
			return true, err
		}
		tpl, err := d.content.Template(it.Tpl)
		if err != nil {
			return true, err
		}
		if !tpl.Props.CanSellOnRagfair {
			return true, gameerr.InvalidOperation("item %s (%s) cannot be listed", id, it.Tpl)
		}
		var subtree []string
		for _, ch := range b.inv.ChildrenRecursive(id) {
			subtree = append(subtree, ch.ID)
		}
		if _, err := b.inv.SplitIntoStacks(id); err != nil {
			return true, err
		}
		b.recordDeleted(id)
		b.recordDeleted(subtree...)
	}
	return true, nil
}
