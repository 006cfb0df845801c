package dispatch

import (
	"encoding/json"

	"jetgo.dev/internal/game/gameerr"
	"jetgo.dev/internal/game/inventory"
	"jetgo.dev/internal/game/item"
)

func (d *Dispatcher) inventoryDispatch(b *batch, tag string, raw json.RawMessage) (bool, error) {
	switch tag {
	case ActMove:
		var p MoveAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		return true, d.handleMove(b, p)
	case ActSplit:
		var p SplitAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		return true, d.handleSplit(b, p)
	case ActMerge:
		var p MergeAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		return true, d.handleMerge(b, p)
	case ActTransfer:
		var p TransferAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		return true, d.handleTransfer(b, p)
	case ActFold:
		var p FoldAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		return true, d.handleFold(b, p)
	case ActRemove:
		var p RemoveAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		return true, d.handleRemove(b, p)
	case ActApplyChanges:
		var p ApplyChangesAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		return true, d.handleApplyChanges(b, p)
	}
	return false, nil
}

func target(dst Destination) inventory.MoveTarget {
	return inventory.MoveTarget{
		Container: dst.ID,
		Slot:      dst.Container,
		Location:  dst.Location,
	}
}

func (d *Dispatcher) handleMove(b *batch, p MoveAction) error {
	if p.FromOwner != nil && p.FromOwner.Type == "Mail" {
		return d.moveFromMail(b, p)
	}
	out, err := b.inv.MoveItem(p.Item, target(p.To))
	if err != nil {
		return err
	}
	if out.MergedInto != nil {
		b.recordDeleted(p.Item)
		b.recordChanged(out.MergedInto)
		return nil
	}
	b.recordNew(out.Item)
	return nil
}

// moveFromMail pulls an attachment tree out of a dialog message into the
// player's inventory. The donor message loses the whole subtree.
func (d *Dispatcher) moveFromMail(b *batch, p MoveAction) error {
	msg, root := b.st.FindAttachment(p.Item)
	if root == nil {
		return gameerr.NotFound("mail attachment %s", p.Item)
	}

	// Collect the subtree inside the message by parent links.
	take := map[string]struct{}{root.ID: {}}
	for {
		grew := false
		for _, it := range msg.Attachments {
			if _, have := take[it.ID]; have {
				continue
			}
			if _, ok := take[it.ParentID]; ok {
				take[it.ID] = struct{}{}
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	moved := root.Clone()
	var children []item.Item
	for _, it := range msg.Attachments {
		if _, ok := take[it.ID]; ok && it.ID != root.ID {
			children = append(children, it.Clone())
		}
	}

	if p.To.ID == b.inv.RootID() {
		if err := b.inv.PlaceItem(moved, children, p.To.Location); err != nil {
			return err
		}
	} else {
		moved.ParentID = p.To.ID
		moved.SlotID = p.To.Container
		moved.Location = p.To.Location
		if !b.inv.Has(p.To.ID) {
			return gameerr.NotFound("move %s: container %s", p.Item, p.To.ID)
		}
		if err := b.inv.AddItem(moved, children); err != nil {
			return err
		}
	}

	kept := msg.Attachments[:0]
	for _, it := range msg.Attachments {
		if _, gone := take[it.ID]; !gone {
			kept = append(kept, it)
		}
	}
	msg.Attachments = kept

	placed, err := b.inv.Get(moved.ID)
	if err != nil {
		return err
	}
	b.recordNew(placed)
	for _, ch := range children {
		if live, err := b.inv.Get(ch.ID); err == nil {
			b.recordNew(live)
		}
	}
	return nil
}

func (d *Dispatcher) handleSplit(b *batch, p SplitAction) error {
	out, err := b.inv.SplitItem(p.Item, target(p.Container), p.Count)
	if err != nil {
		return err
	}
	if out.New != nil {
		b.recordNew(out.New)
	}
	if out.Source != nil {
		b.recordChanged(out.Source)
	}
	if out.MergedInto != nil {
		b.recordChanged(out.MergedInto)
	}
	if out.New == nil && out.Source == nil && out.MergedInto != nil {
		// Donor merged away whole.
		b.recordDeleted(p.Item)
	}
	return nil
}

func (d *Dispatcher) handleMerge(b *batch, p MergeAction) error {
	if err := b.inv.Merge(p.Item, p.With); err != nil {
		return err
	}
	b.recordDeleted(p.Item)
	tgt, err := b.inv.Get(p.With)
	if err != nil {
		return err
	}
	b.recordChanged(tgt)
	return nil
}

// handleTransfer reports both stacks changed, never deleted, even when the
// source drains to exactly zero. Only explicit remove/merge report deletion.
func (d *Dispatcher) handleTransfer(b *batch, p TransferAction) error {
	src, err := b.inv.Get(p.Item)
	if err != nil {
		return err
	}
	srcSnap := src.Clone()
	if err := b.inv.Transfer(p.Item, p.With, p.Count); err != nil {
		return err
	}
	if live, err := b.inv.Get(p.Item); err == nil {
		b.recordChanged(live)
	} else {
		srcSnap.SetCount(0)
		b.recordChanged(&srcSnap)
	}
	tgt, err := b.inv.Get(p.With)
	if err != nil {
		return err
	}
	b.recordChanged(tgt)
	return nil
}

func (d *Dispatcher) handleFold(b *batch, p FoldAction) error {
	if err := b.inv.Fold(p.Item, p.Value); err != nil {
		return err
	}
	it, err := b.inv.Get(p.Item)
	if err != nil {
		return err
	}
	b.recordChanged(it)
	return nil
}

func (d *Dispatcher) handleRemove(b *batch, p RemoveAction) error {
	removed, err := b.inv.RemoveItem(p.Item, true)
	if err != nil {
		return err
	}
	b.recordDeleted(removed...)
	return nil
}

// handleApplyChanges bulk-replaces items in place (children preserved) and
// bulk-deletes others. Client-authoritative corrections.
func (d *Dispatcher) handleApplyChanges(b *batch, p ApplyChangesAction) error {
	for _, ci := range p.ChangedItems {
		if !b.inv.Has(ci.ID) {
			return gameerr.NotFound("apply changes: item %s", ci.ID)
		}
		var children []item.Item
		for _, ch := range b.inv.ChildrenRecursive(ci.ID) {
			children = append(children, ch.Clone())
		}
		if _, err := b.inv.RemoveItem(ci.ID, true); err != nil {
			return err
		}
		if err := b.inv.AddItem(ci, children); err != nil {
			return err
		}
		live, err := b.inv.Get(ci.ID)
		if err != nil {
			return err
		}
		b.recordChanged(live)
	}
	for _, ref := range p.DeletedItems {
		removed, err := b.inv.RemoveItem(ref.ID, true)
		if err != nil {
			return err
		}
		b.recordDeleted(removed...)
	}
	return nil
}
