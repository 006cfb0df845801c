package dispatch

import (
	"encoding/json"
	"math"

	"jetgo.dev/internal/game/gameerr"
	"jetgo.dev/internal/game/profile"
)

func (d *Dispatcher) tradingDispatch(b *batch, tag string, raw json.RawMessage) (bool, error) {
	switch tag {
	case ActTradingConfirm:
		var p TradingConfirmAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		switch p.Kind {
		case "buy_from_trader":
			return true, d.handleBuy(b, p)
		case "sell_to_trader":
			return true, d.handleSell(b, p)
		default:
			return true, gameerr.InvalidOperation("trading confirm: unknown type %q", p.Kind)
		}
	case ActInsure:
		var p InsureAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		return true, d.handleInsure(b, p)
	case ActRepair:
		var p RepairAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		return true, d.handleRepair(b, p)
	}
	return false, nil
}

// handleBuy pays the barter price and places fresh-id copies of the catalog
// item into the stash. Payment is drained first so a failed payment never
// leaves purchased items behind; a failed placement aborts the batch and the
// profile copy with it.
func (d *Dispatcher) handleBuy(b *batch, p TradingConfirmAction) error {
	count := p.Count
	if count <= 0 {
		count = 1
	}

	scheme, err := d.trading.BarterFor(p.TraderID, p.ItemID)
	if err != nil {
		return err
	}
	if len(scheme) == 0 {
		return gameerr.NotFound("trader %s: no price for %s", p.TraderID, p.ItemID)
	}
	for _, req := range scheme[0] {
		need := int(math.Round(req.Count)) * count
		if need <= 0 {
			continue
		}
		res, err := b.inv.TakeItem(req.Tpl, need)
		if err != nil {
			return err
		}
		b.recordTake(res)
	}

	stacks, err := d.trading.Buy(p.TraderID, p.ItemID, count)
	if err != nil {
		return err
	}
	for _, st := range stacks {
		if err := b.inv.PlaceItem(st.Item, st.Children, nil); err != nil {
			return err
		}
		live, err := b.inv.Get(st.Item.ID)
		if err != nil {
			return err
		}
		b.recordNew(live)
		for _, ch := range st.Children {
			if cl, err := b.inv.Get(ch.ID); err == nil {
				b.recordNew(cl)
			}
		}
	}
	return nil
}

// handleSell removes the sold trees and pays out in the trader's settlement
// currency, bumping the sales sum that drives loyalty.
func (d *Dispatcher) handleSell(b *batch, p TradingConfirmAction) error {
	total := 0
	var curTpl string
	for _, line := range p.Items {
		it, err := b.inv.Get(line.ID)
		if err != nil {
			return err
		}
		children := b.inv.ChildrenRecursive(line.ID)
		amount, cur, err := d.trading.SellPrice(p.TraderID, it, children)
		if err != nil {
			return err
		}
		total += amount
		curTpl = cur

		removed, err := b.inv.RemoveItem(line.ID, true)
		if err != nil {
			return err
		}
		b.recordDeleted(removed...)
	}
	if total <= 0 {
		return nil
	}

	stacks, err := d.factory.CreateItems(curTpl, total)
	if err != nil {
		return err
	}
	for _, st := range stacks {
		if err := b.inv.PlaceItem(st.Item, st.Children, nil); err != nil {
			return err
		}
		live, err := b.inv.Get(st.Item.ID)
		if err != nil {
			return err
		}
		b.recordNew(live)
	}

	if b.st.Traders == nil {
		b.st.Traders = profile.TraderRelations{}
	}
	rel := b.st.Traders[p.TraderID]
	rel.SalesSum += float64(total)
	b.st.Traders[p.TraderID] = rel
	return nil
}

// handleInsure prices every selected item, then deducts the total in one
// atomic take. Insufficient currency mutates nothing.
func (d *Dispatcher) handleInsure(b *batch, p InsureAction) error {
	standing := b.st.Traders.StandingWith(p.TraderID)

	total := 0
	for _, id := range p.Items {
		it, err := b.inv.Get(id)
		if err != nil {
			return err
		}
		premium, err := d.trading.InsurancePremium(p.TraderID, it.Tpl, standing)
		if err != nil {
			return err
		}
		total += premium
	}
	if total <= 0 {
		return nil
	}

	curTpl, err := d.settleCurrency(p.TraderID)
	if err != nil {
		return err
	}
	res, err := b.inv.TakeItem(curTpl, total)
	if err != nil {
		return err
	}
	b.recordTake(res)

	for _, id := range p.Items {
		b.st.Insured = append(b.st.Insured, profile.InsuredItem{TraderID: p.TraderID, ItemID: id})
	}
	return nil
}

// handleRepair adds the requested durability; the sum is not clamped to the
// item's max, matching the emulated behaviour where repeated repairs can
// exceed it.
func (d *Dispatcher) handleRepair(b *batch, p RepairAction) error {
	total := 0
	for _, line := range p.Items {
		it, err := b.inv.Get(line.ID)
		if err != nil {
			return err
		}
		if it.Upd.Durability == nil {
			return gameerr.InvalidOperation("repair %s: item has no durability", line.ID)
		}
		cost, err := d.trading.RepairCost(p.TraderID, it.Tpl, line.Count)
		if err != nil {
			return err
		}
		it.Upd.Durability.Cur += line.Count
		total += cost
		b.recordChanged(it)
	}
	if total <= 0 {
		return nil
	}

	curTpl, err := d.settleCurrency(p.TraderID)
	if err != nil {
		return err
	}
	res, err := b.inv.TakeItem(curTpl, total)
	if err != nil {
		return err
	}
	b.recordTake(res)
	return nil
}
