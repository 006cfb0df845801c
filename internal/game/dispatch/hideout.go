package dispatch

import "encoding/json"

func (d *Dispatcher) hideoutDispatch(b *batch, tag string, raw json.RawMessage) (bool, error) {
	switch tag {
	case ActHideoutUpgrade:
		var p HideoutUpgradeAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		taken, err := d.hideout.StartUpgrade(&b.st.Hideout, b.inv, p.AreaType)
		if err != nil {
			return true, err
		}
		b.recordTake(taken)
		return true, nil

	case ActProductionStart:
		var p ProductionStartAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		taken, err := d.hideout.StartProduction(&b.st.Hideout, b.inv, p.RecipeID)
		if err != nil {
			return true, err
		}
		b.recordTake(taken)
		return true, nil

	case ActTakeProduction:
		var p TakeProductionAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		products, err := d.hideout.TakeProduction(&b.st.Hideout, p.RecipeID)
		if err != nil {
			return true, err
		}
		for _, st := range products {
			if err := b.inv.PlaceItem(st.Item, st.Children, nil); err != nil {
				return true, err
			}
			live, err := b.inv.Get(st.Item.ID)
			if err != nil {
				return true, err
			}
			b.recordNew(live)
		}
		return true, nil
	}
	return false, nil
}
