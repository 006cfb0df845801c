package dispatch

import "encoding/json"

func (d *Dispatcher) questDispatch(b *batch, tag string, raw json.RawMessage) (bool, error) {
	switch tag {
	case ActQuestAccept:
		var p QuestAcceptAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		return true, d.quests.Accept(&b.st.Quests, p.QuestID)

	case ActQuestComplete:
		var p QuestCompleteAction
		if err := decodePayload(raw, tag, &p); err != nil {
			return true, err
		}
		rewards, err := d.quests.Complete(&b.st.Quests, p.QuestID)
		if err != nil {
			return true, err
		}
		for _, st := range rewards {
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
