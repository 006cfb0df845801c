package dispatch

import (
	"encoding/json"

	"jetgo.dev/internal/game/gameerr"
	"jetgo.dev/internal/game/item"
)

// Action tags. The set is closed: an unrecognized tag fails the whole batch.
const (
	ActMove            = "Move"
	ActSplit           = "Split"
	ActMerge           = "Merge"
	ActTransfer        = "Transfer"
	ActFold            = "Fold"
	ActRemove          = "Remove"
	ActApplyChanges    = "ApplyInventoryChanges"
	ActInsure          = "Insure"
	ActRepair          = "Repair"
	ActTradingConfirm  = "TradingConfirm"
	ActHideoutUpgrade  = "HideoutUpgrade"
	ActProductionStart = "HideoutSingleProductionStart"
	ActTakeProduction  = "HideoutTakeProduction"
	ActQuestAccept     = "QuestAccept"
	ActQuestComplete   = "QuestComplete"
	ActRagfairAdd      = "RagfairAddOffer"
)

// Destination names where an item goes: the container item, a slot on it,
// and for grid slots an explicit cell.
type Destination struct {
	ID        string         `json:"id"`
	Container string         `json:"container"`
	Location  *item.Location `json:"location,omitempty"`
}

// Owner points a Move at a donor inventory other than the player's own.
type Owner struct {
	ID   string `json:"id"`
	Type string `json:"type"` // "Mail" for dialog attachments
}

type MoveAction struct {
	Item      string      `json:"item"`
	To        Destination `json:"to"`
	FromOwner *Owner      `json:"fromOwner,omitempty"`
}

type SplitAction struct {
	Item      string      `json:"item"`
	Container Destination `json:"container"`
	Count     int         `json:"count"`
}

type MergeAction struct {
	Item string `json:"item"`
	With string `json:"with"`
}

type TransferAction struct {
	Item  string `json:"item"`
	With  string `json:"with"`
	Count int    `json:"count"`
}

type FoldAction struct {
	Item  string `json:"item"`
	Value bool   `json:"value"`
}

type RemoveAction struct {
	Item string `json:"item"`
}

type ApplyChangesAction struct {
	ChangedItems []item.Item `json:"changedItems,omitempty"`
	DeletedItems []ItemRef   `json:"deletedItems,omitempty"`
}

type ItemRef struct {
	ID string `json:"_id"`
}

type InsureAction struct {
	TraderID string   `json:"tid"`
	Items    []string `json:"items"`
}

type RepairAction struct {
	TraderID string       `json:"tid"`
	Items    []RepairLine `json:"repairItems"`
}

type RepairLine struct {
	ID    string  `json:"_id"`
	Count float64 `json:"count"`
}

// TradingConfirmAction covers both directions; Kind selects.
type TradingConfirmAction struct {
	Kind     string     `json:"type"` // "buy_from_trader" or "sell_to_trader"
	TraderID string     `json:"tid"`
	ItemID   string     `json:"item_id,omitempty"` // assort item to buy
	Count    int        `json:"count,omitempty"`
	Items    []SellLine `json:"items,omitempty"` // stacks to sell
}

type SellLine struct {
	ID string `json:"id"`
}

type HideoutUpgradeAction struct {
	AreaType int `json:"areaType"`
}

type ProductionStartAction struct {
	RecipeID string `json:"recipeId"`
}

type TakeProductionAction struct {
	RecipeID string `json:"recipeId"`
}

type QuestAcceptAction struct {
	QuestID string `json:"qid"`
}

type QuestCompleteAction struct {
	QuestID string `json:"qid"`
}

type RagfairAddAction struct {
	Items []string `json:"items"`
}

// decodeTag peeks the Action discriminator without binding the payload.
func decodeTag(raw json.RawMessage) (string, error) {
	var head struct {
		Action string `json:"Action"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", gameerr.InvalidOperation("action: %v", err)
	}
	if head.Action == "" {
		return "", gameerr.Unimplemented("action without a tag")
	}
	return head.Action, nil
}

func decodePayload(raw json.RawMessage, tag string, into any) error {
	if err := json.Unmarshal(raw, into); err != nil {
		return gameerr.InvalidOperation("action %s: %v", tag, err)
	}
	return nil
}
