// Package profile bundles everything persisted for one player: inventory
// items, hideout state, quest progress, mail dialogs and trader standings.
// The whole State is one unit of work; its sub-objects are never locked or
// persisted independently.
package profile

import (
	"jetgo.dev/internal/game/hideout"
	"jetgo.dev/internal/game/item"
	"jetgo.dev/internal/game/quest"
)

type State struct {
	ID string `json:"id"`

	Inventory InventoryState  `json:"inventory"`
	Hideout   hideout.State   `json:"hideout"`
	Quests    quest.Log       `json:"quests"`
	Dialogs   []Dialog        `json:"dialogs,omitempty"`
	Traders   TraderRelations `json:"traders,omitempty"`
	Insured   []InsuredItem   `json:"insured,omitempty"`
}

// InsuredItem records one paid insurance contract.
type InsuredItem struct {
	TraderID string `json:"tid"`
	ItemID   string `json:"item_id"`
}

// InventoryState is the flat item forest plus the ids of the two grid roots.
type InventoryState struct {
	Items         []item.Item `json:"items"`
	StashRoot     string      `json:"stash_root"`
	EquipmentRoot string      `json:"equipment_root,omitempty"`
}

// TraderRelations maps trader id to the player's side of the relationship.
type TraderRelations map[string]TraderStanding

type TraderStanding struct {
	LoyaltyLevel int     `json:"loyalty_level"`
	Standing     float64 `json:"standing"`
	SalesSum     float64 `json:"sales_sum"`
}

// LoyaltyWith defaults to level 1 for traders never dealt with.
func (r TraderRelations) LoyaltyWith(traderID string) int {
	if s, ok := r[traderID]; ok && s.LoyaltyLevel > 0 {
		return s.LoyaltyLevel
	}
	return 1
}

func (r TraderRelations) StandingWith(traderID string) float64 {
	return r[traderID].Standing
}

// Dialog is one mail thread. Message attachments are item trees the player
// can move out of, so they form a donor inventory.
type Dialog struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages,omitempty"`
}

type Message struct {
	ID          string      `json:"id"`
	Text        string      `json:"text,omitempty"`
	SentAt      int64       `json:"sent_at"`
	Attachments []item.Item `json:"attachments,omitempty"`
}

// FindAttachment locates an attachment item across all dialogs. It returns
// the holding message so the caller can delete the item from it.
func (s *State) FindAttachment(itemID string) (*Message, *item.Item) {
	for d := range s.Dialogs {
		for m := range s.Dialogs[d].Messages {
			msg := &s.Dialogs[d].Messages[m]
			for n := range msg.Attachments {
				if msg.Attachments[n].ID == itemID {
					return msg, &msg.Attachments[n]
				}
			}
		}
	}
	return nil, nil
}
