package store

import (
	"os"
	"testing"

	"jetgo.dev/internal/game/hideout"
	"jetgo.dev/internal/game/item"
	"jetgo.dev/internal/game/profile"
	"jetgo.dev/internal/game/quest"
)

func sampleState() *profile.State {
	return &profile.State{
		ID: "prof1",
		Inventory: profile.InventoryState{
			StashRoot:     "stash",
			EquipmentRoot: "equip",
			Items: []item.Item{
				{ID: "stash", Tpl: "tpl_stash"},
				{
					ID:       "money1",
					Tpl:      "tpl_roubles",
					ParentID: "stash",
					SlotID:   "hideout",
					Location: &item.Location{Grid: &item.GridLocation{X: 2, Y: 3, R: item.RotationHorizontal}},
					Upd:      item.Upd{StackCount: 500},
				},
			},
		},
		Hideout: hideout.State{
			Areas: []hideout.AreaState{{Type: 6, Level: 1}},
		},
		Quests: quest.Log{
			Entries: []quest.Progress{{QuestID: "q1", Status: quest.StatusStarted, StartedAt: 100}},
		},
		Traders: profile.TraderRelations{
			"trader_therapist": {LoyaltyLevel: 2, Standing: 0.15, SalesSum: 12345},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	want := sampleState()
	if err := s.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.Read("prof1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.ID != want.ID {
		t.Fatalf("ID = %q, want %q", got.ID, want.ID)
	}
	if len(got.Inventory.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(got.Inventory.Items))
	}
	money := got.Inventory.Items[1]
	if money.Upd.StackCount != 500 {
		t.Fatalf("stack = %d, want 500", money.Upd.StackCount)
	}
	if money.Location == nil || money.Location.Grid == nil {
		t.Fatalf("location lost in round trip")
	}
	if money.Location.Grid.X != 2 || money.Location.Grid.R != item.RotationHorizontal {
		t.Fatalf("grid = %+v", *money.Location.Grid)
	}
	if got.Quests.StatusOf("q1") != quest.StatusStarted {
		t.Fatalf("quest status = %q", got.Quests.StatusOf("q1"))
	}
	if got.Traders.LoyaltyWith("trader_therapist") != 2 {
		t.Fatalf("loyalty = %d, want 2", got.Traders.LoyaltyWith("trader_therapist"))
	}
}

func TestWriteReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	st := sampleState()
	if err := s.Write(st); err != nil {
		t.Fatalf("Write: %v", err)
	}
	st.Traders["trader_therapist"] = profile.TraderStanding{LoyaltyLevel: 3}
	if err := s.Write(st); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, err := s.Read("prof1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Traders.LoyaltyWith("trader_therapist") != 3 {
		t.Fatalf("loyalty = %d, want 3", got.Traders.LoyaltyWith("trader_therapist"))
	}

	// no temp litter left behind
	ids, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 1 || ids[0] != "prof1" {
		t.Fatalf("List = %v, want [prof1]", ids)
	}
}

func TestReadMissingProfile(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Read("nobody"); !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestListEmptyDir(t *testing.T) {
	s := New(t.TempDir())
	ids, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("List = %v, want empty", ids)
	}
}

func TestInvalidID(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Write(&profile.State{ID: "../evil"}); err == nil {
		t.Fatalf("Write accepted traversal id")
	}
	if _, err := s.Read(""); err == nil {
		t.Fatalf("Read accepted empty id")
	}
}
