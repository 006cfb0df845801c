package inventory

import (
	"errors"
	"testing"

	"jetgo.dev/internal/game/gameerr"
	"jetgo.dev/internal/game/item"
)

func TestAddItemRejectsDuplicateID(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	it := mustPlace(t, g, tplUnit, 1)

	dup := item.Item{ID: it.ID, Tpl: tplUnit}
	err := g.PlaceItem(dup, nil, nil)
	if !errors.Is(err, gameerr.ErrInvalidOperation) {
		t.Fatalf("expected InvalidOperation on duplicate id, got %v", err)
	}
}

func TestMergeTemplateMismatchLeavesBothUntouched(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	a := mustPlace(t, g, tplAmmo, 10)
	b := mustPlace(t, g, tplAmmoAlt, 20)

	err := g.Merge(a.ID, b.ID)
	if !errors.Is(err, gameerr.ErrInvalidOperation) {
		t.Fatalf("expected InvalidOperation, got %v", err)
	}
	if a.Count() != 10 || b.Count() != 20 {
		t.Fatalf("merge failure mutated stacks: a=%d b=%d", a.Count(), b.Count())
	}
	if !g.Has(a.ID) || !g.Has(b.ID) {
		t.Fatalf("merge failure removed an item")
	}
}

func TestMergeCombinesAndRemovesDonor(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	a := mustPlace(t, g, tplAmmo, 10)
	b := mustPlace(t, g, tplAmmo, 20)

	if err := g.Merge(a.ID, b.ID); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if g.Has(a.ID) {
		t.Fatalf("donor still present after merge")
	}
	if b.Count() != 30 {
		t.Fatalf("expected merged count 30, got %d", b.Count())
	}
	if _, tracked := g.Stash().Footprint(a.ID); tracked {
		t.Fatalf("donor footprint still on stash map")
	}
}

func TestTransferPartialAndDrain(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	from := mustPlace(t, g, tplRouble, 100)
	to := mustPlace(t, g, tplRouble, 50)

	if err := g.Transfer(from.ID, to.ID, 30); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if from.Count() != 70 || to.Count() != 80 {
		t.Fatalf("after partial transfer: from=%d to=%d", from.Count(), to.Count())
	}

	// Draining the source exactly removes it.
	if err := g.Transfer(from.ID, to.ID, 70); err != nil {
		t.Fatalf("Transfer drain: %v", err)
	}
	if g.Has(from.ID) {
		t.Fatalf("drained source still present")
	}
	if to.Count() != 150 {
		t.Fatalf("expected 150, got %d", to.Count())
	}
}

func TestTransferOverdraftRejectedUpFront(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	from := mustPlace(t, g, tplRouble, 10)
	to := mustPlace(t, g, tplRouble, 5)

	err := g.Transfer(from.ID, to.ID, 11)
	if !errors.Is(err, gameerr.ErrInvalidOperation) {
		t.Fatalf("expected InvalidOperation, got %v", err)
	}
	if from.Count() != 10 || to.Count() != 5 {
		t.Fatalf("failed transfer mutated stacks: from=%d to=%d", from.Count(), to.Count())
	}
}

func TestTakeItemSpansStacks(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	a := mustPlace(t, g, tplRouble, 100)
	b := mustPlace(t, g, tplRouble, 100)

	res, err := g.TakeItem(tplRouble, 150)
	if err != nil {
		t.Fatalf("TakeItem: %v", err)
	}
	if len(res.Deleted) != 1 || res.Deleted[0] != a.ID {
		t.Fatalf("expected first stack deleted, got %#v", res.Deleted)
	}
	if len(res.Changed) != 1 || res.Changed[0].ID != b.ID {
		t.Fatalf("expected second stack changed, got %#v", res.Changed)
	}
	if b.Count() != 50 {
		t.Fatalf("expected 50 left, got %d", b.Count())
	}
}

func TestTakeItemInsufficientLeavesInventoryUntouched(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	a := mustPlace(t, g, tplRouble, 100)
	b := mustPlace(t, g, tplRouble, 40)

	_, err := g.TakeItem(tplRouble, 141)
	if !errors.Is(err, gameerr.ErrInvalidOperation) {
		t.Fatalf("expected InvalidOperation, got %v", err)
	}
	if a.Count() != 100 || b.Count() != 40 {
		t.Fatalf("failed take mutated stacks: a=%d b=%d", a.Count(), b.Count())
	}
	if !g.Has(a.ID) || !g.Has(b.ID) {
		t.Fatalf("failed take removed a stack")
	}
}

func TestGetByTplReturnsFirstInOrder(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	a := mustPlace(t, g, tplRouble, 1)
	mustPlace(t, g, tplRouble, 2)

	got, err := g.GetByTpl(tplRouble)
	if err != nil {
		t.Fatalf("GetByTpl: %v", err)
	}
	if got.ID != a.ID {
		t.Fatalf("expected first-placed stack %s, got %s", a.ID, got.ID)
	}

	if _, err := g.GetByTpl("tpl_missing"); !errors.Is(err, gameerr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestChildrenRecursiveDepthFirst(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	rifle := mustPlace(t, g, tplRifle, 1)

	stock := item.Item{ID: testID("stock"), Tpl: tplStock, ParentID: rifle.ID, SlotID: "mod_stock"}
	if err := g.AddItem(stock, nil); err != nil {
		t.Fatalf("add stock: %v", err)
	}
	scope := item.Item{ID: testID("scope"), Tpl: tplScope, ParentID: rifle.ID, SlotID: "mod_scope"}
	if err := g.AddItem(scope, nil); err != nil {
		t.Fatalf("add scope: %v", err)
	}

	kids := g.ChildrenRecursive(rifle.ID)
	if len(kids) != 2 {
		t.Fatalf("expected 2 descendants, got %d", len(kids))
	}
	if kids[0].ID != stock.ID || kids[1].ID != scope.ID {
		t.Fatalf("unexpected traversal order: %s, %s", kids[0].ID, kids[1].ID)
	}
}

func TestRemoveItemKeepChildrenOptIn(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	rifle := mustPlace(t, g, tplRifle, 1)
	scope := item.Item{ID: testID("scope"), Tpl: tplScope, ParentID: rifle.ID, SlotID: "mod_scope"}
	if err := g.AddItem(scope, nil); err != nil {
		t.Fatalf("add scope: %v", err)
	}

	removed, err := g.RemoveItem(rifle.ID, true)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected cascade removal of 2 items, got %v", removed)
	}
	if g.Has(scope.ID) {
		t.Fatalf("child survived cascading removal")
	}
}
