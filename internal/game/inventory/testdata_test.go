package inventory

import (
	"fmt"
	"testing"

	"jetgo.dev/internal/content"
	"jetgo.dev/internal/game/item"
)

// Template ids used across the inventory tests.
const (
	tplStash   = "tpl_stash"
	tplUnit    = "tpl_unit"
	tplBox     = "tpl_box_2x2"
	tplRouble  = "tpl_rouble"
	tplAmmo    = "tpl_ammo_9x19"
	tplAmmoAlt = "tpl_ammo_9x18"
	tplMag     = "tpl_mag_9x19"
	tplRifle   = "tpl_rifle"
	tplStock   = "tpl_folding_stock"
	tplScope   = "tpl_scope"
)

func testContent(stashW, stashH int) *content.Content {
	defs := map[string]content.ItemTemplate{
		tplStash: {ID: tplStash, Props: content.TemplateProps{
			Grids: []content.GridDef{{ID: "hideout", CellsH: stashW, CellsV: stashH}},
		}},
		tplUnit: {ID: tplUnit, Props: content.TemplateProps{Width: 1, Height: 1}},
		tplBox:  {ID: tplBox, Props: content.TemplateProps{Width: 2, Height: 2}},
		tplRouble: {ID: tplRouble, Props: content.TemplateProps{
			Width: 1, Height: 1, StackMaxSize: 500, CreditsPrice: 1,
		}},
		tplAmmo: {ID: tplAmmo, Props: content.TemplateProps{
			Width: 1, Height: 1, StackMaxSize: 50, Caliber: "9x19",
		}},
		tplAmmoAlt: {ID: tplAmmoAlt, Props: content.TemplateProps{
			Width: 1, Height: 1, StackMaxSize: 50, Caliber: "9x18",
		}},
		tplMag: {ID: tplMag, Props: content.TemplateProps{
			Width: 1, Height: 1,
			Cartridges: &content.CartridgeDef{ID: "cartridges", Capacity: 30, Filter: []string{tplAmmo, tplAmmoAlt}},
		}},
		tplRifle: {ID: tplRifle, Props: content.TemplateProps{
			Width: 4, Height: 1,
			Slots: []content.SlotDef{{ID: "mod_stock"}, {ID: "mod_scope"}},
		}},
		tplStock: {ID: tplStock, Props: content.TemplateProps{
			Width: 1, Height: 1,
			Foldable: true, SizeReduceRight: 1,
			ExtraSize: content.ExtraSize{Right: 1},
		}},
		tplScope: {ID: tplScope, Props: content.TemplateProps{
			Width: 1, Height: 1,
			ExtraSize: content.ExtraSize{Up: 1},
		}},
	}
	return &content.Content{Templates: content.TemplateCatalog{Defs: defs}}
}

var testIDSeq int

func testID(prefix string) string {
	testIDSeq++
	return fmt.Sprintf("%s_%d", prefix, testIDSeq)
}

func newTestGrid(t *testing.T, w, h int) *GridInventory {
	t.Helper()
	root := item.Item{ID: testID("stash"), Tpl: tplStash}
	g, err := NewGrid(testContent(w, h), root, nil)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func mustPlace(t *testing.T, g *GridInventory, tpl string, count int) *item.Item {
	t.Helper()
	it := item.Item{ID: testID("it"), Tpl: tpl}
	if count > 1 {
		it.SetCount(count)
	}
	if err := g.PlaceItem(it, nil, nil); err != nil {
		t.Fatalf("place %s: %v", tpl, err)
	}
	placed, err := g.Get(it.ID)
	if err != nil {
		t.Fatalf("get placed %s: %v", it.ID, err)
	}
	return placed
}
