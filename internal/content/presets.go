package content

import (
	"encoding/json"
	"fmt"
	"os"
)

// Preset is a pre-assembled item tree (a weapon with its default mods).
// Items[0] is the root; child ParentIDs reference ids inside the preset only.
type Preset struct {
	ID    string    `json:"id"`
	Tpl   string    `json:"tpl"`
	Items []RawItem `json:"items"`
}

// RawItem is the catalog-side item shape shared by presets and trader
// assortments. It is mapped into a live item (with fresh ids) on acquire.
type RawItem struct {
	ID       string          `json:"_id"`
	Tpl      string          `json:"_tpl"`
	ParentID string          `json:"parentId,omitempty"`
	SlotID   string          `json:"slotId,omitempty"`
	Location json.RawMessage `json:"location,omitempty"`
	Upd      *RawUpd         `json:"upd,omitempty"`
}

type RawUpd struct {
	StackCount        int  `json:"stack_count,omitempty"`
	BuyRestrictionMax int  `json:"buy_restriction_max,omitempty"`
	UnlimitedCount    bool `json:"unlimited_count,omitempty"`
}

type PresetCatalog struct {
	ByID   map[string]Preset
	ByTpl  map[string]Preset
	Digest string
}

func loadPresets(path string, out *PresetCatalog) error {
	out.ByID = map[string]Preset{}
	out.ByTpl = map[string]Preset{}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []Preset
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("presets.json: %w", err)
	}
	for _, p := range defs {
		if p.ID == "" || len(p.Items) == 0 {
			return fmt.Errorf("presets.json: preset missing id or items")
		}
		if p.Tpl == "" {
			p.Tpl = p.Items[0].Tpl
		}
		if p.Items[0].Tpl != p.Tpl {
			return fmt.Errorf("preset %s: root item tpl %s != preset tpl %s", p.ID, p.Items[0].Tpl, p.Tpl)
		}
		out.ByID[p.ID] = p
		// First preset registered for a template wins; content ships the
		// default preset first.
		if _, ok := out.ByTpl[p.Tpl]; !ok {
			out.ByTpl[p.Tpl] = p
		}
	}
	return nil
}
