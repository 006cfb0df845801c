// Package content loads the read-only item/preset/trader catalogs from a
// content directory, once at startup. Catalog maps are never mutated after
// Load; digests identify the loaded revision.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"jetgo.dev/internal/game/gameerr"
)

type Content struct {
	Templates  TemplateCatalog
	Presets    PresetCatalog
	Traders    TraderFiles
	Currencies CurrencyCatalog
	Quests     QuestCatalog
	Hideout    HideoutCatalog
}

type TemplateCatalog struct {
	Defs   map[string]ItemTemplate
	Digest string
}

type CurrencyCatalog struct {
	Defs   map[string]CurrencyDef
	Digest string
}

// CurrencyDef maps a currency item template to its credits exchange ratio.
type CurrencyDef struct {
	Tpl            string  `json:"tpl"`
	Name           string  `json:"name"`
	CreditsPerUnit float64 `json:"credits_per_unit"`
}

func Load(contentDir string) (*Content, error) {
	var c Content

	if err := loadTemplates(filepath.Join(contentDir, "items.json"), &c.Templates); err != nil {
		return nil, err
	}
	if err := loadPresets(filepath.Join(contentDir, "presets.json"), &c.Presets); err != nil {
		return nil, err
	}
	if err := loadCurrencies(filepath.Join(contentDir, "currencies.json"), &c.Currencies); err != nil {
		return nil, err
	}
	if err := loadQuests(filepath.Join(contentDir, "quests.json"), &c.Quests); err != nil {
		return nil, err
	}
	if err := loadHideout(filepath.Join(contentDir, "hideout.json"), &c.Hideout); err != nil {
		return nil, err
	}
	if err := loadTraders(filepath.Join(contentDir, "traders"), &c.Traders); err != nil {
		return nil, err
	}
	return &c, nil
}

// Template resolves an item template by id.
func (c *Content) Template(id string) (ItemTemplate, error) {
	t, ok := c.Templates.Defs[id]
	if !ok {
		return ItemTemplate{}, gameerr.NotFound("template %s", id)
	}
	return t, nil
}

// Category resolves the top-level category a template sells/displays under:
// the last ancestor in the parent chain before the (empty) root.
func (c *Content) Category(tpl string) (ItemTemplate, error) {
	cur, err := c.Template(tpl)
	if err != nil {
		return ItemTemplate{}, err
	}
	for cur.Parent != "" {
		parent, ok := c.Templates.Defs[cur.Parent]
		if !ok {
			return ItemTemplate{}, gameerr.NotFound("template %s: parent %s", cur.ID, cur.Parent)
		}
		cur = parent
	}
	return cur, nil
}

// WalkTemplateChildren visits id's template plus every template in its
// category subtree (templates whose Parent chain reaches id), depth-first.
// The walk is restartable: it derives only from the immutable catalog map.
// fn returning false stops the walk.
func (c *Content) WalkTemplateChildren(id string, fn func(ItemTemplate) bool) error {
	root, err := c.Template(id)
	if err != nil {
		return err
	}
	children := make(map[string][]string, len(c.Templates.Defs))
	for _, t := range c.Templates.Defs {
		if t.Parent != "" {
			children[t.Parent] = append(children[t.Parent], t.ID)
		}
	}
	for _, ids := range children {
		sort.Strings(ids)
	}

	stack := []string{root.ID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(c.Templates.Defs[cur]) {
			return nil
		}
		kids := children[cur]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return nil
}

// IsOfCategory reports whether tpl descends from (or is) categoryID.
func (c *Content) IsOfCategory(tpl, categoryID string) bool {
	cur, ok := c.Templates.Defs[tpl]
	for ok {
		if cur.ID == categoryID {
			return true
		}
		cur, ok = c.Templates.Defs[cur.Parent]
	}
	return false
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadTemplates(path string, out *TemplateCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ItemTemplate
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemTemplate{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}
	return nil
}

func loadCurrencies(path string, out *CurrencyCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			out.Defs = map[string]CurrencyDef{}
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []CurrencyDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("currencies.json: %w", err)
	}
	out.Defs = map[string]CurrencyDef{}
	for _, d := range defs {
		if d.Name == "" || d.Tpl == "" {
			return fmt.Errorf("currencies.json: entry missing name or tpl")
		}
		out.Defs[d.Name] = d
	}
	return nil
}
