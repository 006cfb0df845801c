package content

import (
	"encoding/json"
	"fmt"
	"os"
)

// HideoutCatalog holds the static hideout data: area upgrade ladders and
// production recipes.
type HideoutCatalog struct {
	Areas   map[int]HideoutAreaDef
	Recipes map[string]HideoutRecipeDef
	Digest  string
}

type HideoutAreaDef struct {
	Type   int               `json:"type"`
	Name   string            `json:"name"`
	Levels []HideoutLevelDef `json:"levels"`
}

// HideoutLevelDef describes the step from the previous level to this one.
type HideoutLevelDef struct {
	Requirements     []HideoutRequirement `json:"requirements,omitempty"`
	ConstructionTime int64                `json:"construction_time,omitempty"` // seconds
}

type HideoutRequirement struct {
	Tpl   string `json:"_tpl"`
	Count int    `json:"count"`
}

type HideoutRecipeDef struct {
	ID           string               `json:"id"`
	AreaType     int                  `json:"area_type"`
	AreaLevel    int                  `json:"area_level,omitempty"`
	Requirements []HideoutRequirement `json:"requirements,omitempty"`
	Time         int64                `json:"production_time"` // seconds
	EndProduct   string               `json:"end_product"`
	Count        int                  `json:"count"`
}

func loadHideout(path string, out *HideoutCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			out.Areas = map[int]HideoutAreaDef{}
			out.Recipes = map[string]HideoutRecipeDef{}
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var file struct {
		Areas   []HideoutAreaDef   `json:"areas"`
		Recipes []HideoutRecipeDef `json:"recipes"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("hideout.json: %w", err)
	}

	out.Areas = map[int]HideoutAreaDef{}
	for _, a := range file.Areas {
		if _, dup := out.Areas[a.Type]; dup {
			return fmt.Errorf("hideout.json: duplicate area type %d", a.Type)
		}
		out.Areas[a.Type] = a
	}
	out.Recipes = map[string]HideoutRecipeDef{}
	for _, r := range file.Recipes {
		if r.ID == "" {
			return fmt.Errorf("hideout.json: recipe with empty id")
		}
		if _, dup := out.Recipes[r.ID]; dup {
			return fmt.Errorf("hideout.json: duplicate recipe id %s", r.ID)
		}
		out.Recipes[r.ID] = r
	}
	return nil
}
