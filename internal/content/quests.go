package content

import (
	"encoding/json"
	"fmt"
	"os"
)

// QuestCatalog holds the static quest definitions. Progress lives on the
// profile; this is only the shared, read-only side.
type QuestCatalog struct {
	Defs   map[string]QuestDef
	Digest string
}

type QuestDef struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	TraderID string        `json:"trader_id,omitempty"`
	Rewards  []QuestReward `json:"rewards,omitempty"`
}

type QuestReward struct {
	Tpl   string `json:"_tpl"`
	Count int    `json:"count"`
}

func loadQuests(path string, out *QuestCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			out.Defs = map[string]QuestDef{}
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []QuestDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("quests.json: %w", err)
	}
	out.Defs = map[string]QuestDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("quests.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("quests.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}
	return nil
}
