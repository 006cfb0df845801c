package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// TraderFiles holds the per-trader catalogs: base parameters, the static
// assortment tree, barter schemes, loyalty gates and quest gates.
type TraderFiles struct {
	ByID   map[string]Trader
	Digest string
}

type Trader struct {
	Base        TraderBase
	Assort      []RawItem
	Barter      map[string][][]BarterRequirement
	LoyalLevels map[string]int
	QuestAssort map[string]string // assort item id -> quest id that must be Success
}

type TraderBase struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"` // settlement currency name, e.g. "RUB"

	Insurance TraderInsurance `json:"insurance,omitempty"`
	Repair    TraderRepair    `json:"repair,omitempty"`

	LoyaltyLevels []LoyaltyLevel `json:"loyalty_levels,omitempty"`

	// Fence-style traders resample their assortment instead of serving it.
	Discount  bool `json:"discount,omitempty"`
	Resupply  bool `json:"resupply,omitempty"`
	IsFence   bool `json:"is_fence,omitempty"`
	FenceSize int  `json:"fence_size,omitempty"`
}

type TraderInsurance struct {
	Available    bool `json:"available,omitempty"`
	PricePercent int  `json:"price_percent,omitempty"`
}

type TraderRepair struct {
	Available    bool     `json:"available,omitempty"`
	PriceRate    float64  `json:"price_rate,omitempty"`
	CostPerPoint float64  `json:"cost_per_point,omitempty"`
	Quality      float64  `json:"quality,omitempty"`
	ExcludedCats []string `json:"excluded_categories,omitempty"`
}

type LoyaltyLevel struct {
	MinLevel    int     `json:"min_level"`
	MinSalesSum float64 `json:"min_sales_sum"`
	MinStanding float64 `json:"min_standing"`
}

type BarterRequirement struct {
	Count float64 `json:"count"`
	Tpl   string  `json:"_tpl"`
}

func loadTraders(dir string, out *TraderFiles) error {
	out.ByID = map[string]Trader{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)

	var concat bytes.Buffer
	for _, id := range ids {
		t, raw, err := loadTrader(filepath.Join(dir, id), id)
		if err != nil {
			return err
		}
		out.ByID[id] = t
		concat.Write(raw)
		concat.WriteByte('\n')
	}
	out.Digest = sha256Hex(concat.Bytes())
	return nil
}

func loadTrader(dir, id string) (Trader, []byte, error) {
	var t Trader
	var concat bytes.Buffer

	baseRaw, err := os.ReadFile(filepath.Join(dir, "base.json"))
	if err != nil {
		return t, nil, fmt.Errorf("trader %s: %w", id, err)
	}
	concat.Write(baseRaw)
	if err := json.Unmarshal(baseRaw, &t.Base); err != nil {
		return t, nil, fmt.Errorf("trader %s base.json: %w", id, err)
	}
	if t.Base.ID == "" {
		t.Base.ID = id
	}
	if t.Base.ID != id {
		return t, nil, fmt.Errorf("trader %s base.json: id mismatch %s", id, t.Base.ID)
	}

	if raw, err := readOptional(filepath.Join(dir, "assort.json")); err != nil {
		return t, nil, fmt.Errorf("trader %s: %w", id, err)
	} else if raw != nil {
		concat.Write(raw)
		if err := json.Unmarshal(raw, &t.Assort); err != nil {
			return t, nil, fmt.Errorf("trader %s assort.json: %w", id, err)
		}
	}

	t.Barter = map[string][][]BarterRequirement{}
	if raw, err := readOptional(filepath.Join(dir, "barter_scheme.json")); err != nil {
		return t, nil, fmt.Errorf("trader %s: %w", id, err)
	} else if raw != nil {
		concat.Write(raw)
		if err := json.Unmarshal(raw, &t.Barter); err != nil {
			return t, nil, fmt.Errorf("trader %s barter_scheme.json: %w", id, err)
		}
	}

	t.LoyalLevels = map[string]int{}
	if raw, err := readOptional(filepath.Join(dir, "loyal_level_items.json")); err != nil {
		return t, nil, fmt.Errorf("trader %s: %w", id, err)
	} else if raw != nil {
		concat.Write(raw)
		if err := json.Unmarshal(raw, &t.LoyalLevels); err != nil {
			return t, nil, fmt.Errorf("trader %s loyal_level_items.json: %w", id, err)
		}
	}

	t.QuestAssort = map[string]string{}
	if raw, err := readOptional(filepath.Join(dir, "quest_assort.json")); err != nil {
		return t, nil, fmt.Errorf("trader %s: %w", id, err)
	} else if raw != nil {
		concat.Write(raw)
		if err := json.Unmarshal(raw, &t.QuestAssort); err != nil {
			return t, nil, fmt.Errorf("trader %s quest_assort.json: %w", id, err)
		}
	}

	return t, concat.Bytes(), nil
}

func readOptional(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}
