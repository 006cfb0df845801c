// Package tuning loads the operator-editable knobs from tuning.yaml.
package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"jetgo.dev/internal/game/trading"
)

type Tuning struct {
	Trading Trading `yaml:"trading"`
	Profile Profile `yaml:"profile"`
	Data    Data    `yaml:"data"`
}

type Trading struct {
	// Markdown applied to a non-sellable child's credits price when a parent
	// is sold, in permille.
	ChildMarkdownPermille int `yaml:"child_markdown_permille"`

	FenceWindowSeconds int `yaml:"fence_window_seconds"`
	FenceSize          int `yaml:"fence_size"`
}

// Profile describes the bootstrap for ids the store has never seen. With an
// empty StashTpl unknown profiles are rejected instead of created.
type Profile struct {
	StashTpl     string `yaml:"stash_tpl"`
	StarterTpl   string `yaml:"starter_tpl"`
	StarterCount int    `yaml:"starter_count"`
}

type Data struct {
	Dir string `yaml:"dir"`
}

func Default() Tuning {
	return Tuning{
		Trading: Trading{
			ChildMarkdownPermille: 850,
			FenceWindowSeconds:    1800,
			FenceSize:             40,
		},
		Data: Data{Dir: "data"},
	}
}

func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// TradingConfig shapes the yaml knobs into the trading service's config.
func (t Tuning) TradingConfig() trading.Config {
	return trading.Config{
		ChildMarkdownPermille: t.Trading.ChildMarkdownPermille,
		FenceWindow:           time.Duration(t.Trading.FenceWindowSeconds) * time.Second,
		FenceSize:             t.Trading.FenceSize,
	}
}
