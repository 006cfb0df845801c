// Package hideout tracks per-profile area levels and production runs. There
// are no background timers: upgrades and productions carry completion
// timestamps and are settled lazily against the injected clock whenever the
// state is next read.
package hideout

import (
	"time"

	"jetgo.dev/internal/content"
	"jetgo.dev/internal/game/gameerr"
	"jetgo.dev/internal/game/inventory"
	"jetgo.dev/internal/game/item"
)

// AreaState is one built area on a profile. UpgradingUntil is non-zero while
// a construction is running; the level bump lands on the next settle.
type AreaState struct {
	Type           int   `json:"type"`
	Level          int   `json:"level"`
	UpgradingUntil int64 `json:"upgrading_until,omitempty"`
}

// Production is one running recipe. CompletesAt = StartedAt + recipe time.
type Production struct {
	RecipeID    string `json:"recipe_id"`
	StartedAt   int64  `json:"started_at"`
	CompletesAt int64  `json:"completes_at"`
}

// State is the hideout slice of a profile.
type State struct {
	Areas       []AreaState  `json:"areas,omitempty"`
	Productions []Production `json:"productions,omitempty"`
}

func (st *State) area(areaType int) *AreaState {
	for n := range st.Areas {
		if st.Areas[n].Type == areaType {
			return &st.Areas[n]
		}
	}
	return nil
}

func (st *State) production(recipeID string) *Production {
	for n := range st.Productions {
		if st.Productions[n].RecipeID == recipeID {
			return &st.Productions[n]
		}
	}
	return nil
}

// Inventory is the slice of the inventory API the hideout drains
// requirements through. Grid-backed inventories keep their footprints
// consistent via their own TakeItem.
type Inventory interface {
	CountOf(tpl string) int
	TakeItem(tpl string, amount int) (inventory.TakeResult, error)
}

type Service struct {
	content *content.Content
	factory *item.Factory

	// Now is the settlement clock; replaced in tests.
	Now func() time.Time
}

func NewService(c *content.Content, f *item.Factory) *Service {
	return &Service{content: c, factory: f, Now: time.Now}
}

func (s *Service) recipe(id string) (content.HideoutRecipeDef, error) {
	r, ok := s.content.Hideout.Recipes[id]
	if !ok {
		return content.HideoutRecipeDef{}, gameerr.NotFound("hideout recipe %s", id)
	}
	return r, nil
}

// Settle finishes any expired area constructions. Called on every read of
// the hideout state so levels are correct without a timer.
func (s *Service) Settle(st *State) {
	now := s.Now().Unix()
	for n := range st.Areas {
		a := &st.Areas[n]
		if a.UpgradingUntil != 0 && now >= a.UpgradingUntil {
			a.Level++
			a.UpgradingUntil = 0
		}
	}
}

// takeAll drains every requirement from inv, checking sufficiency for the
// whole list before consuming anything.
func (s *Service) takeAll(inv Inventory, reqs []content.HideoutRequirement) (inventory.TakeResult, error) {
	for _, r := range reqs {
		if inv.CountOf(r.Tpl) < r.Count {
			return inventory.TakeResult{}, gameerr.InvalidOperation("hideout: not enough %s, need %d have %d", r.Tpl, r.Count, inv.CountOf(r.Tpl))
		}
	}
	var total inventory.TakeResult
	for _, r := range reqs {
		res, err := inv.TakeItem(r.Tpl, r.Count)
		if err != nil {
			return inventory.TakeResult{}, err
		}
		total.Deleted = append(total.Deleted, res.Deleted...)
		total.Changed = append(total.Changed, res.Changed...)
	}
	return total, nil
}

// StartProduction consumes the recipe requirements and registers the run.
func (s *Service) StartProduction(st *State, inv Inventory, recipeID string) (inventory.TakeResult, error) {
	r, err := s.recipe(recipeID)
	if err != nil {
		return inventory.TakeResult{}, err
	}
	s.Settle(st)
	a := st.area(r.AreaType)
	if a == nil || a.Level < r.AreaLevel {
		return inventory.TakeResult{}, gameerr.InvalidOperation("hideout: area %d not at level %d", r.AreaType, r.AreaLevel)
	}
	if st.production(recipeID) != nil {
		return inventory.TakeResult{}, gameerr.InvalidOperation("hideout: recipe %s already running", recipeID)
	}

	taken, err := s.takeAll(inv, r.Requirements)
	if err != nil {
		return inventory.TakeResult{}, err
	}

	now := s.Now().Unix()
	st.Productions = append(st.Productions, Production{
		RecipeID:    recipeID,
		StartedAt:   now,
		CompletesAt: now + r.Time,
	})
	return taken, nil
}

// TakeProduction collects a finished run, minting the product stacks and
// dropping the production entry. Running productions are rejected.
func (s *Service) TakeProduction(st *State, recipeID string) ([]item.ItemWithChildren, error) {
	r, err := s.recipe(recipeID)
	if err != nil {
		return nil, err
	}
	p := st.production(recipeID)
	if p == nil {
		return nil, gameerr.NotFound("hideout: recipe %s is not running", recipeID)
	}
	if s.Now().Unix() < p.CompletesAt {
		return nil, gameerr.InvalidOperation("hideout: recipe %s is still producing", recipeID)
	}

	count := r.Count
	if count <= 0 {
		count = 1
	}
	products, err := s.factory.CreateItems(r.EndProduct, count)
	if err != nil {
		return nil, err
	}

	kept := st.Productions[:0]
	for _, q := range st.Productions {
		if q.RecipeID != recipeID {
			kept = append(kept, q)
		}
	}
	st.Productions = kept
	return products, nil
}

// StartUpgrade drains the next level's requirements and begins construction.
// The level itself lands when the construction time has elapsed.
func (s *Service) StartUpgrade(st *State, inv Inventory, areaType int) (inventory.TakeResult, error) {
	def, ok := s.content.Hideout.Areas[areaType]
	if !ok {
		return inventory.TakeResult{}, gameerr.NotFound("hideout area %d", areaType)
	}
	s.Settle(st)

	a := st.area(areaType)
	if a == nil {
		st.Areas = append(st.Areas, AreaState{Type: areaType})
		a = &st.Areas[len(st.Areas)-1]
	}
	if a.UpgradingUntil != 0 {
		return inventory.TakeResult{}, gameerr.InvalidOperation("hideout: area %d already upgrading", areaType)
	}
	if a.Level >= len(def.Levels) {
		return inventory.TakeResult{}, gameerr.InvalidOperation("hideout: area %d already at max level", areaType)
	}
	next := def.Levels[a.Level]

	taken, err := s.takeAll(inv, next.Requirements)
	if err != nil {
		return inventory.TakeResult{}, err
	}
	a.UpgradingUntil = s.Now().Unix() + next.ConstructionTime
	return taken, nil
}
