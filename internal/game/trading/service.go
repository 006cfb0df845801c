// Package trading serves per-trader assortments and prices. The service is
// explicitly constructed and injected; the fence resample cache lives on the
// service with its own expiry timestamp instead of in package state.
package trading

import (
	"math"
	"math/rand"
	"time"

	"jetgo.dev/internal/content"
	"jetgo.dev/internal/game/gameerr"
	"jetgo.dev/internal/game/item"
)

// SlotHideout marks root-level assort items: they sit on the trader's own
// stash grid rather than inside another assort item.
const SlotHideout = "hideout"

type Config struct {
	// Markdown applied to a child item's credits price when it is not
	// independently sellable, in permille (850 = 0.85x).
	ChildMarkdownPermille int

	// Fence resample window and assortment size.
	FenceWindow time.Duration
	FenceSize   int
}

func (c Config) withDefaults() Config {
	if c.ChildMarkdownPermille <= 0 {
		c.ChildMarkdownPermille = 850
	}
	if c.FenceWindow <= 0 {
		c.FenceWindow = 30 * time.Minute
	}
	if c.FenceSize <= 0 {
		c.FenceSize = 40
	}
	return c
}

type Service struct {
	content *content.Content
	factory *item.Factory
	cfg     Config

	// Now is the clock used for fence expiry; replaced in tests.
	Now func() time.Time

	rng *rand.Rand

	fence fenceCache
}

type fenceCache struct {
	traderID  string
	items     []content.RawItem
	barter    map[string][][]content.BarterRequirement
	expiresAt time.Time
}

func NewService(c *content.Content, f *item.Factory, cfg Config) *Service {
	return &Service{
		content: c,
		factory: f,
		cfg:     cfg.withDefaults(),
		Now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) Trader(id string) (content.Trader, error) {
	t, ok := s.content.Traders.ByID[id]
	if !ok {
		return content.Trader{}, gameerr.NotFound("trader %s", id)
	}
	return t, nil
}

// VisibleAssort applies the three visibility filters to a trader's full item
// list: quest gates, loyalty gates, then orphan pruning iterated to a fixed
// point (removing one item can orphan another). Root-level items survive
// pruning on their own.
func (s *Service) VisibleAssort(traderID string, loyaltyLevel int, questSuccess map[string]bool) ([]content.RawItem, error) {
	t, err := s.Trader(traderID)
	if err != nil {
		return nil, err
	}

	visible := make(map[string]content.RawItem, len(t.Assort))
	var order []string
	for _, it := range t.Assort {
		if questID, gated := t.QuestAssort[it.ID]; gated && !questSuccess[questID] {
			continue
		}
		if lvl, gated := t.LoyalLevels[it.ID]; gated && loyaltyLevel < lvl {
			continue
		}
		visible[it.ID] = it
		order = append(order, it.ID)
	}

	for {
		dropped := false
		for id, it := range visible {
			if it.SlotID == SlotHideout {
				continue
			}
			if _, ok := visible[it.ParentID]; !ok {
				delete(visible, id)
				dropped = true
			}
		}
		if !dropped {
			break
		}
	}

	out := make([]content.RawItem, 0, len(visible))
	for _, id := range order {
		if it, ok := visible[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// BarterFor looks up the requirement list attached to an assort item.
func (s *Service) BarterFor(traderID, assortItemID string) ([][]content.BarterRequirement, error) {
	t, err := s.Trader(traderID)
	if err != nil {
		return nil, err
	}
	if t.Base.IsFence {
		if _, barter, err := s.FenceAssort(traderID); err == nil {
			if scheme, ok := barter[assortItemID]; ok {
				return scheme, nil
			}
		}
	}
	scheme, ok := t.Barter[assortItemID]
	if !ok {
		return nil, gameerr.NotFound("trader %s: no barter scheme for %s", traderID, assortItemID)
	}
	return scheme, nil
}

// SellPrice values an item tree in the trader's settlement currency: the
// root's credits price plus each child's credits price, marked down when the
// child is not independently sellable, converted by the currency ratio and
// rounded. Returns the amount and the currency item template it is paid in.
func (s *Service) SellPrice(traderID string, it *item.Item, children []*item.Item) (int, string, error) {
	t, err := s.Trader(traderID)
	if err != nil {
		return 0, "", err
	}
	tpl, err := s.content.Template(it.Tpl)
	if err != nil {
		return 0, "", err
	}

	credits := float64(tpl.Props.CreditsPrice * it.Count())
	for _, ch := range children {
		ctpl, err := s.content.Template(ch.Tpl)
		if err != nil {
			return 0, "", err
		}
		p := float64(ctpl.Props.CreditsPrice * ch.Count())
		if !ctpl.Props.CanSellOnRagfair {
			p = p * float64(s.cfg.ChildMarkdownPermille) / 1000
		}
		credits += p
	}

	cur, ok := s.content.Currencies.Defs[t.Base.Currency]
	if !ok {
		return 0, "", gameerr.NotFound("currency %s", t.Base.Currency)
	}
	amount := int(math.Round(credits / cur.CreditsPerUnit))
	return amount, cur.Tpl, nil
}

// Buy deep-copies count units of a catalog item (with its fixed children)
// into fresh-id stacks, splitting across the template stack maximum. The
// catalog itself is never mutated.
func (s *Service) Buy(traderID, assortItemID string, count int) ([]item.ItemWithChildren, error) {
	t, err := s.Trader(traderID)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, gameerr.InvalidOperation("buy: count must be positive")
	}

	var root *content.RawItem
	for n := range t.Assort {
		if t.Assort[n].ID == assortItemID {
			root = &t.Assort[n]
			break
		}
	}
	if root == nil {
		return nil, gameerr.NotFound("trader %s: assort item %s", traderID, assortItemID)
	}
	tpl, err := s.content.Template(root.Tpl)
	if err != nil {
		return nil, err
	}

	tree := assortTree(t.Assort, root.ID)
	max := tpl.StackMax()

	var out []item.ItemWithChildren
	for count > 0 {
		n := count
		if n > max {
			n = max
		}
		items := rawToItems(tree)
		items = s.factory.RegenerateIDs(items)
		stackRoot := items[0]
		stackRoot.ParentID = ""
		stackRoot.SlotID = ""
		stackRoot.Location = nil
		if n > 1 || max > 1 {
			stackRoot.SetCount(n)
		}
		out = append(out, item.ItemWithChildren{Item: stackRoot, Children: items[1:]})
		count -= n
	}
	return out, nil
}

// assortTree collects root plus its descendants from the flat assort list,
// root first.
func assortTree(assort []content.RawItem, rootID string) []content.RawItem {
	var out []content.RawItem
	ids := map[string]struct{}{}
	for _, it := range assort {
		if it.ID == rootID {
			out = append(out, it)
			ids[it.ID] = struct{}{}
			break
		}
	}
	for {
		grew := false
		for _, it := range assort {
			if _, have := ids[it.ID]; have {
				continue
			}
			if _, ok := ids[it.ParentID]; ok {
				out = append(out, it)
				ids[it.ID] = struct{}{}
				grew = true
			}
		}
		if !grew {
			break
		}
	}
	return out
}

func rawToItems(raw []content.RawItem) []item.Item {
	out := make([]item.Item, 0, len(raw))
	for _, r := range raw {
		it := item.Item{
			ID:       r.ID,
			Tpl:      r.Tpl,
			ParentID: r.ParentID,
			SlotID:   r.SlotID,
		}
		if r.Upd != nil && r.Upd.StackCount > 1 {
			it.SetCount(r.Upd.StackCount)
		}
		out = append(out, it)
	}
	return out
}

// InsurancePremium prices insuring one item with a trader: a percentage of
// the template credits price, discounted by the player's standing with that
// trader.
func (s *Service) InsurancePremium(traderID, tplID string, standing float64) (int, error) {
	t, err := s.Trader(traderID)
	if err != nil {
		return 0, err
	}
	if !t.Base.Insurance.Available {
		return 0, gameerr.InvalidOperation("trader %s does not insure", traderID)
	}
	tpl, err := s.content.Template(tplID)
	if err != nil {
		return 0, err
	}
	if tpl.Props.InsuranceDisabled {
		return 0, gameerr.InvalidOperation("template %s cannot be insured", tplID)
	}

	base := float64(tpl.Props.CreditsPrice) * float64(t.Base.Insurance.PricePercent) / 100
	discount := standing / 100
	if discount > 0.5 {
		discount = 0.5
	}
	premium := int(math.Round(base * (1 - discount)))
	if premium < 1 {
		premium = 1
	}
	return premium, nil
}

// RepairCost prices restoring points of durability at a trader's rate.
func (s *Service) RepairCost(traderID, tplID string, points float64) (int, error) {
	t, err := s.Trader(traderID)
	if err != nil {
		return 0, err
	}
	if !t.Base.Repair.Available {
		return 0, gameerr.InvalidOperation("trader %s does not repair", traderID)
	}
	if _, err := s.content.Template(tplID); err != nil {
		return 0, err
	}
	perPoint := t.Base.Repair.CostPerPoint
	if perPoint <= 0 {
		perPoint = 1
	}
	cost := points * perPoint * (1 + t.Base.Repair.PriceRate/100)
	n := int(math.Round(cost))
	if n < 1 {
		n = 1
	}
	return n, nil
}

// FenceAssort returns the fence's current time-limited assortment window,
// resampling a random subset of the full catalog with a synthetic
// one-to-one settlement-currency price when the window has expired.
func (s *Service) FenceAssort(traderID string) ([]content.RawItem, map[string][][]content.BarterRequirement, error) {
	t, err := s.Trader(traderID)
	if err != nil {
		return nil, nil, err
	}
	if !t.Base.IsFence {
		return nil, nil, gameerr.InvalidOperation("trader %s is not a fence", traderID)
	}

	now := s.Now()
	if s.fence.traderID == traderID && now.Before(s.fence.expiresAt) {
		return s.fence.items, s.fence.barter, nil
	}

	cur, ok := s.content.Currencies.Defs[t.Base.Currency]
	if !ok {
		return nil, nil, gameerr.NotFound("currency %s", t.Base.Currency)
	}

	var roots []content.RawItem
	for _, it := range t.Assort {
		if it.SlotID == SlotHideout {
			roots = append(roots, it)
		}
	}
	s.rng.Shuffle(len(roots), func(i, j int) { roots[i], roots[j] = roots[j], roots[i] })

	size := t.Base.FenceSize
	if size <= 0 {
		size = s.cfg.FenceSize
	}
	if size > len(roots) {
		size = len(roots)
	}

	var items []content.RawItem
	barter := map[string][][]content.BarterRequirement{}
	for _, root := range roots[:size] {
		tree := assortTree(t.Assort, root.ID)
		items = append(items, tree...)

		credits := 0
		for _, r := range tree {
			tpl, err := s.content.Template(r.Tpl)
			if err != nil {
				return nil, nil, err
			}
			n := 1
			if r.Upd != nil && r.Upd.StackCount > 1 {
				n = r.Upd.StackCount
			}
			credits += tpl.Props.CreditsPrice * n
		}
		price := math.Round(float64(credits) / cur.CreditsPerUnit)
		if price < 1 {
			price = 1
		}
		barter[root.ID] = [][]content.BarterRequirement{{{Count: price, Tpl: cur.Tpl}}}
	}

	s.fence = fenceCache{
		traderID:  traderID,
		items:     items,
		barter:    barter,
		expiresAt: now.Add(s.cfg.FenceWindow),
	}
	return items, barter, nil
}
