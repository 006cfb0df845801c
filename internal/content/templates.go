package content

// ItemTemplate is the immutable content-database definition of an item type.
// Every live item references exactly one template by id.
type ItemTemplate struct {
	ID     string        `json:"id"`
	Name   string        `json:"name,omitempty"`
	Parent string        `json:"parent,omitempty"`
	Props  TemplateProps `json:"props"`
}

type TemplateProps struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	StackMaxSize       int  `json:"stack_max_size,omitempty"`
	MergesWithChildren bool `json:"merges_with_children,omitempty"`

	ExtraSize ExtraSize `json:"extra_size,omitempty"`

	Foldable        bool   `json:"foldable,omitempty"`
	FoldedSlot      string `json:"folded_slot,omitempty"`
	SizeReduceRight int    `json:"size_reduce_right,omitempty"`

	Grids      []GridDef     `json:"grids,omitempty"`
	Cartridges *CartridgeDef `json:"cartridges,omitempty"`
	Slots      []SlotDef     `json:"slots,omitempty"`

	Caliber    string         `json:"caliber,omitempty"`
	StackSlots []StackSlotDef `json:"stack_slots,omitempty"`

	Durability    int `json:"durability,omitempty"`
	MaxDurability int `json:"max_durability,omitempty"`
	MaxResource   int `json:"max_resource,omitempty"`
	MaxHpResource int `json:"max_hp_resource,omitempty"`

	CreditsPrice     int  `json:"credits_price,omitempty"`
	CanSellOnRagfair bool `json:"can_sell_on_ragfair,omitempty"`

	ConflictingItems []string `json:"conflicting_items,omitempty"`

	InsuranceDisabled bool `json:"insurance_disabled,omitempty"`
}

// ExtraSize is the footprint contribution an attached item adds to its host.
// ForceAdd contributions sum across children; the rest merge componentwise max.
type ExtraSize struct {
	Left     int  `json:"left,omitempty"`
	Right    int  `json:"right,omitempty"`
	Up       int  `json:"up,omitempty"`
	Down     int  `json:"down,omitempty"`
	ForceAdd bool `json:"force_add,omitempty"`
}

func (e ExtraSize) IsZero() bool {
	return e.Left == 0 && e.Right == 0 && e.Up == 0 && e.Down == 0
}

// GridDef describes one grid compartment of a container template.
type GridDef struct {
	ID     string   `json:"id"`
	CellsH int      `json:"cells_h"`
	CellsV int      `json:"cells_v"`
	Filter []string `json:"filter,omitempty"`
}

// CartridgeDef describes a magazine's ammo well.
type CartridgeDef struct {
	ID       string   `json:"id"`
	Capacity int      `json:"capacity"`
	Filter   []string `json:"filter,omitempty"`
}

// SlotDef is a named attachment slot (mod_stock, mod_scope, ...).
type SlotDef struct {
	ID     string   `json:"id"`
	Filter []string `json:"filter,omitempty"`
}

// StackSlotDef seeds ammo-box templates with their packed ammo stacks.
type StackSlotDef struct {
	Count   int    `json:"count"`
	AmmoTpl string `json:"ammo_tpl"`
}

// HasGrids reports whether the template is a grid container.
func (t ItemTemplate) HasGrids() bool { return len(t.Props.Grids) > 0 }

// HasCartridges reports whether the template is a magazine.
func (t ItemTemplate) HasCartridges() bool { return t.Props.Cartridges != nil }

func (t ItemTemplate) StackMax() int {
	if t.Props.StackMaxSize <= 0 {
		return 1
	}
	return t.Props.StackMaxSize
}
