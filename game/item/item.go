package item

import (
	"maps"
	"sort"
	"strings"

	"github.com/kasuganosora/textadventure/server/game/view"
)

// Type is the broad category of an item.
type Type string

const (
	TypeWeapon   Type = "weapon"
	TypeArmor    Type = "armor"
	TypePotion   Type = "potion"
	TypeFood     Type = "food"
	TypeMaterial Type = "material"
	TypeCurrency Type = "currency"
	TypeTreasure Type = "treasure"
	TypeKey      Type = "key"
)

// Types lists every item type in display order.
var Types = []Type{TypeWeapon, TypeArmor, TypePotion, TypeFood, TypeMaterial, TypeCurrency, TypeTreasure, TypeKey}

// Rarity grades an item from common to legendary.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Rarities lists every rarity from lowest to highest.
var Rarities = []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary}

// Item is an immutable value record. It is owned by whichever container
// holds it: a character's inventory or a scene's item list.
type Item struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Type        Type           `json:"type" yaml:"type"`
	Rarity      Rarity         `json:"rarity,omitempty" yaml:"rarity"`
	Value       int            `json:"value" yaml:"value"`
	Effects     map[string]int `json:"effects" yaml:"effects"`
}

// Usable reports whether the item is consumed on use (potions and food).
func (it Item) Usable() bool {
	return it.Type == TypePotion || it.Type == TypeFood
}

// Clone returns a copy that shares no map with the original.
func (it Item) Clone() Item {
	it.Effects = maps.Clone(it.Effects)
	if it.Effects == nil {
		it.Effects = map[string]int{}
	}
	return it
}

// ToView projects the item to a plain map.
func (it Item) ToView() map[string]any {
	effects := maps.Clone(it.Effects)
	if effects == nil {
		effects = map[string]int{}
	}
	v := map[string]any{
		"id":          it.ID,
		"name":        it.Name,
		"description": it.Description,
		"type":        string(it.Type),
		"value":       it.Value,
		"effects":     effects,
	}
	if it.Rarity != "" {
		v["rarity"] = string(it.Rarity)
	}
	return v
}

// FromView rebuilds an item from the map produced by ToView.
func FromView(m map[string]any) (Item, error) {
	var (
		it  Item
		err error
	)
	if it.ID, err = view.String(m, "id"); err != nil {
		return Item{}, err
	}
	if it.Name, err = view.StringOr(m, "name", ""); err != nil {
		return Item{}, err
	}
	if it.Description, err = view.StringOr(m, "description", ""); err != nil {
		return Item{}, err
	}
	typ, err := view.StringOr(m, "type", "")
	if err != nil {
		return Item{}, err
	}
	it.Type = Type(typ)
	rarity, err := view.StringOr(m, "rarity", "")
	if err != nil {
		return Item{}, err
	}
	it.Rarity = Rarity(rarity)
	if it.Value, err = view.IntOr(m, "value", 0); err != nil {
		return Item{}, err
	}
	if it.Effects, err = view.IntMap(m, "effects"); err != nil {
		return Item{}, err
	}
	return it, nil
}

// ViewAll converts a slice of items to views.
func ViewAll(items []Item) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, it := range items {
		out[i] = it.ToView()
	}
	return out
}

func rarityRank(r Rarity) int {
	for i, v := range Rarities {
		if v == r {
			return i
		}
	}
	return -1
}

func typeRank(t Type) int {
	for i, v := range Types {
		if v == t {
			return i
		}
	}
	return -1
}

// Compare orders items by rarity (highest first), then type order, then
// value (highest first). It returns a negative number when a sorts before b.
func Compare(a, b Item) int {
	if c := rarityRank(b.Rarity) - rarityRank(a.Rarity); c != 0 {
		return c
	}
	if c := typeRank(a.Type) - typeRank(b.Type); c != 0 {
		return c
	}
	return b.Value - a.Value
}

// Sort orders items in place using Compare.
func Sort(items []Item) {
	sort.SliceStable(items, func(i, j int) bool { return Compare(items[i], items[j]) < 0 })
}

// Filter selects items from a list. Zero-valued fields do not filter.
type Filter struct {
	Type     Type
	Rarity   Rarity
	MinValue int
	MaxValue int
	Search   string
}

// Match reports whether it passes every set criterion.
func (f Filter) Match(it Item) bool {
	if f.Type != "" && it.Type != f.Type {
		return false
	}
	if f.Rarity != "" && it.Rarity != f.Rarity {
		return false
	}
	if f.MinValue != 0 && it.Value < f.MinValue {
		return false
	}
	if f.MaxValue != 0 && it.Value > f.MaxValue {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// Apply returns the items matching f, preserving order.
func (f Filter) Apply(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}
