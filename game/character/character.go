// Package character implements the progression and combat rules of a
// player character: experience and leveling, damage and death, healing,
// and inventory membership.
//
// A Character is exclusively owned by one caller and is not safe for
// concurrent use; callers serialize operations (see game/session).
package character

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/textadventure/server/game/item"
	"github.com/kasuganosora/textadventure/server/game/view"
)

const (
	// ExpPerLevel is the experience threshold multiplier: a character at
	// level L levels up once experience reaches L*ExpPerLevel.
	ExpPerLevel = 100
	// HealCap is the fixed ceiling applied by Heal. It does not grow with level.
	HealCap = 100
	// ManaCap is the ceiling for mana restored by consumables. It limits the
	// gain only; mana above it from level-ups is kept.
	ManaCap = 50

	LevelUpHealth    = 10
	LevelUpMana      = 5
	LevelUpAttribute = 2
)

// Starting values for a new character.
const (
	DefaultLevel        = 1
	DefaultExperience   = 0
	DefaultHealth       = 100
	DefaultMana         = 50
	DefaultStrength     = 10
	DefaultAgility      = 10
	DefaultIntelligence = 10
)

var (
	// ErrInvalidAmount is returned when an experience, damage or heal
	// amount is negative. The character is left untouched.
	ErrInvalidAmount = errors.New("character: amount must not be negative")
	// ErrItemNotFound is returned when an operation needs an item the
	// inventory does not hold.
	ErrItemNotFound = errors.New("character: item not in inventory")
	// ErrItemNotUsable is returned when using an item that is not a consumable.
	ErrItemNotUsable = errors.New("character: item cannot be used")
)

// Character is the stateful player actor.
type Character struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Level        int         `json:"level"`
	Experience   int         `json:"experience"`
	Health       int         `json:"health"`
	Mana         int         `json:"mana"`
	Strength     int         `json:"strength"`
	Agility      int         `json:"agility"`
	Intelligence int         `json:"intelligence"`
	Inventory    []item.Item `json:"inventory"`
}

// Option overrides a starting value in New.
type Option func(*Character)

// WithLevel sets the starting level.
func WithLevel(v int) Option {
	return func(c *Character) { c.Level = v }
}

// WithExperience sets the starting experience.
func WithExperience(v int) Option {
	return func(c *Character) { c.Experience = v }
}

// WithHealth sets the starting health.
func WithHealth(v int) Option {
	return func(c *Character) { c.Health = v }
}

// WithMana sets the starting mana.
func WithMana(v int) Option {
	return func(c *Character) { c.Mana = v }
}

// WithStrength sets the starting strength.
func WithStrength(v int) Option {
	return func(c *Character) { c.Strength = v }
}

// WithAgility sets the starting agility.
func WithAgility(v int) Option {
	return func(c *Character) { c.Agility = v }
}

// WithIntelligence sets the starting intelligence.
func WithIntelligence(v int) Option {
	return func(c *Character) { c.Intelligence = v }
}

// New creates a character with the default attribute snapshot and an
// empty inventory.
func New(id, name string, opts ...Option) *Character {
	c := &Character{
		ID:           id,
		Name:         name,
		Level:        DefaultLevel,
		Experience:   DefaultExperience,
		Health:       DefaultHealth,
		Mana:         DefaultMana,
		Strength:     DefaultStrength,
		Agility:      DefaultAgility,
		Intelligence: DefaultIntelligence,
		Inventory:    []item.Item{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddExperience adds amount to the character's experience and performs at
// most one level-up. The gate compares against the current level's
// threshold; the carry-over subtracts the threshold of the new level, so
// experience may become negative right after a level-up. It reports
// whether a level-up happened.
func (c *Character) AddExperience(amount int) (bool, error) {
	if amount < 0 {
		return false, ErrInvalidAmount
	}
	c.Experience += amount
	if c.Experience < c.Level*ExpPerLevel {
		return false, nil
	}
	c.Level++
	c.Experience -= c.Level * ExpPerLevel
	c.Health += LevelUpHealth
	c.Mana += LevelUpMana
	c.Strength += LevelUpAttribute
	c.Agility += LevelUpAttribute
	c.Intelligence += LevelUpAttribute
	return true, nil
}

// TakeDamage subtracts amount from health with no floor and reports
// whether the character is now dead (health <= 0).
func (c *Character) TakeDamage(amount int) (bool, error) {
	if amount < 0 {
		return false, ErrInvalidAmount
	}
	c.Health -= amount
	return c.IsDead(), nil
}

// Heal raises health by amount, capped at HealCap. Health above the cap
// (from level-up bonuses) is pulled back down to HealCap.
func (c *Character) Heal(amount int) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	c.Health = min(c.Health+amount, HealCap)
	return nil
}

// IsDead reports whether health is at or below zero.
func (c *Character) IsDead() bool {
	return c.Health <= 0
}

// AddItem appends it to the inventory. Duplicate IDs are allowed.
func (c *Character) AddItem(it item.Item) {
	c.Inventory = append(c.Inventory, it)
}

// RemoveItem rebuilds the inventory without any entry whose ID equals
// itemID and returns how many entries were dropped. Removing an absent
// ID is a no-op.
func (c *Character) RemoveItem(itemID string) int {
	kept := make([]item.Item, 0, len(c.Inventory))
	for _, it := range c.Inventory {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	removed := len(c.Inventory) - len(kept)
	c.Inventory = kept
	return removed
}

// FindItem returns the first inventory entry with the given ID.
func (c *Character) FindItem(itemID string) (item.Item, bool) {
	for _, it := range c.Inventory {
		if it.ID == itemID {
			return it, true
		}
	}
	return item.Item{}, false
}

// HasItem reports whether the inventory holds an entry with itemID.
func (c *Character) HasItem(itemID string) bool {
	_, ok := c.FindItem(itemID)
	return ok
}

// Clone returns a deep copy.
func (c *Character) Clone() *Character {
	cp := *c
	cp.Inventory = make([]item.Item, len(c.Inventory))
	for i, it := range c.Inventory {
		cp.Inventory[i] = it.Clone()
	}
	return &cp
}

// ToView projects the character to a plain map; inventory items are
// projected with item.ToView.
func (c *Character) ToView() map[string]any {
	return map[string]any{
		"id":           c.ID,
		"name":         c.Name,
		"level":        c.Level,
		"experience":   c.Experience,
		"health":       c.Health,
		"mana":         c.Mana,
		"strength":     c.Strength,
		"agility":      c.Agility,
		"intelligence": c.Intelligence,
		"inventory":    item.ViewAll(c.Inventory),
	}
}

// FromView rebuilds a character from a map produced by ToView, including
// one that went through a JSON round trip. Missing attributes take their
// defaults; id is required.
func FromView(m map[string]any) (*Character, error) {
	id, err := view.String(m, "id")
	if err != nil {
		return nil, fmt.Errorf("character: %w", err)
	}
	name, err := view.StringOr(m, "name", "")
	if err != nil {
		return nil, fmt.Errorf("character: %w", err)
	}
	c := New(id, name)
	fields := []struct {
		key string
		dst *int
	}{
		{"level", &c.Level},
		{"experience", &c.Experience},
		{"health", &c.Health},
		{"mana", &c.Mana},
		{"strength", &c.Strength},
		{"agility", &c.Agility},
		{"intelligence", &c.Intelligence},
	}
	for _, f := range fields {
		if *f.dst, err = view.IntOr(m, f.key, *f.dst); err != nil {
			return nil, fmt.Errorf("character: %w", err)
		}
	}
	inv, err := view.Maps(m, "inventory")
	if err != nil {
		return nil, fmt.Errorf("character: %w", err)
	}
	for _, iv := range inv {
		it, err := item.FromView(iv)
		if err != nil {
			return nil, fmt.Errorf("character: inventory: %w", err)
		}
		c.Inventory = append(c.Inventory, it)
	}
	return c, nil
}
