package character

// Effect names understood by UseItem.
const (
	EffectHealth       = "health"
	EffectMana         = "mana"
	EffectStrength     = "strength"
	EffectAgility      = "agility"
	EffectIntelligence = "intelligence"
)

// UseResult describes what a consumed item did.
type UseResult struct {
	ItemID   string         `json:"item_id"`
	ItemName string         `json:"item_name"`
	Applied  map[string]int `json:"applied"` // effect → change actually applied
}

// UseItem consumes one inventory entry with itemID and applies its
// effects. Health restored by items is capped at HealCap. Mana gains stop
// at ManaCap but never pull mana above the cap back down; attribute
// effects add without a cap. Only potions and food can
// be used. On error the character is unchanged.
func (c *Character) UseItem(itemID string) (UseResult, error) {
	idx := -1
	for i, it := range c.Inventory {
		if it.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return UseResult{}, ErrItemNotFound
	}
	it := c.Inventory[idx]
	if !it.Usable() {
		return UseResult{}, ErrItemNotUsable
	}

	res := UseResult{ItemID: it.ID, ItemName: it.Name, Applied: map[string]int{}}
	if v := it.Effects[EffectHealth]; v != 0 {
		before := c.Health
		c.Health = min(c.Health+v, HealCap)
		res.Applied[EffectHealth] = c.Health - before
	}
	if v := it.Effects[EffectMana]; v != 0 {
		before := c.Mana
		c.Mana = max(c.Mana, min(c.Mana+v, ManaCap))
		res.Applied[EffectMana] = c.Mana - before
	}
	for _, attr := range []struct {
		name string
		dst  *int
	}{
		{EffectStrength, &c.Strength},
		{EffectAgility, &c.Agility},
		{EffectIntelligence, &c.Intelligence},
	} {
		if v := it.Effects[attr.name]; v != 0 {
			*attr.dst += v
			res.Applied[attr.name] = v
		}
	}

	c.Inventory = append(c.Inventory[:idx:idx], c.Inventory[idx+1:]...)
	return res, nil
}
