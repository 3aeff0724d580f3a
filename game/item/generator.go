package item

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
)

var rarityMultiplier = map[Rarity]float64{
	RarityCommon:    0,
	RarityUncommon:  0.2,
	RarityRare:      0.5,
	RarityEpic:      1.0,
	RarityLegendary: 2.0,
}

// base value per level for each type.
var baseValue = map[Type]int{
	TypeWeapon:   10,
	TypeArmor:    8,
	TypePotion:   5,
	TypeFood:     3,
	TypeMaterial: 2,
	TypeCurrency: 1,
	TypeTreasure: 20,
	TypeKey:      1,
}

var (
	weaponPrefixes = []string{"Sharp", "Sturdy", "Mysterious", "Ancient", "Legendary"}
	weaponNames    = []string{"Sword", "Axe", "Hammer", "Spear", "Dagger"}
	armorPrefixes  = []string{"Tough", "Light", "Ornate", "Guarding", "Enchanted"}
	armorNames     = []string{"Helmet", "Breastplate", "Greaves", "Gauntlets", "Boots"}
	potionColors   = []string{"Red", "Blue", "Green", "Purple", "Golden"}
	potionNames    = []string{"Healing Potion", "Mana Potion", "Strength Potion", "Agility Potion", "Intellect Potion"}
	foodNames      = []string{"Apple", "Bread", "Roast Meat", "Cheese", "Honey"}
	materialNames  = []string{"Timber", "Stone", "Iron Ore", "Copper Ore", "Cloth"}
	treasureNames  = []string{"Diamond", "Ruby", "Sapphire", "Emerald", "Pearl"}
	keyNames       = []string{"Iron Key", "Copper Key", "Silver Key", "Golden Key", "Magic Key"}
)

// Generator produces random loot scaled by level.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a Generator. A nil rng uses a randomly seeded source.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rng: rng}
}

func (g *Generator) pick(list []string) string {
	return list[g.rng.IntN(len(list))]
}

// Random returns a new item of random type and rarity for the given level.
func (g *Generator) Random(level int) Item {
	if level < 1 {
		level = 1
	}
	typ := Types[g.rng.IntN(len(Types))]
	rarity := Rarities[g.rng.IntN(len(Rarities))]
	return g.Make(typ, rarity, level)
}

// Make builds an item of the given type and rarity with a random name.
func (g *Generator) Make(typ Type, rarity Rarity, level int) Item {
	mult := 1 + rarityMultiplier[rarity]
	it := Item{
		ID:      uuid.NewString(),
		Type:    typ,
		Rarity:  rarity,
		Value:   int(math.Floor(float64(level*baseValue[typ]) * mult)),
		Effects: map[string]int{},
	}
	switch typ {
	case TypeWeapon:
		it.Name = g.pick(weaponPrefixes) + " " + g.pick(weaponNames)
		it.Description = fmt.Sprintf("A %s weapon with a keen edge.", rarity)
	case TypeArmor:
		it.Name = g.pick(armorPrefixes) + " " + g.pick(armorNames)
		it.Description = fmt.Sprintf("A %s piece of armor.", rarity)
	case TypePotion:
		it.Name = g.pick(potionColors) + " " + g.pick(potionNames)
		it.Description = fmt.Sprintf("A %s potion that restores health.", rarity)
		it.Effects["health"] = int(math.Floor(20 * mult))
	case TypeFood:
		it.Name = g.pick(foodNames)
		it.Description = fmt.Sprintf("A %s meal that restores a little health.", rarity)
		it.Effects["health"] = int(math.Floor(10 * mult))
	case TypeMaterial:
		it.Name = g.pick(materialNames)
		it.Description = fmt.Sprintf("A %s crafting material.", rarity)
	case TypeCurrency:
		it.Name = "Gold Coin"
		it.Description = "Currency accepted by merchants."
	case TypeTreasure:
		it.Name = g.pick(treasureNames)
		it.Description = fmt.Sprintf("A %s treasure worth a fortune.", rarity)
	case TypeKey:
		it.Name = g.pick(keyNames)
		it.Description = fmt.Sprintf("A %s key that opens a particular door or chest.", rarity)
	}
	return it
}
