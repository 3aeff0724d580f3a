package character

import (
	"encoding/json"
	"testing"

	"github.com/kasuganosora/textadventure/server/game/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sword(id string) item.Item {
	return item.Item{ID: id, Name: "Iron Sword", Type: item.TypeWeapon, Value: 10, Effects: map[string]int{}}
}

func TestNew_Defaults(t *testing.T) {
	c := New("p1", "Ash")
	assert.Equal(t, "p1", c.ID)
	assert.Equal(t, "Ash", c.Name)
	assert.Equal(t, 1, c.Level)
	assert.Equal(t, 0, c.Experience)
	assert.Equal(t, 100, c.Health)
	assert.Equal(t, 50, c.Mana)
	assert.Equal(t, 10, c.Strength)
	assert.Equal(t, 10, c.Agility)
	assert.Equal(t, 10, c.Intelligence)
	assert.NotNil(t, c.Inventory)
	assert.Empty(t, c.Inventory)
}

func TestNew_Options(t *testing.T) {
	c := New("p1", "Ash", WithLevel(4), WithExperience(30), WithHealth(80), WithMana(7),
		WithStrength(1), WithAgility(2), WithIntelligence(3))
	assert.Equal(t, 4, c.Level)
	assert.Equal(t, 30, c.Experience)
	assert.Equal(t, 80, c.Health)
	assert.Equal(t, 7, c.Mana)
	assert.Equal(t, 1, c.Strength)
	assert.Equal(t, 2, c.Agility)
	assert.Equal(t, 3, c.Intelligence)
}

// ---- AddExperience ----

func TestAddExperience_BelowThreshold(t *testing.T) {
	for _, tc := range []struct{ level, exp, add int }{
		{1, 0, 99},
		{1, 50, 49},
		{3, 100, 199},
		{5, 0, 0},
	} {
		c := New("p", "n", WithLevel(tc.level), WithExperience(tc.exp))
		leveled, err := c.AddExperience(tc.add)
		require.NoError(t, err)
		assert.False(t, leveled)
		assert.Equal(t, tc.level, c.Level)
		assert.Equal(t, tc.exp+tc.add, c.Experience)
		assert.Equal(t, 100, c.Health)
	}
}

func TestAddExperience_LevelUpCarryUsesNewThreshold(t *testing.T) {
	c := New("p", "n", WithExperience(90))
	leveled, err := c.AddExperience(20)
	require.NoError(t, err)
	assert.True(t, leveled)
	assert.Equal(t, 2, c.Level)
	assert.Equal(t, -90, c.Experience) // 110 - 2*100
	assert.Equal(t, 110, c.Health)
	assert.Equal(t, 55, c.Mana)
	assert.Equal(t, 12, c.Strength)
	assert.Equal(t, 12, c.Agility)
	assert.Equal(t, 12, c.Intelligence)
}

func TestAddExperience_ExactThreshold(t *testing.T) {
	c := New("p", "n", WithLevel(3), WithExperience(250))
	leveled, err := c.AddExperience(50)
	require.NoError(t, err)
	assert.True(t, leveled)
	assert.Equal(t, 4, c.Level)
	assert.Equal(t, 300-400, c.Experience)
}

func TestAddExperience_SingleLevelUpPerCall(t *testing.T) {
	c := New("p", "n")
	leveled, err := c.AddExperience(1000)
	require.NoError(t, err)
	assert.True(t, leveled)
	assert.Equal(t, 2, c.Level, "no cascading level-ups")
	assert.Equal(t, 800, c.Experience)
	assert.Equal(t, 110, c.Health)
	assert.Equal(t, 12, c.Strength)

	// Next call levels once more, using the new level's gate.
	leveled, err = c.AddExperience(0)
	require.NoError(t, err)
	assert.True(t, leveled)
	assert.Equal(t, 3, c.Level)
	assert.Equal(t, 500, c.Experience)
}

func TestAddExperience_PropertyGrid(t *testing.T) {
	for level := 1; level <= 5; level++ {
		for exp := 0; exp < level*100; exp += 37 {
			for _, add := range []int{0, 1, 63, 150, 999} {
				c := New("p", "n", WithLevel(level), WithExperience(exp))
				_, err := c.AddExperience(add)
				require.NoError(t, err)
				if exp+add < level*100 {
					assert.Equal(t, level, c.Level)
					assert.Equal(t, exp+add, c.Experience)
				} else {
					assert.Equal(t, level+1, c.Level)
					assert.Equal(t, exp+add-(level+1)*100, c.Experience)
					assert.Equal(t, 110, c.Health)
				}
			}
		}
	}
}

func TestAddExperience_NegativeRejected(t *testing.T) {
	c := New("p", "n", WithExperience(40))
	before := *c
	_, err := c.AddExperience(-10)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, before.Experience, c.Experience)
	assert.Equal(t, before.Level, c.Level)
}

// ---- TakeDamage ----

func TestTakeDamage_Survives(t *testing.T) {
	c := New("p", "n")
	dead, err := c.TakeDamage(30)
	require.NoError(t, err)
	assert.False(t, dead)
	assert.Equal(t, 70, c.Health)
}

func TestTakeDamage_ExactlyLethal(t *testing.T) {
	c := New("p", "n")
	dead, err := c.TakeDamage(100)
	require.NoError(t, err)
	assert.True(t, dead)
	assert.Equal(t, 0, c.Health)
	assert.True(t, c.IsDead())
}

func TestTakeDamage_OverkillNotClamped(t *testing.T) {
	c := New("p", "n", WithHealth(20))
	dead, err := c.TakeDamage(45)
	require.NoError(t, err)
	assert.True(t, dead)
	assert.Equal(t, -25, c.Health)
}

func TestTakeDamage_NegativeRejected(t *testing.T) {
	c := New("p", "n")
	_, err := c.TakeDamage(-5)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, 100, c.Health)
}

// ---- Heal ----

func TestHeal_CappedAt100(t *testing.T) {
	c := New("p", "n", WithHealth(60))
	require.NoError(t, c.Heal(25))
	assert.Equal(t, 85, c.Health)
	require.NoError(t, c.Heal(500))
	assert.Equal(t, 100, c.Health)
}

func TestHeal_PullsLevelBonusHealthDown(t *testing.T) {
	c := New("p", "n")
	_, err := c.AddExperience(100)
	require.NoError(t, err)
	require.Equal(t, 110, c.Health)

	require.NoError(t, c.Heal(5))
	assert.Equal(t, 100, c.Health, "heal clamps to the fixed cap even when it lowers health")
}

func TestHeal_FromNegative(t *testing.T) {
	c := New("p", "n", WithHealth(-30))
	require.NoError(t, c.Heal(10))
	assert.Equal(t, -20, c.Health)
}

func TestHeal_NegativeRejected(t *testing.T) {
	c := New("p", "n", WithHealth(60))
	assert.ErrorIs(t, c.Heal(-1), ErrInvalidAmount)
	assert.Equal(t, 60, c.Health)
}

// ---- Inventory ----

func TestAddItem_AllowsDuplicates(t *testing.T) {
	c := New("p", "n")
	c.AddItem(sword("s1"))
	c.AddItem(sword("s1"))
	assert.Len(t, c.Inventory, 2)
	assert.True(t, c.HasItem("s1"))
}

func TestRemoveItem_RemovesAllMatches(t *testing.T) {
	c := New("p", "n")
	c.AddItem(sword("s1"))
	c.AddItem(sword("s2"))
	c.AddItem(sword("s1"))

	n := c.RemoveItem("s1")
	assert.Equal(t, 2, n)
	require.Len(t, c.Inventory, 1)
	assert.Equal(t, "s2", c.Inventory[0].ID)
	assert.False(t, c.HasItem("s1"))
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	c := New("p", "n")
	c.AddItem(sword("s1"))
	n := c.RemoveItem("missing")
	assert.Equal(t, 0, n)
	assert.Len(t, c.Inventory, 1)

	assert.Equal(t, 1, c.RemoveItem("s1"))
	assert.Equal(t, 0, c.RemoveItem("s1"), "idempotent")
}

func TestAddThenRemove(t *testing.T) {
	c := New("p", "n")
	c.AddItem(sword("x"))
	c.RemoveItem("x")
	_, ok := c.FindItem("x")
	assert.False(t, ok)
}

// ---- Views ----

func TestToView_Shape(t *testing.T) {
	c := New("p1", "Ash")
	c.AddItem(sword("s1"))
	v := c.ToView()
	assert.Equal(t, "p1", v["id"])
	assert.Equal(t, 1, v["level"])
	inv, ok := v["inventory"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, inv, 1)
	assert.Equal(t, "s1", inv[0]["id"])
}

func TestFromView_RoundTrip(t *testing.T) {
	c := New("p1", "Ash", WithLevel(3), WithExperience(-90), WithHealth(-4), WithMana(61))
	c.AddItem(sword("s1"))
	c.AddItem(item.Item{ID: "p", Name: "Potion", Type: item.TypePotion, Effects: map[string]int{"health": 20}})

	got, err := FromView(c.ToView())
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestFromView_JSONRoundTrip(t *testing.T) {
	c := New("p1", "Ash", WithLevel(2), WithExperience(-90))
	c.AddItem(sword("s1"))

	raw, err := json.Marshal(c.ToView())
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))

	got, err := FromView(m)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestFromView_MissingID(t *testing.T) {
	_, err := FromView(map[string]any{"name": "x"})
	assert.Error(t, err)
}

func TestFromView_BadInventory(t *testing.T) {
	_, err := FromView(map[string]any{"id": "p", "inventory": []any{map[string]any{"name": "no id"}}})
	assert.Error(t, err)
}

func TestClone_Deep(t *testing.T) {
	c := New("p", "n")
	c.AddItem(item.Item{ID: "p", Type: item.TypePotion, Effects: map[string]int{"health": 5}})
	cp := c.Clone()
	cp.Health = 1
	cp.Inventory[0].Effects["health"] = 99
	cp.AddItem(sword("s"))

	assert.Equal(t, 100, c.Health)
	assert.Equal(t, 5, c.Inventory[0].Effects["health"])
	assert.Len(t, c.Inventory, 1)
}
