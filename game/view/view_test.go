package view

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt_AcceptsJSONNumbers(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"level": 3, "exp": -90}`), &m))

	lv, err := Int(m, "level")
	require.NoError(t, err)
	assert.Equal(t, 3, lv)

	exp, err := Int(m, "exp")
	require.NoError(t, err)
	assert.Equal(t, -90, exp)
}

func TestInt_Errors(t *testing.T) {
	_, err := Int(map[string]any{}, "level")
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = Int(map[string]any{"level": 1.5}, "level")
	assert.ErrorIs(t, err, ErrFieldType)

	_, err = Int(map[string]any{"level": "one"}, "level")
	assert.ErrorIs(t, err, ErrFieldType)
}

func TestIntOr_Default(t *testing.T) {
	v, err := IntOr(map[string]any{}, "mana", 50)
	require.NoError(t, err)
	assert.Equal(t, 50, v)
}

func TestIntMap(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"effects": {"health": 20, "mana": 5}}`), &m))
	eff, err := IntMap(m, "effects")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"health": 20, "mana": 5}, eff)

	eff, err = IntMap(map[string]any{}, "effects")
	require.NoError(t, err)
	assert.Empty(t, eff)
}

func TestMaps(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"inventory": [{"id": "a"}, {"id": "b"}]}`), &m))
	list, err := Maps(m, "inventory")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[1]["id"])

	_, err = Maps(map[string]any{"inventory": []any{1}}, "inventory")
	assert.ErrorIs(t, err, ErrFieldType)
}

func TestString_NumericID(t *testing.T) {
	s, err := String(map[string]any{"id": float64(7)}, "id")
	require.NoError(t, err)
	assert.Equal(t, "7", s)
}
