package world

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kasuganosora/textadventure/server/game/item"
	"github.com/kasuganosora/textadventure/server/game/quest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleContent = `
start: village
scenes:
  - id: village
    name: Quiet Village
    description: Smoke rises from a few chimneys.
    exits: {north: forest}
    npcs:
      - id: elder
        name: Village Elder
        dialogues: ["Welcome, traveler."]
        quests:
          - id: wolves
            name: Wolf Trouble
            objectives:
              - {id: kill, type: kill, target: wolf, required: 3}
            rewards: {experience: 150, gold: 10}
            status: available
    items:
      - {id: bread, name: Bread, type: food, value: 3, effects: {health: 10}}
  - id: forest
    name: Dark Forest
    exits: {south: village}
quests:
  - id: herbs
    name: Herb Gathering
    objectives:
      - {id: herb, type: collect, target: herb, required: 2}
`

func loadSample(t *testing.T) *World {
	t.Helper()
	w, err := LoadReader(strings.NewReader(sampleContent))
	require.NoError(t, err)
	return w
}

func TestLoadReader(t *testing.T) {
	w := loadSample(t)
	assert.Equal(t, "village", w.Start())
	assert.Equal(t, []string{"forest", "village"}, w.SceneIDs())

	s, err := w.Scene("village")
	require.NoError(t, err)
	assert.Equal(t, "Quiet Village", s.Name)
	require.Len(t, s.Items, 1)
	assert.Equal(t, item.TypeFood, s.Items[0].Type)
	assert.Equal(t, 10, s.Items[0].Effects["health"])
	require.Len(t, s.NPCs, 1)
	assert.Equal(t, "Village Elder", s.NPCs[0].Name)

	q, err := w.Quest("wolves")
	require.NoError(t, err)
	assert.Equal(t, quest.StatusAvailable, q.Status)
	assert.Equal(t, 150, q.Rewards.Experience)

	q, err = w.Quest("herbs")
	require.NoError(t, err)
	assert.Equal(t, quest.StatusAvailable, q.Status, "status defaults to available")
}

func TestLoadReader_UnknownField(t *testing.T) {
	_, err := LoadReader(strings.NewReader("scenes:\n  - id: a\n    colour: red\n"))
	assert.Error(t, err)
}

func TestLoadReader_DanglingExit(t *testing.T) {
	_, err := LoadReader(strings.NewReader("scenes:\n  - id: a\n    exits: {east: nowhere}\n"))
	assert.ErrorIs(t, err, ErrSceneNotFound)
}

func TestLoadReader_DuplicateScene(t *testing.T) {
	_, err := LoadReader(strings.NewReader("scenes:\n  - id: a\n  - id: a\n"))
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleContent), 0o644))
	w, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, w.HasScene("forest"))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExit(t *testing.T) {
	w := loadSample(t)
	to, err := w.Exit("village", "north")
	require.NoError(t, err)
	assert.Equal(t, "forest", to)

	_, err = w.Exit("village", "west")
	assert.ErrorIs(t, err, ErrNoExit)
	_, err = w.Exit("castle", "north")
	assert.ErrorIs(t, err, ErrSceneNotFound)
}

func TestTakeItem(t *testing.T) {
	w := loadSample(t)
	it, ok := w.TakeItem("village", "bread")
	require.True(t, ok)
	assert.Equal(t, "Bread", it.Name)

	_, ok = w.TakeItem("village", "bread")
	assert.False(t, ok, "already taken")

	s, _ := w.Scene("village")
	assert.Empty(t, s.Items)
}

func TestQuest_ReturnsIndependentCopies(t *testing.T) {
	w := loadSample(t)
	a, _ := w.Quest("wolves")
	a.Status = quest.StatusAccepted
	a.Objectives[0].Current = 2

	b, _ := w.Quest("wolves")
	assert.Equal(t, quest.StatusAvailable, b.Status)
	assert.Equal(t, 0, b.Objectives[0].Current)

	_, err := w.Quest("dragons")
	assert.ErrorIs(t, err, ErrQuestNotFound)
}

func TestSceneToView(t *testing.T) {
	w := loadSample(t)
	s, _ := w.Scene("village")
	v := s.ToView()
	assert.Equal(t, "village", v["id"])
	assert.Equal(t, map[string]string{"north": "forest"}, v["exits"])
	npcs := v["npcs"].([]map[string]any)
	require.Len(t, npcs, 1)
	assert.Equal(t, []string{"Welcome, traveler."}, npcs[0]["dialogues"])
	quests := npcs[0]["quests"].([]map[string]any)
	assert.Equal(t, "wolves", quests[0]["id"])
	items := v["items"].([]map[string]any)
	assert.Equal(t, "bread", items[0]["id"])
}

func TestSetStart(t *testing.T) {
	w := New()
	assert.Equal(t, "", w.Start())
	require.NoError(t, w.AddScene(Scene{ID: "a"}))
	require.NoError(t, w.AddScene(Scene{ID: "b"}))
	assert.Equal(t, "a", w.Start())
	require.NoError(t, w.SetStart("b"))
	assert.Equal(t, "b", w.Start())
	assert.ErrorIs(t, w.SetStart("zzz"), ErrSceneNotFound)
}

func TestLoadFile_ShippedContent(t *testing.T) {
	w, err := LoadFile(filepath.Join("..", "..", "config", "world.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "village", w.Start())
	assert.Equal(t, []string{"forest", "glade", "market", "village"}, w.SceneIDs())

	for _, id := range []string{"wolves", "herbs"} {
		q, err := w.Quest(id)
		require.NoError(t, err, id)
		assert.True(t, q.CanAccept(), id)
	}
}
