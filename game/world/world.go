package world

import (
	"errors"
	"maps"
	"sort"
	"sync"

	"github.com/kasuganosora/textadventure/server/game/item"
	"github.com/kasuganosora/textadventure/server/game/quest"
)

var (
	ErrSceneNotFound = errors.New("world: scene not found")
	ErrQuestNotFound = errors.New("world: quest not found")
	ErrNoExit        = errors.New("world: no exit in that direction")
	ErrDuplicateID   = errors.New("world: duplicate id")
)

// NPC is a non-player actor placed in a scene.
type NPC struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Dialogues   []string      `json:"dialogues" yaml:"dialogues"`
	Quests      []quest.Quest `json:"quests" yaml:"quests"`
}

// ToView projects the NPC to a plain map.
func (n NPC) ToView() map[string]any {
	dialogues := n.Dialogues
	if dialogues == nil {
		dialogues = []string{}
	}
	return map[string]any{
		"id":          n.ID,
		"name":        n.Name,
		"description": n.Description,
		"dialogues":   dialogues,
		"quests":      quest.ViewAll(n.Quests),
	}
}

// Scene is a location the player can stand in.
type Scene struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Exits       map[string]string `json:"exits" yaml:"exits"` // direction → scene id
	NPCs        []NPC             `json:"npcs" yaml:"npcs"`
	Items       []item.Item       `json:"items" yaml:"items"`
}

// ToView projects the scene to a plain map.
func (s Scene) ToView() map[string]any {
	exits := maps.Clone(s.Exits)
	if exits == nil {
		exits = map[string]string{}
	}
	npcs := make([]map[string]any, len(s.NPCs))
	for i, n := range s.NPCs {
		npcs[i] = n.ToView()
	}
	return map[string]any{
		"id":          s.ID,
		"name":        s.Name,
		"description": s.Description,
		"exits":       exits,
		"npcs":        npcs,
		"items":       item.ViewAll(s.Items),
	}
}

// World is the read-mostly registry of scenes and quest definitions.
// Scene item lists change as players pick items up, so access is locked.
type World struct {
	mu     sync.RWMutex
	scenes map[string]*Scene
	quests map[string]quest.Quest
	start  string
}

// New returns an empty World.
func New() *World {
	return &World{
		scenes: make(map[string]*Scene),
		quests: make(map[string]quest.Quest),
	}
}

// AddScene registers a scene. Quests offered by its NPCs are registered
// as well. The first scene added becomes the start scene unless SetStart
// is called.
func (w *World) AddScene(s Scene) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.scenes[s.ID]; ok {
		return ErrDuplicateID
	}
	for _, n := range s.NPCs {
		for _, q := range n.Quests {
			w.quests[q.ID] = q.Clone()
		}
	}
	cp := s
	cp.Items = append([]item.Item(nil), s.Items...)
	w.scenes[s.ID] = &cp
	if w.start == "" {
		w.start = s.ID
	}
	return nil
}

// AddQuest registers a standalone quest definition.
func (w *World) AddQuest(q quest.Quest) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.quests[q.ID]; ok {
		return ErrDuplicateID
	}
	w.quests[q.ID] = q.Clone()
	return nil
}

// SetStart sets the scene new sessions begin in.
func (w *World) SetStart(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.scenes[id]; !ok {
		return ErrSceneNotFound
	}
	w.start = id
	return nil
}

// Start returns the start scene id ("" for an empty world).
func (w *World) Start() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.start
}

// Scene returns a copy of the scene with the given id.
func (w *World) Scene(id string) (Scene, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.scenes[id]
	if !ok {
		return Scene{}, ErrSceneNotFound
	}
	cp := *s
	cp.Items = append([]item.Item(nil), s.Items...)
	return cp, nil
}

// HasScene reports whether id is a known scene.
func (w *World) HasScene(id string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.scenes[id]
	return ok
}

// SceneIDs returns all scene ids, sorted.
func (w *World) SceneIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, 0, len(w.scenes))
	for id := range w.scenes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Exit returns the scene reached from `from` by going in direction dir.
func (w *World) Exit(from, dir string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.scenes[from]
	if !ok {
		return "", ErrSceneNotFound
	}
	to, ok := s.Exits[dir]
	if !ok {
		return "", ErrNoExit
	}
	if _, ok := w.scenes[to]; !ok {
		return "", ErrSceneNotFound
	}
	return to, nil
}

// TakeItem removes the first item with itemID from a scene and returns it.
func (w *World) TakeItem(sceneID, itemID string) (item.Item, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.scenes[sceneID]
	if !ok {
		return item.Item{}, false
	}
	for i, it := range s.Items {
		if it.ID == itemID {
			s.Items = append(s.Items[:i:i], s.Items[i+1:]...)
			return it, true
		}
	}
	return item.Item{}, false
}

// Quest returns a fresh copy of a quest definition, ready to be tracked
// by one session.
func (w *World) Quest(id string) (quest.Quest, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	q, ok := w.quests[id]
	if !ok {
		return quest.Quest{}, ErrQuestNotFound
	}
	return q.Clone(), nil
}
