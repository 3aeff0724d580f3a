package world

import (
	"fmt"
	"io"
	"os"

	"github.com/kasuganosora/textadventure/server/game/quest"
	"gopkg.in/yaml.v3"
)

// ContentFile is the top-level structure of a world content YAML file.
//
// Example:
//
//	start: village
//	scenes:
//	  - id: village
//	    name: "Quiet Village"
//	    exits: {north: forest}
//	    items:
//	      - {id: bread, name: Bread, type: food, value: 3, effects: {health: 10}}
type ContentFile struct {
	Start  string        `yaml:"start"`
	Scenes []Scene       `yaml:"scenes"`
	Quests []quest.Quest `yaml:"quests"`
}

// LoadFile reads a content file from disk into a new World.
func LoadFile(path string) (*World, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("world: open content file %q: %w", path, err)
	}
	defer f.Close()

	w, err := LoadReader(f)
	if err != nil {
		return nil, fmt.Errorf("world: load content file %q: %w", path, err)
	}
	return w, nil
}

// LoadReader parses content YAML and builds a World from it. Exits that
// point at unknown scenes are rejected.
func LoadReader(r io.Reader) (*World, error) {
	var cf ContentFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		return nil, fmt.Errorf("world: decode content yaml: %w", err)
	}

	w := New()
	for _, s := range cf.Scenes {
		if s.ID == "" {
			return nil, fmt.Errorf("world: scene %q has no id", s.Name)
		}
		if err := w.AddScene(s); err != nil {
			return nil, fmt.Errorf("world: scene %q: %w", s.ID, err)
		}
	}
	for _, q := range cf.Quests {
		if err := w.AddQuest(q); err != nil {
			return nil, fmt.Errorf("world: quest %q: %w", q.ID, err)
		}
	}
	for _, s := range cf.Scenes {
		for dir, to := range s.Exits {
			if !w.HasScene(to) {
				return nil, fmt.Errorf("world: scene %q exit %q: %w: %q", s.ID, dir, ErrSceneNotFound, to)
			}
		}
	}
	if cf.Start != "" {
		if err := w.SetStart(cf.Start); err != nil {
			return nil, fmt.Errorf("world: start %q: %w", cf.Start, err)
		}
	}
	return w, nil
}
