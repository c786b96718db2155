package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Interactable is a world object players can use: chairs, computers, boards.
type Interactable struct {
	ID   string  `yaml:"id"`
	Type string  `yaml:"type"`
	Name string  `yaml:"name"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	W    float64 `yaml:"w"`
	H    float64 `yaml:"h"`
}

type interactableListFile struct {
	Interactables []Interactable `yaml:"interactables"`
}

// InteractableTable holds all interactables indexed by id.
type InteractableTable struct {
	byID map[string]*Interactable
	all  []Interactable
}

// LoadInteractables reads the interactable object list from YAML.
func LoadInteractables(path string) (*InteractableTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &InteractableTable{byID: make(map[string]*Interactable)}, nil
		}
		return nil, fmt.Errorf("read interactables: %w", err)
	}

	var f interactableListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse interactables: %w", err)
	}

	t := &InteractableTable{
		byID: make(map[string]*Interactable, len(f.Interactables)),
		all:  f.Interactables,
	}
	for i := range t.all {
		obj := &t.all[i]
		if obj.ID == "" {
			return nil, fmt.Errorf("interactables: entry %d has no id", i)
		}
		if _, dup := t.byID[obj.ID]; dup {
			return nil, fmt.Errorf("interactables: duplicate id %s", obj.ID)
		}
		t.byID[obj.ID] = obj
	}
	return t, nil
}

// Get returns the interactable with the given id, or nil.
func (t *InteractableTable) Get(id string) *Interactable {
	return t.byID[id]
}

// All returns every interactable in file order.
func (t *InteractableTable) All() []Interactable {
	return t.all
}

func (t *InteractableTable) Count() int {
	return len(t.all)
}
