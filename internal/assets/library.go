package assets

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"embryonic/internal/model"
)

const (
	TypeCharacter = "character"
	TypeLocation  = "location"
	TypeObject    = "object"
)

// Asset is one reusable story ingredient. The core treats asset ids as
// opaque passthrough metadata; only the library interprets them.
type Asset struct {
	ID       string            `yaml:"id" json:"id"`
	Name     string            `yaml:"name" json:"name"`
	Type     string            `yaml:"type" json:"type"`
	Tags     []string          `yaml:"tags,omitempty" json:"tags,omitempty"`
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Stats summarizes library contents per asset type.
type Stats struct {
	Characters int `json:"characters"`
	Locations  int `json:"locations"`
	Objects    int `json:"objects"`
	Total      int `json:"total"`
}

// Library manages asset collections and selects refs for cells. Selection
// draws from the injected random source so callers control determinism.
type Library struct {
	mu     sync.Mutex
	rng    *rand.Rand
	byType map[string]map[string]Asset
}

type libraryFile struct {
	Characters []Asset `yaml:"characters"`
	Locations  []Asset `yaml:"locations"`
	Objects    []Asset `yaml:"objects"`
}

// NewLibrary builds an empty library. A nil rng falls back to a
// time-seeded source.
func NewLibrary(rng *rand.Rand) *Library {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Library{
		rng: rng,
		byType: map[string]map[string]Asset{
			TypeCharacter: {},
			TypeLocation:  {},
			TypeObject:    {},
		},
	}
}

// Add registers one asset, replacing any existing asset with the same id.
func (l *Library) Add(a Asset) error {
	if a.ID == "" {
		return fmt.Errorf("asset id is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	storage, ok := l.byType[a.Type]
	if !ok {
		return fmt.Errorf("unknown asset type: %s", a.Type)
	}
	storage[a.ID] = a
	return nil
}

// LoadFile merges a YAML library file into the library.
func (l *Library) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file libraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse asset library %s: %w", path, err)
	}
	sections := []struct {
		assetType string
		entries   []Asset
	}{
		{TypeCharacter, file.Characters},
		{TypeLocation, file.Locations},
		{TypeObject, file.Objects},
	}
	for _, section := range sections {
		for _, a := range section.entries {
			a.Type = section.assetType
			if err := l.Add(a); err != nil {
				return fmt.Errorf("asset library %s: %w", path, err)
			}
		}
	}
	return nil
}

// SaveFile writes the library as a YAML file.
func (l *Library) SaveFile(path string) error {
	file := libraryFile{
		Characters: l.List(TypeCharacter),
		Locations:  l.List(TypeLocation),
		Objects:    l.List(TypeObject),
	}
	data, err := yaml.Marshal(file)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Get looks an asset up by id across all types.
func (l *Library) Get(id string) (Asset, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, storage := range l.byType {
		if a, ok := storage[id]; ok {
			return a, true
		}
	}
	return Asset{}, false
}

// List returns the assets of one type, or all assets for an empty type,
// ordered by id.
func (l *Library) List(assetType string) []Asset {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Asset
	for _, t := range []string{TypeCharacter, TypeLocation, TypeObject} {
		if assetType != "" && assetType != t {
			continue
		}
		for _, a := range l.byType[t] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats counts the library contents.
func (l *Library) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Stats{
		Characters: len(l.byType[TypeCharacter]),
		Locations:  len(l.byType[TypeLocation]),
		Objects:    len(l.byType[TypeObject]),
	}
	s.Total = s.Characters + s.Locations + s.Objects
	return s
}

// SelectForCell picks asset refs for one cell. The conflict arc draws
// more characters and objects than the quieter arcs.
func (l *Library) SelectForCell(arc model.Arc, _ map[string]float64) map[string][]string {
	charCount, locCount, objCount := 1, 1, 1
	if arc == model.ArcConflict {
		charCount, objCount = 2, 2
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return map[string][]string{
		"characters": l.selectRandomLocked(TypeCharacter, charCount),
		"locations":  l.selectRandomLocked(TypeLocation, locCount),
		"objects":    l.selectRandomLocked(TypeObject, objCount),
	}
}

// SelectByTags picks assets matching any of the tags, falling back to a
// random draw when nothing matches.
func (l *Library) SelectByTags(assetType string, tags []string, count int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	storage := l.byType[assetType]
	matching := make([]string, 0, len(storage))
	for id, a := range storage {
		for _, want := range tags {
			if containsTag(a.Tags, want) {
				matching = append(matching, id)
				break
			}
		}
	}
	if len(matching) == 0 {
		return l.selectRandomLocked(assetType, count)
	}
	sort.Strings(matching)
	return l.sampleLocked(matching, count)
}

func (l *Library) selectRandomLocked(assetType string, count int) []string {
	storage := l.byType[assetType]
	ids := make([]string, 0, len(storage))
	for id := range storage {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return l.sampleLocked(ids, count)
}

func (l *Library) sampleLocked(ids []string, count int) []string {
	if len(ids) == 0 {
		return nil
	}
	if count > len(ids) {
		count = len(ids)
	}
	shuffled := append([]string(nil), ids...)
	l.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	out := append([]string(nil), shuffled[:count]...)
	sort.Strings(out)
	return out
}

func containsTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}
