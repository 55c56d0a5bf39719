// Package roster loads the opponent roster: level-banded display names
// for enemy combatants. Names are presentation only and never affect
// resolution.
package roster

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"duelgrounds/internal/game/rng"
)

// ErrNoOpponent is returned when no roster entry covers the requested level.
var ErrNoOpponent = errors.New("no opponent for level")

// Opponent is one roster entry. MaxLevel == 0 means open-ended.
type Opponent struct {
	Name     string `yaml:"name"`
	MinLevel int    `yaml:"min_level"`
	MaxLevel int    `yaml:"max_level"`
}

// covers reports whether this entry applies to the given level.
func (o Opponent) covers(level int) bool {
	if level < o.MinLevel {
		return false
	}
	return o.MaxLevel == 0 || level <= o.MaxLevel
}

// yamlRosterFile is the top-level YAML structure for roster files.
type yamlRosterFile struct {
	Opponents []Opponent `yaml:"opponents"`
}

// Roster holds the validated opponent list.
type Roster struct {
	opponents []Opponent
}

// Len returns the number of roster entries.
func (r *Roster) Len() int { return len(r.opponents) }

// LoadFromFile reads and validates a roster YAML file.
//
// Precondition: path must point to a valid YAML roster file.
// Postcondition: Returns a validated Roster or a non-nil error.
func LoadFromFile(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster file %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates a roster from YAML bytes.
//
// Postcondition: Returns a validated Roster or a non-nil error.
func LoadFromBytes(data []byte) (*Roster, error) {
	var file yamlRosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing roster yaml: %w", err)
	}
	if len(file.Opponents) == 0 {
		return nil, errors.New("roster contains no opponents")
	}
	for i, o := range file.Opponents {
		if o.Name == "" {
			return nil, fmt.Errorf("opponent %d: name must not be empty", i)
		}
		if o.MinLevel < 1 {
			return nil, fmt.Errorf("opponent %q: min_level must be >= 1, got %d", o.Name, o.MinLevel)
		}
		if o.MaxLevel != 0 && o.MaxLevel < o.MinLevel {
			return nil, fmt.Errorf("opponent %q: max_level %d below min_level %d", o.Name, o.MaxLevel, o.MinLevel)
		}
	}
	return &Roster{opponents: file.Opponents}, nil
}

// PickFor returns a name for an enemy at the given level, chosen
// uniformly among the entries whose band covers it.
//
// Precondition: src must be non-nil.
// Postcondition: Returns a non-empty name, or ErrNoOpponent when no band covers level.
func (r *Roster) PickFor(level int, src rng.Source) (string, error) {
	var candidates []string
	for _, o := range r.opponents {
		if o.covers(level) {
			candidates = append(candidates, o.Name)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w %d", ErrNoOpponent, level)
	}
	return candidates[src.Intn(len(candidates))], nil
}
