/*
Package game
File: levels.go
Description:
    Loads the level catalog from YAML and checks it before play.
    Structural rules come from validator tags on the models; cross-references
    (duplicate station IDs, constraint pairs naming unknown stations) are
    checked here by hand.
*/

package game

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPalette is the cycle of colors assigned to new lines.
var DefaultPalette = []string{"#ef4444", "#22c55e", "#3b82f6", "#f59e0b", "#a855f7", "#06b6d4"}

// LevelCatalog is the root structure of 'levels.yaml'.
type LevelCatalog struct {
	Levels []Level `yaml:"levels" validate:"min=1,dive"`
}

// LoadLevels reads and validates a level catalog file.
func LoadLevels(path string) (*LevelCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLevels(data)
}

// ParseLevels decodes and validates a YAML level catalog.
func ParseLevels(data []byte) (*LevelCatalog, error) {
	var catalog LevelCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decode levels: %w", err)
	}
	if err := validator.New().Struct(catalog); err != nil {
		return nil, fmt.Errorf("validate levels: %w", err)
	}
	for i := range catalog.Levels {
		if err := checkLevel(&catalog.Levels[i]); err != nil {
			return nil, err
		}
	}
	return &catalog, nil
}

func checkLevel(l *Level) error {
	ids := make(map[string]struct{}, len(l.Stations))
	for _, s := range l.Stations {
		if _, dup := ids[s.ID]; dup {
			return fmt.Errorf("level %q: duplicate station %q", l.ID, s.ID)
		}
		ids[s.ID] = struct{}{}
	}

	checkPairs := func(kind string, pairs []StationPair) error {
		for _, p := range pairs {
			if p[0] == p[1] {
				return fmt.Errorf("level %q: %s connection %s-%s joins a station to itself", l.ID, kind, p[0], p[1])
			}
			for _, id := range p {
				if _, ok := ids[id]; !ok {
					return fmt.Errorf("level %q: %s connection names %q: %w", l.ID, kind, id, ErrUnknownStation)
				}
			}
		}
		return nil
	}
	if err := checkPairs("required", l.Constraints.RequiredConnections); err != nil {
		return err
	}
	return checkPairs("forbidden", l.Constraints.ForbiddenConnections)
}
