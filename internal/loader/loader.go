// Package loader reads action catalogs and hidden combo lists from YAML and
// validates them before any simulation starts. Everything that can fail at
// load time fails here; the per-frame path downstream assumes clean data.
package loader

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"frameclash/internal/combat"
)

type catalogFile struct {
	Actions []combat.ActionDef `yaml:"actions"`
}

type hiddenFile struct {
	HiddenCombos []combat.HiddenComboDef `yaml:"hidden_combos"`
}

// LoadCatalog reads and validates the action catalog at path.
func LoadCatalog(path string) (*combat.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read actions file %s", path)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "parse actions file %s", path)
	}
	if len(file.Actions) == 0 {
		return nil, errors.Errorf("actions file %s defines no actions", path)
	}

	cat, err := combat.NewCatalog(file.Actions)
	if err != nil {
		return nil, errors.Wrapf(err, "validate actions file %s", path)
	}
	return cat, nil
}

// LoadHiddenCombos reads the hidden combo list at path and validates every
// sequence against cat. An empty path disables hidden combos.
func LoadHiddenCombos(path string, cat *combat.Catalog) ([]combat.HiddenComboDef, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read hidden combos file %s", path)
	}

	var file hiddenFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "parse hidden combos file %s", path)
	}

	if err := combat.ValidateHiddenCombos(cat, file.HiddenCombos); err != nil {
		return nil, errors.Wrapf(err, "validate hidden combos file %s", path)
	}
	return file.HiddenCombos, nil
}

// Load reads both data files in one call for startup convenience.
func Load(actionsPath, hiddenPath string) (*combat.Catalog, []combat.HiddenComboDef, error) {
	cat, err := LoadCatalog(actionsPath)
	if err != nil {
		return nil, nil, err
	}
	hidden, err := LoadHiddenCombos(hiddenPath, cat)
	if err != nil {
		return nil, nil, err
	}
	return cat, hidden, nil
}
