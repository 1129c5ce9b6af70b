package rename

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type ruleFile struct {
	Rules []Ruleset `toml:"rules"`
}

// LoadFile reads a pipeline from a TOML file of [[rules]] tables.
func LoadFile(path string) (Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rename rules: %w", err)
	}
	var file ruleFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rename rules %s: %w", path, err)
	}
	var p Pipeline
	for i, r := range file.Rules {
		if r.TrimStart < 0 || r.TrimEnd < 0 {
			return nil, fmt.Errorf("rename rule %d: trim counts must not be negative", i+1)
		}
		p = p.Append(r)
	}
	return p, nil
}

// SaveFile writes p as TOML.
func SaveFile(path string, p Pipeline) error {
	data, err := toml.Marshal(ruleFile{Rules: p})
	if err != nil {
		return fmt.Errorf("encode rename rules: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write rename rules: %w", err)
	}
	return nil
}
