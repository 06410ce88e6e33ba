package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses a plan file. YAML is the authoring format; JSON
// is accepted for plan snapshots written by the run store.
func LoadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	if filepath.Ext(path) == ".json" {
		return LoadJSON(data)
	}
	return Load(data)
}

// Load parses plan YAML bytes.
func Load(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return finishLoad(&p)
}

// LoadJSON parses a plan snapshot previously marshaled by the run store.
func LoadJSON(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return finishLoad(&p)
}

func finishLoad(p *Plan) (*Plan, error) {
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("plan has no steps")
	}
	if p.Name == "" {
		return nil, fmt.Errorf("plan has no name")
	}
	if p.ID == "" {
		p.ID = p.Name
	}
	for i, s := range p.Steps {
		if s.Order == 0 {
			s.Order = i + 1
		}
		if s.Status == "" {
			s.Status = StatusPending
		}
		if s.Risk == "" {
			s.Risk = RiskLow
		}
	}
	// Stable display order; scheduling never depends on it.
	sort.SliceStable(p.Steps, func(i, j int) bool {
		return p.Steps[i].Order < p.Steps[j].Order
	})
	return p, nil
}
