// Package deviation classifies anomalies reported during step execution and
// decides whether the engine may fix them unattended or must halt for a
// human. Architectural rules are checked before everything else and always
// win: when an architectural pattern and a bug pattern both match, the
// verdict is checkpoint. Safety over throughput.
package deviation

import (
	"strings"
	"time"
)

// Category buckets an anomaly by what kind of problem it is.
type Category string

const (
	CategoryBug             Category = "bug"
	CategoryMissingCritical Category = "missing_critical"
	CategoryBlocking        Category = "blocking"
	CategoryArchitectural   Category = "architectural"
)

// Action is what the engine does about a classified deviation.
type Action string

const (
	ActionAutoFix    Action = "auto_fix"
	ActionCheckpoint Action = "checkpoint"
)

// Rule matches anomaly descriptions by substring, case-insensitively.
type Rule struct {
	Name     string   `yaml:"name" json:"name"`
	Category Category `yaml:"category" json:"category"`
	Action   Action   `yaml:"action" json:"action"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

func (r Rule) matches(desc string) bool {
	lower := strings.ToLower(desc)
	for _, p := range r.Patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Record is the audit trail for one classified deviation. It is independent
// of the run's own step-status tracking.
type Record struct {
	Category   Category  `json:"category"`
	Rule       string    `json:"rule,omitempty"`
	Action     Action    `json:"action"`
	StepID     string    `json:"step_id,omitempty"`
	Targets    []string  `json:"targets,omitempty"`
	Details    string    `json:"details,omitempty"`
	Resolution string    `json:"resolution,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Classifier holds a priority-ordered rule list.
type Classifier struct {
	architectural []Rule
	other         []Rule

	// StrictDefault routes unmatched anomalies to checkpoint instead of the
	// permissive auto-fix default.
	StrictDefault bool
}

// New builds a classifier. Architectural rules are partitioned to the front
// regardless of the order they were supplied in.
func New(rules []Rule) *Classifier {
	c := &Classifier{}
	for _, r := range rules {
		if r.Category == CategoryArchitectural {
			c.architectural = append(c.architectural, r)
		} else {
			c.other = append(c.other, r)
		}
	}
	return c
}

// DefaultRules is the built-in policy. Schema changes, dependency swaps and
// breaking API changes checkpoint; bugs, missing pieces and blockers are
// fixed in place.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "schema-change",
			Category: CategoryArchitectural,
			Action:   ActionCheckpoint,
			Patterns: []string{"alter table", "schema change", "migration", "drop column", "drop table"},
		},
		{
			Name:     "dependency-swap",
			Category: CategoryArchitectural,
			Action:   ActionCheckpoint,
			Patterns: []string{"swap library", "replace dependency", "new dependency", "different library"},
		},
		{
			Name:     "breaking-api",
			Category: CategoryArchitectural,
			Action:   ActionCheckpoint,
			Patterns: []string{"breaking change", "breaking api", "incompatible signature", "remove endpoint"},
		},
		{
			Name:     "bug",
			Category: CategoryBug,
			Action:   ActionAutoFix,
			Patterns: []string{"bug", "typo", "off-by-one", "nil pointer", "null pointer", "wrong value"},
		},
		{
			Name:     "missing-critical",
			Category: CategoryMissingCritical,
			Action:   ActionAutoFix,
			Patterns: []string{"missing import", "missing field", "missing file", "not defined", "undefined"},
		},
		{
			Name:     "blocking",
			Category: CategoryBlocking,
			Action:   ActionAutoFix,
			Patterns: []string{"blocked", "cannot proceed", "compile error", "build failure"},
		},
	}
}

// Classify returns the matched rule (nil when nothing matched) and the
// action to take. Architectural rules are evaluated first and short-circuit.
func (c *Classifier) Classify(desc string) (*Rule, Action) {
	for i := range c.architectural {
		if c.architectural[i].matches(desc) {
			return &c.architectural[i], ActionCheckpoint
		}
	}
	for i := range c.other {
		if c.other[i].matches(desc) {
			return &c.other[i], c.other[i].Action
		}
	}
	if c.StrictDefault {
		return nil, ActionCheckpoint
	}
	return nil, ActionAutoFix
}

// NewRecord builds the audit record for a classification outcome.
func NewRecord(stepID, desc string, rule *Rule, action Action, targets []string) *Record {
	rec := &Record{
		Action:    action,
		StepID:    stepID,
		Targets:   targets,
		Details:   desc,
		CreatedAt: time.Now().UTC(),
	}
	if rule != nil {
		rec.Category = rule.Category
		rec.Rule = rule.Name
	}
	return rec
}
