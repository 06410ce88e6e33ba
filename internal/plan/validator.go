package plan

import (
	"fmt"
	"sort"
	"strings"

	dagerrors "github.com/planwave/planwave/internal/errors"
)

// Validate checks a plan for structural correctness. It returns every
// problem found, not just the first; a plan with any validation error must
// never be executed.
func Validate(p *Plan) []error {
	var errs []error

	seen := map[string]int{}
	for i, s := range p.Steps {
		if s.ID == "" {
			errs = append(errs, dagerrors.NewValidationError(
				fmt.Sprintf("step at index %d has no id", i), ""))
			continue
		}
		if _, dup := seen[s.ID]; dup {
			errs = append(errs, dagerrors.NewValidationError(
				fmt.Sprintf("duplicate step id %q", s.ID), ""))
		}
		seen[s.ID] = i

		if s.Action == "" {
			errs = append(errs, dagerrors.NewValidationError(
				fmt.Sprintf("step %q has no action", s.ID),
				"Every step needs a human-readable action"))
		}
		if s.Type != "" && !KnownStepTypes[s.Type] {
			errs = append(errs, dagerrors.NewValidationError(
				fmt.Sprintf("step %q has unknown type %q", s.ID, s.Type),
				"Known types: read, extract, create, modify, wire, verify, test, checkpoint"))
		}
	}

	for _, s := range p.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := seen[dep]; !ok {
				errs = append(errs, dagerrors.NewValidationError(
					fmt.Sprintf("step %q depends on unknown step %q", s.ID, dep), ""))
			}
			if dep == s.ID {
				errs = append(errs, dagerrors.NewValidationError(
					fmt.Sprintf("step %q depends on itself", s.ID), ""))
			}
		}
	}

	for _, cycle := range findCycles(p) {
		errs = append(errs, &dagerrors.RunError{
			Type:    dagerrors.CycleDetected,
			Message: fmt.Sprintf("dependency cycle: %s", strings.Join(cycle, " -> ")),
			Hint:    "Break the cycle by removing one of the depends_on edges",
		})
	}

	return errs
}

// findCycles runs a DFS over depends_on edges with a recursion-stack set and
// reports each cycle as the full list of step ids on it.
func findCycles(p *Plan) [][]string {
	byID := map[string]*Step{}
	for _, s := range p.Steps {
		byID[s.ID] = s
	}

	const (
		white = 0 // unvisited
		grey  = 1 // on the recursion stack
		black = 2 // fully explored
	)
	color := map[string]int{}
	var stack []string
	var cycles [][]string
	reported := map[string]bool{}

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		stack = append(stack, id)
		s := byID[id]
		if s != nil {
			deps := append([]string(nil), s.DependsOn...)
			sort.Strings(deps)
			for _, dep := range deps {
				if _, ok := byID[dep]; !ok {
					continue // dangling deps are reported separately
				}
				switch color[dep] {
				case white:
					visit(dep)
				case grey:
					// Slice the stack from the first occurrence of dep to
					// get the full cycle path.
					for i, v := range stack {
						if v == dep {
							cycle := append(append([]string(nil), stack[i:]...), dep)
							key := strings.Join(cycle, ",")
							if !reported[key] {
								reported[key] = true
								cycles = append(cycles, cycle)
							}
							break
						}
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, s := range p.Steps {
		if color[s.ID] == white {
			visit(s.ID)
		}
	}
	return cycles
}
