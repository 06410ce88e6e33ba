// Package wave computes the concurrency schedule for a plan: a mapping from
// step id to wave number such that a step's wave is strictly greater than
// every dependency's wave. Steps sharing a wave are mutually independent and
// may run in parallel.
package wave

import (
	"github.com/planwave/planwave/internal/plan"
)

// Assignment maps step ids to 1-based wave numbers.
type Assignment map[string]int

// Degraded reports whether the iterative assigner hit steps it could not
// place (cyclic or dangling dependencies) and parked them in a final wave.
// A plan in this state should have failed validation already.
type Result struct {
	Waves    Assignment
	Degraded bool
	Unplaced []string
}

// Assign computes wave numbers with an iterative fixed-point pass: each
// round places every step whose dependencies have all been placed, at
// max(dep waves)+1. Dependency-free steps land in wave 1. If a round makes
// no progress the remainder cannot be scheduled; those steps are parked one
// wave past the highest assigned and the result is flagged degraded.
func Assign(p *plan.Plan) Result {
	waves := Assignment{}
	remaining := map[string]*plan.Step{}
	for _, s := range p.Steps {
		remaining[s.ID] = s
	}
	processed := map[string]bool{}

	for round := 0; round <= len(p.Steps); round++ {
		if len(remaining) == 0 {
			break
		}
		var placed []string
		for id, s := range remaining {
			if len(s.DependsOn) == 0 {
				waves[id] = 1
				placed = append(placed, id)
				continue
			}
			ready := true
			maxDep := 0
			for _, dep := range s.DependsOn {
				if !processed[dep] {
					ready = false
					break
				}
				if waves[dep] > maxDep {
					maxDep = waves[dep]
				}
			}
			if ready {
				waves[id] = maxDep + 1
				placed = append(placed, id)
			}
		}
		if len(placed) == 0 {
			break
		}
		for _, id := range placed {
			processed[id] = true
			delete(remaining, id)
		}
	}

	res := Result{Waves: waves}
	if len(remaining) > 0 {
		// Cyclic or dangling remainder. Park it after everything assigned so
		// the schedule is still total, and flag the run for validation.
		res.Degraded = true
		max := 0
		for _, w := range waves {
			if w > max {
				max = w
			}
		}
		for id := range remaining {
			waves[id] = max + 1
			res.Unplaced = append(res.Unplaced, id)
		}
	}

	for _, s := range p.Steps {
		s.Wave = waves[s.ID]
	}
	return res
}

// AssignKahn computes wave numbers by Kahn's-algorithm leveling: repeatedly
// take the zero-in-degree frontier as the next wave and decrement the
// in-degrees of its dependents. On any cycle-free plan it produces the same
// numbers as Assign. Steps left with positive in-degree (cycles) get no wave.
func AssignKahn(p *plan.Plan) Assignment {
	indeg := map[string]int{}
	dependents := map[string][]string{}
	for _, s := range p.Steps {
		indeg[s.ID] = 0
	}
	for _, s := range p.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := indeg[dep]; !ok {
				continue
			}
			indeg[s.ID]++
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	waves := Assignment{}
	frontier := []string{}
	for _, s := range p.Steps {
		if indeg[s.ID] == 0 {
			frontier = append(frontier, s.ID)
		}
	}

	for w := 1; len(frontier) > 0; w++ {
		var next []string
		for _, id := range frontier {
			waves[id] = w
			for _, d := range dependents[id] {
				indeg[d]--
				if indeg[d] == 0 {
					next = append(next, d)
				}
			}
		}
		frontier = next
	}
	return waves
}

// MaxWave returns the highest wave number in the assignment, or 0.
func (a Assignment) MaxWave() int {
	max := 0
	for _, w := range a {
		if w > max {
			max = w
		}
	}
	return max
}

// Steps returns the ids assigned to the given wave, in plan order.
func (a Assignment) Steps(p *plan.Plan, wave int) []*plan.Step {
	var out []*plan.Step
	for _, s := range p.Steps {
		if a[s.ID] == wave {
			out = append(out, s)
		}
	}
	return out
}
