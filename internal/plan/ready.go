package plan

// NextStep returns the lowest-order pending step whose every dependency is in
// completed, or nil when nothing is ready. Used for strictly sequential
// execution.
func (p *Plan) NextStep(completed map[string]bool) *Step {
	for _, s := range p.Steps {
		if s.Status != StatusPending {
			continue
		}
		if depsSatisfied(s, completed) {
			return s
		}
	}
	return nil
}

// ReadySteps returns every pending step whose dependencies are all in
// completed. Steps within the returned slice are independent of each other's
// completion and may execute in parallel.
func (p *Plan) ReadySteps(completed map[string]bool) []*Step {
	var ready []*Step
	for _, s := range p.Steps {
		if s.Status != StatusPending {
			continue
		}
		if depsSatisfied(s, completed) {
			ready = append(ready, s)
		}
	}
	return ready
}

func depsSatisfied(s *Step, completed map[string]bool) bool {
	for _, dep := range s.DependsOn {
		if !completed[dep] {
			return false
		}
	}
	return true
}
