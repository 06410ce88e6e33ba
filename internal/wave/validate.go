package wave

import (
	"fmt"

	dagerrors "github.com/planwave/planwave/internal/errors"
	"github.com/planwave/planwave/internal/plan"
)

// ValidateAssignment checks the scheduling invariant per step: every wave is
// at least 1 and strictly greater than each dependency's wave. Each
// offending (step, dependency) pair is reported separately.
func ValidateAssignment(p *plan.Plan, a Assignment) []error {
	var errs []error
	for _, s := range p.Steps {
		w, ok := a[s.ID]
		if !ok || w < 1 {
			errs = append(errs, dagerrors.NewValidationError(
				fmt.Sprintf("step %q has no valid wave (got %d)", s.ID, w), ""))
			continue
		}
		for _, dep := range s.DependsOn {
			dw, ok := a[dep]
			if !ok {
				errs = append(errs, dagerrors.NewValidationError(
					fmt.Sprintf("step %q dependency %q has no wave", s.ID, dep), ""))
				continue
			}
			if w <= dw {
				errs = append(errs, dagerrors.NewValidationError(
					fmt.Sprintf("step %q (wave %d) must schedule after dependency %q (wave %d)",
						s.ID, w, dep, dw), ""))
			}
		}
	}
	return errs
}
