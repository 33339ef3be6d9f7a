package mapper

import (
	"fmt"

	"github.com/HendryAvila/propgate/internal/spec"
)

// IncompatibleEquilibriumConfig reports an equilibrium form, or a
// force-selected method, that the EOS of an involved phase cannot use.
// It is fatal for the run: the form or the EOS choice must change.
type IncompatibleEquilibriumConfig struct {
	Pair   spec.PhasePair
	Phase  string
	Eos    spec.EosKind
	Form   spec.EquilibriumForm
	Method string
	Reason string
}

func (e *IncompatibleEquilibriumConfig) Error() string {
	if e.Reason != "" {
		return "incompatible equilibrium configuration: " + e.Reason
	}
	subject := fmt.Sprintf("form %s", e.Form)
	if e.Method != "" {
		subject = fmt.Sprintf("method %s (%s)", e.Method, e.Form)
	}
	return fmt.Sprintf("incompatible equilibrium configuration: %s cannot be used with %s EOS on phase %s of pair %s",
		subject, e.Eos, e.Phase, e.Pair)
}

// OverrideError reports a method override that cannot be honored for a
// reason other than EOS compatibility.
type OverrideError struct {
	Property string
	Method   string
	Reason   string
}

func (e *OverrideError) Error() string {
	return fmt.Sprintf("method override %s=%s: %s", e.Property, e.Method, e.Reason)
}
