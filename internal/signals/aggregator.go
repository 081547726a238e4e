package signals

import (
	"github.com/sawpanic/cryptorun-execcore/internal/errs"
)

// Component is one named, weighted input to the aggregate signal.
type Component struct {
	Name   string
	Value  float64
	Weight float64
	Err    error // non-nil if this component failed to compute
}

// Aggregate computes the weight-sum-unchanged weighted mean: a component
// that failed to compute contributes 0 to the numerator but its configured
// weight is still added to the divisor. This is deliberate, not an
// oversight — a failed component is treated as "contributed nothing" rather
// than "excluded from consideration", so a run of failures pulls the
// composite toward zero (and therefore toward LOW confidence) instead of
// amplifying the surviving components' weight.
func Aggregate(components []Component) (score float64, failed []string) {
	numerator := 0.0
	denominator := 0.0

	for _, c := range components {
		denominator += c.Weight
		if c.Err != nil {
			failed = append(failed, c.Name)
			continue
		}
		numerator += c.Weight * c.Value
	}

	if denominator == 0 {
		return 0, failed
	}
	return clamp(numerator/denominator, -1, 1), failed
}

// AsComponent wraps a (value, error) pair from a pure signal function into
// a weighted Component, translating a computation error into the shared
// ComponentError type used throughout the analytics feedback loop.
func AsComponent(name string, weight float64, value float64, err error) Component {
	if err != nil {
		return Component{Name: name, Weight: weight, Err: &errs.ComponentError{Component: name, Err: err}}
	}
	return Component{Name: name, Value: value, Weight: weight}
}
