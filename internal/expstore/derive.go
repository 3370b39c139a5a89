package expstore

import (
	"fmt"
	"math"
	"strconv"

	"github.com/donatienLeray/toychain-argos/internal/experr"
)

// Precision is the fixed number of decimals derived values are rounded to.
// Rounding keeps rendered configurations byte-identical across platforms.
const Precision = 3

// Formula computes a derived parameter from named numeric inputs. Formulas
// must be pure and total over their declared domain; anything outside the
// domain is reported as a DomainError, never as NaN or Inf.
type Formula struct {
	Inputs []string
	Fn     func(inputs map[string]float64) (float64, error)
}

// RegisterDerived declares a derived parameter. The formula is re-evaluated
// on every Derive call so derived values can never go stale relative to
// their inputs.
func (s *Store) RegisterDerived(name string, inputs []string, fn func(map[string]float64) (float64, error)) {
	s.formulas[name] = &Formula{Inputs: inputs, Fn: fn}
}

// Derive recomputes a derived parameter from the current values of its
// inputs, rounded to Precision decimals.
func (s *Store) Derive(name string) (float64, error) {
	formula, ok := s.formulas[name]
	if !ok {
		return 0, &experr.ConfigurationError{Name: name, Reason: "no derivation formula registered"}
	}
	inputs := make(map[string]float64, len(formula.Inputs))
	for _, in := range formula.Inputs {
		raw, ok := s.Get(in)
		if !ok {
			return 0, &experr.ConfigurationError{Name: in, Reason: fmt.Sprintf("required by derived parameter %q but not in store", name)}
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, &experr.DomainError{Name: name, Reason: fmt.Sprintf("input %s=%q is not numeric", in, raw)}
		}
		inputs[in] = v
	}
	v, err := formula.Fn(inputs)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &experr.DomainError{Name: name, Reason: "formula produced a non-finite value"}
	}
	return roundTo(v, Precision), nil
}

// Resolve returns the value a template placeholder should substitute:
// derived parameters are recomputed, plain parameters are read as-is.
func (s *Store) Resolve(name string) (string, bool, error) {
	if _, derived := s.formulas[name]; derived {
		v, err := s.Derive(name)
		if err != nil {
			return "", true, err
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true, nil
	}
	v, ok := s.Get(name)
	return v, ok, nil
}

// ArenaDim is the spatial-extent formula: the side of a square arena holding
// a given number of robots at a given density. Density must be positive.
func ArenaDim(inputs map[string]float64) (float64, error) {
	count := inputs["NUMROBOTS"]
	density := inputs["DENSITY"]
	if density <= 0 {
		return 0, &experr.DomainError{Name: "ARENADIM", Reason: fmt.Sprintf("density must be positive, got %v", density)}
	}
	return math.Sqrt(count / density), nil
}

// RegisterArenaDim wires the standard ARENADIM derivation onto a store.
func RegisterArenaDim(s *Store) {
	s.RegisterDerived("ARENADIM", []string{"NUMROBOTS", "DENSITY"}, ArenaDim)
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
