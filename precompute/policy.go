// Package precompute speculatively builds band meshes for energy ranges in
// the background.
package precompute

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/soypat/fermisurf"
)

// ErrZeroStep is returned for sweeps whose step is zero or not a number.
var ErrZeroStep = errors.New("precompute: sweep step must be non-zero")

// sweepTolerance makes the end of a sweep inclusive despite step rounding.
const sweepTolerance = 1e-9

// Threshold selects the precompute range width for builds faster than MaxTime.
type Threshold struct {
	MaxTime time.Duration
	Width   float64
}

// Policy decides which energy ranges to precompute after a foreground build.
// A zero Policy behaves like DefaultPolicy.
type Policy struct {
	// Thresholds are tried in order; the first with MaxTime greater than the
	// build time wins. Nil uses DefaultThresholds.
	Thresholds []Threshold
	// Step between precomputed energies. Zero uses 0.1.
	Step float64
}

// DefaultThresholds trades range width for build time.
var DefaultThresholds = []Threshold{
	{MaxTime: 20 * time.Millisecond, Width: 10},
	{MaxTime: 40 * time.Millisecond, Width: 5},
	{MaxTime: 50 * time.Millisecond, Width: 2},
}

// DefaultPolicy returns the policy used by a zero Policy.
func DefaultPolicy() Policy {
	return Policy{Thresholds: DefaultThresholds, Step: 0.1}
}

// Sweep is an energy range walked from EMin towards EMax in steps of |Step|.
// EMin may be greater than EMax.
type Sweep struct {
	EMin, EMax float64
	Step       float64
}

// Plan returns the sweeps to start after a foreground build at curE took
// elapsed, the previous energy being prevE. The travel direction is
// sign(curE-prevE). The wide sweep of the selected width goes against the
// travel direction and the narrow sweep of half width continues along it.
// Plan returns nil when no threshold matches or the energy did not change.
func (p Policy) Plan(elapsed time.Duration, prevE, curE float64) []Sweep {
	p = p.withDefaults()
	dir := fermisurf.Sign(curE - prevE)
	if dir == 0 {
		return nil
	}
	for _, th := range p.Thresholds {
		if th.MaxTime <= elapsed {
			continue
		}
		return []Sweep{
			{EMin: curE, EMax: curE - dir*th.Width, Step: p.Step},
			{EMin: curE, EMax: curE + dir*0.5*th.Width, Step: p.Step},
		}
	}
	return nil
}

func (p Policy) withDefaults() Policy {
	if p.Thresholds == nil {
		p.Thresholds = DefaultThresholds
	}
	if p.Step == 0 {
		p.Step = 0.1
	}
	return p
}

// Energies returns the energies visited by the sweep, starting at EMin and
// ending at the last step not past EMax. EMax itself is included when it lies
// within a small tolerance of a step.
func (s Sweep) Energies() ([]float64, error) {
	if s.Step == 0 || math.IsNaN(s.Step) || math.IsInf(s.Step, 0) {
		return nil, ErrZeroStep
	}
	if math.IsNaN(s.EMin) || math.IsInf(s.EMin, 0) || math.IsNaN(s.EMax) || math.IsInf(s.EMax, 0) {
		return nil, fmt.Errorf("precompute: non-finite sweep bounds [%g,%g]", s.EMin, s.EMax)
	}
	step := math.Abs(s.Step) * fermisurf.Sign(s.EMax-s.EMin)
	n := 0
	if step != 0 {
		n = int(math.Floor(math.Abs(s.EMax-s.EMin)/math.Abs(step) + sweepTolerance))
	}
	energies := make([]float64, n+1)
	for i := range energies {
		energies[i] = s.EMin + float64(i)*step
	}
	return energies, nil
}
