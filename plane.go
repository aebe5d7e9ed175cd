package fermisurf

import (
	"math"

	"github.com/soypat/fermisurf/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Plane bounds the half-space Normal·p <= D.
type Plane struct {
	Normal r3.Vec
	D      float64
}

// Distance returns the signed distance of p from the plane scaled by |Normal|.
// Non-positive values lie inside.
func (pl Plane) Distance(p r3.Vec) float64 {
	return r3.Dot(pl.Normal, p) - pl.D
}

// Contains reports whether p lies inside the half-space.
func (pl Plane) Contains(p r3.Vec) bool {
	return pl.Distance(p) <= 0
}

// DedupPlanes removes planes whose normal and offset are both within tol of
// an earlier plane's. Order of the first occurrences is kept.
func DedupPlanes(planes []Plane, tol float64) []Plane {
	unique := make([]Plane, 0, len(planes))
	for _, pl := range planes {
		if !hasPlane(unique, pl, tol) {
			unique = append(unique, pl)
		}
	}
	return unique
}

func hasPlane(planes []Plane, pl Plane, tol float64) bool {
	for _, u := range planes {
		if d3.EqualWithin(pl.Normal, u.Normal, tol) && math.Abs(pl.D-u.D) <= tol {
			return true
		}
	}
	return false
}
