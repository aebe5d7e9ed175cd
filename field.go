package fermisurf

import (
	"fmt"
	"math"

	"github.com/soypat/fermisurf/internal/d3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// latticeSnap absorbs representation error when a physical coordinate that
// lies on a lattice node is mapped back to its integer index.
const latticeSnap = 1e-9

// FieldInfo is the raw description of a scalar field sampled on a regular grid.
// Values are laid out with x varying fastest:
//  idx = ix + nx*(iy + ny*iz)
// NaN values mark cells with no data.
type FieldInfo struct {
	Dims    [3]int
	Origin  r3.Vec
	Spacing r3.Vec
	Values  []float64
	// Min and Max override the extrema computed from Values when non-nil.
	Min, Max *float64
}

// NamedField is one band's scalar field with its optional display name.
type NamedField struct {
	Name  string
	Field *ScalarField
}

// ScalarField is an immutable sampler over a formatted grid buffer. No-data cells
// hold +Inf so they can never lie below an energy threshold.
type ScalarField struct {
	dims    V3i
	origin  r3.Vec
	spacing r3.Vec
	inv     r3.Vec
	values  []float64
	min     float64
	max     float64
}

// Build validates the grid shape and formats the value buffer.
func (fi FieldInfo) Build() (*ScalarField, error) {
	nx, ny, nz := fi.Dims[0], fi.Dims[1], fi.Dims[2]
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, &ShapeError{Dims: fi.Dims, Len: len(fi.Values), Msg: "dimensions must be positive"}
	}
	if d3.LTEZero(fi.Spacing) || !d3.Finite(fi.Spacing) || !d3.Finite(fi.Origin) {
		return nil, &ShapeError{Dims: fi.Dims, Len: len(fi.Values), Msg: fmt.Sprintf("bad spacing %v or origin %v", fi.Spacing, fi.Origin)}
	}
	n := nx * ny * nz
	if len(fi.Values) != n {
		return nil, &ShapeError{Dims: fi.Dims, Len: len(fi.Values), Msg: fmt.Sprintf("want %d values", n)}
	}
	sf := &ScalarField{
		dims:    V3i{nx, ny, nz},
		origin:  fi.Origin,
		spacing: fi.Spacing,
		inv:     d3.DivElem(d3.Elem(1), fi.Spacing),
		values:  make([]float64, n),
	}
	defined := make([]float64, 0, n)
	for i, v := range fi.Values {
		if math.IsNaN(v) {
			sf.values[i] = math.Inf(1)
			continue
		}
		sf.values[i] = v
		defined = append(defined, v)
	}
	if len(defined) > 0 {
		sf.min = floats.Min(defined)
		sf.max = floats.Max(defined)
	} else {
		// Nothing defined: every energy is out of range.
		sf.min, sf.max = math.Inf(1), math.Inf(-1)
	}
	if fi.Min != nil {
		sf.min = *fi.Min
	}
	if fi.Max != nil {
		sf.max = *fi.Max
	}
	return sf, nil
}

// Dims returns the number of lattice nodes along each axis.
func (sf *ScalarField) Dims() [3]int { return sf.dims }

// Len returns the number of lattice nodes.
func (sf *ScalarField) Len() int { return len(sf.values) }

// Range returns the extrema over defined values.
func (sf *ScalarField) Range() (min, max float64) { return sf.min, sf.max }

// Bounds returns the physical box spanned by the lattice nodes.
func (sf *ScalarField) Bounds() r3.Box {
	span := d3.MulElem(sf.dims.AddScalar(-1).ToV3(), sf.spacing)
	return r3.Box{Min: sf.origin, Max: r3.Add(sf.origin, span)}
}

// Index maps a physical coordinate to its lattice cell. No bounds checking is done.
func (sf *ScalarField) Index(p r3.Vec) V3i {
	v := d3.MulElem(r3.Sub(p, sf.origin), sf.inv)
	return V3i{
		int(math.Floor(v.X + latticeSnap)),
		int(math.Floor(v.Y + latticeSnap)),
		int(math.Floor(v.Z + latticeSnap)),
	}
}

// Node returns the physical position of lattice node i.
func (sf *ScalarField) Node(i V3i) r3.Vec {
	return r3.Add(sf.origin, d3.MulElem(i.ToV3(), sf.spacing))
}

// At returns the formatted value stored at lattice node i.
func (sf *ScalarField) At(i V3i) float64 {
	return sf.values[i[0]+sf.dims[0]*(i[1]+sf.dims[1]*i[2])]
}

// Sample returns the value of the cell containing p. Sampling outside
// Bounds is a programming error: it panics or reads a neighbouring row.
func (sf *ScalarField) Sample(p r3.Vec) float64 {
	return sf.At(sf.Index(p))
}

// Implicit returns the function p -> Sample(p) - energy whose zero set is the
// level set at energy.
func (sf *ScalarField) Implicit(energy float64) func(r3.Vec) float64 {
	return func(p r3.Vec) float64 {
		return sf.Sample(p) - energy
	}
}

// IsDefinitelyOutOfRange reports whether energy is so far outside the field's
// value range that extraction can be skipped. The 1.1 and 0.9 factors are a
// slack band relative to energy; for negative energies they widen the band on
// the opposite side.
func (sf *ScalarField) IsDefinitelyOutOfRange(energy float64) bool {
	return 1.1*energy < sf.min || 0.9*energy > sf.max
}
