package render

import (
	"errors"
	"fmt"

	sdfxrender "github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/soypat/fermisurf"
	"github.com/soypat/fermisurf/clip"
	"github.com/soypat/fermisurf/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// SDFXExtractor extracts level sets with the uniform marching cubes renderer
// of sdfx. The sdfx sampling grid is padded beyond bounds and does not line up
// with the lattice, so it suits smooth implicit functions; GridExtractor is
// exact on the lattice. Points sampled outside bounds take the value of the
// nearest point inside and the output is clipped to bounds.
type SDFXExtractor struct {
	// Cells along the longest axis of bounds. Zero uses one cell per lattice
	// spacing.
	Cells int
}

var _ Extractor = SDFXExtractor{}

// Extract implements Extractor. The returned mesh has shared vertices.
func (x SDFXExtractor) Extract(dims [3]int, fn func(r3.Vec) float64, bounds r3.Box) ([]r3.Vec, [][3]int, error) {
	if fn == nil {
		return nil, nil, errors.New("nil implicit function")
	}
	if dims[0] <= 0 || dims[1] <= 0 || dims[2] <= 0 {
		return nil, nil, fmt.Errorf("grid dimensions must be positive, got %v", dims)
	}
	size := bounds.Size()
	if d3.LTZero(size) {
		return nil, nil, fmt.Errorf("inverted bounds %v", bounds)
	}
	if d3.LTEZero(size) {
		// Flat region, no volume to march.
		return nil, nil, nil
	}
	cells := x.Cells
	if cells <= 0 {
		cells = max(dims[0], dims[1], dims[2]) - 1
	}
	cells = max(cells, 1)
	tris := sdfxrender.ToTriangles(clampedSDF{fn: fn, bb: bounds}, sdfxrender.NewMarchingCubesUniform(cells))
	positions := make([]r3.Vec, 0, 3*len(tris))
	soup := make([][3]int, len(tris))
	for i, t := range tris {
		positions = append(positions, fromV3(t[0]), fromV3(t[1]), fromV3(t[2]))
		soup[i] = [3]int{3 * i, 3*i + 1, 3*i + 2}
	}
	m := clip.Clip(positions, soup, boxPlanes(bounds))
	return m.Positions, m.Cells, nil
}

// clampedSDF adapts an implicit function over a box to sdf.SDF3.
type clampedSDF struct {
	fn func(r3.Vec) float64
	bb r3.Box
}

func (s clampedSDF) Evaluate(p v3.Vec) float64 {
	return s.fn(r3.Vec{
		X: fermisurf.Clamp(p.X, s.bb.Min.X, s.bb.Max.X),
		Y: fermisurf.Clamp(p.Y, s.bb.Min.Y, s.bb.Max.Y),
		Z: fermisurf.Clamp(p.Z, s.bb.Min.Z, s.bb.Max.Z),
	})
}

func (s clampedSDF) BoundingBox() sdf.Box3 {
	return sdf.Box3{Min: toV3(s.bb.Min), Max: toV3(s.bb.Max)}
}

// boxPlanes returns the six outward facing planes of bb.
func boxPlanes(bb r3.Box) []fermisurf.Plane {
	return []fermisurf.Plane{
		{Normal: r3.Vec{X: 1}, D: bb.Max.X},
		{Normal: r3.Vec{X: -1}, D: -bb.Min.X},
		{Normal: r3.Vec{Y: 1}, D: bb.Max.Y},
		{Normal: r3.Vec{Y: -1}, D: -bb.Min.Y},
		{Normal: r3.Vec{Z: 1}, D: bb.Max.Z},
		{Normal: r3.Vec{Z: -1}, D: -bb.Min.Z},
	}
}

func toV3(v r3.Vec) v3.Vec   { return v3.Vec{X: v.X, Y: v.Y, Z: v.Z} }
func fromV3(v v3.Vec) r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }
