package fermisurf

import (
	"errors"
	"fmt"

	"github.com/soypat/fermisurf/internal/d3"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is a shared-vertex triangle mesh. Every Cells index is in bounds of Positions.
type Mesh struct {
	Positions []r3.Vec
	Cells     [][3]int
}

// Band is one scalar field's level-set mesh together with the display metadata
// handed to the rendering collaborator untouched.
type Band struct {
	Mesh
	Color string
	Name  string
}

// Placeholder returns the degenerate band substituted for an energy that lies
// outside the field's range: a single collapsed triangle at the origin.
func Placeholder(color, name string) Band {
	return Band{
		Mesh: Mesh{
			Positions: []r3.Vec{{}},
			Cells:     [][3]int{{0, 0, 0}},
		},
		Color: color,
		Name:  name,
	}
}

// IsPlaceholder reports whether m is the degenerate placeholder mesh.
func (m Mesh) IsPlaceholder() bool {
	return len(m.Positions) == 1 && len(m.Cells) == 1 && m.Cells[0] == [3]int{}
}

// Validate checks every cell index is in bounds and every position is finite.
func (m Mesh) Validate() error {
	for i, p := range m.Positions {
		if !d3.Finite(p) {
			return fmt.Errorf("position %d not finite: %v", i, p)
		}
	}
	n := len(m.Positions)
	for i, c := range m.Cells {
		if c[0] < 0 || c[1] < 0 || c[2] < 0 || c[0] >= n || c[1] >= n || c[2] >= n {
			return fmt.Errorf("cell %d %v out of bounds for %d positions", i, c, n)
		}
	}
	return nil
}

// Triangles returns the mesh as a triangle soup.
func (m Mesh) Triangles() []r3.Triangle {
	t := make([]r3.Triangle, len(m.Cells))
	for i, c := range m.Cells {
		t[i] = r3.Triangle{m.Positions[c[0]], m.Positions[c[1]], m.Positions[c[2]]}
	}
	return t
}

// Area returns the total surface area of the mesh.
func (m Mesh) Area() (area float64) {
	for _, c := range m.Cells {
		area += r3.Triangle{m.Positions[c[0]], m.Positions[c[1]], m.Positions[c[2]]}.Area()
	}
	return area
}

// Bounds returns the smallest box containing all positions.
// It panics on an empty mesh.
func (m Mesh) Bounds() r3.Box {
	if len(m.Positions) == 0 {
		panic(errors.New("bounds of empty mesh"))
	}
	set := d3.Set(m.Positions)
	return r3.Box{Min: set.Min(), Max: set.Max()}
}

// Duplicates returns pairs of distinct position indices i < j whose coordinates
// all lie within tol of each other.
func (m Mesh) Duplicates(tol float64) [][2]int {
	if len(m.Positions) < 2 {
		return nil
	}
	verts := make(kdVertices, len(m.Positions))
	for i, p := range m.Positions {
		verts[i] = kdVertex{V: p, idx: i}
	}
	tree := kdtree.New(verts, false)
	span := r3.Vec{X: tol, Y: tol, Z: tol}
	var dups [][2]int
	for i, p := range m.Positions {
		b := &kdtree.Bounding{
			Min: kdVertex{V: r3.Sub(p, span)},
			Max: kdVertex{V: r3.Add(p, span)},
		}
		tree.DoBounded(b, func(c kdtree.Comparable, _ *kdtree.Bounding, _ int) bool {
			if j := c.(kdVertex).idx; j > i {
				dups = append(dups, [2]int{i, j})
			}
			return false
		})
	}
	return dups
}

// FlatMesh is a band packed as parallel float32 coordinate and uint32 index arrays.
type FlatMesh struct {
	X, Y, Z []float32
	I, J, K []uint32
}

// Flat packs the mesh into parallel coordinate and index arrays.
func (m Mesh) Flat() FlatMesh {
	f := FlatMesh{
		X: make([]float32, len(m.Positions)),
		Y: make([]float32, len(m.Positions)),
		Z: make([]float32, len(m.Positions)),
		I: make([]uint32, len(m.Cells)),
		J: make([]uint32, len(m.Cells)),
		K: make([]uint32, len(m.Cells)),
	}
	for i, p := range m.Positions {
		f.X[i], f.Y[i], f.Z[i] = float32(p.X), float32(p.Y), float32(p.Z)
	}
	for i, c := range m.Cells {
		f.I[i], f.J[i], f.K[i] = uint32(c[0]), uint32(c[1]), uint32(c[2])
	}
	return f
}

var (
	_ kdtree.Interface  = kdVertices{}
	_ kdtree.Comparable = kdVertex{}
)

type kdVertex struct {
	V   r3.Vec
	idx int
}

// Compare returns the signed distance of a from the plane passing through
// b and perpendicular to the dimension d.
func (a kdVertex) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	return kdComp(a.V, b.(kdVertex).V, int(d))
}

func (a kdVertex) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between the receiver and
// the parameter.
func (a kdVertex) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(a.V, b.(kdVertex).V))
}

type kdVertices []kdVertex

func (k kdVertices) Index(i int) kdtree.Comparable { return k[i] }

func (k kdVertices) Len() int { return len(k) }

// Pivot partitions the list based on the dimension specified.
func (k kdVertices) Pivot(d kdtree.Dim) int {
	p := kdPlane{dim: int(d), verts: k}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (k kdVertices) Slice(start, end int) kdtree.Interface { return k[start:end] }

type kdPlane struct {
	dim   int
	verts kdVertices
}

func (p kdPlane) Len() int { return len(p.verts) }
func (p kdPlane) Less(i, j int) bool {
	return kdComp(p.verts[i].V, p.verts[j].V, p.dim) < 0
}
func (p kdPlane) Swap(i, j int) { p.verts[i], p.verts[j] = p.verts[j], p.verts[i] }
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.verts = p.verts[start:end]
	return p
}

// c = a.dim - b.dim
func kdComp(a, b r3.Vec, dim int) float64 {
	switch dim {
	case 0:
		return a.X - b.X
	case 1:
		return a.Y - b.Y
	}
	return a.Z - b.Z
}
