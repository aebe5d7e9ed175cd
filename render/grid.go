package render

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/soypat/fermisurf"
	"github.com/soypat/fermisurf/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Each lattice cell is split into six tetrahedra sharing the c0-c6 diagonal.
// Neighbouring cells split their shared faces along the same diagonal so the
// resulting surface has no cracks.
const tetraMaxTriangles = 2 * len(cellTetrahedra)

// Cell corner offsets. Corners are numbered counter-clockwise on the bottom
// face then on the top face.
var cornerOffsets = [8]fermisurf.V3i{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

var cellTetrahedra = [6][4]int{
	{0, 5, 1, 6},
	{0, 1, 2, 6},
	{0, 2, 3, 6},
	{0, 3, 7, 6},
	{0, 7, 4, 6},
	{0, 4, 5, 6},
}

// GridExtractor extracts level sets with marching tetrahedra over the
// sampling lattice. Nodes with fn(p) < 0 are inside.
type GridExtractor struct{}

var _ Extractor = GridExtractor{}

// Extract implements Extractor. The returned mesh is a triangle soup.
func (GridExtractor) Extract(dims [3]int, fn func(r3.Vec) float64, bounds r3.Box) ([]r3.Vec, [][3]int, error) {
	r, err := NewGridRenderer(dims, fn, bounds)
	if err != nil {
		return nil, nil, err
	}
	model, err := RenderAll(r)
	if err != nil {
		return nil, nil, err
	}
	positions := make([]r3.Vec, 0, 3*len(model))
	cells := make([][3]int, len(model))
	for i, t := range model {
		positions = append(positions, t[0], t[1], t[2])
		cells[i] = [3]int{3 * i, 3*i + 1, 3*i + 2}
	}
	return positions, cells, nil
}

type gridRenderer struct {
	nc        nodeCache
	cells     fermisurf.V3i // cells along each axis
	next      int           // linear index of next cell to process
	unwritten triangle3Buffer
}

// NewGridRenderer returns a marching tetrahedra Renderer over a lattice of dims
// nodes spanning bounds. fn is evaluated exactly once per lattice node.
func NewGridRenderer(dims [3]int, fn func(r3.Vec) float64, bounds r3.Box) (*gridRenderer, error) {
	if fn == nil {
		return nil, errors.New("nil implicit function")
	}
	nodes := fermisurf.V3i(dims)
	if nodes[0] <= 0 || nodes[1] <= 0 || nodes[2] <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %v", dims)
	}
	size := bounds.Size()
	if d3.LTZero(size) {
		return nil, fmt.Errorf("inverted bounds %v", bounds)
	}
	// A single node along an axis has no extent; any spacing works.
	den := d3.MaxElem(nodes.AddScalar(-1).ToV3(), d3.Elem(1))
	return &gridRenderer{
		nc:        newNodeCache(fn, bounds.Min, d3.DivElem(size, den), nodes),
		cells:     nodes.AddScalar(-1),
		unwritten: triangle3Buffer{buf: make([]r3.Triangle, 0, tetraMaxTriangles)},
	}, nil
}

// ReadTriangles writes triangles rendered from the lattice into the argument buffer.
// returns number of triangles written and an error if present.
func (g *gridRenderer) ReadTriangles(dst []r3.Triangle) (n int, err error) {
	if len(dst) == 0 {
		panic("cannot write to empty triangle slice")
	}
	if g.unwritten.Len() > 0 {
		n += g.unwritten.Read(dst[n:])
		if n == len(dst) {
			return n, nil
		}
	}
	total := g.cells.Prod()
	if g.cells[0] <= 0 || g.cells[1] <= 0 || g.cells[2] <= 0 {
		total = 0
	}
	for g.next < total && n < len(dst) {
		cell := g.cellAt(g.next)
		g.next++
		if n+tetraMaxTriangles > len(dst) {
			// Not enough room for the worst case, stage the cell's triangles.
			var tmp [tetraMaxTriangles]r3.Triangle
			nt := g.processCell(tmp[:], cell)
			g.unwritten.Write(tmp[:nt])
			n += g.unwritten.Read(dst[n:])
			continue
		}
		n += g.processCell(dst[n:], cell)
	}
	if g.next >= total && g.unwritten.Len() == 0 {
		return n, io.EOF
	}
	return n, nil
}

func (g *gridRenderer) cellAt(i int) fermisurf.V3i {
	nx, ny := g.cells[0], g.cells[1]
	return fermisurf.V3i{i % nx, (i / nx) % ny, i / (nx * ny)}
}

// processCell writes the triangles of a single lattice cell to dst.
func (g *gridRenderer) processCell(dst []r3.Triangle, c fermisurf.V3i) (written int) {
	var corners [8]latticeNode
	inside := 0
	for i, off := range cornerOffsets {
		corners[i] = g.nc.node(c.Add(off))
		if corners[i].v < 0 {
			inside++
		}
	}
	if inside == 0 || inside == 8 {
		return 0
	}
	for _, tet := range cellTetrahedra {
		written += tetraToTriangles(dst[written:], [4]latticeNode{
			corners[tet[0]], corners[tet[1]], corners[tet[2]], corners[tet[3]],
		})
	}
	return written
}

type latticeNode struct {
	idx int // linear lattice index, orders edge endpoints
	p   r3.Vec
	v   float64
}

// tetraToTriangles writes the 0, 1 or 2 triangles approximating the zero set
// within a tetrahedron. Triangles face the outside.
func tetraToTriangles(dst []r3.Triangle, tet [4]latticeNode) int {
	var in, out [4]latticeNode
	var nin, nout int
	for _, n := range tet {
		if n.v < 0 {
			in[nin] = n
			nin++
		} else {
			out[nout] = n
			nout++
		}
	}
	var tris [2]r3.Triangle
	nt := 0
	switch nin {
	case 0, 4:
		return 0
	case 1:
		tris[0] = r3.Triangle{crossing(in[0], out[0]), crossing(in[0], out[1]), crossing(in[0], out[2])}
		nt = 1
	case 3:
		tris[0] = r3.Triangle{crossing(in[0], out[0]), crossing(in[1], out[0]), crossing(in[2], out[0])}
		nt = 1
	case 2:
		a, b, c, d := in[0], in[1], out[0], out[1]
		ac, ad, bd, bc := crossing(a, c), crossing(a, d), crossing(b, d), crossing(b, c)
		tris[0] = r3.Triangle{ac, ad, bd}
		tris[1] = r3.Triangle{ac, bd, bc}
		nt = 2
	}
	// Orient normals along the inside to outside direction.
	var cin, cout r3.Vec
	for _, n := range in[:nin] {
		cin = r3.Add(cin, n.p)
	}
	for _, n := range out[:nout] {
		cout = r3.Add(cout, n.p)
	}
	dir := r3.Sub(r3.Scale(1/float64(nout), cout), r3.Scale(1/float64(nin), cin))
	written := 0
	for _, t := range tris[:nt] {
		if t.IsDegenerate(0) {
			continue
		}
		if r3.Dot(t.Normal(), dir) < 0 {
			t[1], t[2] = t[2], t[1]
		}
		dst[written] = t
		written++
	}
	return written
}

// crossing returns the zero crossing of the linear interpolant along edge a-b.
// The point is always computed from the endpoint with the lower lattice index
// so both cells sharing an edge produce bitwise identical points.
func crossing(a, b latticeNode) r3.Vec {
	if b.idx < a.idx {
		a, b = b, a
	}
	var t float64
	switch {
	case math.IsInf(a.v, 0):
		t = 1
	case math.IsInf(b.v, 0):
		t = 0
	default:
		t = a.v / (a.v - b.v)
	}
	if !(t >= 0) {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return r3.Add(a.p, r3.Scale(t, r3.Sub(b.p, a.p)))
}

// nodeCache evaluates the implicit function once per lattice node.
// It is not safe for concurrent use.
type nodeCache struct {
	fn      func(r3.Vec) float64
	origin  r3.Vec
	spacing r3.Vec
	nodes   fermisurf.V3i
	values  []float64
	done    []bool
}

func newNodeCache(fn func(r3.Vec) float64, origin, spacing r3.Vec, nodes fermisurf.V3i) nodeCache {
	n := nodes.Prod()
	return nodeCache{
		fn:      fn,
		origin:  origin,
		spacing: spacing,
		nodes:   nodes,
		values:  make([]float64, n),
		done:    make([]bool, n),
	}
}

func (nc *nodeCache) node(vi fermisurf.V3i) latticeNode {
	idx := vi[0] + nc.nodes[0]*(vi[1]+nc.nodes[1]*vi[2])
	p := r3.Add(nc.origin, d3.MulElem(vi.ToV3(), nc.spacing))
	if !nc.done[idx] {
		nc.values[idx] = nc.fn(p)
		nc.done[idx] = true
	}
	return latticeNode{idx: idx, p: p, v: nc.values[idx]}
}
