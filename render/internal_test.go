package render

import (
	"io"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func sphereFn(r float64) func(r3.Vec) float64 {
	return func(p r3.Vec) float64 { return r3.Norm(p) - r }
}

var unitCube = r3.Box{Min: r3.Vec{X: -1, Y: -1, Z: -1}, Max: r3.Vec{X: 1, Y: 1, Z: 1}}

func TestTetraMaxTriangles(t *testing.T) {
	// Every sign pattern of a tetrahedron yields at most two triangles.
	var dst [2]r3.Triangle
	for mask := 0; mask < 16; mask++ {
		var tet [4]latticeNode
		for i := range tet {
			tet[i] = latticeNode{idx: i, p: cornerOffsets[cellTetrahedra[0][i]].ToV3(), v: 1}
			if mask&(1<<i) != 0 {
				tet[i].v = -1
			}
		}
		n := tetraToTriangles(dst[:], tet)
		want := 0
		switch bits := popcount(mask); bits {
		case 1, 3:
			want = 1
		case 2:
			want = 2
		}
		if n != want {
			t.Errorf("mask %04b: got %d triangles, want %d", mask, n, want)
		}
	}
}

func popcount(x int) (n int) {
	for ; x != 0; x &= x - 1 {
		n++
	}
	return n
}

func TestCrossingSymmetric(t *testing.T) {
	a := latticeNode{idx: 3, p: r3.Vec{X: 0.1, Y: 0.7, Z: 0.3}, v: -0.3}
	b := latticeNode{idx: 9, p: r3.Vec{X: 0.2, Y: 0.7, Z: 0.3}, v: 0.7}
	if crossing(a, b) != crossing(b, a) {
		t.Fatal("edge crossing depends on argument order")
	}
	b.v = math.Inf(1)
	if got := crossing(a, b); got != a.p {
		t.Errorf("infinite endpoint: got %v, want %v", got, a.p)
	}
	if got := crossing(b, a); got != a.p {
		t.Errorf("infinite endpoint reversed: got %v, want %v", got, a.p)
	}
}

func TestGridWatertight(t *testing.T) {
	model, err := RenderAll(mustGrid(t, [3]int{12, 12, 12}, sphereFn(0.6), unitCube))
	if err != nil {
		t.Fatal(err)
	}
	if len(model) == 0 {
		t.Fatal("no triangles")
	}
	// A closed, consistently oriented surface uses each directed edge once
	// and its reverse once.
	edges := make(map[[2]r3.Vec]int)
	for _, tri := range model {
		for i := 0; i < 3; i++ {
			edges[[2]r3.Vec{tri[i], tri[(i+1)%3]}]++
		}
	}
	for e, n := range edges {
		if n != 1 {
			t.Fatalf("directed edge %v used %d times", e, n)
		}
		if edges[[2]r3.Vec{e[1], e[0]}] != 1 {
			t.Fatalf("edge %v has no opposite", e)
		}
	}
	// Normals point away from the sphere centre.
	for _, tri := range model {
		if r3.Dot(tri.Normal(), tri.Centroid()) <= 0 {
			t.Fatalf("inward facing triangle %v", tri)
		}
	}
}

func TestGridSmallBuffer(t *testing.T) {
	want, err := RenderAll(mustGrid(t, [3]int{8, 7, 6}, sphereFn(0.7), unitCube))
	if err != nil {
		t.Fatal(err)
	}
	r := mustGrid(t, [3]int{8, 7, 6}, sphereFn(0.7), unitCube)
	var got []r3.Triangle
	buf := make([]r3.Triangle, 5)
	for {
		n, err := r.ReadTriangles(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("streamed %d triangles, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("triangle %d mismatch", i)
		}
	}
}

func TestGridEvaluatesNodesOnce(t *testing.T) {
	calls := 0
	fn := func(p r3.Vec) float64 {
		calls++
		return p.Z
	}
	_, err := RenderAll(mustGrid(t, [3]int{4, 5, 6}, fn, unitCube))
	if err != nil {
		t.Fatal(err)
	}
	if calls != 4*5*6 {
		t.Errorf("got %d evaluations, want %d", calls, 4*5*6)
	}
}

func mustGrid(t *testing.T, dims [3]int, fn func(r3.Vec) float64, bb r3.Box) *gridRenderer {
	t.Helper()
	r, err := NewGridRenderer(dims, fn, bb)
	if err != nil {
		t.Fatal(err)
	}
	return r
}
