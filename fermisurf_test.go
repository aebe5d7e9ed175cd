package fermisurf

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func stepField(t *testing.T) *ScalarField {
	t.Helper()
	sf, err := FieldInfo{
		Dims:    [3]int{2, 2, 2},
		Spacing: r3.Vec{X: 1, Y: 1, Z: 1},
		Values:  []float64{0, 0, 0, 0, 10, 10, 10, 10},
	}.Build()
	if err != nil {
		t.Fatal(err)
	}
	return sf
}

func TestFieldBuild(t *testing.T) {
	sf := stepField(t)
	min, max := sf.Range()
	if min != 0 || max != 10 {
		t.Errorf("range: got [%g,%g], want [0,10]", min, max)
	}
	b := sf.Bounds()
	if b.Min != (r3.Vec{}) || b.Max != (r3.Vec{X: 1, Y: 1, Z: 1}) {
		t.Errorf("bounds: got %v", b)
	}
	if sf.Len() != 8 {
		t.Errorf("len: got %d", sf.Len())
	}
}

func TestFieldShapeError(t *testing.T) {
	for _, test := range []FieldInfo{
		{Dims: [3]int{2, 2, 2}, Spacing: r3.Vec{X: 1, Y: 1, Z: 1}, Values: make([]float64, 7)},
		{Dims: [3]int{0, 2, 2}, Spacing: r3.Vec{X: 1, Y: 1, Z: 1}},
		{Dims: [3]int{1, 1, 1}, Spacing: r3.Vec{X: 1, Y: 0, Z: 1}, Values: make([]float64, 1)},
		{Dims: [3]int{1, 1, 1}, Spacing: r3.Vec{X: 1, Y: math.NaN(), Z: 1}, Values: make([]float64, 1)},
	} {
		_, err := test.Build()
		var shapeErr *ShapeError
		if !errors.As(err, &shapeErr) {
			t.Errorf("%v: want ShapeError, got %v", test.Dims, err)
		}
	}
}

func TestFieldNoData(t *testing.T) {
	sf, err := FieldInfo{
		Dims:    [3]int{2, 1, 1},
		Spacing: r3.Vec{X: 1, Y: 1, Z: 1},
		Values:  []float64{math.NaN(), 3},
	}.Build()
	if err != nil {
		t.Fatal(err)
	}
	if got := sf.Sample(r3.Vec{}); !math.IsInf(got, 1) {
		t.Errorf("no-data cell: got %g, want +Inf", got)
	}
	min, max := sf.Range()
	if min != 3 || max != 3 {
		t.Errorf("range over defined values: got [%g,%g]", min, max)
	}
}

func TestFieldSampleLayout(t *testing.T) {
	// Value equals its own flat index so the x-fastest layout can be read back.
	const nx, ny, nz = 3, 4, 5
	vals := make([]float64, nx*ny*nz)
	for i := range vals {
		vals[i] = float64(i)
	}
	sf, err := FieldInfo{
		Dims:    [3]int{nx, ny, nz},
		Origin:  r3.Vec{X: -1, Y: 0.5, Z: 2},
		Spacing: r3.Vec{X: 0.1, Y: 0.3, Z: 0.7},
		Values:  vals,
	}.Build()
	if err != nil {
		t.Fatal(err)
	}
	for iz := 0; iz < nz; iz++ {
		for iy := 0; iy < ny; iy++ {
			for ix := 0; ix < nx; ix++ {
				p := sf.Node(V3i{ix, iy, iz})
				want := float64(ix + nx*(iy+ny*iz))
				if got := sf.Sample(p); got != want {
					t.Fatalf("node (%d,%d,%d): got %g, want %g", ix, iy, iz, got, want)
				}
			}
		}
	}
	// Points inside a cell floor to the cell's lower corner.
	if got := sf.Sample(r3.Vec{X: -0.95, Y: 0.7, Z: 2.1}); got != 0 {
		t.Errorf("interior sample: got %g, want 0", got)
	}
}

func TestIsDefinitelyOutOfRange(t *testing.T) {
	lo, hi := 0.0, 1.0
	sf, err := FieldInfo{
		Dims:    [3]int{1, 1, 1},
		Spacing: r3.Vec{X: 1, Y: 1, Z: 1},
		Values:  []float64{0.5},
		Min:     &lo,
		Max:     &hi,
	}.Build()
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		E    float64
		want bool
	}{
		{E: 100, want: true},
		{E: 0.5, want: false},
		{E: 1.1, want: false}, // 0.9*1.1 = 0.99 <= max
		{E: 1.2, want: true},
		{E: -0.01, want: true},
	} {
		if got := sf.IsDefinitelyOutOfRange(test.E); got != test.want {
			t.Errorf("E=%g: got %v, want %v", test.E, got, test.want)
		}
	}
}

func TestImplicit(t *testing.T) {
	sf := stepField(t)
	fn := sf.Implicit(5)
	if got := fn(r3.Vec{}); got != -5 {
		t.Errorf("below: got %g", got)
	}
	if got := fn(r3.Vec{X: 1, Y: 1, Z: 1}); got != 5 {
		t.Errorf("above: got %g", got)
	}
}

func TestPlaceholder(t *testing.T) {
	b := Placeholder("#ff0000", "Band 1")
	if !b.IsPlaceholder() {
		t.Fatal("placeholder not recognised")
	}
	if err := b.Validate(); err != nil {
		t.Fatal(err)
	}
	if b.Color != "#ff0000" || b.Name != "Band 1" {
		t.Errorf("metadata not passed through: %+v", b)
	}
}

func TestMeshValidate(t *testing.T) {
	m := Mesh{
		Positions: []r3.Vec{{}, {X: 1}, {Y: 1}},
		Cells:     [][3]int{{0, 1, 2}},
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	m.Cells = append(m.Cells, [3]int{0, 1, 3})
	if err := m.Validate(); err == nil {
		t.Error("expected out of bounds error")
	}
	m.Cells = m.Cells[:1]
	m.Positions[2].Z = math.Inf(1)
	if err := m.Validate(); err == nil {
		t.Error("expected non-finite error")
	}
}

func TestMeshDuplicates(t *testing.T) {
	m := Mesh{Positions: []r3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 1 + 5e-7, Y: 0, Z: 0},
		{X: 2, Y: 2, Z: 2},
		{X: 0, Y: 1e-3, Z: 0},
	}}
	dups := m.Duplicates(1e-6)
	if len(dups) != 1 || dups[0] != [2]int{1, 2} {
		t.Errorf("got duplicates %v, want [[1 2]]", dups)
	}
	if len(m.Duplicates(0)) != 0 {
		t.Error("zero tolerance should find no duplicates among distinct points")
	}
}

func TestMeshFlat(t *testing.T) {
	m := Mesh{
		Positions: []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: 4}, {Y: 5}},
		Cells:     [][3]int{{0, 1, 2}, {2, 1, 0}},
	}
	f := m.Flat()
	if len(f.X) != 3 || f.X[0] != 1 || f.Y[0] != 2 || f.Z[0] != 3 || f.Y[2] != 5 {
		t.Errorf("positions packed wrong: %+v", f)
	}
	if len(f.I) != 2 || f.I[1] != 2 || f.K[1] != 0 {
		t.Errorf("cells packed wrong: %+v", f)
	}
	if area := m.Area(); area <= 0 {
		t.Errorf("area: %g", area)
	}
}

func TestDedupPlanes(t *testing.T) {
	planes := []Plane{
		{Normal: r3.Vec{X: 1}, D: 0.5},
		{Normal: r3.Vec{Y: 1}, D: 0.5},
		{Normal: r3.Vec{X: 1 + 1e-8}, D: 0.5},
		{Normal: r3.Vec{X: 1}, D: 0.6},
	}
	got := DedupPlanes(planes, 1e-6)
	if len(got) != 3 {
		t.Fatalf("got %d planes, want 3", len(got))
	}
	if got[0] != planes[0] || got[1] != planes[1] || got[2] != planes[3] {
		t.Errorf("order not kept: %v", got)
	}
	if !got[0].Contains(r3.Vec{X: 0.5}) || got[0].Contains(r3.Vec{X: 0.6}) {
		t.Error("half-space boundary wrong")
	}
}

func TestPalette(t *testing.T) {
	if BandColor(0) != "#1f77b4" || BandColor(10) != BandColor(0) {
		t.Error("palette does not cycle")
	}
	if BandName(0, "") != "Band 1" || BandName(3, "spin up") != "spin up" {
		t.Error("band names")
	}
	c, err := ParseHexColor("#ff000080")
	if err != nil {
		t.Fatal(err)
	}
	if c[0] != 1 || c[1] != 0 || math.Abs(float64(c[3])-128./255) > 1e-6 {
		t.Errorf("got %v", c)
	}
	if c, _ := ParseHexColor("#00ff00"); c[3] != 1 {
		t.Errorf("alpha default: %v", c)
	}
	for _, bad := range []string{"", "ff0000", "#ff00", "#gg0000"} {
		if _, err := ParseHexColor(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}
