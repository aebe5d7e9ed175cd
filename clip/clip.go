// Package clip intersects triangle soups with convex sets of half-spaces.
package clip

import (
	"github.com/soypat/fermisurf"
	"gonum.org/v1/gonum/spatial/r3"
)

// Clip intersects the triangles of (positions, cells) with the half-spaces
// of planes, applied in order, and returns a shared-vertex mesh. Each cell is
// clipped independently so positions need not be shared.
func Clip(positions []r3.Vec, cells [][3]int, planes []fermisurf.Plane) fermisurf.Mesh {
	w := newWelder(len(positions))
	out := fermisurf.Mesh{Cells: make([][3]int, 0, len(cells))}
	// Double buffer of working triangles. Each plane at most doubles the count.
	var work, next []r3.Triangle
	for _, c := range cells {
		work = append(work[:0], r3.Triangle{positions[c[0]], positions[c[1]], positions[c[2]]})
		for _, pl := range planes {
			next = next[:0]
			for _, t := range work {
				next = Triangle(next, t, pl)
			}
			work, next = next, work
			if len(work) == 0 {
				break
			}
		}
		for _, t := range work {
			out.Cells = append(out.Cells, [3]int{w.index(t[0]), w.index(t[1]), w.index(t[2])})
		}
	}
	out.Positions = w.positions
	return out
}

// Triangle clips t against the half-space of pl and appends the 0, 1 or 2
// resulting triangles to dst. Vertices with Normal·v - D <= 0 are inside.
// Winding of t is preserved.
func Triangle(dst []r3.Triangle, t r3.Triangle, pl fermisurf.Plane) []r3.Triangle {
	v0, v1, v2 := t[0], t[1], t[2]
	d0, d1, d2 := pl.Distance(v0), pl.Distance(v1), pl.Distance(v2)
	var mask uint8
	if d0 <= 0 {
		mask |= 1
	}
	if d1 <= 0 {
		mask |= 2
	}
	if d2 <= 0 {
		mask |= 4
	}
	switch mask {
	case 0:
		// Fully outside.
	case 7:
		dst = append(dst, t)
	case 1:
		a := interp(v0, v1, d0, d1)
		b := interp(v0, v2, d0, d2)
		dst = append(dst, r3.Triangle{v0, a, b})
	case 2:
		a := interp(v1, v0, d1, d0)
		b := interp(v1, v2, d1, d2)
		dst = append(dst, r3.Triangle{v1, b, a})
	case 4:
		a := interp(v2, v0, d2, d0)
		b := interp(v2, v1, d2, d1)
		dst = append(dst, r3.Triangle{v2, a, b})
	case 3:
		a := interp(v0, v2, d0, d2)
		b := interp(v1, v2, d1, d2)
		dst = append(dst, r3.Triangle{v0, v1, b}, r3.Triangle{v0, b, a})
	case 5:
		a := interp(v0, v1, d0, d1)
		b := interp(v2, v1, d2, d1)
		dst = append(dst, r3.Triangle{v0, a, b}, r3.Triangle{v0, b, v2})
	case 6:
		a := interp(v1, v0, d1, d0)
		b := interp(v2, v0, d2, d0)
		dst = append(dst, r3.Triangle{v1, v2, b}, r3.Triangle{v1, b, a})
	}
	return dst
}

// interp returns the plane crossing on the edge from inside vertex vi to
// outside vertex vj. t is clamped to [0,1] to absorb rounding near the plane.
func interp(vi, vj r3.Vec, di, dj float64) r3.Vec {
	t := fermisurf.Clamp(di/(di-dj), 0, 1)
	if t != t {
		// Infinite distances; keep the inside vertex.
		t = 0
	}
	return r3.Add(vi, r3.Scale(t, r3.Sub(vj, vi)))
}
