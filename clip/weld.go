package clip

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Quantum is the resolution at which clipped vertices are merged.
const Quantum = 1e-6

// welder merges vertices that lie within Quantum of each other on every
// axis. Vertices are bucketed by the xxhash of their coordinates rounded to
// multiples of Quantum; a lookup visits the vertex's own quantum and its 26
// neighbours so points straddling a rounding boundary still merge. Hash
// collisions never merge distinct vertices since candidates are compared on
// their quanta and coordinates.
type welder struct {
	positions []r3.Vec
	quanta    [][3]int64
	buckets   map[uint64][]int
	buf       [24]byte
}

func newWelder(sizeHint int) *welder {
	return &welder{
		positions: make([]r3.Vec, 0, sizeHint),
		quanta:    make([][3]int64, 0, sizeHint),
		buckets:   make(map[uint64][]int, sizeHint),
	}
}

// index returns the index of a stored vertex within Quantum of v, inserting
// v if there is none.
func (w *welder) index(v r3.Vec) int {
	q := quantize(v)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				nq := [3]int64{q[0] + dx, q[1] + dy, q[2] + dz}
				for _, i := range w.buckets[w.hash(nq)] {
					if w.quanta[i] == nq && near(w.positions[i], v) {
						return i
					}
				}
			}
		}
	}
	h := w.hash(q)
	i := len(w.positions)
	w.positions = append(w.positions, v)
	w.quanta = append(w.quanta, q)
	w.buckets[h] = append(w.buckets[h], i)
	return i
}

func (w *welder) hash(q [3]int64) uint64 {
	binary.LittleEndian.PutUint64(w.buf[0:], uint64(q[0]))
	binary.LittleEndian.PutUint64(w.buf[8:], uint64(q[1]))
	binary.LittleEndian.PutUint64(w.buf[16:], uint64(q[2]))
	return xxhash.Sum64(w.buf[:])
}

func near(a, b r3.Vec) bool {
	return math.Abs(a.X-b.X) <= Quantum && math.Abs(a.Y-b.Y) <= Quantum && math.Abs(a.Z-b.Z) <= Quantum
}

func quantize(v r3.Vec) [3]int64 {
	return [3]int64{
		int64(math.Round(v.X / Quantum)),
		int64(math.Round(v.Y / Quantum)),
		int64(math.Round(v.Z / Quantum)),
	}
}
