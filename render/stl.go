package render

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/chewxy/math32"
	"github.com/soypat/fermisurf"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	stlHeaderSize   = 84
	stlTriangleSize = 50
)

// SaveBandsSTL writes bands to a binary STL file at path.
func SaveBandsSTL(path string, bands []fermisurf.Band) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteBandsSTL(fp, bands); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}

// WriteBandsSTL writes the cells of all bands as one binary STL model.
// Placeholder bands are skipped. STL has no notion of color or grouping so
// band metadata is lost.
func WriteBandsSTL(w io.Writer, bands []fermisurf.Band) error {
	var count int
	for _, b := range bands {
		if !b.IsPlaceholder() {
			count += len(b.Cells)
		}
	}
	if count == 0 {
		return errors.New("no triangles to write")
	}
	if uint64(count) > math.MaxUint32 {
		return fmt.Errorf("%d triangles exceed STL limit", count)
	}
	bw := bufio.NewWriterSize(w, stlTriangleSize*1024)
	var header [stlHeaderSize]byte
	copy(header[:], "fermisurf")
	binary.LittleEndian.PutUint32(header[80:], uint32(count))
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}
	var buf [stlTriangleSize]byte
	for _, b := range bands {
		if b.IsPlaceholder() {
			continue
		}
		for i, c := range b.Cells {
			t := stlTriangle{Vertices: [3][3]float32{
				f32From3(b.Positions[c[0]]),
				f32From3(b.Positions[c[1]]),
				f32From3(b.Positions[c[2]]),
			}}
			if bad3F32(t.Vertices[0]) || bad3F32(t.Vertices[1]) || bad3F32(t.Vertices[2]) {
				return fmt.Errorf("band %q cell %d: vertex not representable as float32", b.Name, i)
			}
			t.Normal = cellNormal(b.Positions[c[0]], b.Positions[c[1]], b.Positions[c[2]])
			t.put(buf[:])
			if _, err := bw.Write(buf[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// readSTL reads the triangles of a binary STL stream.
func readSTL(r io.Reader) ([]r3.Triangle, error) {
	var header [stlHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading STL header: %w", err)
	}
	n := binary.LittleEndian.Uint32(header[80:])
	model := make([]r3.Triangle, 0, min(n, 1<<16))
	var buf [stlTriangleSize]byte
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("%d/%d STL triangles read: %w", i, n, err)
		}
		var t stlTriangle
		t.get(buf[:])
		model = append(model, r3.Triangle{
			r3From3F32(t.Vertices[0]), r3From3F32(t.Vertices[1]), r3From3F32(t.Vertices[2]),
		})
	}
	return model, nil
}

// stlTriangle is the 50 byte record of a binary STL file. The attribute
// byte count is always zero.
type stlTriangle struct {
	Normal   [3]float32
	Vertices [3][3]float32
}

func (t stlTriangle) put(b []byte) {
	_ = b[stlTriangleSize-1] // early bounds check
	put3F32(b, t.Normal)
	put3F32(b[12:], t.Vertices[0])
	put3F32(b[24:], t.Vertices[1])
	put3F32(b[36:], t.Vertices[2])
	binary.LittleEndian.PutUint16(b[48:], 0)
}

func (t *stlTriangle) get(b []byte) {
	_ = b[stlTriangleSize-1]
	get3F32(b, &t.Normal)
	get3F32(b[12:], &t.Vertices[0])
	get3F32(b[24:], &t.Vertices[1])
	get3F32(b[36:], &t.Vertices[2])
}

// cellNormal is the unit normal of the counter-clockwise triangle a, b, c.
// Degenerate triangles get a zero normal.
func cellNormal(a, b, c r3.Vec) [3]float32 {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	l := r3.Norm(n)
	if l == 0 {
		return [3]float32{}
	}
	return f32From3(r3.Scale(1/l, n))
}

func put3F32(b []byte, f [3]float32) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(f[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f[2]))
}

func get3F32(b []byte, f *[3]float32) {
	_ = b[11] // early bounds check
	f[0] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	f[1] = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	f[2] = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
}

func bad3F32(f [3]float32) bool {
	return math32.IsNaN(f[0]) || math32.IsInf(f[0], 0) ||
		math32.IsNaN(f[1]) || math32.IsInf(f[1], 0) ||
		math32.IsNaN(f[2]) || math32.IsInf(f[2], 0)
}

func f32From3(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func r3From3F32(f [3]float32) r3.Vec {
	return r3.Vec{X: float64(f[0]), Y: float64(f[1]), Z: float64(f[2])}
}
