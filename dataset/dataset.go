// Package dataset reads and writes band data files: scalar fields sampled on a
// grid plus the bounding Brillouin zone, as JSON optionally compressed with zstd.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/soypat/fermisurf"
	"gonum.org/v1/gonum/spatial/r3"
)

// PlaneTolerance is the tolerance used to merge repeated zone planes.
const PlaneTolerance = 1e-6

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// File is the wire shape of a data file.
type File struct {
	FermiEnergy   float64       `json:"fermiEnergy"`
	ScalarFields  []ScalarField `json:"scalarFields"`
	BrillouinZone BrillouinZone `json:"brillouinZone"`
}

// ScalarField is one named band.
type ScalarField struct {
	Name string    `json:"name,omitempty"`
	Info FieldInfo `json:"scalarFieldInfo"`
}

// FieldInfo holds grid samples with x varying fastest. Null samples carry no data.
type FieldInfo struct {
	Dimensions [3]int     `json:"dimensions"`
	Values     []*float64 `json:"scalarField"`
	Origin     [3]float64 `json:"origin"`
	Spacing    [3]float64 `json:"spacing"`
	MinVal     *float64   `json:"minval"`
	MaxVal     *float64   `json:"maxval"`
}

// BrillouinZone outlines the clipping region. Its planes have outward normals.
type BrillouinZone struct {
	Vertices          [][3]float64 `json:"vertices"`
	Edges             [][2]int     `json:"edges"`
	ReciprocalVectors [][3]float64 `json:"reciprocalVectors,omitempty"`
	Planes            []Plane      `json:"planes"`
}

// Plane is a zone face, Normal·p = D.
type Plane struct {
	Normal [3]float64 `json:"normal"`
	D      float64    `json:"D"`
}

// Dataset is a decoded data file ready for meshing.
type Dataset struct {
	FermiEnergy float64
	Fields      []fermisurf.NamedField
	// Planes are deduplicated within PlaneTolerance.
	Planes []fermisurf.Plane
	// Vertices and Edges outline the zone.
	Vertices []r3.Vec
	Edges    [][2]int
}

// Load reads the data file at path.
func Load(path string) (*Dataset, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	ds, err := Decode(fp)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return ds, nil
}

// Decode reads a data file from r. zstd compressed input is detected by its
// frame magic number.
func Decode(r io.Reader) (*Dataset, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, _ := br.Peek(len(zstdMagic)); bytes.Equal(magic, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		src = dec
	}
	var f File
	if err := json.NewDecoder(src).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding data file: %w", err)
	}
	return f.Dataset()
}

// Encode writes f as JSON to w, zstd compressed if compress is set.
func Encode(w io.Writer, f *File, compress bool) error {
	if !compress {
		return json.NewEncoder(w).Encode(f)
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := json.NewEncoder(enc).Encode(f); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Dataset builds the scalar fields and clipping planes described by f.
func (f *File) Dataset() (*Dataset, error) {
	if len(f.ScalarFields) == 0 {
		return nil, errors.New("data file has no scalar fields")
	}
	ds := &Dataset{FermiEnergy: f.FermiEnergy}
	for i, sf := range f.ScalarFields {
		field, err := sf.Info.Build()
		if err != nil {
			return nil, fmt.Errorf("scalar field %d (%q): %w", i, sf.Name, err)
		}
		ds.Fields = append(ds.Fields, fermisurf.NamedField{Name: sf.Name, Field: field})
	}
	bz := f.BrillouinZone
	planes := make([]fermisurf.Plane, 0, len(bz.Planes))
	for i, pl := range bz.Planes {
		n := vec(pl.Normal)
		if r3.Norm(n) == 0 || math.IsNaN(pl.D) || math.IsInf(pl.D, 0) {
			return nil, fmt.Errorf("zone plane %d is degenerate: %+v", i, pl)
		}
		planes = append(planes, fermisurf.Plane{Normal: n, D: pl.D})
	}
	ds.Planes = fermisurf.DedupPlanes(planes, PlaneTolerance)
	for _, v := range bz.Vertices {
		ds.Vertices = append(ds.Vertices, vec(v))
	}
	for i, e := range bz.Edges {
		if e[0] < 0 || e[1] < 0 || e[0] >= len(ds.Vertices) || e[1] >= len(ds.Vertices) {
			return nil, fmt.Errorf("zone edge %d %v references missing vertex", i, e)
		}
	}
	ds.Edges = bz.Edges
	return ds, nil
}

// Build converts the wire samples into a scalar field. Null samples become
// no-data values.
func (fi FieldInfo) Build() (*fermisurf.ScalarField, error) {
	values := make([]float64, len(fi.Values))
	for i, v := range fi.Values {
		if v == nil {
			values[i] = math.NaN()
		} else {
			values[i] = *v
		}
	}
	return fermisurf.FieldInfo{
		Dims:    fi.Dimensions,
		Origin:  vec(fi.Origin),
		Spacing: vec(fi.Spacing),
		Values:  values,
		Min:     fi.MinVal,
		Max:     fi.MaxVal,
	}.Build()
}

// Segments returns the zone outline as line segments.
func (ds *Dataset) Segments() [][2]r3.Vec {
	segs := make([][2]r3.Vec, len(ds.Edges))
	for i, e := range ds.Edges {
		segs[i] = [2]r3.Vec{ds.Vertices[e[0]], ds.Vertices[e[1]]}
	}
	return segs
}

func vec(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}
