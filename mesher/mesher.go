// Package mesher builds clipped level-set meshes of scalar fields.
package mesher

import (
	"errors"
	"fmt"
	"log"

	"github.com/soypat/fermisurf"
	"github.com/soypat/fermisurf/clip"
	"github.com/soypat/fermisurf/render"
)

// Builder turns a scalar field and an energy into a band mesh clipped to a
// convex region. The zero value uses render.GridExtractor and does not log.
type Builder struct {
	Extractor render.Extractor
	Log       *log.Logger
}

// Build returns the level set of field at energy E clipped to planes, tagged
// with color and name. Energies far outside the field's range produce
// fermisurf.Placeholder without calling the extractor. Extractor failures and
// malformed extractor output are returned as *fermisurf.ExtractionError.
func (b *Builder) Build(field *fermisurf.ScalarField, E float64, planes []fermisurf.Plane, color, name string) (fermisurf.Band, error) {
	if field == nil {
		return fermisurf.Band{}, fmt.Errorf("band %q: nil field: %w", name, fermisurf.ErrMsg)
	}
	if field.IsDefinitelyOutOfRange(E) {
		lo, hi := field.Range()
		b.logf("band %q: E=%g outside [%g,%g], using placeholder", name, E, lo, hi)
		return fermisurf.Placeholder(color, name), nil
	}
	positions, cells, err := b.extractor().Extract(field.Dims(), field.Implicit(E), field.Bounds())
	if err != nil {
		return fermisurf.Band{}, &fermisurf.ExtractionError{Energy: E, Msg: "extractor failed", Err: err}
	}
	raw := fermisurf.Mesh{Positions: positions, Cells: cells}
	if err := raw.Validate(); err != nil {
		return fermisurf.Band{}, &fermisurf.ExtractionError{Energy: E, Msg: "malformed triangle soup", Err: err}
	}
	m := clip.Clip(positions, cells, planes)
	b.logf("band %q: E=%g %d raw triangles, %d clipped", name, E, len(cells), len(m.Cells))
	return fermisurf.Band{Mesh: m, Color: color, Name: name}, nil
}

// BuildAll builds one band per field in order. Colors are taken from
// fermisurf.Palette and empty names default to "Band n". The first error
// aborts the build and no bands are returned.
func (b *Builder) BuildAll(fields []fermisurf.NamedField, E float64, planes []fermisurf.Plane) ([]fermisurf.Band, error) {
	if len(fields) == 0 {
		return nil, errors.New("no scalar fields to build")
	}
	bands := make([]fermisurf.Band, len(fields))
	for i, f := range fields {
		band, err := b.Build(f.Field, E, planes, fermisurf.BandColor(i), fermisurf.BandName(i, f.Name))
		if err != nil {
			return nil, fmt.Errorf("building band %d at E=%g: %w", i, E, err)
		}
		bands[i] = band
	}
	return bands, nil
}

func (b *Builder) extractor() render.Extractor {
	if b.Extractor == nil {
		return render.GridExtractor{}
	}
	return b.Extractor
}

func (b *Builder) logf(format string, args ...any) {
	if b.Log != nil {
		b.Log.Printf(format, args...)
	}
}
