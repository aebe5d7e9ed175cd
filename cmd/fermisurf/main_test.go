package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soypat/fermisurf"
	"github.com/soypat/fermisurf/render"
	"github.com/soypat/fermisurf/session"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestParseSweep(t *testing.T) {
	emin, emax, step, err := parseSweep("1:-2.5: 0.1")
	if err != nil || emin != 1 || emax != -2.5 || step != 0.1 {
		t.Errorf("got %g %g %g %v", emin, emax, step, err)
	}
	for _, bad := range []string{"", "1:2", "1:2:x", "1:2:3:4"} {
		if _, _, _, err := parseSweep(bad); err == nil {
			t.Errorf("%q: want error", bad)
		}
	}
}

func TestNewExtractor(t *testing.T) {
	ex, err := newExtractor("grid", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ex.(render.GridExtractor); !ok {
		t.Errorf("grid: got %T", ex)
	}
	ex, err = newExtractor("sdfx", 12)
	if err != nil {
		t.Fatal(err)
	}
	if sx, ok := ex.(render.SDFXExtractor); !ok || sx.Cells != 12 {
		t.Errorf("sdfx: got %#v", ex)
	}
	for _, bad := range []string{"", "octree"} {
		if _, err := newExtractor(bad, 0); err == nil {
			t.Errorf("%q: want error", bad)
		}
	}
	if _, err := newExtractor("sdfx", -1); err == nil {
		t.Error("want error for negative cells")
	}
}

func TestWriteChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timing.png")
	timings := []session.Timing{
		{E: 1, Elapsed: 3 * time.Millisecond},
		{E: 1.5, Cached: true},
		{E: 2, Elapsed: 5 * time.Millisecond},
	}
	if err := writeChart(path, timings); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Errorf("chart not written: %v", err)
	}
	if err := writeChart(path, timings[1:2]); err == nil {
		t.Error("want error when nothing was built")
	}
}

func TestFileDisplay(t *testing.T) {
	dir := t.TempDir()
	d := &fileDisplay{dir: dir, glb: true, stl: true, log: log.New(io.Discard, "", 0), outline: [][2]r3.Vec{{{}, {Z: 1}}}}
	band := fermisurf.Band{
		Mesh: fermisurf.Mesh{
			Positions: []r3.Vec{{}, {X: 1}, {Y: 1}},
			Cells:     [][3]int{{0, 1, 2}},
		},
		Color: "#1f77b4",
		Name:  "Band 1",
	}
	bands := []fermisurf.Band{band, fermisurf.Placeholder("#ff7f0e", "Band 2")}
	if err := d.Show(0.25, bands); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bands_E0.250.glb")); err != nil {
		t.Error(err)
	}
	// One triangle: 84 byte header plus a 50 byte record.
	if fi, err := os.Stat(filepath.Join(dir, "bands_E0.250.stl")); err != nil || fi.Size() != 134 {
		t.Errorf("STL file: %v", err)
	}
	if err := d.Show(99, bands[1:]); err != nil {
		t.Fatalf("placeholders only: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bands_E99.000.stl")); !os.IsNotExist(err) {
		t.Errorf("STL written for placeholder bands: %v", err)
	}
}
