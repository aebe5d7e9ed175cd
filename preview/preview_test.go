package preview_test

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/fermisurf"
	"github.com/soypat/fermisurf/preview"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/cmpimg"
)

// imgDelta is the normalized tolerance of image comparisons, 0 is a perfect match.
const imgDelta = 0

func squareBand(color string) fermisurf.Band {
	return fermisurf.Band{
		Mesh: fermisurf.Mesh{
			Positions: []r3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}},
			Cells:     [][3]int{{0, 1, 2}, {0, 2, 3}},
		},
		Color: color,
		Name:  "square",
	}
}

var smallView = preview.View{Width: 64, Height: 48, Scale: 1}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRenderSquare(t *testing.T) {
	bands := []fermisurf.Band{squareBand("#d62728"), fermisurf.Placeholder("#1f77b4", "empty")}
	img, err := preview.Render(bands, smallView)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("got image size %v", b)
	}
	blank, err := preview.Render(bands[1:], smallView)
	if err != nil {
		t.Fatal(err)
	}
	bgR, bgG, bgB, _ := blank.At(32, 24).RGBA()
	r, g, b, _ := img.At(32, 24).RGBA()
	if r == bgR && g == bgG && b == bgB {
		t.Error("square not drawn at image center")
	}
	cr, cg, cb, _ := img.At(0, 0).RGBA()
	if cr != bgR || cg != bgG || cb != bgB {
		t.Error("corner pixel is not background")
	}

	again, err := preview.Render(bands, smallView)
	if err != nil {
		t.Fatal(err)
	}
	equal, err := cmpimg.EqualApprox("png", encode(t, img), encode(t, again), imgDelta)
	if err != nil {
		t.Fatal(err)
	}
	if !equal {
		t.Error("rendering is not deterministic")
	}
}

func TestRenderBadColor(t *testing.T) {
	if _, err := preview.Render([]fermisurf.Band{squareBand("red")}, smallView); err == nil {
		t.Error("want error for bad band color")
	}
	if _, err := preview.Render(nil, preview.View{Background: "#zzzzzz"}); err == nil {
		t.Error("want error for bad background color")
	}
}

func TestPNGDisplay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	d := preview.PNGDisplay{Dir: dir, View: smallView}
	if err := d.Show(1.25, []fermisurf.Band{squareBand("#2ca02c")}); err != nil {
		t.Fatal(err)
	}
	fp, err := os.Open(filepath.Join(dir, "E_1.250.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	cfg, err := png.DecodeConfig(fp)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 64 || cfg.Height != 48 {
		t.Errorf("got %dx%d frame", cfg.Width, cfg.Height)
	}
}
