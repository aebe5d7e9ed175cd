// Package preview rasterizes bands to images with a software renderer.
package preview

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/fermisurf"
	"gonum.org/v1/gonum/spatial/r3"
)

// View configures the camera. Bands are fitted in a bi-unit cube centered at
// the origin before rendering. Zero fields take the defaults of DefaultView.
type View struct {
	// Output width and height in pixels.
	Width, Height int
	// Supersampling factor.
	Scale int
	// Vertical field of view in degrees.
	FOVY float64
	// what position (point) to look at
	LookAt r3.Vec
	// which way is up (direction)
	Up r3.Vec
	// where the camera/eye located at (point)
	EyePos     r3.Vec
	Near, Far  float64
	Background string
}

// DefaultView is an isometric view of the bi-unit cube.
var DefaultView = View{
	Width:      768,
	Height:     432,
	Scale:      2,
	FOVY:       30,
	Up:         r3.Vec{Z: 1},
	EyePos:     r3.Vec{X: 2.4, Y: 2.4, Z: 2.4},
	Near:       1,
	Far:        10,
	Background: "#FFF8E3",
}

func (v View) withDefaults() View {
	d := DefaultView
	if v.Width <= 0 || v.Height <= 0 {
		v.Width, v.Height = d.Width, d.Height
	}
	if v.Scale <= 0 {
		v.Scale = d.Scale
	}
	if v.FOVY <= 0 {
		v.FOVY = d.FOVY
	}
	if v.Up == (r3.Vec{}) {
		v.Up = d.Up
	}
	if v.EyePos == (r3.Vec{}) {
		v.EyePos = d.EyePos
	}
	if v.Near <= 0 || v.Far <= v.Near {
		v.Near, v.Far = d.Near, d.Far
	}
	if v.Background == "" {
		v.Background = d.Background
	}
	return v
}

// Render draws bands with Phong shading in their own colors. Placeholder and
// empty bands are skipped; with nothing to draw the image is blank.
func Render(bands []fermisurf.Band, view View) (image.Image, error) {
	view = view.withDefaults()
	bg, err := fauxColor(view.Background)
	if err != nil {
		return nil, err
	}
	var (
		eye    = fauxgl.V(view.EyePos.X, view.EyePos.Y, view.EyePos.Z)
		center = fauxgl.V(view.LookAt.X, view.LookAt.Y, view.LookAt.Z)
		up     = fauxgl.V(view.Up.X, view.Up.Y, view.Up.Z)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
	)
	context := fauxgl.NewContext(view.Width*view.Scale, view.Height*view.Scale)
	context.ClearColorBufferWith(bg)
	context.Cull = fauxgl.CullNone
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(view.FOVY, aspect, view.Near, view.Far)

	drawn := visible(bands)
	if len(drawn) > 0 {
		fit := newBiUnitFit(drawn)
		for _, band := range drawn {
			color, err := fauxColor(band.Color)
			if err != nil {
				return nil, fmt.Errorf("band %q: %w", band.Name, err)
			}
			shader := fauxgl.NewPhongShader(matrix, light, eye)
			shader.ObjectColor = color
			context.Shader = shader
			context.DrawMesh(fauxMesh(band.Mesh, fit))
		}
	}
	// downsample image for antialiasing
	img := context.Image()
	return resize.Resize(uint(view.Width), uint(view.Height), img, resize.Bilinear), nil
}

// SavePNG renders bands to a PNG file at path.
func SavePNG(path string, bands []fermisurf.Band, view View) error {
	img, err := Render(bands, view)
	if err != nil {
		return err
	}
	return fauxgl.SavePNG(path, img)
}

// PNGDisplay writes one PNG per shown energy into Dir.
type PNGDisplay struct {
	Dir  string
	View View
	Log  *log.Logger
}

// Show implements session.Display.
func (d *PNGDisplay) Show(E float64, bands []fermisurf.Band) error {
	path := filepath.Join(d.Dir, fmt.Sprintf("E_%.3f.png", E))
	if err := os.MkdirAll(d.Dir, 0777); err != nil {
		return err
	}
	if err := SavePNG(path, bands, d.View); err != nil {
		return err
	}
	if d.Log != nil {
		d.Log.Printf("wrote %s", path)
	}
	return nil
}

func visible(bands []fermisurf.Band) []fermisurf.Band {
	var out []fermisurf.Band
	for _, b := range bands {
		if !b.IsPlaceholder() && len(b.Cells) > 0 {
			out = append(out, b)
		}
	}
	return out
}

// biUnitFit maps the common bounding box of bands into [-1,1]^3.
type biUnitFit struct {
	center r3.Vec
	scale  float64
}

func newBiUnitFit(bands []fermisurf.Band) biUnitFit {
	box := bands[0].Bounds()
	for _, b := range bands[1:] {
		box = box.Union(b.Bounds())
	}
	size := box.Size()
	extent := max(size.X, size.Y, size.Z)
	fit := biUnitFit{center: box.Center(), scale: 1}
	if extent > 0 {
		fit.scale = 2 / extent
	}
	return fit
}

func (f biUnitFit) apply(p r3.Vec) fauxgl.Vector {
	q := r3.Scale(f.scale, r3.Sub(p, f.center))
	return fauxgl.V(q.X, q.Y, q.Z)
}

func fauxMesh(m fermisurf.Mesh, fit biUnitFit) *fauxgl.Mesh {
	triangles := make([]*fauxgl.Triangle, 0, len(m.Cells))
	for _, c := range m.Cells {
		t := fauxgl.NewTriangleForPoints(fit.apply(m.Positions[c[0]]), fit.apply(m.Positions[c[1]]), fit.apply(m.Positions[c[2]]))
		triangles = append(triangles, t)
	}
	mesh := fauxgl.NewTriangleMesh(triangles)
	mesh.SmoothNormals()
	return mesh
}

func fauxColor(hex string) (fauxgl.Color, error) {
	rgba, err := fermisurf.ParseHexColor(hex)
	if err != nil {
		return fauxgl.Color{}, err
	}
	return fauxgl.Color{R: float64(rgba[0]), G: float64(rgba[1]), B: float64(rgba[2]), A: float64(rgba[3])}, nil
}
