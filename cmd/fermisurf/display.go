package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/soypat/fermisurf"
	"github.com/soypat/fermisurf/preview"
	"github.com/soypat/fermisurf/render"
	"gonum.org/v1/gonum/spatial/r3"
)

// fileDisplay writes the bands of every shown energy to dir.
type fileDisplay struct {
	dir      string
	glb, stl bool
	png      *preview.PNGDisplay
	log      *log.Logger
	// outline is the zone drawn into GLB scenes.
	outline [][2]r3.Vec
}

func (d *fileDisplay) Show(E float64, bands []fermisurf.Band) error {
	if err := os.MkdirAll(d.dir, 0777); err != nil {
		return err
	}
	base := filepath.Join(d.dir, fmt.Sprintf("bands_E%.3f", E))
	if d.glb {
		if err := render.SaveGLB(base+".glb", bands, d.outline); err != nil {
			return err
		}
		d.log.Printf("wrote %s.glb", base)
	}
	if n := triangles(bands); d.stl && n == 0 {
		d.log.Printf("no triangles at E=%.3f, skipping %s.stl", E, base)
	} else if d.stl {
		if err := render.SaveBandsSTL(base+".stl", bands); err != nil {
			return err
		}
		d.log.Printf("wrote %s.stl (%d triangles)", base, n)
	}
	if d.png != nil {
		return d.png.Show(E, bands)
	}
	return nil
}

func triangles(bands []fermisurf.Band) (n int) {
	for _, b := range bands {
		if !b.IsPlaceholder() {
			n += len(b.Cells)
		}
	}
	return n
}
