// Command fermisurf meshes the bands of a data file at a chosen energy and
// writes them as GLB, STL and PNG files.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/soypat/fermisurf/dataset"
	"github.com/soypat/fermisurf/mesher"
	"github.com/soypat/fermisurf/preview"
	"github.com/soypat/fermisurf/render"
	"github.com/soypat/fermisurf/session"
)

func main() {
	var (
		dataPath    = flag.String("data", "", "band data file (.json, optionally zstd compressed)")
		energy      = flag.Float64("e", math.NaN(), "energy to mesh, defaults to the Fermi energy of the data file")
		outDir      = flag.String("out", ".", "output directory")
		glb         = flag.Bool("glb", true, "write binary glTF scenes")
		stl         = flag.Bool("stl", false, "write STL meshes")
		png         = flag.Bool("png", false, "write PNG previews")
		sweep       = flag.String("sweep", "", "build a range of energies, EMIN:EMAX:STEP")
		chart       = flag.String("chart", "", "write a build time chart of -sweep to this PNG file")
		interactive = flag.Bool("interactive", false, "read energies from stdin, precomputing in the background")
		verbose     = flag.Bool("v", false, "log cache and build activity")
		extractor   = flag.String("extractor", "grid", "level set extractor: grid (marching tetrahedra on the data lattice) or sdfx (marching cubes)")
		cells       = flag.Int("cells", 0, "sdfx extractor cells along the longest axis, 0 uses the data lattice resolution")
	)
	flag.Parse()
	log.SetFlags(0)
	if *dataPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	ds, err := dataset.Load(*dataPath)
	if err != nil {
		log.Fatal(err)
	}
	E := *energy
	if math.IsNaN(E) {
		E = ds.FermiEnergy
	}
	var logger *log.Logger
	if *verbose {
		logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
	}
	disp := &fileDisplay{dir: *outDir, glb: *glb, stl: *stl, log: log.Default(), outline: ds.Segments()}
	if *png {
		disp.png = &preview.PNGDisplay{Dir: *outDir, Log: log.Default()}
	}
	ex, err := newExtractor(*extractor, *cells)
	if err != nil {
		log.Fatal(err)
	}
	s, err := session.New(session.Config{
		Fields:  ds.Fields,
		Planes:  ds.Planes,
		Energy:  E,
		Builder: &mesher.Builder{Extractor: ex, Log: logger},
		Display: disp,
		Log:     logger,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("%d bands, %d grid points, %d zone planes", len(ds.Fields), s.GridPoints(), len(ds.Planes))
	if err := s.Init(); err != nil {
		log.Fatal(err)
	}

	if *sweep != "" {
		emin, emax, step, err := parseSweep(*sweep)
		if err != nil {
			log.Fatal(err)
		}
		timings, err := s.BuildRange(emin, emax, step)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("sweep built %d energies, %d cached", len(timings), len(s.Energies()))
		if *chart != "" {
			if err := writeChart(*chart, timings); err != nil {
				log.Fatal(err)
			}
		}
	}

	if *interactive {
		if err := runInteractive(s, os.Stdin); err != nil {
			log.Fatal(err)
		}
	}
}

// runInteractive updates the session with every energy read from r while
// background results are handled concurrently.
func runInteractive(s *session.Session, r io.Reader) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		E, err := strconv.ParseFloat(line, 64)
		if err != nil {
			log.Printf("not an energy: %q", line)
			continue
		}
		if err := s.Update(E); err != nil {
			return err
		}
	}
	return sc.Err()
}

func newExtractor(name string, cells int) (render.Extractor, error) {
	switch name {
	case "grid":
		return render.GridExtractor{}, nil
	case "sdfx":
		if cells < 0 {
			return nil, fmt.Errorf("negative cell count %d", cells)
		}
		return render.SDFXExtractor{Cells: cells}, nil
	}
	return nil, fmt.Errorf("unknown extractor %q, want grid or sdfx", name)
}

func parseSweep(s string) (emin, emax, step float64, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, 0, errors.New("sweep must be EMIN:EMAX:STEP")
	}
	var v [3]float64
	for i, p := range parts {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("sweep %q: %w", s, err)
		}
	}
	return v[0], v[1], v[2], nil
}
