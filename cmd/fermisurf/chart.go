package main

import (
	"errors"

	"github.com/soypat/fermisurf/session"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// writeChart plots the build time of every built energy of a sweep.
func writeChart(path string, timings []session.Timing) error {
	var pts plotter.XYs
	for _, tm := range timings {
		if tm.Cached {
			continue
		}
		pts = append(pts, plotter.XY{X: tm.E, Y: float64(tm.Elapsed.Microseconds()) / 1000})
	}
	if len(pts) == 0 {
		return errors.New("no energies were built, nothing to chart")
	}
	p := plot.New()
	p.Title.Text = "Band build time"
	p.X.Label.Text = "E"
	p.Y.Label.Text = "time (ms)"
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	p.Add(line, points, plotter.NewGrid())
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
