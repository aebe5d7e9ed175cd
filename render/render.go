package render

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Renderer streams triangles. ReadTriangles returns io.EOF once every
// triangle has been read.
type Renderer interface {
	ReadTriangles(t []r3.Triangle) (int, error)
}

// Extractor approximates the zero set of an implicit function sampled on a
// regular grid of dims nodes spanning bounds. The returned mesh may be a
// triangle soup: vertices need not be shared between cells.
type Extractor interface {
	Extract(dims [3]int, fn func(r3.Vec) float64, bounds r3.Box) (positions []r3.Vec, cells [][3]int, err error)
}
