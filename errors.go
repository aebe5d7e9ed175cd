package fermisurf

import "fmt"

// ShapeError is returned when grid metadata is inconsistent with its value buffer.
type ShapeError struct {
	Dims [3]int
	Len  int
	Msg  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("bad grid shape %dx%dx%d with %d values: %s", e.Dims[0], e.Dims[1], e.Dims[2], e.Len, e.Msg)
}

// ExtractionError is returned when the isosurface extractor fails or returns
// malformed data. Err holds the cause and may be nil for malformed output.
type ExtractionError struct {
	Energy float64
	Msg    string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extraction at E=%g: %s", e.Energy, e.Msg)
	}
	return fmt.Sprintf("extraction at E=%g: %s: %v", e.Energy, e.Msg, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
