package precompute

import (
	"context"
	"fmt"
	"log"

	"github.com/soypat/fermisurf"
	"github.com/soypat/fermisurf/meshcache"
	"github.com/soypat/fermisurf/mesher"
)

// Request describes one background job.
type Request struct {
	// Gen identifies the job. Schedulers assign increasing generations.
	Gen    uint64
	Fields []fermisurf.NamedField
	Planes []fermisurf.Plane
	// Sweeps are walked in order.
	Sweeps []Sweep
	// Cached is the snapshot of keys already built when the job was created.
	// Energies with these keys are skipped. Keys added later are not seen.
	Cached []meshcache.Key
}

// Message is sent by a running job: zero or more Result followed by exactly one Done.
type Message interface {
	Generation() uint64
	isMessage()
}

// Result carries the bands built at energy E, a multiple of the cache
// resolution.
type Result struct {
	Gen   uint64
	E     float64
	Bands []fermisurf.Band
}

// Done terminates a job's message stream. Err is nil when every sweep ran
// to completion.
type Done struct {
	Gen uint64
	Err error
}

func (r Result) Generation() uint64 { return r.Gen }
func (d Done) Generation() uint64   { return d.Gen }
func (Result) isMessage()           {}
func (Done) isMessage()             {}

// Worker executes precompute requests.
type Worker struct {
	// Builder builds bands. Nil uses a zero mesher.Builder.
	Builder *mesher.Builder
	Log     *log.Logger
}

// Run walks the sweeps of req, sending a Result for every energy not in
// req.Cached and then exactly one Done. The first build error, a panic or
// cancellation of ctx stops the walk and is reported in Done.Err; results
// already sent remain valid. The caller must drain out until Done arrives.
func (w *Worker) Run(ctx context.Context, req Request, out chan<- Message) {
	err := w.run(ctx, req, out)
	if err != nil {
		w.logf("job %d stopped: %v", req.Gen, err)
	} else {
		w.logf("job %d done", req.Gen)
	}
	out <- Done{Gen: req.Gen, Err: err}
}

func (w *Worker) run(ctx context.Context, req Request, out chan<- Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("precompute job %d panicked: %v", req.Gen, r)
		}
	}()
	cached := make(map[meshcache.Key]struct{}, len(req.Cached))
	for _, k := range req.Cached {
		cached[k] = struct{}{}
	}
	b := w.Builder
	if b == nil {
		b = &mesher.Builder{}
	}
	for _, sweep := range req.Sweeps {
		energies, err := sweep.Energies()
		if err != nil {
			return err
		}
		w.logf("job %d: sweep %g to %g step %g", req.Gen, sweep.EMin, sweep.EMax, sweep.Step)
		for _, E := range energies {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Build at the cache resolution so step rounding never leaks
			// into the energies reported.
			key := meshcache.KeyOf(E)
			E = key.Energy()
			if _, ok := cached[key]; ok {
				w.logf("job %d: E=%.3f already cached, skipping", req.Gen, E)
				continue
			}
			bands, err := b.BuildAll(req.Fields, E, req.Planes)
			if err != nil {
				return err
			}
			select {
			case out <- Result{Gen: req.Gen, E: E, Bands: bands}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func (w *Worker) logf(format string, args ...any) {
	if w.Log != nil {
		w.Log.Printf(format, args...)
	}
}
