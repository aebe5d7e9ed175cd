// Package session drives interactive energy selection: foreground builds on
// cache misses, speculative background precompute and display updates.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/soypat/fermisurf"
	"github.com/soypat/fermisurf/meshcache"
	"github.com/soypat/fermisurf/mesher"
	"github.com/soypat/fermisurf/precompute"
)

// ErrNotInitialized is returned by Update before Init succeeded.
var ErrNotInitialized = errors.New("session: not initialized")

// Display renders the bands built at an energy.
type Display interface {
	Show(E float64, bands []fermisurf.Band) error
}

// Config holds the parameters of a Session.
type Config struct {
	Fields []fermisurf.NamedField
	// Planes bound the region meshes are clipped to. Nil means unclipped.
	Planes []fermisurf.Plane
	// Energy displayed by Init.
	Energy float64
	// Builder builds bands in the foreground and background. Nil uses a zero
	// mesher.Builder.
	Builder *mesher.Builder
	// Policy decides what to precompute after a foreground build.
	Policy precompute.Policy
	// Display receives bands to show. May be nil.
	Display Display
	Log     *log.Logger
	// Buffer is the size of the background message queue. Zero uses 16.
	Buffer int
}

// Session owns the energy mesh cache of one data set. Its methods are safe for
// concurrent use and are serialised; background jobs only reach the cache
// through Handle.
type Session struct {
	cfg     Config
	builder *mesher.Builder
	cache   *meshcache.Cache
	sched   *precompute.Scheduler
	ctx     context.Context
	stop    context.CancelFunc

	mu          sync.Mutex
	initialized bool
	prevE, curE float64
	bands       []fermisurf.Band
	job         *precompute.Job
}

// Timing records one energy of a range build.
type Timing struct {
	E       float64
	Elapsed time.Duration
	Cached  bool // already present, nothing was built
}

// New returns a session over cfg.Fields. Call Init before Update.
func New(cfg Config) (*Session, error) {
	if len(cfg.Fields) == 0 {
		return nil, errors.New("session: no scalar fields")
	}
	for i, f := range cfg.Fields {
		if f.Field == nil {
			return nil, fmt.Errorf("session: field %d is nil", i)
		}
	}
	if cfg.Builder == nil {
		cfg.Builder = &mesher.Builder{Log: cfg.Log}
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &precompute.Worker{Builder: cfg.Builder, Log: cfg.Log}
	return &Session{
		cfg:     cfg,
		builder: cfg.Builder,
		cache:   meshcache.New(),
		sched:   precompute.NewScheduler(w, cfg.Buffer),
		ctx:     ctx,
		stop:    cancel,
		curE:    cfg.Energy,
		prevE:   cfg.Energy,
	}, nil
}

// Init builds and displays the bands at the configured energy.
func (s *Session) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return errors.New("session: already initialized")
	}
	E := s.cfg.Energy
	bands, err := s.builder.BuildAll(s.cfg.Fields, E, s.cfg.Planes)
	if err != nil {
		return err
	}
	s.cache.Put(E, bands)
	s.bands = bands
	if err := s.show(E, bands); err != nil {
		return err
	}
	s.initialized = true
	return nil
}

// Update selects energy E. Cached bands are shown directly. On a miss the bands
// are built in the foreground, cached and shown, and when the build was fast
// enough a background job precomputing neighbouring energies replaces the
// active one.
func (s *Session) Update(E float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		s.logf("update to E=%g before initialization", E)
		return ErrNotInitialized
	}
	bands, hit := s.cache.Get(E)
	if hit {
		s.logf("cache hit E=%g", E)
	} else {
		start := time.Now()
		var err error
		bands, err = s.builder.BuildAll(s.cfg.Fields, E, s.cfg.Planes)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		s.cache.Put(E, bands)
		if sweeps := s.cfg.Policy.Plan(elapsed, s.curE, E); len(sweeps) > 0 {
			s.logf("E=%g built in %v, precomputing %d sweeps", E, elapsed, len(sweeps))
			s.precompute(sweeps)
		}
	}
	s.prevE, s.curE = s.curE, E
	s.bands = bands
	return s.show(E, bands)
}

// precompute starts a job over sweeps with the current cache contents as its
// snapshot. Callers hold s.mu.
func (s *Session) precompute(sweeps []precompute.Sweep) {
	s.job = s.sched.Start(s.ctx, precompute.Request{
		Fields: s.cfg.Fields,
		Planes: s.cfg.Planes,
		Sweeps: sweeps,
		Cached: s.cache.Keys(),
	})
}

// Messages returns the channel background jobs report on. Every message
// received must be passed to Handle.
func (s *Session) Messages() <-chan precompute.Message { return s.sched.Messages() }

// Handle commits a background message. Messages of superseded jobs are
// dropped. Results are cached and shown when they match the displayed energy.
// The returned error comes from the Display.
func (s *Session) Handle(msg precompute.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sched.Accept(msg) {
		s.logf("dropped message of superseded job %d", msg.Generation())
		return nil
	}
	switch m := msg.(type) {
	case precompute.Result:
		s.cache.Put(m.E, m.Bands)
		if s.initialized && fermisurf.SameEnergy(m.E, s.curE) {
			s.bands = m.Bands
			return s.show(m.E, m.Bands)
		}
	case precompute.Done:
		if m.Err != nil {
			s.logf("background job %d failed: %v", m.Gen, m.Err)
		}
	}
	return nil
}

// Run handles background messages until ctx is done. Display errors are logged.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-s.Messages():
			if err := s.Handle(msg); err != nil {
				s.logf("display: %v", err)
			}
		}
	}
}

// Poll handles the messages already queued without blocking and returns how
// many were handled.
func (s *Session) Poll() (n int, err error) {
	for {
		select {
		case msg := <-s.Messages():
			n++
			if herr := s.Handle(msg); herr != nil && err == nil {
				err = herr
			}
		default:
			return n, err
		}
	}
}

// Job returns the most recently started background job, nil if none.
func (s *Session) Job() *precompute.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

// Current returns the displayed energy and its bands.
func (s *Session) Current() (float64, []fermisurf.Band) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.curE, s.bands
}

// BuildRange synchronously builds and caches every energy of the sweep from
// EMin to EMax that is not cached yet.
func (s *Session) BuildRange(EMin, EMax, step float64) ([]Timing, error) {
	energies, err := precompute.Sweep{EMin: EMin, EMax: EMax, Step: step}.Energies()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	timings := make([]Timing, 0, len(energies))
	for _, E := range energies {
		if s.cache.Has(E) {
			timings = append(timings, Timing{E: E, Cached: true})
			continue
		}
		start := time.Now()
		bands, err := s.builder.BuildAll(s.cfg.Fields, E, s.cfg.Planes)
		if err != nil {
			return timings, err
		}
		s.cache.Put(E, bands)
		timings = append(timings, Timing{E: E, Elapsed: time.Since(start)})
	}
	return timings, nil
}

// AddExtra caches externally built bands at E.
func (s *Session) AddExtra(E float64, bands []fermisurf.Band) {
	s.cache.Put(E, bands)
	s.logf("added external bands for E=%g", E)
}

// Snapshot returns a copy of the cache contents.
func (s *Session) Snapshot() map[meshcache.Key][]fermisurf.Band {
	return s.cache.Snapshot()
}

// Energies returns the cached energies in ascending order.
func (s *Session) Energies() []float64 { return s.cache.Energies() }

// GridPoints returns the total number of grid nodes over all fields.
func (s *Session) GridPoints() (n int) {
	for _, f := range s.cfg.Fields {
		n += f.Field.Len()
	}
	return n
}

// Close cancels background work and waits until every started job, superseded
// ones included, has delivered its Done. Pending results are discarded.
func (s *Session) Close() error {
	s.stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for s.sched.Pending() > 0 {
		select {
		case msg := <-s.Messages():
			s.sched.Accept(msg)
		case <-tick.C:
			// Another goroutine may be handling messages.
		}
	}
	return nil
}

func (s *Session) show(E float64, bands []fermisurf.Band) error {
	if s.cfg.Display == nil {
		return nil
	}
	return s.cfg.Display.Show(E, bands)
}

func (s *Session) logf(format string, args ...any) {
	if s.cfg.Log != nil {
		s.cfg.Log.Printf(format, args...)
	}
}
