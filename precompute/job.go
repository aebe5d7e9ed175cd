package precompute

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded resolves the handle of a job replaced by a newer one.
var ErrSuperseded = errors.New("precompute: job superseded")

// Job is the completion handle of a background job.
type Job struct {
	gen  uint64
	once sync.Once
	done chan struct{}
	err  error
}

func newJob(gen uint64) *Job {
	return &Job{gen: gen, done: make(chan struct{})}
}

// Gen returns the job's generation.
func (j *Job) Gen() uint64 { return j.gen }

// Done is closed once the job is resolved.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the job's error. It is only meaningful after Done is closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job is resolved or ctx is cancelled.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) resolve(err error) {
	j.once.Do(func() {
		j.err = err
		close(j.done)
	})
}

// Scheduler runs at most one active job at a time. Starting a job cancels the
// previous one; messages of cancelled jobs are rejected by Accept.
type Scheduler struct {
	worker *Worker
	out    chan Message

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	jobs   map[uint64]*Job
}

// NewScheduler returns a Scheduler whose jobs run on w and send their
// messages on a channel with the given buffer size.
func NewScheduler(w *Worker, buffer int) *Scheduler {
	if w == nil {
		w = &Worker{}
	}
	return &Scheduler{
		worker: w,
		out:    make(chan Message, buffer),
		jobs:   make(map[uint64]*Job),
	}
}

// Messages returns the channel all jobs send on. It must be drained and each
// message passed to Accept.
func (s *Scheduler) Messages() <-chan Message { return s.out }

// Start assigns req the next generation, cancels the active job and runs req
// in a new goroutine.
func (s *Scheduler) Start(ctx context.Context, req Request) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	req.Gen = s.gen
	job := newJob(req.Gen)
	s.jobs[req.Gen] = job
	ctx, s.cancel = context.WithCancel(ctx)
	go s.worker.Run(ctx, req, s.out)
	return job
}

// Accept reports whether msg belongs to the active job and should be
// committed. A Done resolves its job's handle; a Done of a superseded job
// resolves it with ErrSuperseded.
func (s *Scheduler) Accept(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := msg.Generation() == s.gen
	done, ok := msg.(Done)
	if !ok {
		return active
	}
	job := s.jobs[done.Gen]
	delete(s.jobs, done.Gen)
	if job == nil {
		return false
	}
	if active {
		job.resolve(done.Err)
		if s.cancel != nil {
			s.cancel() // Release the job's context.
			s.cancel = nil
		}
	} else {
		job.resolve(ErrSuperseded)
	}
	return active
}

// Active returns the generation of the most recently started job, zero if none.
func (s *Scheduler) Active() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Pending returns the number of started jobs whose Done has not been accepted.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Stop cancels the active job. Its Done is still delivered.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
