package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidConfiguration marks configuration rejected at construction time
	// (unknown distribution family, non-positive mean, malformed probabilities).
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrAlreadyRun is returned when Run or Start is called on an engine that
	// has already been started. Engines are single-use.
	ErrAlreadyRun = errors.New("engine already started")

	// ErrUnknownEventKind is returned when an event has no registered handler.
	ErrUnknownEventKind = errors.New("no handler for event kind")
)

// State is the lifecycle state of an Engine.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config holds the run parameters of an Engine.
type Config struct {
	Duration float64       // simulated time bound; the loop runs while now < Duration
	Delay    time.Duration // wall-clock pause per iteration, 0 runs as fast as possible
	Seed     int64         // master seed for PartitionedRNG
}

// Validate checks the run parameters.
func (c Config) Validate() error {
	if math.IsNaN(c.Duration) || c.Duration < 0 {
		return fmt.Errorf("%w: duration must be >= 0, got %v", ErrInvalidConfiguration, c.Duration)
	}
	if c.Delay < 0 {
		return fmt.Errorf("%w: delay must be >= 0, got %v", ErrInvalidConfiguration, c.Delay)
	}
	return nil
}

// Handler applies one event to the model state. It runs on the simulation
// goroutine and may schedule further events.
type Handler func(ev Event) error

// Model is the domain wiring driven by an Engine: which stations exist, what
// happens when each event kind fires, and what to do with the final statistics.
type Model interface {
	// Init registers stations and handlers on the engine and schedules the
	// first arrival. It runs on the simulation goroutine before the loop.
	Init(e *Engine) error
	// Finish receives the statistics of a run that ended normally or was cancelled.
	Finish(stats Statistics)
}

// Engine owns the clock and event list of one simulation run and drives the
// three-phase loop:
//
//	A: advance the clock to the earliest pending event
//	B: process every event scheduled at exactly that time
//	C: start service at every idle station that has a queue
//
// Pause, Resume, Cancel and SetDelay are safe to call from any goroutine.
// Everything else belongs to the simulation goroutine.
type Engine struct {
	cfg        Config
	model      Model
	clock      *Clock
	events     *EventList
	stations   []*Station
	byName     map[string]*Station
	handlers   map[EventKind]Handler
	population Population
	rng        *PartitionedRNG
	observer   Observer
	notes      *notifier
	processed  uint64

	mu              sync.Mutex
	cond            *sync.Cond
	state           State
	started         bool
	paused          bool
	delay           time.Duration
	cancel          context.CancelFunc
	cancelRequested bool

	done      chan struct{}
	notesDone chan struct{} // closed when every notice has reached the observer
	stats     Statistics
	err       error
}

// NewEngine creates an idle engine. obs may be nil.
func NewEngine(cfg Config, model Model, obs Observer) (*Engine, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: model must not be nil", ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		model:    model,
		clock:    NewClock(),
		events:   NewEventList(),
		byName:   make(map[string]*Station),
		handlers: make(map[EventKind]Handler),
		rng:      NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		observer: obs,
		delay:    cfg.Delay,

		done:      make(chan struct{}),
		notesDone: make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	return e, nil
}

// === Model-facing API (simulation goroutine only) ===

// Clock returns the engine's clock.
func (e *Engine) Clock() *Clock { return e.clock }

// Now returns the current simulated time.
func (e *Engine) Now() float64 { return e.clock.Now() }

// Events returns the engine's pending-event list.
func (e *Engine) Events() *EventList { return e.events }

// Population returns the entity counters of this run.
func (e *Engine) Population() *Population { return &e.population }

// RNG returns the engine's partitioned random source.
func (e *Engine) RNG() *PartitionedRNG { return e.rng }

// Duration returns the configured simulated-time bound.
func (e *Engine) Duration() float64 { return e.cfg.Duration }

// AddStation registers a station. Phase C visits stations in registration order.
func (e *Engine) AddStation(name string, sampler Sampler) (*Station, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: station name must not be empty", ErrInvalidConfiguration)
	}
	if sampler == nil {
		return nil, fmt.Errorf("%w: station %q has no sampler", ErrInvalidConfiguration, name)
	}
	if _, dup := e.byName[name]; dup {
		return nil, fmt.Errorf("%w: duplicate station %q", ErrInvalidConfiguration, name)
	}
	s := NewStation(name, sampler, EventKind("departure:"+name), e.clock, e.events)
	if e.notes != nil {
		s.notify = e.notes.post
	}
	e.stations = append(e.stations, s)
	e.byName[name] = s
	return s, nil
}

// Station returns the named station, or nil.
func (e *Engine) Station(name string) *Station { return e.byName[name] }

// Stations returns the stations in registration order.
func (e *Engine) Stations() []*Station { return e.stations }

// NewArrivalProcess creates an arrival process whose events are of kind "arrival:<name>".
func (e *Engine) NewArrivalProcess(name string, sampler Sampler) (*ArrivalProcess, error) {
	if sampler == nil {
		return nil, fmt.Errorf("%w: arrival process %q has no sampler", ErrInvalidConfiguration, name)
	}
	return NewArrivalProcess(sampler, EventKind("arrival:"+name), e.clock, e.events), nil
}

// Handle registers h as the handler for kind, replacing any previous one.
func (e *Engine) Handle(kind EventKind, h Handler) {
	e.handlers[kind] = h
}

// === Control API (any goroutine) ===

// Pause suspends the loop before its next iteration. Events and simulated
// timestamps are unaffected; only wall-clock progress stops.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	if e.state == StateRunning {
		e.state = StatePaused
	}
}

// Resume releases a paused loop.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	if e.state == StatePaused {
		e.state = StateRunning
	}
	e.cond.Broadcast()
}

// Cancel asks the loop to stop. It is observed at the top of the next
// iteration, during the pacing delay and while paused. Cancelling before
// Start makes the run end without processing any event.
func (e *Engine) Cancel() {
	e.mu.Lock()
	e.cancelRequested = true
	cancel := e.cancel
	e.cond.Broadcast()
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SetDelay changes the per-iteration pacing delay. Negative values mean no delay.
func (e *Engine) SetDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = d
}

// Delay returns the current pacing delay.
func (e *Engine) Delay() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.delay
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsRunning reports whether the engine is started, not paused and not terminated.
func (e *Engine) IsRunning() bool {
	return e.State() == StateRunning
}

// === Running ===

// Run executes the simulation on the calling goroutine and returns its statistics.
// A cancelled run is not an error: the partial statistics are returned with
// Cancelled set.
func (e *Engine) Run(ctx context.Context) (Statistics, error) {
	runCtx, err := e.begin(ctx)
	if err != nil {
		return Statistics{}, err
	}
	e.execute(runCtx)
	return e.stats, e.err
}

// Start runs the simulation on a new goroutine. Use Wait for the result.
func (e *Engine) Start(ctx context.Context) error {
	runCtx, err := e.begin(ctx)
	if err != nil {
		return err
	}
	go e.execute(runCtx)
	return nil
}

// Wait blocks until a started run has terminated and returns its result.
func (e *Engine) Wait() (Statistics, error) {
	<-e.done
	return e.stats, e.err
}

// Done is closed when the run has terminated.
func (e *Engine) Done() <-chan struct{} { return e.done }

// DrainNotifications blocks until a started run has terminated and the
// observer has been handed every notice, Ended included. Run and Wait do not
// wait for the observer; call this when the caller needs its output.
// It must not be called from an Observer callback.
func (e *Engine) DrainNotifications() {
	<-e.done
	<-e.notesDone
}

func (e *Engine) begin(ctx context.Context) (context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil, ErrAlreadyRun
	}
	e.started = true
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	if e.cancelRequested {
		cancel()
	}
	if e.paused {
		e.state = StatePaused
	} else {
		e.state = StateRunning
	}
	return runCtx, nil
}

func (e *Engine) execute(ctx context.Context) {
	defer close(e.done)
	defer e.cancel()
	// A paused loop sleeps on the condition variable; cancellation must wake it.
	stop := context.AfterFunc(ctx, func() {
		e.mu.Lock()
		e.cond.Broadcast()
		e.mu.Unlock()
	})
	defer stop()

	if e.observer != nil {
		e.notes = newNotifier(e.observer, e.notesDone)
	} else {
		close(e.notesDone)
	}
	e.clock.Reset()
	logrus.Infof("Starting simulation: duration=%g, delay=%v, seed=%d", e.cfg.Duration, e.Delay(), e.cfg.Seed)

	if err := e.model.Init(e); err != nil {
		e.terminate(Statistics{}, fmt.Errorf("initializing model: %w", err))
		return
	}

	cancelled, err := e.loop(ctx)
	stats := e.collect(cancelled)
	if err != nil {
		e.terminate(stats, err)
		return
	}
	if cancelled {
		logrus.Infof("[t=%.4f] Simulation cancelled after %d events", e.clock.Now(), e.processed)
	} else {
		logrus.Infof("[t=%.4f] Simulation ended", e.clock.Now())
	}
	e.model.Finish(stats)
	if e.notes != nil {
		e.notes.post(Notice{Kind: NoticeProgress, Time: stats.EndTime, Total: e.cfg.Duration})
		e.notes.post(Notice{Kind: NoticeEnded, Time: stats.EndTime, Stats: &stats})
	}
	e.terminate(stats, nil)
}

// loop runs iterations until the time bound, cancellation or a handler error.
func (e *Engine) loop(ctx context.Context) (cancelled bool, err error) {
	for e.clock.Now() < e.cfg.Duration {
		if ctx.Err() != nil || !e.awaitResume(ctx) || !e.pace(ctx) {
			return true, nil
		}

		// Phase A
		e.clock.Advance(e.events.PeekMinTime())
		now := e.clock.Now()
		logrus.Tracef("Phase A, time: %.4f", now)

		// Phase B: drain everything due now before any station starts service.
		for e.events.Len() > 0 && e.events.PeekMinTime() == now {
			ev, err := e.events.ExtractMin()
			if err != nil {
				return false, err
			}
			if err := e.dispatch(ev); err != nil {
				return false, err
			}
		}

		// Phase C
		for _, s := range e.stations {
			if !s.IsBusy() && s.HasQueue() {
				s.StartService()
			}
		}
	}
	return false, nil
}

func (e *Engine) dispatch(ev Event) error {
	h, ok := e.handlers[ev.Kind]
	if !ok {
		return fmt.Errorf("%w: %q at %.4f", ErrUnknownEventKind, ev.Kind, ev.Time)
	}
	logrus.Tracef("[t=%.4f] Executing %s", ev.Time, ev.Kind)
	e.processed++
	if err := h(ev); err != nil {
		return fmt.Errorf("handling %s at %.4f: %w", ev.Kind, ev.Time, err)
	}
	return nil
}

// awaitResume blocks while paused. It returns false if the run was cancelled.
func (e *Engine) awaitResume(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.paused && ctx.Err() == nil {
		e.cond.Wait()
	}
	return ctx.Err() == nil
}

// pace sleeps for the pacing delay. It returns false if the run was cancelled.
func (e *Engine) pace(ctx context.Context) bool {
	delay := e.Delay()
	if delay <= 0 {
		return ctx.Err() == nil
	}
	if e.notes != nil {
		e.notes.post(Notice{Kind: NoticeProgress, Time: e.clock.Now(), Total: e.cfg.Duration})
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Engine) collect(cancelled bool) Statistics {
	end := e.clock.Now()
	if math.IsInf(end, 1) {
		// the event list drained; nothing happened after the bound
		end = e.cfg.Duration
	}
	stats := Statistics{
		EndTime:         end,
		Duration:        e.cfg.Duration,
		Arrivals:        e.population.Created(),
		Completed:       e.population.Completed(),
		TotalSojourn:    e.population.TotalSojourn(),
		AverageSojourn:  e.population.AverageSojourn(),
		EventsProcessed: e.processed,
		Cancelled:       cancelled,
		Stations:        make([]StationStats, 0, len(e.stations)),
	}
	for _, s := range e.stations {
		busy := s.BusyTime(end)
		st := StationStats{
			Name:     s.Name(),
			Served:   s.Served(),
			Waiting:  s.Len(),
			BusyTime: busy,
		}
		if end > 0 && !math.IsInf(end, 0) {
			st.Utilization = busy / end
		}
		stats.Stations = append(stats.Stations, st)
	}
	return stats
}

func (e *Engine) terminate(stats Statistics, err error) {
	if e.notes != nil {
		e.notes.close()
	}
	if err != nil {
		logrus.Errorf("Simulation failed: %v", err)
	}
	e.mu.Lock()
	e.stats = stats
	e.err = err
	e.state = StateTerminated
	e.mu.Unlock()
}
