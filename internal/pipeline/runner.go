// Package pipeline provides the simulated pipeline runner: it walks the ordered
// stage list, draws a random pass/fail outcome per stage and publishes the full
// status mapping after every change, stopping at the first failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/devsecops-visualizer/internal/types"
)

const (
	// DefaultStepDelay is the artificial pause before each stage outcome.
	DefaultStepDelay = 1200 * time.Millisecond
	// DefaultSuccessProbability is the chance that a stage passes.
	DefaultSuccessProbability = 0.9
)

var (
	// ErrRunInProgress is returned when a run is requested while another is active.
	ErrRunInProgress = errors.New("pipeline run already in progress")
	// ErrNoStages is returned when a run is requested for an empty stage list.
	ErrNoStages = errors.New("no stages to run")
)

// Source supplies uniform samples in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Config holds the simulation parameters.
type Config struct {
	SuccessProbability float64
	StepDelay          time.Duration
	Source             Source // nil means a time-seeded PCG source
}

// DefaultConfig returns the simulation parameters of the original dashboard.
func DefaultConfig() Config {
	return Config{
		SuccessProbability: DefaultSuccessProbability,
		StepDelay:          DefaultStepDelay,
	}
}

// Validate checks the simulation parameters.
func (c Config) Validate() error {
	if c.SuccessProbability < 0 || c.SuccessProbability > 1 {
		return fmt.Errorf("success probability must be within [0, 1], got %v", c.SuccessProbability)
	}
	if c.StepDelay < 0 {
		return fmt.Errorf("step delay must be non-negative, got %v", c.StepDelay)
	}
	return nil
}

// Runner executes simulated runs one at a time and fans events out to subscribers.
type Runner struct {
	cfg Config

	// deliver is held by a run from its reset snapshot through its finished
	// event, so a run started from a finished subscriber publishes after it.
	deliver sync.Mutex

	mu      sync.Mutex
	running bool
	latest  Snapshot
	subs    map[int]func(Event)
	nextSub int
}

// NewRunner creates a runner with the given configuration.
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Source == nil {
		seed := uint64(time.Now().UnixNano())
		cfg.Source = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Runner{
		cfg:    cfg,
		latest: Snapshot{},
		subs:   make(map[int]func(Event)),
	}, nil
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes the subscription. Events of one run arrive in order from a
// single goroutine, and subscribers are called in registration order. fn may
// call Start but not Run, and must not modify the snapshot it receives.
func (r *Runner) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// Running reports whether a run is in progress.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Latest returns a copy of the most recently published status mapping.
func (r *Runner) Latest() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest.Clone()
}

// Run performs a complete run and blocks until it ends.
func (r *Runner) Run(ctx context.Context, stages []types.Stage) (*Result, error) {
	id, err := r.begin(stages)
	if err != nil {
		return nil, err
	}
	return r.execute(ctx, id, stages), nil
}

// Start launches a run in the background and returns its id.
func (r *Runner) Start(ctx context.Context, stages []types.Stage) (uuid.UUID, error) {
	id, err := r.begin(stages)
	if err != nil {
		return uuid.Nil, err
	}
	go r.execute(ctx, id, stages)
	return id, nil
}

// begin claims the running flag.
func (r *Runner) begin(stages []types.Stage) (uuid.UUID, error) {
	if len(stages) == 0 {
		return uuid.Nil, ErrNoStages
	}
	seen := make(map[string]bool, len(stages))
	for _, stage := range stages {
		if seen[stage.ID] {
			return uuid.Nil, fmt.Errorf("duplicate stage id %q", stage.ID)
		}
		seen[stage.ID] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return uuid.Nil, ErrRunInProgress
	}
	r.running = true
	return uuid.New(), nil
}

func (r *Runner) execute(ctx context.Context, id uuid.UUID, stages []types.Stage) *Result {
	result := &Result{
		ID:        id,
		Outcome:   OutcomeSucceeded,
		StartedAt: time.Now(),
	}
	runID := id.String()

	r.deliver.Lock()
	defer r.deliver.Unlock()

	statuses := make(Snapshot, len(stages))
	for _, stage := range stages {
		statuses[stage.ID] = StatusPending
	}
	r.publish(Event{Kind: EventSnapshot, RunID: runID, Seq: 0, Statuses: statuses.Clone(), Running: true})
	result.Snapshots++

	for i, stage := range stages {
		if err := r.wait(ctx); err != nil {
			log.Printf("[pipeline] run %s aborted before stage %s: %v", runID, stage.ID, err)
			result.Outcome = OutcomeAborted
			break
		}

		status := StatusFailed
		if r.cfg.Source.Float64() < r.cfg.SuccessProbability {
			status = StatusSuccess
		}
		statuses[stage.ID] = status
		r.publish(Event{
			Kind:     EventSnapshot,
			RunID:    runID,
			Seq:      i + 1,
			StageID:  stage.ID,
			Statuses: statuses.Clone(),
			Running:  true,
		})
		result.Snapshots++

		if status == StatusFailed {
			result.Outcome = OutcomeFailed
			result.FailedStage = stage.ID
			break
		}
	}

	result.Statuses = statuses.Clone()
	result.FinishedAt = time.Now()
	log.Printf("[pipeline] run %s %s after %d snapshots", runID, result.Outcome, result.Snapshots)

	// Released before the finished event so that subscribers may start the
	// next run; deliver keeps that run's events behind this one.
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.publish(Event{Kind: EventFinished, RunID: runID, Statuses: result.Statuses.Clone(), Running: false, Result: result})

	return result
}

// wait pauses for the configured step delay or until ctx is done.
func (r *Runner) wait(ctx context.Context) error {
	if r.cfg.StepDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.cfg.StepDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Runner) publish(ev Event) {
	r.mu.Lock()
	if ev.Kind == EventSnapshot {
		r.latest = ev.Statuses.Clone()
	}
	subs := make([]func(Event), 0, len(r.subs))
	for _, id := range slices.Sorted(maps.Keys(r.subs)) {
		subs = append(subs, r.subs[id])
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
