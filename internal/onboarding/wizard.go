package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrSuperseded is returned by a fetch whose result was discarded because a
// newer fetch or a step completion started, or the wizard was closed, while
// it was in flight.
var ErrSuperseded = errors.New("profile fetch superseded")

// Fetcher reads the profile aggregate of the session's account.
type Fetcher interface {
	FetchProfile(ctx context.Context) (Record, error)
}

// State is a copy of the wizard's current position.
type State struct {
	Flow     Flow
	Record   Record
	Vector   Vector
	Cursor   Cursor
	Loaded   bool
	Stale    bool
	Finished bool
}

// Current returns the step under the cursor; false when finished.
func (s State) Current() (Step, bool) {
	if s.Cursor.IsFinished() || s.Cursor < 0 {
		return Step{}, false
	}
	return s.Flow.Steps[s.Cursor], true
}

// Wizard is the profile-completion state machine of one role. It is safe for
// concurrent use.
type Wizard struct {
	flow    Flow
	fetcher Fetcher
	logger  *slog.Logger

	mu     sync.Mutex
	record Record
	vector Vector
	cursor Cursor
	loaded bool
	// optimistic holds steps flipped locally and not yet confirmed by a fetch.
	optimistic map[StepID]struct{}
	gen        uint64
	closed     bool
}

func NewWizard(flow Flow, fetcher Fetcher, logger *slog.Logger) *Wizard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Wizard{
		flow:       flow,
		fetcher:    fetcher,
		logger:     logger.With("component", "wizard", "role", string(flow.Role)),
		optimistic: make(map[StepID]struct{}),
	}
}

// FetchAndDerive reads the profile and recomputes the vector and cursor from
// scratch. On failure the previous state is kept.
func (w *Wizard) FetchAndDerive(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrSuperseded
	}
	w.gen++
	gen := w.gen
	w.mu.Unlock()

	rec, err := w.fetcher.FetchProfile(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || gen != w.gen {
		return ErrSuperseded
	}
	if err != nil {
		w.logger.Error("profile fetch failed", "error", err)
		return fmt.Errorf("fetch profile: %w", err)
	}

	vector, cursor := w.flow.Derive(rec)
	for id := range w.optimistic {
		if i := w.flow.Index(id); i >= 0 && !vector[i] {
			w.logger.Warn("optimistic step completion not confirmed by server", "step", string(id))
		}
	}
	clear(w.optimistic)

	w.record = rec
	w.vector = vector
	w.cursor = cursor
	w.loaded = true
	return nil
}

// Refetch reconciles local state with the server.
func (w *Wizard) Refetch(ctx context.Context) error {
	return w.FetchAndDerive(ctx)
}

// MarkStepComplete records that the form of step index succeeded. The step is
// flipped to complete and the cursor advances before the server confirms it;
// a following Refetch reconciles. Fetches already in flight are discarded,
// since they may have read the profile before the write.
func (w *Wizard) MarkStepComplete(index int) (Cursor, error) {
	if index < 0 || index >= StepCount {
		return 0, fmt.Errorf("step index %d out of range", index)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	if !w.vector[index] {
		w.vector[index] = true
		w.optimistic[w.flow.Steps[index].ID] = struct{}{}
	}
	w.cursor = Cursor(index + 1)
	return w.cursor, nil
}

// SetCurrentStep moves the cursor to index when that step is complete or does
// not lie ahead of the cursor. Once every step is complete the wizard stays
// finished. It reports whether the cursor moved.
func (w *Wizard) SetCurrentStep(index int) bool {
	if index < 0 || index >= StepCount {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cursor.IsFinished() && w.vector.AllComplete() {
		return false
	}
	if !w.vector[index] && Cursor(index) > w.cursor {
		return false
	}
	w.cursor = Cursor(index)
	return true
}

// State returns a snapshot of the wizard.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Flow:     w.flow,
		Record:   w.record,
		Vector:   w.vector,
		Cursor:   w.cursor,
		Loaded:   w.loaded,
		Stale:    len(w.optimistic) > 0,
		Finished: w.cursor.IsFinished(),
	}
}

func (w *Wizard) Flow() Flow { return w.flow }

// Close discards any fetch still in flight and rejects later ones.
func (w *Wizard) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}
