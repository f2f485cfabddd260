// Package dashboard ties the profile wizard and the unread collections of one
// signed-in account to the API and its live channel.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/client"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/onboarding"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/unread"
)

var (
	ErrAlreadyConnected = errors.New("session already connected")
	ErrNotConnected     = errors.New("session not connected")
	ErrNoWizard         = errors.New("role has no profile wizard")
)

// API is the slice of the HTTP API a session uses.
type API interface {
	onboarding.Fetcher
	unread.SnapshotSource
	SubmitStep(ctx context.Context, step onboarding.StepID, payload any) error
	MarkRead(ctx context.Context, stream unread.Stream, id string) error
}

// LiveStream is an open live channel.
type LiveStream interface {
	Events() <-chan dto.LiveEvent
	Err() error
	Close() error
}

type LiveDialer func(ctx context.Context) (LiveStream, error)

type Config struct {
	API    API
	Dial   LiveDialer
	Viewer unread.Viewer
	Logger *slog.Logger
}

// Summary is what the dashboard renders.
type Summary struct {
	Connected           bool
	Wizard              *onboarding.State
	UnreadMessages      int
	UnreadNotifications int
	Messages            []unread.Entry
	Notifications       []unread.Entry
}

// Session is the explicit connection object of one dashboard: Connect starts
// it, Disconnect tears it down and discards any work still in flight.
type Session struct {
	api    API
	dial   LiveDialer
	viewer unread.Viewer
	logger *slog.Logger

	messages      *unread.Reconciler
	notifications *unread.Reconciler

	mu        sync.Mutex
	wizard    *onboarding.Wizard
	live      LiveStream
	cancel    context.CancelFunc
	loopDone  chan struct{}
	connected bool
	onChange  func(Summary)
}

func NewSession(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dashboard", "user_id", cfg.Viewer.ID, "role", string(cfg.Viewer.Role))
	return &Session{
		api:           cfg.API,
		dial:          cfg.Dial,
		viewer:        cfg.Viewer,
		logger:        logger,
		messages:      unread.NewReconciler(unread.Messages, cfg.Viewer, logger),
		notifications: unread.NewReconciler(unread.Notifications, cfg.Viewer, logger),
	}
}

// New builds a session over the HTTP client.
func New(c *client.Client, viewer unread.Viewer, logger *slog.Logger) *Session {
	return NewSession(Config{
		API: c,
		Dial: func(ctx context.Context) (LiveStream, error) {
			lc, err := c.DialLive(ctx)
			if err != nil {
				return nil, err
			}
			return lc, nil
		},
		Viewer: viewer,
		Logger: logger,
	})
}

// OnChange registers fn to receive a summary whenever the state changes.
// fn runs on the goroutine that made the change.
func (s *Session) OnChange(fn func(Summary)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Connect opens the live channel, then loads the unread snapshots and the
// profile. Live events that arrive while the snapshots are in flight are
// merged with them. A failed initial fetch is logged and leaves the session
// connected; RefreshInbox and Refetch retry it.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.mu.Unlock()

	live, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("open live channel: %w", err)
	}

	var wizard *onboarding.Wizard
	if s.viewer.Role.Onboards() {
		flow, err := onboarding.FlowFor(s.viewer.Role)
		if err != nil {
			_ = live.Close()
			return err
		}
		wizard = onboarding.NewWizard(flow, s.api, s.logger)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		cancel()
		_ = live.Close()
		return ErrAlreadyConnected
	}
	s.live = live
	s.wizard = wizard
	s.cancel = cancel
	s.loopDone = done
	s.connected = true
	s.mu.Unlock()

	go s.loop(loopCtx, live, done)

	if err := s.RefreshInbox(ctx); err != nil {
		s.logger.Warn("initial inbox load failed", "error", err)
	}
	if wizard != nil {
		if err := wizard.FetchAndDerive(ctx); err != nil && !errors.Is(err, onboarding.ErrSuperseded) {
			s.logger.Warn("initial profile load failed", "error", err)
		}
	}
	s.changed()
	return nil
}

// Disconnect stops the event loop, closes the live channel, discards fetches
// still in flight and clears the unread collections.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return
	}
	s.connected = false
	cancel, live, done, wizard := s.cancel, s.live, s.loopDone, s.wizard
	s.live, s.cancel, s.loopDone = nil, nil, nil
	s.mu.Unlock()

	cancel()
	if err := live.Close(); err != nil {
		s.logger.Debug("closing live channel", "error", err)
	}
	<-done
	if wizard != nil {
		wizard.Close()
	}
	s.messages.Reset()
	s.notifications.Reset()
	s.logger.Info("dashboard disconnected")
}

func (s *Session) loop(ctx context.Context, live LiveStream, done chan struct{}) {
	defer close(done)
	events := live.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() == nil {
					s.logger.Warn("live channel closed", "error", live.Err())
				}
				return
			}
			batch := []dto.LiveEvent{ev}
			open := true
		drain:
			for open {
				select {
				case ev, ok := <-events:
					if !ok {
						open = false
						break drain
					}
					batch = append(batch, ev)
				default:
					break drain
				}
			}
			s.applyBatch(batch)
			if !open {
				if ctx.Err() == nil {
					s.logger.Warn("live channel closed", "error", live.Err())
				}
				return
			}
		}
	}
}

// applyBatch hands each stream its share of a batch in one Apply call so the
// deletions and reads of the batch are processed before its arrivals.
func (s *Session) applyBatch(batch []dto.LiveEvent) {
	var msgs, notes []unread.Event
	for _, ev := range batch {
		switch ev.Stream {
		case unread.Messages:
			msgs = append(msgs, ev.Event())
		case unread.Notifications:
			notes = append(notes, ev.Event())
		default:
			s.logger.Warn("ignoring live event for unknown stream", "stream", string(ev.Stream), "kind", string(ev.Kind))
		}
	}
	changed := false
	if len(msgs) > 0 {
		changed = s.messages.Apply(msgs...) || changed
	}
	if len(notes) > 0 {
		changed = s.notifications.Apply(notes...) || changed
	}
	if changed {
		s.changed()
	}
}

func (s *Session) currentWizard() (*onboarding.Wizard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, ErrNotConnected
	}
	if s.wizard == nil {
		return nil, ErrNoWizard
	}
	return s.wizard, nil
}

// SubmitStep writes the form of step, advances the wizard past it at once and
// then reconciles with the server. A failed write leaves the wizard as it
// was; a failed reconcile keeps the optimistic state.
func (s *Session) SubmitStep(ctx context.Context, step onboarding.StepID, payload any) error {
	w, err := s.currentWizard()
	if err != nil {
		return err
	}
	idx := w.Flow().Index(step)
	if idx < 0 {
		return fmt.Errorf("step %q is not part of the %s wizard", step, s.viewer.Role)
	}

	if err := s.api.SubmitStep(ctx, step, payload); err != nil {
		return fmt.Errorf("submit %s: %w", step, err)
	}
	if _, err := w.MarkStepComplete(idx); err != nil {
		return err
	}
	s.changed()

	if err := w.Refetch(ctx); err != nil && !errors.Is(err, onboarding.ErrSuperseded) {
		s.logger.Warn("profile refetch after submit failed", "error", err, "step", string(step))
	}
	s.changed()
	return nil
}

// Refetch reloads the profile and re-derives the wizard.
func (s *Session) Refetch(ctx context.Context) error {
	w, err := s.currentWizard()
	if err != nil {
		return err
	}
	err = w.Refetch(ctx)
	s.changed()
	return err
}

// GoToStep moves the wizard cursor; see onboarding.Wizard.SetCurrentStep.
func (s *Session) GoToStep(index int) bool {
	w, err := s.currentWizard()
	if err != nil {
		return false
	}
	moved := w.SetCurrentStep(index)
	if moved {
		s.changed()
	}
	return moved
}

// RefreshInbox reloads both unread snapshots.
func (s *Session) RefreshInbox(ctx context.Context) error {
	errM := s.messages.LoadSnapshot(ctx, s.api)
	errN := s.notifications.LoadSnapshot(ctx, s.api)
	s.changed()
	return errors.Join(errM, errN)
}

// OpenConversation removes the conversation from the unread list and tells
// the server it was read. The local removal stands even if the server call
// fails.
func (s *Session) OpenConversation(ctx context.Context, id string) error {
	return s.open(ctx, s.messages, id)
}

func (s *Session) OpenNotification(ctx context.Context, id string) error {
	return s.open(ctx, s.notifications, id)
}

func (s *Session) open(ctx context.Context, r *unread.Reconciler, id string) error {
	id = unread.NormalizeID(id)
	if id == "" {
		return errors.New("empty identifier")
	}
	if r.MarkOpened(id) {
		s.changed()
	}
	if err := s.api.MarkRead(ctx, r.Stream(), id); err != nil {
		s.logger.Error("mark read failed", "error", err, "stream", string(r.Stream()), "id", id)
		return fmt.Errorf("mark %s read: %w", id, err)
	}
	return nil
}

// Summary returns the current dashboard state.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	connected, wizard := s.connected, s.wizard
	s.mu.Unlock()

	sum := Summary{
		Connected:     connected,
		Messages:      s.messages.List(),
		Notifications: s.notifications.List(),
	}
	sum.UnreadMessages = len(sum.Messages)
	sum.UnreadNotifications = len(sum.Notifications)
	if wizard != nil {
		st := wizard.State()
		sum.Wizard = &st
	}
	return sum
}

func (s *Session) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(s.Summary())
	}
}
