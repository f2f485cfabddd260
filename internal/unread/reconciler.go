package unread

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// SnapshotSource reads the server's current unread items of one stream.
type SnapshotSource interface {
	FetchUnread(ctx context.Context, stream Stream) ([]Entry, error)
}

// SnapshotToken marks the point in the event sequence at which a snapshot
// request was issued.
type SnapshotToken uint64

// Reconciler maintains the unread entries of one stream, most recent first.
// It is safe for concurrent use.
type Reconciler struct {
	stream Stream
	viewer Viewer
	logger *slog.Logger

	mu         sync.Mutex
	entries    []Entry
	present    mapset.Set[string]
	tombstones mapset.Set[string]

	// seq numbers every local mutation so a snapshot can tell which live
	// changes happened after it was requested.
	seq         uint64
	arrivedAt   map[string]uint64
	removedAt   map[string]uint64
	outstanding map[SnapshotToken]int
	resetAt     uint64
}

func NewReconciler(stream Stream, viewer Viewer, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reconciler{
		stream: stream,
		viewer: viewer,
		logger: logger.With("component", "unread", "stream", string(stream)),
	}
	r.reset()
	return r
}

func (r *Reconciler) reset() {
	r.entries = nil
	r.present = mapset.NewThreadUnsafeSet[string]()
	r.tombstones = mapset.NewThreadUnsafeSet[string]()
	r.arrivedAt = make(map[string]uint64)
	r.removedAt = make(map[string]uint64)
	r.outstanding = make(map[SnapshotToken]int)
}

func (r *Reconciler) Stream() Stream { return r.stream }

// LoadSnapshot fetches the stream's unread items and merges them in. On a
// fetch error the current entries are kept.
func (r *Reconciler) LoadSnapshot(ctx context.Context, src SnapshotSource) error {
	tok := r.BeginSnapshot()
	items, err := src.FetchUnread(ctx, r.stream)
	if err != nil {
		r.AbandonSnapshot(tok)
		r.logger.Error("unread snapshot fetch failed", "error", err)
		return fmt.Errorf("fetch %s snapshot: %w", r.stream, err)
	}
	r.ApplySnapshot(tok, items)
	return nil
}

// BeginSnapshot must be called before the snapshot request is sent.
func (r *Reconciler) BeginSnapshot() SnapshotToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok := SnapshotToken(r.seq)
	r.outstanding[tok]++
	return tok
}

// AbandonSnapshot releases a token whose request failed.
func (r *Reconciler) AbandonSnapshot(tok SnapshotToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.release(tok)
}

// ApplySnapshot replaces the entries with the snapshot items, minus
// tombstoned items, items the viewer has read, and items removed locally
// after tok. Items that arrived live after tok and are missing from the
// snapshot are kept ahead of it.
func (r *Reconciler) ApplySnapshot(tok SnapshotToken, items []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.release(tok)

	since := uint64(tok)
	if since < r.resetAt {
		r.logger.Debug("dropping snapshot requested before reset")
		return
	}
	next := make([]Entry, 0, len(items))
	seen := mapset.NewThreadUnsafeSet[string]()

	for _, e := range r.entries {
		if r.arrivedAt[e.ID] > since {
			next = append(next, e)
			seen.Add(e.ID)
		}
	}
	for _, e := range items {
		e.ID = NormalizeID(e.ID)
		e.Stream = r.stream
		switch {
		case e.ID == "":
		case seen.Contains(e.ID):
		case r.tombstones.Contains(e.ID):
		case r.removedAt[e.ID] > since:
		case e.Read.ReadBy(r.viewer.Role):
		default:
			next = append(next, e)
			seen.Add(e.ID)
		}
	}

	r.entries = next
	r.present = seen
}

func (r *Reconciler) release(tok SnapshotToken) {
	if r.outstanding[tok] <= 1 {
		delete(r.outstanding, tok)
	} else {
		r.outstanding[tok]--
	}

	// Bookkeeping older than every outstanding snapshot can no longer matter.
	floor := r.seq
	for t := range r.outstanding {
		floor = min(floor, uint64(t))
	}
	for id, s := range r.arrivedAt {
		if s <= floor {
			delete(r.arrivedAt, id)
		}
	}
	for id, s := range r.removedAt {
		if s <= floor {
			delete(r.removedAt, id)
		}
	}
}

// Arrive inserts a live item at the front. Items sent by the viewer,
// duplicates, tombstoned items, and items already read by the viewer are
// ignored. It reports whether the entry was inserted.
func (r *Reconciler) Arrive(e Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.arrive(e)
}

func (r *Reconciler) arrive(e Entry) bool {
	e.ID = NormalizeID(e.ID)
	e.Stream = r.stream
	switch {
	case e.ID == "":
		return false
	case r.viewer.ID != "" && NormalizeID(e.SenderID) == NormalizeID(r.viewer.ID):
		return false
	case r.present.Contains(e.ID):
		return false
	case r.tombstones.Contains(e.ID):
		return false
	case e.Read.ReadBy(r.viewer.Role):
		return false
	}

	r.seq++
	if len(r.outstanding) > 0 {
		r.arrivedAt[e.ID] = r.seq
	}
	r.entries = slices.Insert(r.entries, 0, e)
	r.present.Add(e.ID)
	return true
}

// Read removes the entry when flags say the viewer's role has read it.
func (r *Reconciler) Read(id string, flags ReadFlags) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(id, flags)
}

func (r *Reconciler) read(id string, flags ReadFlags) bool {
	if !flags.ReadBy(r.viewer.Role) {
		return false
	}
	return r.remove(NormalizeID(id))
}

// Delete tombstones the identifier and removes its entry. A tombstoned
// identifier is never inserted again for the lifetime of the reconciler.
func (r *Reconciler) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delete(id)
}

func (r *Reconciler) delete(id string) bool {
	id = NormalizeID(id)
	if id == "" {
		return false
	}
	r.tombstones.Add(id)
	return r.remove(id)
}

// MarkOpened removes the entry locally without waiting for the server.
func (r *Reconciler) MarkOpened(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remove(NormalizeID(id))
}

// remove records the removal while a snapshot is outstanding so that snapshot
// cannot bring the item back, even when the item is not present yet.
func (r *Reconciler) remove(id string) bool {
	if id == "" {
		return false
	}
	r.seq++
	delete(r.arrivedAt, id)
	if len(r.outstanding) > 0 {
		r.removedAt[id] = r.seq
	}
	if !r.present.Contains(id) {
		return false
	}
	r.present.Remove(id)
	r.entries = slices.DeleteFunc(r.entries, func(e Entry) bool { return e.ID == id })
	return true
}

// Apply processes a batch of live events: deletions first, then reads, then
// arrivals, each group in the order received. An arrival for an item deleted
// or read by the viewer in the same batch is dropped. It reports whether the
// entries changed.
func (r *Reconciler) Apply(events ...Event) bool {
	ordered := slices.Clone(events)
	slices.SortStableFunc(ordered, func(a, b Event) int {
		return a.Kind.priority() - b.Kind.priority()
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	changed := false
	// readNow suppresses arrivals of items read in the same batch.
	readNow := mapset.NewThreadUnsafeSet[string]()
	for _, ev := range ordered {
		switch ev.Kind {
		case ItemDeleted:
			changed = r.delete(ev.ID) || changed
		case ItemRead:
			if ev.Read.ReadBy(r.viewer.Role) {
				readNow.Add(NormalizeID(ev.ID))
			}
			changed = r.read(ev.ID, ev.Read) || changed
		case ItemArrived:
			e := ev.Entry
			if e.ID == "" {
				e.ID = ev.ID
			}
			if readNow.Contains(NormalizeID(e.ID)) {
				continue
			}
			changed = r.arrive(e) || changed
		default:
			r.logger.Warn("ignoring unknown event kind", "kind", string(ev.Kind))
		}
	}
	return changed
}

func (r *Reconciler) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// List returns a copy of the entries, most recent first.
func (r *Reconciler) List() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

func (r *Reconciler) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.present.Contains(NormalizeID(id))
}

func (r *Reconciler) Tombstoned(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tombstones.Contains(NormalizeID(id))
}

// Reset clears entries and tombstones. It is called when the session ends.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.resetAt = r.seq
	r.reset()
}
