// Package wall holds the state behind one wall screen: the visible comment
// set kept current from a store subscription, the bubble layout, and the
// transient highlight and banner shown when comments arrive.
package wall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/evcraddock/comment-wall/internal/comment"
	"github.com/evcraddock/comment-wall/internal/layout"
	"github.com/evcraddock/comment-wall/internal/notify"
)

// Config tunes a wall.
type Config struct {
	Max          int
	Viewport     float64
	HighlightFor time.Duration
	BannerFor    time.Duration
}

// DefaultConfig returns the settings used at the event.
func DefaultConfig() Config {
	return Config{
		Max:          comment.DefaultMax,
		Viewport:     layout.DefaultViewport,
		HighlightFor: 3 * time.Second,
		BannerFor:    2500 * time.Millisecond,
	}
}

// ErrMounted is returned by Mount on a wall that was already mounted.
var ErrMounted = errors.New("wall already mounted")

// Wall is the view-model of one wall screen.
type Wall struct {
	store comment.Store
	cfg   Config

	changes *notify.Dispatcher[View]

	mu          sync.Mutex
	items       []comment.Comment
	known       map[string]struct{}
	primed      bool
	highlighted map[string]struct{}
	banner      bool
	timers      map[*time.Timer]struct{}
	unsub       func()
	mounted     bool
	unmounted   bool
}

// New creates an unmounted wall over store.
func New(store comment.Store, cfg Config) *Wall {
	def := DefaultConfig()
	if cfg.Max <= 0 {
		cfg.Max = def.Max
	}
	if cfg.Viewport <= 0 {
		cfg.Viewport = def.Viewport
	}
	if cfg.HighlightFor <= 0 {
		cfg.HighlightFor = def.HighlightFor
	}
	if cfg.BannerFor <= 0 {
		cfg.BannerFor = def.BannerFor
	}

	return &Wall{
		store:       store,
		cfg:         cfg,
		changes:     notify.NewDispatcher[View](),
		items:       []comment.Comment{},
		known:       map[string]struct{}{},
		highlighted: map[string]struct{}{},
		timers:      map[*time.Timer]struct{}{},
	}
}

// OnChange registers fn to receive the view after every state change.
// Calls are serialized and a slow receiver only sees the latest view.
func (w *Wall) OnChange(fn func(View)) (cancel func()) {
	return w.changes.Add(fn).Cancel
}

// Mount loads the latest comments once, then switches to the live
// subscription. A failed fetch is logged and the wall starts empty.
func (w *Wall) Mount(ctx context.Context) error {
	w.mu.Lock()
	if w.mounted {
		w.mu.Unlock()
		return ErrMounted
	}
	w.mounted = true
	w.mu.Unlock()

	items, err := w.store.FetchLatest(ctx, w.cfg.Max)
	if err != nil {
		slog.Warn("initial comment fetch failed, starting empty", "store", w.store.Kind(), "error", err)
	} else {
		w.apply(items)
	}

	unsub, err := w.store.Subscribe(ctx, w.cfg.Max, w.apply, w.onSubscribeError)
	if err != nil {
		return fmt.Errorf("subscribing wall: %w", err)
	}

	w.mu.Lock()
	if w.unmounted {
		w.mu.Unlock()
		unsub()
		return nil
	}
	w.unsub = unsub
	w.mu.Unlock()

	return nil
}

// Unmount cancels the subscription and every pending timer. No change
// notification is published afterwards.
func (w *Wall) Unmount() {
	w.mu.Lock()
	if w.unmounted {
		w.mu.Unlock()
		return
	}
	w.unmounted = true
	unsub := w.unsub
	w.unsub = nil
	for t := range w.timers {
		t.Stop()
	}
	w.timers = map[*time.Timer]struct{}{}
	w.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	w.changes.Close()
}

// SetViewport relayouts the wall for a new screen width.
func (w *Wall) SetViewport(width float64) {
	if width <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unmounted || w.cfg.Viewport == width {
		return
	}
	w.cfg.Viewport = width
	w.publishLocked()
}

// View returns the current render state.
func (w *Wall) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

// apply replaces the visible set with a snapshot.
func (w *Wall) apply(items []comment.Comment) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unmounted {
		return
	}

	var arrivals []string
	if w.primed {
		arrivals = NewArrivals(w.known, items)
	}
	w.primed = true
	w.items = items
	w.known = comment.IDs(items)

	for _, id := range arrivals {
		w.highlighted[id] = struct{}{}
		w.scheduleLocked(w.cfg.HighlightFor, func() {
			delete(w.highlighted, id)
		})
	}
	if len(arrivals) > 0 {
		w.banner = true
		w.scheduleLocked(w.cfg.BannerFor, func() {
			w.banner = false
		})
		slog.Debug("comments arrived", "count", len(arrivals))
	}

	w.publishLocked()
}

func (w *Wall) onSubscribeError(err error) {
	slog.Warn("comment subscription error, keeping last snapshot", "store", w.store.Kind(), "error", err)
}

// scheduleLocked runs expire under the lock after d, then publishes.
// Each call owns its timer; later calls never reset earlier ones.
func (w *Wall) scheduleLocked(d time.Duration, expire func()) {
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.unmounted {
			return
		}
		delete(w.timers, t)
		expire()
		w.publishLocked()
	})
	w.timers[t] = struct{}{}
}

func (w *Wall) publishLocked() {
	w.changes.Publish(w.viewLocked())
}

func (w *Wall) viewLocked() View {
	return render(w.items, w.cfg.Viewport, w.highlighted, w.banner)
}

// Render lays out items for a viewport with nothing highlighted.
func Render(items []comment.Comment, viewport float64) View {
	if viewport <= 0 {
		viewport = layout.DefaultViewport
	}
	return render(items, viewport, nil, false)
}

func render(items []comment.Comment, viewport float64, highlighted map[string]struct{}, banner bool) View {
	placements := layout.Compute(items, viewport)
	bubbles := make([]Bubble, len(items))
	for i, c := range items {
		_, hl := highlighted[c.ID]
		bubbles[i] = newBubble(i, c, placements[i], hl)
	}
	return View{
		Bubbles:  bubbles,
		Banner:   banner,
		Empty:    len(items) == 0,
		Viewport: viewport,
	}
}

// NewArrivals returns the ids in next that are absent from prev, in next's order.
func NewArrivals(prev map[string]struct{}, next []comment.Comment) []string {
	var out []string
	for _, c := range next {
		if _, ok := prev[c.ID]; !ok {
			out = append(out, c.ID)
		}
	}
	return out
}
