// Package local implements the fallback comment store used when no remote
// document store is configured: the whole newest-first list lives as JSON
// under one key, and peers sharing a notify.Hub re-read it on change.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/evcraddock/comment-wall/internal/comment"
	"github.com/evcraddock/comment-wall/internal/metrics"
	"github.com/evcraddock/comment-wall/internal/notify"
)

const (
	// StorageKey is the key holding the JSON-encoded comment list.
	StorageKey = "comments"
	// MaxStored caps the list written under StorageKey.
	MaxStored = 500

	kind = "local"
)

// KV is the string key/value persistence the store writes through.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Store is a comment.Store over a single KV key.
type Store struct {
	kv   KV
	port *notify.Port
	subs *notify.Dispatcher[[]comment.Comment]

	stopListen func()

	// mu serializes read-modify-write cycles and keeps published snapshots
	// in write order.
	mu    sync.Mutex
	now   func() int64
	newID func() string
}

var _ comment.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the millisecond clock used for CreatedAt.
func WithClock(now func() int64) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store on kv. When hub is non-nil the store joins it, posts a
// change message after every Add, and refreshes its subscribers when a peer
// posts one.
func New(kv KV, hub *notify.Hub, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		subs:  notify.NewDispatcher[[]comment.Comment](),
		now:   comment.NowMillis,
		newID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(s)
	}

	if hub != nil {
		s.port = hub.Join()
		s.stopListen = s.port.Listen(s.onMessage)
	}

	return s
}

// Kind implements comment.Store.
func (s *Store) Kind() string { return kind }

// Add implements comment.Store.
func (s *Store) Add(ctx context.Context, name, text string) (string, error) {
	name, text, err := comment.Normalize(name, text)
	if err != nil {
		metrics.AddErrors.WithLabelValues(kind, "validation").Inc()
		return "", err
	}

	id, err := s.prepend(ctx, name, text)
	if err != nil {
		metrics.AddErrors.WithLabelValues(kind, "persist").Inc()
		return "", err
	}
	metrics.CommentsAdded.WithLabelValues(kind).Inc()

	if s.port != nil {
		s.port.Post(notify.Message{Type: notify.TypeCommentsUpdated})
	}

	return id, nil
}

// prepend writes a new comment at the head of the list and publishes the
// resulting snapshot to local subscribers.
func (s *Store) prepend(ctx context.Context, name, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, _, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return "", fmt.Errorf("%w: reading list: %w", comment.ErrPersist, err)
	}
	existing, err := decode(raw)
	if err != nil {
		slog.Warn("discarding unreadable comment list", "key", StorageKey, "error", err)
		existing = nil
	}

	c := comment.Comment{
		ID:        s.newID(),
		Name:      name,
		Text:      text,
		CreatedAt: s.now(),
	}

	items := make([]comment.Comment, 0, len(existing)+1)
	items = append(items, c)
	items = append(items, existing...)
	comment.SortNewestFirst(items)
	if len(items) > MaxStored {
		items = items[:MaxStored]
	}

	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("%w: encoding list: %w", comment.ErrPersist, err)
	}
	if err := s.kv.Set(ctx, StorageKey, string(data)); err != nil {
		return "", fmt.Errorf("%w: writing list: %w", comment.ErrPersist, err)
	}

	s.subs.Publish(items)
	return c.ID, nil
}

// FetchLatest implements comment.Store.
func (s *Store) FetchLatest(ctx context.Context, max int) ([]comment.Comment, error) {
	raw, _, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", comment.ErrFetch, err)
	}
	items, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", comment.ErrFetch, err)
	}
	comment.SortNewestFirst(items)
	return limit(items, max), nil
}

// Subscribe implements comment.Store. The current list is delivered
// immediately; an unreadable list is delivered as empty and reported.
func (s *Store) Subscribe(ctx context.Context, max int, onUpdate func([]comment.Comment), onError func(error)) (func(), error) {
	if onError == nil {
		onError = func(err error) {
			slog.Error("comment subscription", "store", kind, "error", err)
		}
	}

	l := s.subs.Add(func(items []comment.Comment) {
		metrics.SnapshotsDelivered.WithLabelValues(kind).Inc()
		onUpdate(limit(items, max))
	})
	metrics.ActiveSubscriptions.WithLabelValues(kind).Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.Cancel()
			metrics.ActiveSubscriptions.WithLabelValues(kind).Dec()
		})
	}

	s.mu.Lock()
	items, err := s.snapshot(ctx)
	if err != nil {
		items = []comment.Comment{}
	}
	l.Offer(items)
	s.mu.Unlock()

	if err != nil {
		onError(fmt.Errorf("%w: %w", comment.ErrSubscribe, err))
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-l.Done():
		}
		cancel()
	}()

	return cancel, nil
}

// Close detaches from the hub and cancels all subscriptions.
func (s *Store) Close() error {
	if s.stopListen != nil {
		s.stopListen()
	}
	if s.port != nil {
		s.port.Close()
	}
	s.subs.Close()
	return nil
}

func (s *Store) onMessage(m notify.Message) {
	if m.Type != notify.TypeCommentsUpdated {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.snapshot(context.Background())
	if err != nil {
		slog.Warn("refreshing comments after peer update", "error", err)
		return
	}
	s.subs.Publish(items)
}

func (s *Store) snapshot(ctx context.Context) ([]comment.Comment, error) {
	raw, _, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return nil, err
	}
	items, err := decode(raw)
	if err != nil {
		return nil, err
	}
	comment.SortNewestFirst(items)
	return items, nil
}

func decode(raw string) ([]comment.Comment, error) {
	if raw == "" {
		return []comment.Comment{}, nil
	}
	var items []comment.Comment
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decoding comment list: %w", err)
	}
	if items == nil {
		items = []comment.Comment{}
	}
	return items, nil
}

// limit returns a copy of at most max items.
func limit(items []comment.Comment, max int) []comment.Comment {
	n := comment.Cap(max)
	if len(items) < n {
		n = len(items)
	}
	out := make([]comment.Comment, n)
	copy(out, items[:n])
	return out
}
