// Package store opens the configured comment.Store: the remote MongoDB store
// when a URL is given, the local fallback on SQLite otherwise.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/evcraddock/comment-wall/internal/comment"
	"github.com/evcraddock/comment-wall/internal/db"
	"github.com/evcraddock/comment-wall/internal/notify"
	"github.com/evcraddock/comment-wall/internal/store/local"
	"github.com/evcraddock/comment-wall/internal/store/mongo"
)

// Options selects and configures the backend.
type Options struct {
	MongoURL     string
	MongoTimeout time.Duration
	DBPath       string
	// Hub links local stores within one process. A private hub is created
	// when nil.
	Hub *notify.Hub
	// PollEvery is how often the local store checks the database for writes
	// made by other processes. Defaults to DefaultPollEvery.
	PollEvery time.Duration
}

// DefaultPollEvery is the local store's cross-process poll interval.
const DefaultPollEvery = 500 * time.Millisecond

// Open returns the remote store when MongoURL is set, the local one otherwise.
func Open(ctx context.Context, opts Options) (comment.Store, error) {
	if opts.MongoURL != "" {
		s, err := mongo.New(ctx, mongo.Config{URL: opts.MongoURL, Timeout: opts.MongoTimeout})
		if err != nil {
			return nil, fmt.Errorf("opening remote store: %w", err)
		}
		slog.Info("using remote comment store", "store", s.Kind())
		return s, nil
	}

	path := opts.DBPath
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	d, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	slog.Info("no remote store configured, using local fallback", "path", path)

	hub := opts.Hub
	if hub == nil {
		hub = notify.NewHub()
	}
	every := opts.PollEvery
	if every <= 0 {
		every = DefaultPollEvery
	}

	kv := db.NewKV(d)
	s := &localStore{
		Store:   local.New(kv, hub),
		db:      d,
		watcher: hub.Join(),
	}

	// Writes from other processes on the same file reach this hub as
	// comments_updated, the same as in-process peers.
	wctx, stop := context.WithCancel(context.Background())
	s.stop = stop
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		kv.Watch(wctx, local.StorageKey, every, func() {
			s.watcher.Post(notify.Message{Type: notify.TypeCommentsUpdated})
		})
	}()

	return s, nil
}

// localStore owns the SQLite handle and the poller feeding its hub.
type localStore struct {
	*local.Store
	db      *sql.DB
	watcher *notify.Port
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

func (s *localStore) Close() error {
	s.stop()
	s.wg.Wait()
	s.watcher.Close()
	return errors.Join(s.Store.Close(), s.db.Close())
}
