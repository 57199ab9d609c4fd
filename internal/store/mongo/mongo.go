// Package mongo implements the remote comment store on a MongoDB collection,
// using change streams to push snapshots to subscribers.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/evcraddock/comment-wall/internal/comment"
	"github.com/evcraddock/comment-wall/internal/notify"
)

const (
	commentsCollection = "comments"
	defaultDBName      = "comment_wall"
	kind               = "mongo"
)

// Config holds connection settings.
type Config struct {
	URL string
	// Timeout bounds connect, ping and index creation. Reads and writes are
	// bounded only by the caller's context.
	Timeout time.Duration
}

// Store is a comment.Store on a MongoDB collection.
type Store struct {
	client   *mongodriver.Client
	comments *mongodriver.Collection
	subs     *notify.Dispatcher[[]comment.Comment]

	// ctx is cancelled by Close and stops every watcher.
	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
	once sync.Once

	minBackoff time.Duration
	maxBackoff time.Duration
}

var _ comment.Store = (*Store)(nil)

// New connects to MongoDB, pings it and ensures indexes.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mongo: empty URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	setupCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cli, err := mongodriver.Connect(setupCtx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(setupCtx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	rootCtx, stop := context.WithCancel(context.Background())
	s := &Store{
		client:     cli,
		comments:   cli.Database(databaseFromURI(cfg.URL)).Collection(commentsCollection),
		subs:       notify.NewDispatcher[[]comment.Comment](),
		ctx:        rootCtx,
		stop:       stop,
		minBackoff: 50 * time.Millisecond,
		maxBackoff: 5 * time.Second,
	}

	if err := s.ensureIndexes(setupCtx); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Kind implements comment.Store.
func (s *Store) Kind() string { return kind }

// Close stops all subscriptions and disconnects.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.stop()
		s.subs.Close()
		s.wg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.client.Disconnect(ctx)
	})
	return err
}

// ensureIndexes creates the index backing newest-first reads.
func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.comments.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
		Options: options.Index().SetName("createdAt_desc_id_desc"),
	})
	if err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}
	return nil
}

// databaseFromURI extracts the database name from the URI path,
// falling back to defaultDBName.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}

// isCancelled reports whether err stems from context cancellation.
func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
