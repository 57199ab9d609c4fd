package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/evcraddock/comment-wall/internal/comment"
	"github.com/evcraddock/comment-wall/internal/metrics"
	"github.com/evcraddock/comment-wall/internal/notify"
)

// document is the stored shape: {name: string|null, comment, createdAt}.
type document struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      *string            `bson:"name"`
	Comment   string             `bson:"comment"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d document) toComment() comment.Comment {
	c := comment.Comment{
		ID:   d.ID.Hex(),
		Text: d.Comment,
	}
	if d.Name != nil {
		c.Name = *d.Name
	}
	if d.CreatedAt.IsZero() {
		// Pending server timestamp.
		c.CreatedAt = comment.NowMillis()
	} else {
		c.CreatedAt = d.CreatedAt.UnixMilli()
	}
	return c
}

// nameValue maps an empty name to BSON null.
func nameValue(name string) interface{} {
	if name == "" {
		return nil
	}
	return name
}

// Add implements comment.Store. createdAt is set by the server via
// $currentDate on an upsert of a fresh ObjectID.
func (s *Store) Add(ctx context.Context, name, text string) (string, error) {
	const op = "store/mongo/Add"

	name, text, err := comment.Normalize(name, text)
	if err != nil {
		metrics.AddErrors.WithLabelValues(kind, "validation").Inc()
		return "", err
	}

	oid := primitive.NewObjectID()
	update := bson.D{
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "name", Value: nameValue(name)},
			{Key: "comment", Value: text},
		}},
		{Key: "$currentDate", Value: bson.D{
			{Key: "createdAt", Value: bson.D{{Key: "$type", Value: "date"}}},
		}},
	}

	_, err = s.comments.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update, options.Update().SetUpsert(true))
	if err != nil {
		metrics.AddErrors.WithLabelValues(kind, "persist").Inc()
		return "", fmt.Errorf("%w: %s: %w", comment.ErrPersist, op, err)
	}

	metrics.CommentsAdded.WithLabelValues(kind).Inc()
	return oid.Hex(), nil
}

// FetchLatest implements comment.Store.
func (s *Store) FetchLatest(ctx context.Context, max int) ([]comment.Comment, error) {
	items, err := s.query(ctx, max)
	if err != nil {
		return nil, fmt.Errorf("%w: store/mongo/FetchLatest: %w", comment.ErrFetch, err)
	}
	return items, nil
}

func (s *Store) query(ctx context.Context, max int) ([]comment.Comment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(comment.Cap(max)))

	cur, err := s.comments.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	items := make([]comment.Comment, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toComment())
	}
	return items, nil
}

// Subscribe implements comment.Store. Each subscriber owns a change stream;
// every change re-runs the top-N query and delivers the full snapshot.
// When streams are unavailable (e.g. a standalone server) the subscription
// keeps re-querying on the backoff schedule.
func (s *Store) Subscribe(ctx context.Context, max int, onUpdate func([]comment.Comment), onError func(error)) (func(), error) {
	if onError == nil {
		onError = func(err error) {
			slog.Error("comment subscription", "store", kind, "error", err)
		}
	}

	l := s.subs.Add(func(items []comment.Comment) {
		metrics.SnapshotsDelivered.WithLabelValues(kind).Inc()
		onUpdate(items)
	})
	metrics.ActiveSubscriptions.WithLabelValues(kind).Inc()

	subCtx, cancelCtx := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(s.ctx, cancelCtx)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stopAfter()
			cancelCtx()
			l.Cancel()
			metrics.ActiveSubscriptions.WithLabelValues(kind).Dec()
		})
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.watch(subCtx, max, l, onError)
	}()

	return cancel, nil
}

// watch follows the change stream until ctx is done, re-opening it with
// exponential backoff after failures.
func (s *Store) watch(ctx context.Context, max int, l *notify.Listener[[]comment.Comment], onError func(error)) {
	backoff := s.minBackoff
	for {
		streamed, err := s.follow(ctx, max, l)
		if ctx.Err() != nil {
			return
		}
		if streamed {
			backoff = s.minBackoff
		}
		onError(fmt.Errorf("%w: %w", comment.ErrSubscribe, err))

		if items, qerr := s.query(ctx, max); qerr == nil {
			l.Offer(items)
		}

		slog.Debug("comment stream retrying", "store", kind, "retry_delay", backoff, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

// follow opens a change stream, delivers the current snapshot, then one
// snapshot per change. streamed reports whether any change was observed.
func (s *Store) follow(ctx context.Context, max int, l *notify.Listener[[]comment.Comment]) (streamed bool, err error) {
	pipeline := mongodriver.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace", "delete"}}}},
		}}},
	}

	cs, err := s.comments.Watch(ctx, pipeline)
	if err != nil {
		return false, fmt.Errorf("watch: %w", err)
	}
	defer func() {
		if cerr := cs.Close(context.Background()); cerr != nil && !isCancelled(cerr) {
			slog.Warn("closing change stream", "error", cerr)
		}
	}()

	// The stream is open before the first read so no change can fall
	// between the snapshot and the first event.
	items, err := s.query(ctx, max)
	if err != nil {
		return false, err
	}
	l.Offer(items)

	for cs.Next(ctx) {
		streamed = true
		items, err := s.query(ctx, max)
		if err != nil {
			return streamed, err
		}
		l.Offer(items)
	}

	if err := cs.Err(); err != nil {
		return streamed, fmt.Errorf("change stream: %w", err)
	}
	return streamed, fmt.Errorf("change stream closed")
}
