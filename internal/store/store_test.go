package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evcraddock/comment-wall/internal/comment"
)

func TestOpenFallsBackToLocal(t *testing.T) {
	s, err := Open(context.Background(), Options{DBPath: filepath.Join(t.TempDir(), "wall.db")})
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	require.Equal(t, "local", s.Kind())

	id, err := s.Add(context.Background(), "Taro", "Great show!")
	require.NoError(t, err)

	items, err := s.FetchLatest(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, id, items[0].ID)
}

func TestOpenLocalPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wall.db")

	s1, err := Open(context.Background(), Options{DBPath: path})
	require.NoError(t, err)
	id, err := s1.Add(context.Background(), "", "kept")
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(context.Background(), Options{DBPath: path})
	require.NoError(t, err)
	defer func() { require.NoError(t, s2.Close()) }()

	items, err := s2.FetchLatest(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, id, items[0].ID)
}

func TestOpenLocalSeesWritesFromAnotherOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wall.db")
	opts := Options{DBPath: path, PollEvery: 20 * time.Millisecond}

	a, err := Open(context.Background(), opts)
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()
	b, err := Open(context.Background(), opts)
	require.NoError(t, err)
	defer func() { require.NoError(t, b.Close()) }()

	var mu sync.Mutex
	var last []comment.Comment
	cancel, err := b.Subscribe(context.Background(), 0, func(items []comment.Comment) {
		mu.Lock()
		last = items
		mu.Unlock()
	}, nil)
	require.NoError(t, err)
	defer cancel()

	id, err := a.Add(context.Background(), "Taro", "Great show!")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 1 && last[0].ID == id
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOpenRemoteBadURL(t *testing.T) {
	_, err := Open(context.Background(), Options{MongoURL: "not-a-mongo-url"})
	require.Error(t, err)
}
