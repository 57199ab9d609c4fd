package wall

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evcraddock/comment-wall/internal/comment"
	"github.com/evcraddock/comment-wall/internal/store/local"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func newTestStore(t *testing.T) *local.Store {
	t.Helper()
	var clock int64 = 1_000
	var mu sync.Mutex
	s := local.New(local.NewMemoryKV(), nil, local.WithClock(func() int64 {
		mu.Lock()
		defer mu.Unlock()
		clock++
		return clock
	}))
	t.Cleanup(func() { s.Close() })
	return s
}

func testConfig() Config {
	return Config{
		Max:          comment.DefaultMax,
		Viewport:     1000,
		HighlightFor: 400 * time.Millisecond,
		BannerFor:    200 * time.Millisecond,
	}
}

func mount(t *testing.T, w *Wall) {
	t.Helper()
	require.NoError(t, w.Mount(context.Background()))
	t.Cleanup(w.Unmount)
}

func ids(v View) []string {
	out := make([]string, len(v.Bubbles))
	for i, b := range v.Bubbles {
		out[i] = b.ID
	}
	return out
}

func TestNewArrivals(t *testing.T) {
	items := func(ids ...string) []comment.Comment {
		out := make([]comment.Comment, len(ids))
		for i, id := range ids {
			out[i] = comment.Comment{ID: id}
		}
		return out
	}

	tests := []struct {
		name string
		prev []string
		next []string
		want []string
	}{
		{"one new", []string{"a", "b"}, []string{"c", "a", "b"}, []string{"c"}},
		{"nothing new", []string{"a", "b"}, []string{"a", "b"}, nil},
		{"removed only", []string{"a", "b"}, []string{"a"}, nil},
		{"all new", nil, []string{"x", "y"}, []string{"x", "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewArrivals(comment.IDs(items(tt.prev...)), items(tt.next...))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMountShowsExistingCommentsWithoutHighlight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Add(ctx, "Taro", "first")
	require.NoError(t, err)
	_, err = s.Add(ctx, "", "second")
	require.NoError(t, err)

	w := New(s, testConfig())
	mount(t, w)

	v := w.View()
	require.Len(t, v.Bubbles, 2)
	assert.Equal(t, "second", v.Bubbles[0].Text)
	assert.Equal(t, "Taro：first", v.Bubbles[1].Display)
	assert.False(t, v.Banner)
	assert.False(t, v.Empty)
	assert.Empty(t, v.Highlighted())
}

func TestEmptyWall(t *testing.T) {
	w := New(newTestStore(t), testConfig())
	mount(t, w)

	v := w.View()
	assert.True(t, v.Empty)
	assert.Empty(t, v.Bubbles)
}

func TestArrivalHighlightsAndShowsBanner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Add(ctx, "", "old")
	require.NoError(t, err)

	w := New(s, testConfig())
	mount(t, w)

	id, err := s.Add(ctx, "Hana", "new one")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v := w.View()
		return len(v.Bubbles) == 2 && v.Banner
	}, waitFor, tick)

	v := w.View()
	assert.Equal(t, []string{id}, v.Highlighted())
	assert.Equal(t, id, v.Bubbles[0].ID)

	require.Eventually(t, func() bool {
		v := w.View()
		return !v.Banner && len(v.Highlighted()) == 0
	}, waitFor, tick)
	assert.Len(t, w.View().Bubbles, 2)
}

func TestBannerExpiresFromFirstArrival(t *testing.T) {
	s := newTestStore(t)
	w := New(s, testConfig())
	mount(t, w)
	ctx := context.Background()

	_, err := s.Add(ctx, "", "a")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return w.View().Banner }, waitFor, tick)

	time.Sleep(100 * time.Millisecond)
	second, err := s.Add(ctx, "", "b")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !w.View().Banner }, waitFor, tick)
	assert.Contains(t, w.View().Highlighted(), second, "later arrival keeps its own highlight window")
}

func TestOverlappingArrivalsHighlightIndependently(t *testing.T) {
	s := newTestStore(t)
	w := New(s, testConfig())
	mount(t, w)
	ctx := context.Background()

	first, err := s.Add(ctx, "", "a")
	require.NoError(t, err)
	second, err := s.Add(ctx, "", "b")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(w.View().Highlighted()) == 2
	}, waitFor, tick)
	assert.ElementsMatch(t, []string{first, second}, w.View().Highlighted())

	require.Eventually(t, func() bool {
		return len(w.View().Highlighted()) == 0
	}, waitFor, tick)
}

type failingFetch struct {
	comment.Store
}

func (failingFetch) FetchLatest(context.Context, int) ([]comment.Comment, error) {
	return nil, comment.ErrFetch
}

func TestFetchFailureStillSubscribes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	existing, err := s.Add(ctx, "", "already here")
	require.NoError(t, err)

	w := New(failingFetch{s}, testConfig())
	mount(t, w)

	require.Eventually(t, func() bool {
		return len(w.View().Bubbles) == 1
	}, waitFor, tick)
	v := w.View()
	assert.Equal(t, []string{existing}, ids(v))
	assert.Empty(t, v.Highlighted(), "first population is not an arrival")
	assert.False(t, v.Banner)

	id, err := s.Add(ctx, "", "fresh")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		hl := w.View().Highlighted()
		return len(hl) == 1 && hl[0] == id
	}, waitFor, tick)
}

type erroringSubscribe struct {
	comment.Store
	items []comment.Comment
}

func (e erroringSubscribe) FetchLatest(context.Context, int) ([]comment.Comment, error) {
	return e.items, nil
}

func (e erroringSubscribe) Subscribe(_ context.Context, _ int, _ func([]comment.Comment), onError func(error)) (func(), error) {
	onError(errors.New("stream dropped"))
	return func() {}, nil
}

func TestSubscriptionErrorKeepsLastSnapshot(t *testing.T) {
	items := []comment.Comment{{ID: "b", Text: "two", CreatedAt: 2}, {ID: "a", Text: "one", CreatedAt: 1}}
	w := New(erroringSubscribe{Store: newTestStore(t), items: items}, testConfig())
	mount(t, w)

	assert.Equal(t, []string{"b", "a"}, ids(w.View()))
}

func TestUnmountStopsUpdates(t *testing.T) {
	s := newTestStore(t)
	w := New(s, testConfig())
	require.NoError(t, w.Mount(context.Background()))

	var mu sync.Mutex
	calls := 0
	w.OnChange(func(View) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	w.Unmount()
	w.Unmount()

	_, err := s.Add(context.Background(), "", "after unmount")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	assert.True(t, w.View().Empty)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestUnmountCancelsPendingTimers(t *testing.T) {
	s := newTestStore(t)
	w := New(s, testConfig())
	require.NoError(t, w.Mount(context.Background()))

	_, err := s.Add(context.Background(), "", "x")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return w.View().Banner }, waitFor, tick)

	w.Unmount()
	time.Sleep(300 * time.Millisecond)

	assert.True(t, w.View().Banner, "expiry never runs after unmount")
}

func TestMountTwice(t *testing.T) {
	w := New(newTestStore(t), testConfig())
	mount(t, w)
	assert.ErrorIs(t, w.Mount(context.Background()), ErrMounted)
}

func TestOnChangeReceivesArrivals(t *testing.T) {
	s := newTestStore(t)
	w := New(s, testConfig())
	mount(t, w)

	got := make(chan View, 16)
	cancel := w.OnChange(func(v View) {
		select {
		case got <- v:
		default:
		}
	})
	defer cancel()

	_, err := s.Add(context.Background(), "", "ping")
	require.NoError(t, err)

	select {
	case v := <-got:
		assert.Len(t, v.Bubbles, 1)
	case <-time.After(waitFor):
		t.Fatal("no change notification")
	}
}

func TestSetViewportRelayouts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three", "four"} {
		_, err := s.Add(ctx, "", text)
		require.NoError(t, err)
	}

	w := New(s, testConfig())
	mount(t, w)

	wide := w.View()
	for _, b := range wide.Bubbles {
		assert.Equal(t, 0, b.Row)
	}

	w.SetViewport(300)
	narrow := w.View()
	assert.Equal(t, 300.0, narrow.Viewport)
	assert.Greater(t, narrow.Bubbles[3].Row, 0)

	w.SetViewport(0)
	assert.Equal(t, 300.0, w.View().Viewport)
}

func TestBubbleAnimation(t *testing.T) {
	assert.Equal(t, 15.0, riseDuration(0))
	assert.Equal(t, 23.0, riseDuration(4))
	assert.Equal(t, 15.0, riseDuration(5))
	assert.Equal(t, 0.0, riseDelay(0))
	assert.Equal(t, 1.5, riseDelay(3))
}

func TestDefaultsFillZeroConfig(t *testing.T) {
	w := New(newTestStore(t), Config{})
	assert.Equal(t, DefaultConfig(), w.cfg)
}

func TestRender(t *testing.T) {
	items := []comment.Comment{{ID: "b", Text: "hi"}, {ID: "a", Name: "Ken", Text: "yo"}}

	v := Render(items, 0)
	assert.Equal(t, 1920.0, v.Viewport)
	assert.False(t, v.Empty)
	assert.Empty(t, v.Highlighted())
	assert.Equal(t, "Ken：yo", v.Bubbles[1].Display)
	assert.Equal(t, 17.0, v.Bubbles[1].Duration)
	assert.Equal(t, 0.5, v.Bubbles[1].Delay)

	assert.True(t, Render(nil, 800).Empty)
}
