package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evcraddock/comment-wall/internal/comment"
	"github.com/evcraddock/comment-wall/internal/layout"
	"github.com/evcraddock/comment-wall/internal/store/local"
	"github.com/evcraddock/comment-wall/internal/wall"
	"github.com/evcraddock/comment-wall/internal/web"
)

func TestAddComment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/comments" {
			t.Errorf("got %s %s, want POST /api/comments", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["name"] != "Taro" || body["comment"] != "Great show!" {
			t.Errorf("body = %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(map[string]string{"id": "01ABC"}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	id, err := New(srv.URL).AddComment("Taro", "Great show!")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id != "01ABC" {
		t.Errorf("id = %q, want 01ABC", id)
	}
}

func TestListComments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("max") != "5" {
			t.Errorf("max = %q, want 5", r.URL.Query().Get("max"))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode([]comment.Comment{{ID: "b", Text: "hi", CreatedAt: 2}}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	items, err := New(srv.URL).ListComments(5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Text != "hi" {
		t.Errorf("items = %+v", items)
	}
}

func TestLayout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/layout" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("width") != "1280" {
			t.Errorf("width = %q, want 1280", r.URL.Query().Get("width"))
		}
		if r.URL.Query().Has("max") {
			t.Error("max should be omitted when zero")
		}
		w.Header().Set("Content-Type", "application/json")
		resp := LayoutResponse{Viewport: 1280, Placements: []layout.Placement{{ID: "a", Left: 10}}}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	resp, err := New(srv.URL).Layout(1280, 0)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if resp.Viewport != 1280 || len(resp.Placements) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok", "store": "mongo"}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	h, err := New(srv.URL + "/").Health()
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if h.Status != "ok" || h.Store != "mongo" {
		t.Errorf("health = %+v", h)
	}
}

func TestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		if err := json.NewEncoder(w).Encode(map[string]string{"error": "comment could not be saved, try again"}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	_, err := New(srv.URL).AddComment("", "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "comment could not be saved, try again" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestServerErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Health()
	if err == nil || err.Error() != "server error: Bad Gateway" {
		t.Errorf("error = %v", err)
	}
}

func TestWatch(t *testing.T) {
	store := local.New(local.NewMemoryKV(), nil)
	defer store.Close()

	handler, err := web.NewServer(store, wall.DefaultConfig())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	views := make(chan wall.View, 16)
	done := make(chan error, 1)
	go func() {
		done <- New(srv.URL).Watch(ctx, 800, func(v wall.View) { views <- v })
	}()

	var first wall.View
	select {
	case first = <-views:
	case <-ctx.Done():
		t.Fatal("no initial view")
	}
	if !first.Empty || first.Viewport != 800 {
		t.Errorf("first view = %+v, want empty at 800", first)
	}

	if _, err := store.Add(context.Background(), "", "hello"); err != nil {
		t.Fatalf("add: %v", err)
	}

	for arrived := false; !arrived; {
		select {
		case v := <-views:
			if len(v.Bubbles) == 1 {
				arrived = true
				if !v.Banner {
					t.Error("expected banner on arrival")
				}
			}
		case <-ctx.Done():
			t.Fatal("no view with the new comment")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watch returned %v after cancel", err)
	}
}
