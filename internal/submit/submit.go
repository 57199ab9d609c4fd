// Package submit implements the comment form's state transitions.
package submit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/evcraddock/comment-wall/internal/comment"
)

// DoneFor is how long the thank-you overlay stays up after a successful post.
const DoneFor = 10 * time.Second

// Messages shown in Form.Error. MsgEmpty is set when the comment is blank
// after trimming, MsgFailed when the store rejects the post.
const (
	MsgEmpty  = "Please enter a comment."
	MsgFailed = "Sending failed. Please wait a moment and try again."
)

// Form is the state of the submission form.
type Form struct {
	Name    string
	Comment string
	Error   string
	Done    bool
	ID      string
}

// Submitter posts forms to a store.
type Submitter struct {
	store comment.Store
}

// New creates a Submitter.
func New(store comment.Store) *Submitter {
	return &Submitter{store: store}
}

// Submit posts f and returns the next form state. On failure the input is
// kept so the user can retry, and the returned error wraps
// comment.ErrValidation or comment.ErrPersist.
func (s *Submitter) Submit(ctx context.Context, f Form) (Form, error) {
	next := Form{Name: f.Name, Comment: f.Comment}

	if strings.TrimSpace(f.Comment) == "" {
		next.Error = MsgEmpty
		return next, comment.ErrValidation
	}

	id, err := s.store.Add(ctx, f.Name, f.Comment)
	if err != nil {
		if errors.Is(err, comment.ErrValidation) {
			next.Error = MsgEmpty
			return next, err
		}
		slog.Error("failed to post comment", "store", s.store.Kind(), "error", err)
		next.Error = MsgFailed
		return next, err
	}

	slog.Info("comment posted", "id", id, "store", s.store.Kind())
	return Form{Done: true, ID: id}, nil
}
