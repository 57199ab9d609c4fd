// Package notify provides in-process change notification: a listener
// dispatcher for snapshots and a broadcast hub for cross-instance signals.
package notify

import "sync"

// Dispatcher fans values out to registered listeners.
//
// Every listener owns a one-slot mailbox and a delivery goroutine: callbacks
// for one listener run one at a time, a slow listener only ever sees the most
// recent value, and callbacks may call back into the publisher (or cancel
// themselves) without deadlocking.
type Dispatcher[T any] struct {
	mu        sync.Mutex
	listeners map[*Listener[T]]struct{}
	closed    bool
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher[T any]() *Dispatcher[T] {
	return &Dispatcher[T]{listeners: make(map[*Listener[T]]struct{})}
}

// Listener is a registered callback.
type Listener[T any] struct {
	d       *Dispatcher[T]
	fn      func(T)
	mailbox chan T
	done    chan struct{}
	once    sync.Once
}

// Add registers fn and starts its delivery goroutine.
// On a closed dispatcher the returned listener is already cancelled.
func (d *Dispatcher[T]) Add(fn func(T)) *Listener[T] {
	l := &Listener[T]{
		d:       d,
		fn:      fn,
		mailbox: make(chan T, 1),
		done:    make(chan struct{}),
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		l.once.Do(func() { close(l.done) })
		return l
	}
	d.listeners[l] = struct{}{}
	d.mu.Unlock()

	go l.run()
	return l
}

// Publish offers v to every listener registered at the time of the call.
func (d *Dispatcher[T]) Publish(v T) {
	d.mu.Lock()
	targets := make([]*Listener[T], 0, len(d.listeners))
	for l := range d.listeners {
		targets = append(targets, l)
	}
	d.mu.Unlock()

	for _, l := range targets {
		l.Offer(v)
	}
}

// Len returns the number of active listeners.
func (d *Dispatcher[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

// Close cancels every listener and rejects new ones.
func (d *Dispatcher[T]) Close() {
	d.mu.Lock()
	d.closed = true
	targets := make([]*Listener[T], 0, len(d.listeners))
	for l := range d.listeners {
		targets = append(targets, l)
	}
	d.mu.Unlock()

	for _, l := range targets {
		l.Cancel()
	}
}

// Offer queues v for this listener only, replacing any undelivered value.
func (l *Listener[T]) Offer(v T) {
	for {
		select {
		case <-l.done:
			return
		default:
		}

		select {
		case l.mailbox <- v:
			return
		default:
			// Drop the stale value and retry.
			select {
			case <-l.mailbox:
			default:
			}
		}
	}
}

// Cancel removes the listener. Values published after Cancel returns are
// never delivered. Safe to call more than once and from inside the callback.
func (l *Listener[T]) Cancel() {
	l.d.mu.Lock()
	delete(l.d.listeners, l)
	l.d.mu.Unlock()

	l.once.Do(func() { close(l.done) })
}

// Done is closed once the listener is cancelled.
func (l *Listener[T]) Done() <-chan struct{} {
	return l.done
}

func (l *Listener[T]) run() {
	for {
		select {
		case <-l.done:
			return
		case v := <-l.mailbox:
			select {
			case <-l.done:
				return
			default:
			}
			l.fn(v)
		}
	}
}
