package models

import "sync"

// completionBuffer is the channel capacity for completion subscribers.
// A subscriber that falls this far behind loses the oldest signals.
const completionBuffer = 16

// signalHub fans out package notifications to subscribers.
//
// Three feeds exist: completed speech downloads, completed language
// downloads (both carry the artifact file name), and a coalesced
// "something changed" signal for UI refresh. Publishing never blocks;
// a full subscriber channel drops the signal rather than stalling a
// transfer goroutine.
//
// Ordering: for a given artifact all publishes originate from its single
// transfer goroutine (or the catalog commit path), so subscribers observe
// progress and terminal signals in the order they were produced.
type signalHub struct {
	mu sync.Mutex

	// closed blocks further subscriptions and publishes.
	closed bool

	// completions holds per-kind subscriber channels.
	completions map[ModelKind][]chan string

	// changes holds subscriber channels for the generic change signal.
	changes []chan struct{}
}

// newSignalHub creates an empty hub.
func newSignalHub() *signalHub {
	return &signalHub{
		completions: make(map[ModelKind][]chan string),
	}
}

// subscribeCompletions registers a new subscriber for completed
// downloads of the given kind. The returned channel is closed when the
// hub shuts down.
func (h *signalHub) subscribeCompletions(kind ModelKind) <-chan string {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan string, completionBuffer)
	if h.closed {
		close(ch)
		return ch
	}
	h.completions[kind] = append(h.completions[kind], ch)
	return ch
}

// subscribeChanges registers a new subscriber for the generic change
// signal. Signals are coalesced: a subscriber that has not drained the
// previous signal receives no duplicate.
func (h *signalHub) subscribeChanges() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan struct{}, 1)
	if h.closed {
		close(ch)
		return ch
	}
	h.changes = append(h.changes, ch)
	return ch
}

// publishCompletion notifies subscribers of kind that fileName finished
// downloading and was verified.
func (h *signalHub) publishCompletion(kind ModelKind, fileName string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for _, ch := range h.completions[kind] {
		select {
		case ch <- fileName:
		default:
		}
	}
}

// publishChange fires the generic change signal.
func (h *signalHub) publishChange() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for _, ch := range h.changes {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// close shuts the hub down, closing every subscriber channel.
func (h *signalHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, subs := range h.completions {
		for _, ch := range subs {
			close(ch)
		}
	}
	for _, ch := range h.changes {
		close(ch)
	}
	h.completions = nil
	h.changes = nil
}
