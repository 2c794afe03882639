// Package transport delivers outbound text messages.
package transport

import (
	"context"
	"sync"
)

// Messenger sends a text message to a destination identifier. Callers log
// failures but do not retry; any retry policy lives inside the
// implementation.
type Messenger interface {
	Send(ctx context.Context, to, text string) error
}

// Sent records one delivered message.
type Sent struct {
	To   string
	Text string
}

// Recorder is a Messenger that captures sends in memory, for tests and
// dry-run deployments.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	err  error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Fail makes every subsequent Send return err.
func (r *Recorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Send implements Messenger.
func (r *Recorder) Send(ctx context.Context, to, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, Sent{To: to, Text: text})
	return nil
}

// Messages returns all recorded sends.
func (r *Recorder) Messages() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// To returns the recorded sends addressed to a destination.
func (r *Recorder) To(dest string) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, s := range r.sent {
		if s.To == dest {
			out = append(out, s)
		}
	}
	return out
}
