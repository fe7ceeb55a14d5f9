package events

import (
	"context"
	"sync"
)

// Recorder is a Notifier that keeps every envelope it receives. It backs
// local runs without a realtime transport and tests.
type Recorder struct {
	mu   sync.Mutex
	sent []*Envelope
}

func (r *Recorder) Notify(_ context.Context, address string, env *Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, env)
	return nil
}

// Sent returns the envelopes received so far.
func (r *Recorder) Sent() []*Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Envelope, len(r.sent))
	copy(out, r.sent)
	return out
}

// OfType returns the envelopes of the given type.
func (r *Recorder) OfType(t Type) []*Envelope {
	var out []*Envelope
	for _, env := range r.Sent() {
		if env.Type == t {
			out = append(out, env)
		}
	}
	return out
}
