package mail

import (
	"context"
	"sync"
)

// Recorder is an in-memory Sender for tests. It records every message and
// can be configured to fail.
type Recorder struct {
	mu       sync.Mutex
	Messages []RecordedMessage
	Err      error
}

// RecordedMessage is a message captured by Recorder.
type RecordedMessage struct {
	To      string
	Subject string
	Body    string
}

func (r *Recorder) Send(ctx context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Messages = append(r.Messages, RecordedMessage{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []RecordedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedMessage, len(r.Messages))
	copy(out, r.Messages)
	return out
}
