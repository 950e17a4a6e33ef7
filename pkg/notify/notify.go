package notify

// Package notify fans request-audit events out to optional downstream
// sinks. Delivery is best-effort: a sink failure never affects the
// operation that produced the event.

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Event describes one completed operation.
type Event struct {
	Operation  string    `json:"operation"`
	ArgsDigest string    `json:"args_digest,omitempty"`
	Items      int       `json:"items"`
	Cached     bool      `json:"cached"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// NewEvent constructs an Event stamped with the current time.
func NewEvent(operation, argsDigest string) Event {
	return Event{Operation: operation, ArgsDigest: argsDigest, At: time.Now().UTC()}
}

// Publisher sends events to a downstream sink (HTTP webhook, logger, etc).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Fanout dispatches events to all configured publishers.
type Fanout struct {
	publishers []Publisher
}

// NewFanout builds a dispatcher that fans out events across publishers.
func NewFanout(pubs []Publisher) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p == nil {
			continue
		}
		cp = append(cp, p)
	}
	return &Fanout{publishers: cp}
}

// Publish forwards the event to every registered publisher.
// It returns the number of publishers that successfully handled the event.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.publishers) == 0 {
		return 0, nil
	}

	var errs []error
	successful := 0
	for _, p := range f.publishers {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err))
		} else {
			successful++
		}
	}
	return successful, errors.Join(errs...)
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}
