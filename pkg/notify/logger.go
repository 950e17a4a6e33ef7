package notify

import "context"

const TypeLog = "log"

// EventLogger is the logging contract the log sink needs; satisfied by
// internal/logger implementations.
type EventLogger interface {
	InfoObj(msg, key string, obj any)
}

type logPublisher struct {
	id  string
	log EventLogger
}

// NewLogPublisher builds a sink that writes events to the structured log.
func NewLogPublisher(id string, log EventLogger) Publisher {
	if id == "" {
		id = "log"
	}
	return &logPublisher{id: id, log: log}
}

func (l *logPublisher) ID() string   { return l.id }
func (l *logPublisher) Type() string { return TypeLog }

func (l *logPublisher) Publish(_ context.Context, evt Event) error {
	if l.log != nil {
		l.log.InfoObj("operation completed", "operation_event", evt)
	}
	return nil
}
