package authclient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ActivityEventType enumerates session lifecycle events.
type ActivityEventType string

const (
	ActivityEventInitialized        ActivityEventType = "session.initialized"
	ActivityEventLoginSuccess       ActivityEventType = "session.login.success"
	ActivityEventLoginFailure       ActivityEventType = "session.login.failure"
	ActivityEventRegisterSuccess    ActivityEventType = "session.register.success"
	ActivityEventRegisterFailure    ActivityEventType = "session.register.failure"
	ActivityEventLogout             ActivityEventType = "session.logout"
	ActivityEventProbeSuccess       ActivityEventType = "session.probe.success"
	ActivityEventProbeFailure       ActivityEventType = "session.probe.failure"
	ActivityEventCredentialRejected ActivityEventType = "session.credential.rejected"
)

// ActivityEvent describes something that happened to the session.
type ActivityEvent struct {
	ID         string
	EventType  ActivityEventType
	UserID     string
	FromStatus Status
	ToStatus   Status
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink receives session activity. Recording is best effort:
// a sink error is logged and never fails the operation.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// ActivitySinks fans an event out to every sink in order. The empty
// value discards events.
type ActivitySinks []ActivitySink

// Record implements ActivitySink, joining the errors of failed sinks.
func (sinks ActivitySinks) Record(ctx context.Context, event ActivityEvent) error {
	var errs []error
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sinkOrDiscard(sink ActivitySink) ActivitySink {
	if sink == nil {
		return ActivitySinks(nil)
	}
	return sink
}

func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, now func() time.Time, event ActivityEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now()
	}
	if err := sink.Record(ctx, event); err != nil {
		logger.Error("failed to record session activity", "event", event.EventType, "error", err)
	}
}
