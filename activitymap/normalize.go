// Package activitymap flattens session activity events into a record shape
// suited for audit logs and downstream collectors.
package activitymap

import (
	"maps"
	"strings"
	"time"

	authclient "github.com/goliatone/go-auth-client"
)

const (
	// MetadataKeyFromStatus stores the session status before the event.
	MetadataKeyFromStatus = "from_status"
	// MetadataKeyToStatus stores the session status after the event.
	MetadataKeyToStatus = "to_status"
	// MetadataKeyError stores the error message of failed events.
	MetadataKeyError = "error"
)

const (
	defaultChannel    = "session"
	defaultObjectType = "credential"
	defaultActorID    = "anonymous"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ID         string         `json:"id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	objectType       string
	actorFallback    string
	objectIDResolver func(authclient.ActivityEvent) string
	now              func() time.Time
}

// Normalize converts a session activity event into a normalized record.
// The verb drops the "session." prefix, so "session.login.success"
// becomes "login.success".
func Normalize(event authclient.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	actorID := strings.TrimSpace(event.UserID)
	if actorID == "" {
		actorID = options.actorFallback
	}

	return Normalized{
		ID:         event.ID,
		ActorID:    actorID,
		Verb:       verb(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   resolveObjectID(event, options.objectIDResolver),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object id extraction.
func WithObjectIDResolver(resolver func(authclient.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the actor id used when the event carries no user.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if actorID = strings.TrimSpace(actorID); actorID != "" {
			opts.actorFallback = actorID
		}
	}
}

// WithClock sets the clock used for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

func verb(eventType authclient.ActivityEventType) string {
	return strings.TrimPrefix(string(eventType), "session.")
}

func resolveObjectID(event authclient.ActivityEvent, resolver func(authclient.ActivityEvent) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}
	return strings.TrimSpace(event.UserID)
}

func normalizeMetadata(event authclient.ActivityEvent) map[string]any {
	metadata := maps.Clone(event.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}

	if event.FromStatus != "" {
		set(MetadataKeyFromStatus, string(event.FromStatus))
	}
	if event.ToStatus != "" {
		set(MetadataKeyToStatus, string(event.ToStatus))
	}
	if event.Err != nil {
		if _, exists := metadata[MetadataKeyError]; !exists {
			set(MetadataKeyError, event.Err.Error())
		}
	}

	return metadata
}
