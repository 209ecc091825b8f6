package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/qefaraki/lineage/common/logger"
	"github.com/qefaraki/lineage/common/redis"
)

// Event kinds published on suggestion and moderation activity. Delivery
// (push, email, in-app) is a downstream concern; this core only emits.
const (
	EventSuggestionCreated   = "suggestion.created"
	EventSuggestionApproved  = "suggestion.approved"
	EventSuggestionRejected  = "suggestion.rejected"
	EventSuggestionCancelled = "suggestion.cancelled"
	EventMutationReverted    = "mutation.reverted"
)

// Event is the payload published for each notification
type Event struct {
	Kind      string    `json:"kind"`
	ActorID   uuid.UUID `json:"actor_id"`
	PersonID  uuid.UUID `json:"person_id"`
	SubjectID uuid.UUID `json:"subject_id"` // suggestion or audit entry id
	At        time.Time `json:"at"`
}

// Dispatcher publishes notification events
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
}

// RedisDispatcher publishes events on a Redis pub/sub channel
type RedisDispatcher struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
}

// NewRedisDispatcher creates a dispatcher publishing on the given channel
func NewRedisDispatcher(client *redis.Client, channel string, log *logger.Logger) *RedisDispatcher {
	return &RedisDispatcher{
		client:  client,
		channel: channel,
		log:     log,
	}
}

// Dispatch publishes the event. Failures are logged, never propagated:
// a lost notification must not fail the mutation that produced it.
func (d *RedisDispatcher) Dispatch(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		d.log.Error("notification marshal failed", "kind", ev.Kind, "error", err)
		return
	}

	if err := d.client.Publish(ctx, d.channel, payload); err != nil {
		d.log.Warn("notification publish failed", "kind", ev.Kind, "error", err)
	}
}

// Noop discards all events; used in tests and tools
type Noop struct{}

// Dispatch does nothing
func (Noop) Dispatch(ctx context.Context, ev Event) {}
