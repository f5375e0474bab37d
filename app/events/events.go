package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"toughturtle/app/observability"
)

const (
	TypeActivityLogged     = "activity.logged"
	TypeChallengeCompleted = "challenge.completed"
	TypeStageEvolved       = "stage.evolved"
)

type Event struct {
	Type       string            `json:"type"`
	UserID     string            `json:"user_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// ChannelPublisher hands events to an in-process consumer. A full buffer drops the event.
type ChannelPublisher struct {
	C chan Event
}

func NewChannelPublisher(buffer int) *ChannelPublisher {
	return &ChannelPublisher{C: make(chan Event, buffer)}
}

var ErrDropped = errors.New("event buffer full")

func (p *ChannelPublisher) Publish(_ context.Context, e Event) error {
	select {
	case p.C <- e:
		observability.RecordEvent("channel", e.Type, true)
		return nil
	default:
		observability.RecordEvent("channel", e.Type, false)
		slog.Warn("dropping event, consumer is behind", "type", e.Type, "userID", e.UserID)
		return ErrDropped
	}
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
