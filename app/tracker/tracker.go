// Package tracker applies the progression rules to stored users, challenges and activities.
// Every read-modify-write of a user or challenge goes through a version-conditional update and
// is retried when another writer got there first.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"toughturtle/app/events"
	"toughturtle/app/storage"
)

const (
	DefaultMaxRetries       = 5
	DefaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type Tracker struct {
	Store      storage.Store
	Events     events.Publisher
	Catalog    []CatalogEntry
	Location   *time.Location
	MaxRetries int
	Now        func() time.Time
}

func New(store storage.Store, publisher events.Publisher) *Tracker {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Tracker{
		Store:      store,
		Events:     publisher,
		Catalog:    DefaultCatalog(),
		Location:   time.UTC,
		MaxRetries: DefaultMaxRetries,
		Now:        time.Now,
	}
}

func (t *Tracker) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

func (t *Tracker) location() *time.Location {
	if t.Location == nil {
		return time.UTC
	}
	return t.Location
}

func (t *Tracker) maxRetries() int {
	if t.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return t.MaxRetries
}

// publish never fails the caller; the state change is already committed.
func (t *Tracker) publish(ctx context.Context, eventType, userId string, data map[string]string) {
	if t.Events == nil {
		return
	}
	e := events.Event{Type: eventType, UserID: userId, OccurredAt: t.now().UTC(), Data: data}
	if err := t.Events.Publish(ctx, e); err != nil {
		slog.Warn("error while publishing event", "type", eventType, "userID", userId, "err", err)
	}
}
