// Package notify decides which streams need a go-live announcement.
//
// A Tracker remembers the streams of one platform that are currently live.
// Each poll hands it the streams that are live right now; it forgets the ones
// that went offline and returns the ones it has not seen before. Seen streams
// are persisted so that a restart does not announce running streams twice.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"livebot/internal/store"
)

type State interface {
	LiveKeys(ctx context.Context, platform string) ([]string, error)
	AddLive(ctx context.Context, platform string, stream store.LiveStream) error
	RemoveLive(ctx context.Context, platform string, keys []string) error
}

// Describe maps a platform stream to the record kept while it is live. The
// record's Key identifies the stream across polls.
type Describe[T any] func(T) store.LiveStream

type Tracker[T any] struct {
	platform string
	state    State
	describe Describe[T]
	clock    clockwork.Clock

	mu     sync.Mutex
	live   map[string]struct{}
	loaded bool
}

func NewTracker[T any](platform string, state State, describe Describe[T], clock clockwork.Clock) *Tracker[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker[T]{
		platform: platform,
		state:    state,
		describe: describe,
		clock:    clock,
		live:     make(map[string]struct{}),
	}
}

func (t *Tracker[T]) Platform() string {
	return t.platform
}

// Update records current as the full set of live streams and returns the
// entries that were not live on the previous call, in input order. On a
// storage error the entries recorded so far are returned with the error.
func (t *Tracker[T]) Update(ctx context.Context, current []T) ([]T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.load(ctx); err != nil {
		return nil, err
	}

	records := make([]store.LiveStream, len(current))
	seen := make(map[string]struct{}, len(current))
	for i, entry := range current {
		records[i] = t.describe(entry)
		seen[records[i].Key] = struct{}{}
	}

	var gone []string
	for key := range t.live {
		if _, ok := seen[key]; !ok {
			gone = append(gone, key)
		}
	}
	if len(gone) > 0 {
		if err := t.state.RemoveLive(ctx, t.platform, gone); err != nil {
			return nil, err
		}
		for _, key := range gone {
			delete(t.live, key)
		}
	}

	var fresh []T
	for i, entry := range current {
		rec := records[i]
		if _, ok := t.live[rec.Key]; ok {
			continue
		}

		rec.AnnouncedAt = t.clock.Now().UTC()
		if err := t.state.AddLive(ctx, t.platform, rec); err != nil {
			return fresh, err
		}
		t.live[rec.Key] = struct{}{}
		fresh = append(fresh, entry)
	}

	return fresh, nil
}

func (t *Tracker[T]) load(ctx context.Context) error {
	if t.loaded {
		return nil
	}

	keys, err := t.state.LiveKeys(ctx, t.platform)
	if err != nil {
		return fmt.Errorf("failed to load %s live state: %w", t.platform, err)
	}
	for _, key := range keys {
		t.live[key] = struct{}{}
	}
	t.loaded = true
	return nil
}
