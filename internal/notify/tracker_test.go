package notify

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livebot/internal/store"
)

type memState struct {
	live    map[string]store.LiveStream
	failAdd bool
}

func newMemState(keys ...string) *memState {
	s := &memState{live: make(map[string]store.LiveStream)}
	for _, k := range keys {
		s.live[k] = store.LiveStream{Key: k}
	}
	return s
}

func (s *memState) LiveKeys(_ context.Context, _ string) ([]string, error) {
	keys := make([]string, 0, len(s.live))
	for k := range s.live {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *memState) AddLive(_ context.Context, _ string, stream store.LiveStream) error {
	if s.failAdd {
		return errors.New("disk full")
	}
	s.live[stream.Key] = stream
	return nil
}

func (s *memState) RemoveLive(_ context.Context, _ string, keys []string) error {
	for _, k := range keys {
		delete(s.live, k)
	}
	return nil
}

type fakeStream struct {
	login string
	title string
}

func describeFake(s fakeStream) store.LiveStream {
	return store.LiveStream{Key: s.login, Title: s.title}
}

func TestTracker_AnnouncesOnce(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker("twitch", newMemState(), describeFake, clockwork.NewFakeClock())

	fresh, err := tr.Update(ctx, []fakeStream{{login: "alice"}, {login: "bob"}})
	require.NoError(t, err)
	assert.Equal(t, []fakeStream{{login: "alice"}, {login: "bob"}}, fresh)

	fresh, err = tr.Update(ctx, []fakeStream{{login: "bob"}, {login: "alice"}})
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestTracker_OfflineThenOnlineAgain(t *testing.T) {
	ctx := context.Background()
	state := newMemState()
	tr := NewTracker("twitch", state, describeFake, clockwork.NewFakeClock())

	_, err := tr.Update(ctx, []fakeStream{{login: "alice"}, {login: "bob"}})
	require.NoError(t, err)

	fresh, err := tr.Update(ctx, []fakeStream{{login: "bob"}})
	require.NoError(t, err)
	assert.Empty(t, fresh)
	assert.NotContains(t, state.live, "alice")

	fresh, err = tr.Update(ctx, []fakeStream{{login: "alice"}, {login: "bob"}})
	require.NoError(t, err)
	assert.Equal(t, []fakeStream{{login: "alice"}}, fresh)
}

func TestTracker_DuplicatesAnnouncedOnce(t *testing.T) {
	tr := NewTracker("youtube", newMemState(), describeFake, clockwork.NewFakeClock())

	fresh, err := tr.Update(context.Background(), []fakeStream{{login: "v1", title: "a"}, {login: "v1", title: "a"}})
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
}

func TestTracker_ResumesPersistedState(t *testing.T) {
	tr := NewTracker("twitch", newMemState("alice"), describeFake, clockwork.NewFakeClock())

	fresh, err := tr.Update(context.Background(), []fakeStream{{login: "alice"}, {login: "carol"}})
	require.NoError(t, err)
	assert.Equal(t, []fakeStream{{login: "carol"}}, fresh)
}

func TestTracker_StampsAnnouncementTime(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	state := newMemState()
	tr := NewTracker("twitch", state, describeFake, clock)

	_, err := tr.Update(context.Background(), []fakeStream{{login: "alice", title: "speedrun"}})
	require.NoError(t, err)

	rec := state.live["alice"]
	assert.Equal(t, "speedrun", rec.Title)
	assert.True(t, clock.Now().Equal(rec.AnnouncedAt))
}

func TestTracker_AddFailure(t *testing.T) {
	state := newMemState()
	state.failAdd = true
	tr := NewTracker("twitch", state, describeFake, clockwork.NewFakeClock())

	fresh, err := tr.Update(context.Background(), []fakeStream{{login: "alice"}})
	require.Error(t, err)
	assert.Empty(t, fresh)

	state.failAdd = false
	fresh, err = tr.Update(context.Background(), []fakeStream{{login: "alice"}})
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
}

func TestTracker_WithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := store.Open(path)
	require.NoError(t, err)

	tr := NewTracker("twitch", s, describeFake, nil)
	fresh, err := tr.Update(ctx, []fakeStream{{login: "alice"}})
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	require.NoError(t, s.Close())

	s, err = store.Open(path)
	require.NoError(t, err)
	defer s.Close()

	tr = NewTracker("twitch", s, describeFake, nil)
	fresh, err = tr.Update(ctx, []fakeStream{{login: "alice"}})
	require.NoError(t, err)
	assert.Empty(t, fresh)
}
