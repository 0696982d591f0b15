package playback

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type recorderMock struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorderMock) Record(userID, song, artist string, stamp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("%s/%s/%s", userID, song, artist))
	return nil
}

func (r *recorderMock) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func report(title string, at, end int) Report {
	return Report{
		Title:     title,
		Artist:    "artist",
		Thumbnail: "http://art",
		Duration:  Interval{At: at, End: end},
		VideoID:   "vid-" + title,
	}
}

func TestReconcilePauseOnDuplicate(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	sessions := NewSessions(clock, 0, nil, nil)

	first := sessions.Reconcile("alice", report("song", 10, 180), false)
	require.NotNil(t, first.Data)
	require.False(t, first.Data.Paused)

	clock.Advance(5 * time.Second)
	second := sessions.Reconcile("alice", report("song", 10, 180), false)
	require.NotNil(t, second.Data)
	require.True(t, second.Data.Paused)
	require.Equal(t, "song", second.Data.Title)
	require.Equal(t, "artist", second.Data.Artist)
	require.Equal(t, "http://art", second.Data.Thumbnail)
	require.Equal(t, clock.Now(), second.LastUpdated)
}

func TestReconcileAdvancingNeverPaused(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	sessions := NewSessions(clock, 0, nil, nil)

	for at := 0; at < 50; at += 5 {
		clock.Advance(5 * time.Second)
		state := sessions.Reconcile("alice", report("song", at, 180), false)
		require.False(t, state.Data.Paused, "at=%d", at)
	}

	// changing track also unpauses
	sessions.Reconcile("alice", report("song", 45, 180), false)
	state := sessions.Reconcile("alice", report("other", 0, 200), false)
	require.False(t, state.Data.Paused)
	require.Equal(t, "other", state.Data.Title)
}

func TestReconcilePauseIsObservableTransition(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	sessions := NewSessions(clock, 0, nil, nil)

	once := sessions.Reconcile("alice", report("song", 10, 180), false)
	twice := sessions.Reconcile("alice", report("song", 10, 180), false)

	require.False(t, once.Data.Paused)
	require.True(t, twice.Data.Paused)

	snapshotOnce := *once.Data
	snapshotTwice := *twice.Data
	snapshotOnce.Paused = false
	snapshotTwice.Paused = false
	require.Equal(t, snapshotOnce, snapshotTwice)
}

func TestCurrentViewMonotonic(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	sessions := NewSessions(clock, 0, nil, nil)

	sessions.Reconcile("alice", report("song", 0, 300), false)

	var last int
	for i := 0; i < 20; i++ {
		clock.Advance(3 * time.Second)
		view := sessions.CurrentView("alice")
		require.True(t, view.Playing)
		require.GreaterOrEqual(t, view.Offset, last)
		last = view.Offset
	}
}

func TestCurrentViewPausedFrozen(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	sessions := NewSessions(clock, 0, nil, nil)

	sessions.Reconcile("alice", report("song", 42, 300), false)
	sessions.Reconcile("alice", report("song", 42, 300), false)

	clock.Advance(90 * time.Second)
	view := sessions.CurrentView("alice")
	require.True(t, view.Playing)
	require.True(t, view.Paused)
	require.Equal(t, 42, view.Offset)
}

func TestCurrentViewFinishBoundary(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	sessions := NewSessions(clock, 0, nil, func(string) string { return "fallback" })

	sessions.Reconcile("alice", report("song", 170, 180), false)

	clock.Advance(9 * time.Second)
	view := sessions.CurrentView("alice")
	require.True(t, view.Playing)
	require.Equal(t, 179, view.Offset)
	require.InDelta(t, 0.994, view.Progress, 0.001)

	clock.Advance(2 * time.Second)
	view = sessions.CurrentView("alice")
	require.False(t, view.Playing)
	require.Equal(t, "fallback", view.Artist)

	// cleared for good, not just for this read
	view = sessions.CurrentView("alice")
	require.False(t, view.Playing)
}

func TestCurrentViewIdleExpiry(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	sessions := NewSessions(clock, 10*time.Minute, nil, func(string) string { return "fallback" })

	// paused, so offset math alone would never clear it
	sessions.Reconcile("alice", report("song", 10, 10000), false)
	sessions.Reconcile("alice", report("song", 10, 10000), false)

	clock.Advance(11 * time.Minute)
	view := sessions.CurrentView("alice")
	require.False(t, view.Playing)
	require.Equal(t, "fallback", view.Artist)
}

func TestCurrentViewUnknownUser(t *testing.T) {
	t.Parallel()

	sessions := NewSessions(nil, 0, nil, func(userID string) string { return "display-" + userID })

	view := sessions.CurrentView("nobody")
	require.False(t, view.Playing)
	require.True(t, view.Paused)
	require.Equal(t, "display-nobody", view.Artist)
	require.Zero(t, view.Offset)
}

func TestCurrentViewProgressFloor(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	sessions := NewSessions(clock, 0, nil, nil)

	sessions.Reconcile("alice", report("song", 0, 100000), false)
	view := sessions.CurrentView("alice")
	require.Equal(t, 0.01, view.Progress)
}

func TestHistoryAppendedOncePerTrackChange(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	recorder := &recorderMock{}
	sessions := NewSessions(clock, 0, recorder, nil)

	for i, title := range []string{"A", "A", "B", "B", "A"} {
		sessions.Reconcile("alice", report(title, i*10, 180), true)
	}

	require.Eventually(t, func() bool { return recorder.len() == 2 }, time.Second, 5*time.Millisecond)
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.ElementsMatch(t, []string{"alice/B/artist", "alice/A/artist"}, recorder.calls)
}

func TestHistoryNeverAppendedWhenDisabled(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	recorder := &recorderMock{}
	sessions := NewSessions(clock, 0, recorder, nil)

	for i, title := range []string{"A", "A", "B", "B", "A"} {
		sessions.Reconcile("alice", report(title, i*10, 180), false)
	}

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, recorder.len())
}

func TestConcurrentUsersDontContend(t *testing.T) {
	t.Parallel()

	sessions := NewSessions(nil, 0, nil, nil)

	const perUser = 200
	var wg sync.WaitGroup
	for _, user := range []string{"alice", "bob", "carol", "dave"} {
		user := user
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < perUser; i++ {
				sessions.Reconcile(user, report("song-"+user, i, perUser*2), false)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < perUser; i++ {
				sessions.CurrentView(user)
			}
		}()
	}
	wg.Wait()

	for _, user := range []string{"alice", "bob", "carol", "dave"} {
		view := sessions.CurrentView(user)
		require.True(t, view.Playing)
		require.Equal(t, "song-"+user, view.Title)
	}
}
