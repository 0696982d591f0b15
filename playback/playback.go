// Package playback tracks what each user is currently listening to.
//
// Producers post periodic reports which are reconciled against the last known
// state per user. Between reports the current position is extrapolated from
// wall-clock elapsed time. A report identical to the previous one (same video
// id and same position) means the player did not advance, which is the only
// pause signal producers emit. Sessions are cleared when the extrapolated
// position passes the end of the track, or when no report has arrived for the
// idle expiry window.
//
// All positions, lengths, and elapsed times are whole seconds.
package playback

import (
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultIdleExpiry = 10 * time.Minute

// Interval is a position inside a track, both endpoints in seconds.
type Interval struct {
	At  int `json:"at"`
	End int `json:"end"`
}

// Report is one observation from a producer.
type Report struct {
	Title     string   `json:"title"`
	Artist    string   `json:"artist"`
	Thumbnail string   `json:"thumbnail"`
	Duration  Interval `json:"duration"`
	VideoID   string   `json:"videoId,omitempty"`
}

// Snapshot is the last known track for one user.
type Snapshot struct {
	Title     string
	Artist    string
	Thumbnail string
	Duration  Interval
	VideoID   string
	Paused    bool
}

// State is a snapshot plus the time it was last reported. Data nil means
// nothing is playing.
type State struct {
	LastUpdated time.Time
	Data        *Snapshot
}

// View is what a badge request sees. Offset is the extrapolated position and
// Progress its fraction of the track, clamped so a sliver is always visible.
// Playing is false for the empty view.
type View struct {
	Snapshot
	Offset   int
	Progress float64
	Playing  bool
}

// Recorder receives a durable history entry whenever a track change is
// detected for a user with history enabled. Calls are made from their own
// goroutine and errors are logged and dropped, a failing recorder never
// affects reconciliation.
type Recorder interface {
	Record(userID, song, artist string, stamp time.Time) error
}

// NameFunc resolves the artist line shown on an empty badge for a user.
type NameFunc func(userID string) string

type session struct {
	mu    sync.Mutex
	state State
}

// Sessions owns all live playback state, keyed by user name. Each user has
// their own lock, so reconciling one user never blocks reading another.
type Sessions struct {
	clock        clockwork.Clock
	idleExpiry   time.Duration
	recorder     Recorder
	fallbackName NameFunc

	mu      sync.RWMutex
	entries map[string]*session
}

func NewSessions(clock clockwork.Clock, idleExpiry time.Duration, recorder Recorder, fallbackName NameFunc) *Sessions {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if idleExpiry <= 0 {
		idleExpiry = DefaultIdleExpiry
	}
	return &Sessions{
		clock:        clock,
		idleExpiry:   idleExpiry,
		recorder:     recorder,
		fallbackName: fallbackName,
		entries:      map[string]*session{},
	}
}

func (s *Sessions) session(userID string) *session {
	s.mu.RLock()
	sess, ok := s.entries[userID]
	s.mu.RUnlock()
	if ok {
		return sess
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.entries[userID]; ok {
		return sess
	}
	sess = &session{state: State{LastUpdated: s.clock.Now()}}
	s.entries[userID] = sess
	return sess
}

// peek returns the user's session without creating one. Badge reads for
// unknown users stay out of the map so viewers can't grow it.
func (s *Sessions) peek(userID string) *session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[userID]
}

// Reconcile folds a producer report into the user's state and returns the
// resulting state. A report with the same video id and position as the
// previous one marks the snapshot paused and leaves the rest of it untouched.
func (s *Sessions) Reconcile(userID string, report Report, historyEnabled bool) State {
	sess := s.session(userID)
	now := s.clock.Now()

	sess.mu.Lock()
	prev := sess.state.Data
	trackChanged := prev != nil && prev.Title != "" && report.Title != prev.Title

	sess.state.LastUpdated = now
	switch {
	case prev != nil && prev.VideoID == report.VideoID && prev.Duration == report.Duration:
		prev.Paused = true
	default:
		sess.state.Data = &Snapshot{
			Title:     report.Title,
			Artist:    report.Artist,
			Thumbnail: report.Thumbnail,
			Duration:  report.Duration,
			VideoID:   report.VideoID,
		}
	}
	state := sess.state.clone()
	sess.mu.Unlock()

	// history appends happen off the session lock and are best effort
	if trackChanged && historyEnabled && s.recorder != nil {
		go func() {
			if err := s.recorder.Record(userID, report.Title, report.Artist, now); err != nil {
				log.Printf("error recording listen for %q: %v", userID, err)
			}
		}()
	}
	return state
}

// CurrentView extrapolates the user's current position and returns a view for
// rendering. It never fails, expired or absent sessions degrade to the empty
// view with the fallback artist name.
func (s *Sessions) CurrentView(userID string) View {
	sess := s.peek(userID)
	if sess == nil {
		return s.emptyView(userID)
	}
	now := s.clock.Now()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	data := sess.state.Data
	if data == nil {
		return s.emptyView(userID)
	}

	sinceUpdate := now.Sub(sess.state.LastUpdated)
	offset := data.Duration.At
	if !data.Paused {
		offset += int(sinceUpdate / time.Second)
	}
	if offset > data.Duration.End || sinceUpdate > s.idleExpiry {
		sess.state.Data = nil
		return s.emptyView(userID)
	}

	var progress float64
	if data.Duration.End > 0 {
		progress = float64(offset) / float64(data.Duration.End)
	}
	progress = min(max(progress, 0.01), 1)

	return View{
		Snapshot: *data,
		Offset:   offset,
		Progress: progress,
		Playing:  true,
	}
}

func (s *Sessions) emptyView(userID string) View {
	var name string
	if s.fallbackName != nil {
		name = s.fallbackName(userID)
	}
	return View{Snapshot: Snapshot{Artist: name, Paused: true}}
}

func (st State) clone() State {
	if st.Data == nil {
		return st
	}
	data := *st.Data
	st.Data = &data
	return st
}
