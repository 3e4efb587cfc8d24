package media

import (
	"sync"

	"github.com/google/uuid"
)

// Stream groups tracks the way a browser MediaStream does. A stream does not
// own its tracks exclusively; the same track may belong to several streams
// (e.g. a raw stream and a combined stream), and stopping any of them stops
// the shared track.
type Stream struct {
	id string

	mu         sync.Mutex
	tracks     []*Track
	onInactive []func()
	inactive   bool
}

// NewStream creates a stream over the given tracks.
func NewStream(tracks ...*Track) *Stream {
	s := &Stream{id: uuid.NewString()}
	for _, t := range tracks {
		s.AddTrack(t)
	}
	return s
}

func (s *Stream) ID() string { return s.id }

// AddTrack appends a track and watches it for the inactive transition.
func (s *Stream) AddTrack(t *Track) {
	if t == nil {
		return
	}
	s.mu.Lock()
	s.tracks = append(s.tracks, t)
	s.mu.Unlock()
	t.OnEnded(s.checkInactive)
}

// RemoveTrack detaches a track without stopping it.
func (s *Stream) RemoveTrack(t *Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.tracks {
		if existing == t {
			s.tracks = append(s.tracks[:i], s.tracks[i+1:]...)
			return
		}
	}
}

// GetTracks returns a snapshot of all tracks.
func (s *Stream) GetTracks() []*Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

func (s *Stream) getByKind(kind Kind) []*Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Track
	for _, t := range s.tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

// GetVideoTracks returns the video tracks.
func (s *Stream) GetVideoTracks() []*Track { return s.getByKind(KindVideo) }

// GetAudioTracks returns the audio tracks.
func (s *Stream) GetAudioTracks() []*Track { return s.getByKind(KindAudio) }

// OnInactive registers a handler fired once, when the last live track of a
// non-empty stream ends. A handler registered after the transition fires
// immediately.
func (s *Stream) OnInactive(fn func()) {
	s.mu.Lock()
	if s.inactive {
		s.mu.Unlock()
		fn()
		return
	}
	s.onInactive = append(s.onInactive, fn)
	s.mu.Unlock()
	s.checkInactive()
}

func (s *Stream) checkInactive() {
	s.mu.Lock()
	if s.inactive || len(s.tracks) == 0 {
		s.mu.Unlock()
		return
	}
	tracks := make([]*Track, len(s.tracks))
	copy(tracks, s.tracks)
	s.mu.Unlock()

	for _, t := range tracks {
		if t.ReadyState() == ReadyStateLive {
			return
		}
	}

	s.mu.Lock()
	if s.inactive {
		s.mu.Unlock()
		return
	}
	s.inactive = true
	handlers := s.onInactive
	s.onInactive = nil
	s.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

// Stop stops every track in the stream.
func (s *Stream) Stop() {
	for _, t := range s.GetTracks() {
		t.Stop()
	}
}
