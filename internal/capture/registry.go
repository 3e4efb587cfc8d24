package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/mixcap/mixcap/internal/media"
)

// StagedSource is a previously acquired, not yet consumed stream held
// pending a caller decision or consumption by a later start request.
type StagedSource struct {
	Stream     *media.Stream
	Descriptor SourceDescriptor
}

// Store is the process-scoped registry of active capture sessions and
// staged sources. Each Service owns its own Store, so tests construct
// isolated instances.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	staged   map[string]*StagedSource
	counter  uint64
}

// NewStore creates an empty registry.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		staged:   make(map[string]*StagedSource),
	}
}

// NextID generates a capture id. Wall-clock millis alone collide when two
// captures start in the same millisecond, so a monotonic counter is
// appended.
func (s *Store) NextID() string {
	s.mu.Lock()
	s.counter++
	n := s.counter
	s.mu.Unlock()
	return fmt.Sprintf("%d-%d", time.Now().UnixMilli(), n)
}

// InsertSession registers a session under its id.
func (s *Store) InsertSession(sess *Session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
}

// Session looks up an active session, or nil.
func (s *Store) Session(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// HasSession reports whether the id maps to an active session.
func (s *Store) HasSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id] != nil
}

// RemoveSession takes a session out of the registry and returns it, or nil
// if absent. The entry is nulled before deletion so a concurrent lookup
// mid-teardown observes absence rather than a dangling session.
func (s *Store) RemoveSession(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	s.sessions[id] = nil
	delete(s.sessions, id)
	return sess
}

// Stage holds a source under its primary track id. Re-staging the same id
// overwrites the previous entry.
func (s *Store) Stage(trackID string, src *StagedSource) {
	s.mu.Lock()
	s.staged[trackID] = src
	s.mu.Unlock()
}

// TakeStaged consumes a staged source, transferring ownership to the
// caller. Consumption is atomic under the store lock, so a concurrent
// re-stage cannot hand the same stream out twice.
func (s *Store) TakeStaged(trackID string) *StagedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.staged[trackID]
	if !ok {
		return nil
	}
	delete(s.staged, trackID)
	return src
}
