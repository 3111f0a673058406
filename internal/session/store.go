// Package session keeps the per-visitor state of the form: history,
// last signature and the artifacts of the last submission. Nothing here
// outlives the process.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xelth-com/eckreport/internal/models"
	"github.com/xelth-com/eckreport/internal/services/report"
	"github.com/xelth-com/eckreport/internal/signature"
)

// Session is the state of one interactive visitor
type Session struct {
	ID        string
	CreatedAt time.Time

	// Pad buffers strokes streamed from the signature-pad widget
	Pad *signature.StrokeBuffer

	// submit serialises whole submissions
	submit sync.Mutex

	mu            sync.RWMutex
	lastSeen      time.Time
	history       History
	lastSignature []byte
	lastBundle    *report.Bundle
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		Pad:       signature.NewStrokeBuffer(),
		lastSeen:  now,
	}
}

// Exclusive runs fn while no other submission on this session is running
func (s *Session) Exclusive(fn func() error) error {
	s.submit.Lock()
	defer s.submit.Unlock()
	return fn()
}

// Append adds a visit with its signature. The signature is kept only as
// the last-known one for re-display. Returns the post-append history table.
func (s *Session) Append(rec models.VisitRecord, sig []byte) models.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Append(rec)
	s.lastSignature = append([]byte(nil), sig...)
	return s.history.ToTable()
}

// Table exports the current history
func (s *Session) Table() models.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.ToTable()
}

// Records returns the history rows
func (s *Session) Records() []models.VisitRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Records()
}

// Len returns the history length
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Len()
}

// LastSignature returns the signature of the last accepted submission
func (s *Session) LastSignature() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.lastSignature) == 0 {
		return nil, false
	}
	return s.lastSignature, true
}

// SetBundle replaces the downloadable artifacts
func (s *Session) SetBundle(b *report.Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastBundle = b
}

// Bundle returns the artifacts of the last submission
func (s *Session) Bundle() (*report.Bundle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBundle, s.lastBundle != nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastSeen)
}

// Store holds the live sessions of the process
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *zap.Logger

	// now is replaceable in tests
	now func() time.Time
}

// NewStore creates an empty store; sessions idle longer than ttl expire
func NewStore(ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Create starts a new session with an empty history
func (st *Store) Create() *Session {
	s := newSession(st.now())

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.logger.Debug("🆕 Session created", zap.String("session", s.ID))
	return s
}

// Get returns a live session and marks it as active
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := st.now()
	if st.ttl > 0 && s.idleSince(now) > st.ttl {
		st.End(id)
		return nil, false
	}
	s.touch(now)
	return s, true
}

// End discards a session and everything it accumulated
func (st *Store) End(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		st.logger.Info("🗑️ Session ended", zap.String("session", id), zap.Int("visits", s.Len()))
	}
	return ok
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep ends every session idle longer than the TTL
func (st *Store) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	now := st.now()

	st.mu.RLock()
	var candidates []string
	for id, s := range st.sessions {
		if s.idleSince(now) > st.ttl {
			candidates = append(candidates, id)
		}
	}
	st.mu.RUnlock()

	return st.expire(candidates, now)
}

// expire ends the given sessions that are still idle past the TTL at now.
// A session touched since it was listed survives.
func (st *Store) expire(ids []string, now time.Time) int {
	var ended []*Session
	st.mu.Lock()
	for _, id := range ids {
		s, ok := st.sessions[id]
		if !ok || s.idleSince(now) <= st.ttl {
			continue
		}
		delete(st.sessions, id)
		ended = append(ended, s)
	}
	st.mu.Unlock()

	for _, s := range ended {
		st.logger.Info("🗑️ Session ended", zap.String("session", s.ID), zap.Int("visits", s.Len()))
	}
	return len(ended)
}

// RunJanitor sweeps every interval until ctx is done. A non-positive
// interval leaves expiry to Get.
func (st *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				st.logger.Info("⏰ Expired idle sessions", zap.Int("count", n))
			}
		}
	}
}
