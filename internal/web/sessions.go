package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TimurManjosov/ruleconsole/internal/evaluation"
)

// sessionCookie carries the id of the browser's evaluate session.
const sessionCookie = "ruleconsole_session"

// sessions hands every browser its own evaluation.Orchestrator, so one operator's
// form, verdict and generation counter are never seen or bumped by another.
// Sessions unused for longer than idle are dropped.
type sessions struct {
	newFlow func() *evaluation.Orchestrator
	idle    time.Duration
	now     func() time.Time

	mu        sync.Mutex
	byID      map[string]*session
	lastSweep time.Time
}

type session struct {
	flow     *evaluation.Orchestrator
	lastSeen time.Time
}

func newSessions(newFlow func() *evaluation.Orchestrator, idle time.Duration) *sessions {
	return &sessions{
		newFlow: newFlow,
		idle:    idle,
		now:     time.Now,
		byID:    make(map[string]*session),
	}
}

// lookup returns the orchestrator for the request's session. With create set, a
// request without a live session gets a new one and the cookie is written to w;
// otherwise it gets nil.
func (s *sessions) lookup(w http.ResponseWriter, r *http.Request, create bool) *evaluation.Orchestrator {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)

	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.byID[c.Value]; ok {
			if now.Sub(sess.lastSeen) <= s.idle {
				sess.lastSeen = now
				return sess.flow
			}
			sess.flow.Reset()
			delete(s.byID, c.Value)
		}
	}
	if !create {
		return nil
	}

	id := uuid.NewString()
	sess := &session{flow: s.newFlow(), lastSeen: now}
	s.byID[id] = sess
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return sess.flow
}

// Len returns the number of live sessions.
func (s *sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *sessions) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < s.idle/2 {
		return
	}
	s.lastSweep = now
	for id, sess := range s.byID {
		if now.Sub(sess.lastSeen) > s.idle {
			sess.flow.Reset()
			delete(s.byID, id)
		}
	}
}
