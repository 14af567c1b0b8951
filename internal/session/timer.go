package session

import (
	"time"

	"github.com/desertthunder/hitqr/internal/shared"
)

// BeginPlayRequest starts a new play request. It cancels the pending auto-stop and returns the request
// token; ok is false when the session has been logged out. Scans still being resolved are superseded.
func (s *Session) BeginPlayRequest() (token uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		return 0, false
	}
	s.scan++
	return s.beginLocked(), true
}

// InvalidateRequest makes the latest play request stale without starting a new one, so a play call
// still in flight can't mark the session playing or arm a stop. The pending auto-stop is cancelled and
// the new token is returned.
func (s *Session) InvalidateRequest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scan++
	if !s.alive {
		return 0
	}
	return s.beginLocked()
}

// BeginScan numbers a decode as it is accepted, before its card is looked up.
func (s *Session) BeginScan() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scan++
	return s.scan
}

// IsCurrentScan reports whether scan is still the latest accepted decode.
func (s *Session) IsCurrentScan(scan uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scan != 0 && scan == s.scan
}

// BeginScanRequest starts the play request of an accepted decode. It fails with [shared.ErrSessionClosed]
// after logout and returns ok false without touching anything when a later decode or play request has
// been accepted since scan was numbered.
func (s *Session) BeginScanRequest(scan uint64) (token uint64, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		return 0, false, shared.ErrSessionClosed
	}
	if scan == 0 || scan != s.scan {
		return 0, false, nil
	}
	return s.beginLocked(), true, nil
}

func (s *Session) beginLocked() uint64 {
	s.stopLocked()
	s.request++
	return s.request
}

// CurrentRequest returns the token of the latest play request.
func (s *Session) CurrentRequest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

// IsCurrentRequest reports whether token belongs to the latest play request of a live session.
func (s *Session) IsCurrentRequest(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(token)
}

// ArmStop schedules fn after d as the session's only pending stop, replacing any previous one.
// Nothing is scheduled and false is returned when token is no longer current.
func (s *Session) ArmStop(token uint64, d time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(token) {
		return false
	}

	s.stopLocked()
	s.stopArm++
	arm := s.stopArm
	s.stopTimer = s.afterFunc(d, func() {
		s.mu.Lock()
		if s.stopArm != arm || s.stopTimer == nil {
			s.mu.Unlock()
			return
		}
		s.stopTimer = nil
		s.mu.Unlock()
		fn()
	})
	return true
}

// CancelStop cancels the pending auto-stop, if any.
func (s *Session) CancelStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// PendingStop reports whether an auto-stop is scheduled.
func (s *Session) PendingStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopTimer != nil
}

func (s *Session) currentLocked(token uint64) bool {
	return s.alive && token != 0 && token == s.request
}

// stopLocked cancels the pending stop. A timer that already fired finds stopArm changed and does nothing.
func (s *Session) stopLocked() {
	if s.stopTimer != nil {
		s.stopTimer.Stop()
		s.stopTimer = nil
	}
	s.stopArm++
}
