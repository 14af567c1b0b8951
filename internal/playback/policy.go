package playback

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/desertthunder/hitqr/internal/shared"
)

// Mode chooses where in the track a snippet starts.
type Mode string

const (
	ModeBeginning Mode = "beginning"
	ModeCustom    Mode = "custom"
	ModeRandom    Mode = "random"
)

const (
	// MaxCustomSeconds bounds a custom start offset.
	MaxCustomSeconds = 120
	// RandomWindowMs bounds random start offsets, exclusive.
	RandomWindowMs = 90_000
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeBeginning, ModeCustom, ModeRandom}

// ParseMode parses a mode name, ignoring case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeBeginning, ModeCustom, ModeRandom:
		return m, nil
	case "":
		return ModeBeginning, nil
	default:
		return "", fmt.Errorf("%w: unknown start mode %q", shared.ErrInvalidArgument, s)
	}
}

// Next returns the mode after m, wrapping around.
func (m Mode) Next() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeBeginning
}

// StartPolicy is the caller's choice of start offset for one play, replay or playlist pick.
type StartPolicy struct {
	Mode          Mode
	CustomSeconds int
}

// PolicyFromConfig builds a policy from the playback section of the config.
func PolicyFromConfig(cfg shared.PlaybackConfig) (StartPolicy, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return StartPolicy{}, err
	}
	return StartPolicy{Mode: mode, CustomSeconds: cfg.CustomStart}, nil
}

// Offset returns the start offset in milliseconds. Random offsets are drawn from r.
func (p StartPolicy) Offset(r *rand.Rand) int {
	switch p.Mode {
	case ModeCustom:
		return min(max(p.CustomSeconds, 0), MaxCustomSeconds) * 1000
	case ModeRandom:
		if r == nil {
			return rand.IntN(RandomWindowMs)
		}
		return r.IntN(RandomWindowMs)
	default:
		return 0
	}
}

func (p StartPolicy) String() string {
	if p.Mode == ModeCustom {
		return fmt.Sprintf("%s (%ds)", p.Mode, min(max(p.CustomSeconds, 0), MaxCustomSeconds))
	}
	return string(p.Mode)
}

// Selector holds the policy the player has chosen. Front ends change it while the scan bridge reads it for
// every card.
type Selector struct {
	mu     sync.RWMutex
	policy StartPolicy
}

// NewSelector creates a selector starting at p.
func NewSelector(p StartPolicy) *Selector {
	return &Selector{policy: p}
}

// Policy returns the current policy.
func (s *Selector) Policy() StartPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// Set replaces the policy.
func (s *Selector) Set(p StartPolicy) {
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
}

// CycleMode advances to the next mode, keeping the custom start, and returns the new policy.
func (s *Selector) CycleMode() StartPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy.Mode = s.policy.Mode.Next()
	return s.policy
}
