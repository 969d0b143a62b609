package signal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/Tiliavir/screen-time-tracker/internal/clock"
)

// DefaultCommandTimeout bounds a single probe command.
const DefaultCommandTimeout = 2 * time.Second

// CommandLockProbe runs an external command and interprets its result as
// the lock state.
type CommandLockProbe struct {
	Name    string
	Args    []string
	Timeout time.Duration
	// Interpret maps the command's output and exit code to a lock state.
	// Exit codes other than those it accepts should produce an error.
	Interpret func(out []byte, exitCode int) (bool, error)
}

// ExitZeroLocked treats exit 0 as locked and exit 1 as unlocked, the pgrep
// convention.
func ExitZeroLocked(_ []byte, exitCode int) (bool, error) {
	switch exitCode {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected exit code %d", exitCode)
	}
}

// OutputYesLocked treats trimmed output "yes" as locked, the loginctl
// LockedHint convention.
func OutputYesLocked(out []byte, exitCode int) (bool, error) {
	if exitCode != 0 {
		return false, fmt.Errorf("unexpected exit code %d", exitCode)
	}
	return string(bytes.TrimSpace(out)) == "yes", nil
}

// NewCommandLockProbe returns a probe for a user supplied command line; exit
// 0 means locked.
func NewCommandLockProbe(argv []string) (*CommandLockProbe, error) {
	if len(argv) == 0 {
		return nil, errors.New("lock command is empty")
	}
	return &CommandLockProbe{Name: argv[0], Args: argv[1:], Interpret: ExitZeroLocked}, nil
}

func (p *CommandLockProbe) Poll(ctx context.Context) (State, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Name, p.Args...)
	out, err := cmd.Output()
	code := 0
	if err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			return State{}, fmt.Errorf("lock probe %s: %w", p.Name, err)
		}
		code = ee.ExitCode()
	}
	interpret := p.Interpret
	if interpret == nil {
		interpret = ExitZeroLocked
	}
	locked, err := interpret(out, code)
	if err != nil {
		return State{}, fmt.Errorf("lock probe %s: %w", p.Name, err)
	}
	return State{Locked: locked}, nil
}

// DefaultJumpThreshold is how far the wall clock must outrun the monotonic
// clock between two samples before a suspend is assumed.
const DefaultJumpThreshold = 3 * time.Second

// ClockJumpProbe detects that the machine was suspended between two polls:
// the monotonic clock does not advance during suspend while the wall clock
// does. After a jump it reports Asleep for Hold samples, then awake again.
type ClockJumpProbe struct {
	clock     clock.Clock
	threshold time.Duration
	hold      int

	mu        sync.Mutex
	last      clock.Instant
	primed    bool
	remaining int
}

// NewClockJumpProbe returns a probe reading c. hold below 1 is treated as 1;
// it should be at least the sleep debounce so the pulse is seen.
func NewClockJumpProbe(c clock.Clock, threshold time.Duration, hold int) *ClockJumpProbe {
	if threshold <= 0 {
		threshold = DefaultJumpThreshold
	}
	if hold < 1 {
		hold = 1
	}
	return &ClockJumpProbe{clock: c, threshold: threshold, hold: hold}
}

func (p *ClockJumpProbe) Poll(context.Context) (State, error) {
	now := p.clock.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.primed {
		wallStep := now.Wall.Sub(p.last.Wall)
		monoStep := now.Mono - p.last.Mono
		if wallStep-monoStep > p.threshold {
			p.remaining = p.hold
		}
	}
	p.last = now
	p.primed = true

	if p.remaining > 0 {
		p.remaining--
		return State{Asleep: true}, nil
	}
	return State{}, nil
}
