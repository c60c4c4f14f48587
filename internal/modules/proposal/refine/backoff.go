package refine

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/autodoc-backend/internal/domain"
)

// Delay is the wait after the n-th failed attempt: 2^n seconds.
func Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	return time.Duration(1<<uint(n)) * time.Second
}

type State string

const (
	StateAttempting State = "attempting"
	StateWaiting    State = "waiting"
	StateSucceeded  State = "succeeded"
	StateExhausted  State = "exhausted"
	StateFailed     State = "failed"
)

// machine tracks one refinement run. It holds no I/O; the caller performs the
// attempt and the wait and reports back.
type machine struct {
	max            int
	waitAfterFinal bool

	state   State
	attempt int
	delay   time.Duration
}

func newMachine(maxAttempts int, waitAfterFinal bool) *machine {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &machine{max: maxAttempts, waitAfterFinal: waitAfterFinal, state: StateAttempting, attempt: 1}
}

func (m *machine) succeed() { m.state = StateSucceeded }
func (m *machine) fail()    { m.state = StateFailed }

// transient moves to Waiting, or straight to Exhausted on the final attempt
// when no trailing wait is configured.
func (m *machine) transient() {
	if m.attempt >= m.max && !m.waitAfterFinal {
		m.state = StateExhausted
		return
	}
	m.delay = Delay(m.attempt)
	m.state = StateWaiting
}

// waited advances past a finished wait.
func (m *machine) waited() {
	if m.attempt >= m.max {
		m.state = StateExhausted
		return
	}
	m.attempt++
	m.delay = 0
	m.state = StateAttempting
}

func (m *machine) done() bool {
	switch m.state {
	case StateSucceeded, StateExhausted, StateFailed:
		return true
	default:
		return false
	}
}

// unavailableStatus matches an HTTP 503 as reported by the chat client
// ("status code: 503"), not any 503 digit run in the message.
var unavailableStatus = regexp.MustCompile(`(?i)status code:? 503\b`)

// IsTransient reports whether a generation error means the service was
// unavailable and the call is worth repeating.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *domain.RefinementTransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.Unavailable {
		return true
	}
	msg := err.Error()
	return unavailableStatus.MatchString(msg) || strings.Contains(strings.ToLower(msg), "service unavailable")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
