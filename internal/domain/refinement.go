package domain

import "time"

type AttemptOutcome string

const (
	OutcomeSuccess   AttemptOutcome = "success"
	OutcomeRetryable AttemptOutcome = "retryable"
	OutcomeFatal     AttemptOutcome = "fatal"
)

// RefinementAttempt records one generation call. Delay is the wait that
// followed it, zero when none did.
type RefinementAttempt struct {
	Number  int            `json:"number"`
	Delay   time.Duration  `json:"delay_ns"`
	Outcome AttemptOutcome `json:"outcome"`
	Err     string         `json:"error,omitempty"`
}
