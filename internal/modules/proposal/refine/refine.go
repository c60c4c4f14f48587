// Package refine turns the corpus and the NER seed into a ProposalRecord with
// one generative call per attempt, retrying only while the service reports
// itself unavailable.
package refine

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

// Completer sends the filled prompt and returns the raw model text.
type Completer interface {
	Complete(ctx context.Context, vars map[string]any) (string, error)
}

type ResultKind string

const (
	KindRefined  ResultKind = "refined"
	KindDegraded ResultKind = "degraded"
)

// Result is either Refined (Record set) or Degraded (Seed stands in).
type Result struct {
	Kind     ResultKind                 `json:"kind"`
	Record   *domain.ProposalRecord     `json:"record,omitempty"`
	Seed     domain.SeedRecord          `json:"seed"`
	Attempts []domain.RefinementAttempt `json:"attempts"`
	Err      error                      `json:"-"`
}

func (r Result) Refined() bool { return r.Kind == KindRefined }

// Value is what gets written to the output document.
func (r Result) Value() any {
	if r.Kind == KindRefined && r.Record != nil {
		return r.Record
	}
	return r.Seed
}

type Options struct {
	MaxAttempts int
	// WaitAfterFinal keeps the backoff wait after the last transient failure.
	WaitAfterFinal bool
	// Sleep replaces the context-aware timer; tests record delays with it.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultOptions() Options {
	return Options{MaxAttempts: 3, WaitAfterFinal: true}
}

type Refiner struct {
	log  *logger.Logger
	llm  Completer
	opts Options
}

func NewRefiner(log *logger.Logger, llm Completer, opts Options) *Refiner {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &Refiner{log: log.With("service", "SchemaRefiner"), llm: llm, opts: opts}
}

// Refine never fails: any error ends in a Degraded result carrying the seed.
func (r *Refiner) Refine(ctx context.Context, corpus string, seed domain.SeedRecord) Result {
	ctx = ctxutil.Default(ctx)
	vars := map[string]any{
		varText:        corpus,
		varInitialData: seed.JSON(),
	}

	m := newMachine(r.opts.MaxAttempts, r.opts.WaitAfterFinal)
	attempts := []domain.RefinementAttempt{}
	var lastErr error
	var record domain.ProposalRecord

	for !m.done() {
		switch m.state {
		case StateAttempting:
			n := m.attempt
			raw, err := r.llm.Complete(ctx, vars)
			if err != nil {
				if IsTransient(err) {
					lastErr = &domain.RefinementTransientError{Attempt: n, Err: err}
					m.transient()
					attempts = append(attempts, domain.RefinementAttempt{Number: n, Delay: m.delay, Outcome: domain.OutcomeRetryable, Err: err.Error()})
					r.log.Warn("generation service unavailable", "attempt", n, "max_attempts", m.max, "retry_in", m.delay.String(), "error", err)
					continue
				}
				lastErr = &domain.RefinementFatalError{Attempt: n, Err: err}
				m.fail()
				attempts = append(attempts, domain.RefinementAttempt{Number: n, Outcome: domain.OutcomeFatal, Err: err.Error()})
				r.log.Warn("generation failed", "attempt", n, "error", err)
				continue
			}
			rec, perr := ParseRecord(raw)
			if perr != nil {
				lastErr = &domain.RefinementFatalError{Attempt: n, Err: perr}
				m.fail()
				attempts = append(attempts, domain.RefinementAttempt{Number: n, Outcome: domain.OutcomeFatal, Err: perr.Error()})
				r.log.Warn("model response rejected", "attempt", n, "error", perr, "response", raw)
				continue
			}
			record = rec
			m.succeed()
			attempts = append(attempts, domain.RefinementAttempt{Number: n, Outcome: domain.OutcomeSuccess})

		case StateWaiting:
			if err := r.opts.Sleep(ctx, m.delay); err != nil {
				lastErr = errors.Join(lastErr, err)
				m.fail()
				continue
			}
			m.waited()
		}
	}

	switch m.state {
	case StateSucceeded:
		r.log.Info("proposal refined", "attempts", len(attempts))
		return Result{Kind: KindRefined, Record: &record, Seed: seed, Attempts: attempts}
	case StateExhausted:
		r.log.Error("generation retries exhausted; using preliminary record", "attempts", len(attempts), "error", lastErr)
	default:
		r.log.Warn("refinement degraded to preliminary record", "attempts", len(attempts), "error", lastErr)
	}
	return Result{Kind: KindDegraded, Seed: seed, Attempts: attempts, Err: lastErr}
}
