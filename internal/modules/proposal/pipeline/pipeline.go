// Package pipeline runs one proposal extraction end to end: corpus assembly,
// preliminary entity extraction and schema-constrained refinement.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/corpus"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/refine"
	"github.com/yungbote/autodoc-backend/internal/observability"
	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

type Mode string

const (
	ModeFile   Mode = "file"
	ModeManual Mode = "manual"
)

// Filename is the output document name for an entry mode.
func (m Mode) Filename() string {
	if m == ModeManual {
		return "variables_manual.json"
	}
	return "variables_propuesta.json"
}

type Assembler interface {
	Assemble(ctx context.Context, specText string, artifacts []domain.Artifact, manualText string) (*corpus.Report, error)
}

type SeedExtractor interface {
	Extract(ctx context.Context, corpus string) (domain.SeedRecord, error)
}

type Refiner interface {
	Refine(ctx context.Context, corpus string, seed domain.SeedRecord) refine.Result
}

type Deps struct {
	Log      *logger.Logger
	Corpus   Assembler
	Entities SeedExtractor
	Refiner  Refiner
	// SpecText is the static product specification, extracted once per process.
	SpecText string
}

type Input struct {
	Artifacts  []domain.Artifact
	ManualText string
}

type Run struct {
	ID             string                  `json:"run_id"`
	Mode           Mode                    `json:"mode"`
	Filename       string                  `json:"filename"`
	CombinedText   string                  `json:"combined_text"`
	Preliminary    domain.SeedRecord       `json:"preliminary"`
	Result         refine.Result           `json:"-"`
	ArtifactErrors []*domain.ArtifactError `json:"artifact_errors"`
	Warnings       []corpus.Warning        `json:"warnings"`
	StartedAt      time.Time               `json:"started_at"`
	FinishedAt     time.Time               `json:"finished_at"`
}

// Document renders the final record: UTF-8, two-space indent, no HTML escaping.
func (r *Run) Document() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Result.Value()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type Pipeline struct {
	deps Deps
	log  *logger.Logger
}

func New(deps Deps) (*Pipeline, error) {
	if deps.Log == nil || deps.Corpus == nil || deps.Entities == nil || deps.Refiner == nil {
		return nil, fmt.Errorf("pipeline: missing deps")
	}
	return &Pipeline{deps: deps, log: deps.Log.With("service", "ProposalPipeline")}, nil
}

// Run fails only on empty input or cancellation. Per-file and refinement
// failures are carried in the returned Run.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Run, error) {
	ctx = ctxutil.Default(ctx)
	if len(in.Artifacts) == 0 && strings.TrimSpace(in.ManualText) == "" {
		return nil, domain.ErrEmptyInput
	}
	mode := ModeFile
	if len(in.Artifacts) == 0 {
		mode = ModeManual
	}
	run := &Run{
		ID:        uuid.NewString(),
		Mode:      mode,
		Filename:  mode.Filename(),
		StartedAt: time.Now().UTC(),
	}
	log := p.log.With("run_id", run.ID, "mode", string(mode))
	if rid := ctxutil.RequestID(ctx); rid != "" {
		log = log.With("request_id", rid)
	}

	ctx, span := observability.StartSpan(ctx, "proposal.run",
		attribute.String("run.id", run.ID),
		attribute.String("run.mode", string(mode)),
		attribute.Int("run.files", len(in.Artifacts)),
	)
	defer span.End()

	actx, aspan := observability.StartSpan(ctx, "proposal.corpus")
	rep, err := p.deps.Corpus.Assemble(actx, p.deps.SpecText, in.Artifacts, in.ManualText)
	if err != nil {
		aspan.RecordError(err)
		aspan.SetStatus(codes.Error, "assemble")
		aspan.End()
		span.SetStatus(codes.Error, "assemble")
		return nil, fmt.Errorf("assemble corpus: %w", err)
	}
	aspan.SetAttributes(attribute.Int("corpus.failed", len(rep.Failed)))
	aspan.End()
	run.CombinedText = rep.Corpus.String()
	run.ArtifactErrors = rep.Failed
	run.Warnings = rep.Warnings

	ectx, espan := observability.StartSpan(ctx, "proposal.entities")
	seed, err := p.deps.Entities.Extract(ectx, run.CombinedText)
	if err != nil {
		espan.RecordError(err)
		run.Warnings = append(run.Warnings, corpus.Warning{Name: "corpus", Stage: "entities", Message: err.Error()})
		seed = domain.SeedRecord{}
	}
	espan.End()
	run.Preliminary = seed

	rctx, rspan := observability.StartSpan(ctx, "proposal.refine")
	run.Result = p.deps.Refiner.Refine(rctx, run.CombinedText, seed)
	rspan.SetAttributes(
		attribute.String("refine.kind", string(run.Result.Kind)),
		attribute.Int("refine.attempts", len(run.Result.Attempts)),
	)
	if run.Result.Err != nil {
		rspan.RecordError(run.Result.Err)
	}
	rspan.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	run.FinishedAt = time.Now().UTC()
	log.Info("proposal run finished",
		"files", len(in.Artifacts),
		"failed_files", len(run.ArtifactErrors),
		"result", string(run.Result.Kind),
		"attempts", len(run.Result.Attempts),
		"elapsed", run.FinishedAt.Sub(run.StartedAt).String(),
	)
	return run, nil
}
