// Package corpus normalizes uploaded artifacts into one ordered text corpus.
package corpus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/localmedia"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
	"github.com/yungbote/autodoc-backend/internal/services"
)

// Media is the subset of localmedia.Tools the assembler drives.
type Media interface {
	ExtractAudio(ctx context.Context, videoPath string) (*localmedia.AudioHandle, error)
	ExtractFrames(ctx context.Context, videoPath string, interval time.Duration) (*localmedia.FrameSet, error)
}

type Deps struct {
	Log    *logger.Logger
	Media  Media
	Speech services.SpeechTranscriber
	OCR    services.FrameTextRecognizer
	Docs   services.DocumentTextExtractor
}

type Options struct {
	FrameInterval time.Duration
	// Workers bounds files processed at once. Output order never depends on it.
	Workers     int
	FileTimeout time.Duration
}

// Warning is a non-fatal problem inside a file that still produced a block.
type Warning struct {
	Name    string `json:"name"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

type Report struct {
	Corpus   *domain.Corpus
	Failed   []*domain.ArtifactError
	Warnings []Warning
}

type Assembler struct {
	deps Deps
	opts Options
	log  *logger.Logger
}

func NewAssembler(deps Deps, opts Options) (*Assembler, error) {
	if deps.Log == nil || deps.Media == nil || deps.Speech == nil || deps.OCR == nil || deps.Docs == nil {
		return nil, fmt.Errorf("corpus: missing deps")
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 5 * time.Second
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.FileTimeout <= 0 {
		opts.FileTimeout = 30 * time.Minute
	}
	return &Assembler{deps: deps, opts: opts, log: deps.Log.With("service", "CorpusAssembler")}, nil
}

type fileResult struct {
	text     string
	ok       bool
	failure  *domain.ArtifactError
	warnings []Warning
}

// Assemble converts every artifact to text in submission order. A failing
// file is left out and reported; only context cancellation fails the call.
func (a *Assembler) Assemble(ctx context.Context, specText string, artifacts []domain.Artifact, manualText string) (*Report, error) {
	ctx = ctxutil.Default(ctx)
	results := make([]fileResult, len(artifacts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i, art := range artifacts {
		i, art := i, art
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fileCtx, cancel := context.WithTimeout(gctx, a.opts.FileTimeout)
			defer cancel()
			results[i] = a.convert(fileCtx, art)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep := &Report{Corpus: domain.NewCorpus(specText), Failed: []*domain.ArtifactError{}, Warnings: []Warning{}}
	for i, r := range results {
		rep.Warnings = append(rep.Warnings, r.warnings...)
		if !r.ok {
			rep.Failed = append(rep.Failed, r.failure)
			continue
		}
		rep.Corpus.AppendFile(artifacts[i].Name, r.text)
	}
	if strings.TrimSpace(manualText) != "" {
		rep.Corpus.AppendManual(manualText)
	}
	a.log.Info("corpus assembled",
		"files", len(artifacts),
		"failed", len(rep.Failed),
		"warnings", len(rep.Warnings),
		"manual", strings.TrimSpace(manualText) != "",
	)
	return rep, nil
}

func (a *Assembler) convert(ctx context.Context, art domain.Artifact) fileResult {
	fail := func(stage string, err error) fileResult {
		a.log.Warn("file omitted from corpus", "file", art.Name, "kind", art.Kind, "stage", stage, "error", err)
		return fileResult{failure: &domain.ArtifactError{Name: art.Name, Kind: art.Kind, Stage: stage, Err: err}}
	}
	switch art.Kind {
	case domain.ArtifactAudio:
		text, err := a.deps.Speech.Transcribe(ctx, art.Path)
		if err != nil {
			return fail("transcribe", err)
		}
		return fileResult{text: text, ok: true}
	case domain.ArtifactVideo:
		return a.convertVideo(ctx, art, fail)
	case domain.ArtifactPDF:
		text, err := a.deps.Docs.ExtractPDF(ctx, art.Path)
		if err != nil {
			return fail("extract", err)
		}
		return fileResult{text: text, ok: true}
	case domain.ArtifactDOCX:
		text, err := a.deps.Docs.ExtractDOCX(ctx, art.Path)
		if err != nil {
			return fail("extract", err)
		}
		return fileResult{text: text, ok: true}
	default:
		return fail("dispatch", &domain.UnsupportedKindError{Name: art.Name, Ext: string(art.Kind)})
	}
}

func (a *Assembler) convertVideo(ctx context.Context, art domain.Artifact, fail func(string, error) fileResult) fileResult {
	audio, err := a.deps.Media.ExtractAudio(ctx, art.Path)
	if err != nil {
		a.release(art.Name, "audio", audio.Cleanup)
		return fail("extract_audio", err)
	}
	transcript, err := a.deps.Speech.Transcribe(ctx, audio.Path)
	a.release(art.Name, "audio", audio.Cleanup)
	if err != nil {
		return fail("transcribe", err)
	}

	res := fileResult{ok: true}
	slideText := ""
	frames, err := a.deps.Media.ExtractFrames(ctx, art.Path, a.opts.FrameInterval)
	if err != nil {
		res.warnings = append(res.warnings, Warning{Name: art.Name, Stage: "frames", Message: err.Error()})
	} else {
		ocr, oerr := a.deps.OCR.Recognize(ctx, frames)
		if oerr != nil {
			res.warnings = append(res.warnings, Warning{Name: art.Name, Stage: "ocr", Message: oerr.Error()})
		} else {
			slideText = ocr.Text
			if ocr.Skipped > 0 {
				res.warnings = append(res.warnings, Warning{Name: art.Name, Stage: "ocr", Message: fmt.Sprintf("%d of %d frames skipped", ocr.Skipped, ocr.Skipped+ocr.Recognized)})
			}
		}
	}
	a.release(art.Name, "frames", frames.Cleanup)

	for _, w := range res.warnings {
		a.log.Warn("video slide text degraded", "file", w.Name, "stage", w.Stage, "message", w.Message)
	}
	res.text = domain.VideoBlock(transcript, slideText)
	return res
}

func (a *Assembler) release(name, what string, cleanup func() error) {
	if err := cleanup(); err != nil {
		a.log.Warn("scratch cleanup failed", "file", name, "scratch", what, "error", err)
	}
}
