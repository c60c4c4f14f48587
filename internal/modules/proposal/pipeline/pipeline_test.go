package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/corpus"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/refine"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

type fakeAssembler struct {
	gotSpec   string
	gotManual string
	failed    []*domain.ArtifactError
}

func (f *fakeAssembler) Assemble(ctx context.Context, specText string, artifacts []domain.Artifact, manualText string) (*corpus.Report, error) {
	f.gotSpec, f.gotManual = specText, manualText
	c := domain.NewCorpus(specText)
	for _, a := range artifacts {
		c.AppendFile(a.Name, "texto de "+a.Name)
	}
	if strings.TrimSpace(manualText) != "" {
		c.AppendManual(manualText)
	}
	return &corpus.Report{Corpus: c, Failed: f.failed, Warnings: []corpus.Warning{}}, nil
}

type fakeEntities struct {
	seed domain.SeedRecord
	err  error
	got  string
}

func (f *fakeEntities) Extract(ctx context.Context, text string) (domain.SeedRecord, error) {
	f.got = text
	return f.seed, f.err
}

type fakeRefiner struct {
	result  refine.Result
	gotSeed domain.SeedRecord
}

func (f *fakeRefiner) Refine(ctx context.Context, text string, seed domain.SeedRecord) refine.Result {
	f.gotSeed = seed
	r := f.result
	r.Seed = seed
	return r
}

func newTestPipeline(t *testing.T, a *fakeAssembler, e *fakeEntities, r *fakeRefiner) *Pipeline {
	t.Helper()
	p, err := New(Deps{Log: logger.Nop(), Corpus: a, Entities: e, Refiner: r, SpecText: "SPEC"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestRunFileModeRefined(t *testing.T) {
	name := "Compañía <Ñandú>"
	rec := domain.ProposalRecord{CompanyName: name}
	rec.Normalize()
	a := &fakeAssembler{}
	e := &fakeEntities{seed: domain.SeedRecord{CompanyName: &name}}
	r := &fakeRefiner{result: refine.Result{Kind: refine.KindRefined, Record: &rec}}

	art, _ := domain.NewArtifact("brief.pdf", "/tmp/brief.pdf")
	run, err := newTestPipeline(t, a, e, r).Run(context.Background(), Input{Artifacts: []domain.Artifact{art}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Mode != ModeFile || run.Filename != "variables_propuesta.json" {
		t.Fatalf("mode: got %s %s", run.Mode, run.Filename)
	}
	if run.ID == "" {
		t.Fatalf("want run id")
	}
	if e.got != "SPEC\n\ntexto de brief.pdf\n" {
		t.Fatalf("entities input: got %q", e.got)
	}
	if r.gotSeed.CompanyName == nil || *r.gotSeed.CompanyName != name {
		t.Fatalf("refiner seed: got %+v", r.gotSeed)
	}

	doc, err := run.Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	s := string(doc)
	if !strings.Contains(s, `"nombre_empresa": "Compañía <Ñandú>"`) {
		t.Fatalf("document should keep non-ASCII and HTML literal: %s", s)
	}
	if !strings.Contains(s, "\n  \"emails\": \"\"") {
		t.Fatalf("document should be two-space indented: %s", s)
	}
	if !strings.Contains(s, `"requerimientos_y_desafios": []`) {
		t.Fatalf("lists should render as []: %s", s)
	}
}

func TestRunManualModeDegraded(t *testing.T) {
	n := 25
	a := &fakeAssembler{}
	e := &fakeEntities{seed: domain.SeedRecord{LicenseCount: &n}}
	r := &fakeRefiner{result: refine.Result{Kind: refine.KindDegraded}}

	run, err := newTestPipeline(t, a, e, r).Run(context.Background(), Input{ManualText: "necesitan 25 licencias"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Mode != ModeManual || run.Filename != "variables_manual.json" {
		t.Fatalf("mode: got %s %s", run.Mode, run.Filename)
	}
	if run.CombinedText != "SPEC\n\nnecesitan 25 licencias" {
		t.Fatalf("combined: got %q", run.CombinedText)
	}
	doc, err := run.Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	want := "{\n  \"num_licencias\": 25\n}"
	if string(doc) != want {
		t.Fatalf("document: want=%q got=%q", want, string(doc))
	}
}

func TestRunEntityFailureContinuesWithEmptySeed(t *testing.T) {
	e := &fakeEntities{err: errors.New("ner down")}
	r := &fakeRefiner{result: refine.Result{Kind: refine.KindDegraded}}
	run, err := newTestPipeline(t, &fakeAssembler{}, e, r).Run(context.Background(), Input{ManualText: "hola"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !r.gotSeed.IsEmpty() {
		t.Fatalf("seed: want empty got %+v", r.gotSeed)
	}
	if len(run.Warnings) != 1 || run.Warnings[0].Stage != "entities" {
		t.Fatalf("warnings: got %+v", run.Warnings)
	}
	doc, _ := run.Document()
	if string(doc) != "{}" {
		t.Fatalf("document: got %s", doc)
	}
}

func TestRunRejectsEmptyInput(t *testing.T) {
	p := newTestPipeline(t, &fakeAssembler{}, &fakeEntities{}, &fakeRefiner{})
	if _, err := p.Run(context.Background(), Input{ManualText: "  "}); !errors.Is(err, domain.ErrEmptyInput) {
		t.Fatalf("want ErrEmptyInput got %v", err)
	}
}
