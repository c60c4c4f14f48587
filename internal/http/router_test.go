package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/autodoc-backend/internal/domain"
	httpH "github.com/yungbote/autodoc-backend/internal/http/handlers"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/pipeline"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/refine"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

type fakeRunner struct {
	in       pipeline.Input
	existed  []bool
	contents []string
}

func (f *fakeRunner) Run(ctx context.Context, in pipeline.Input) (*pipeline.Run, error) {
	f.in = in
	for _, a := range in.Artifacts {
		b, err := os.ReadFile(a.Path)
		f.existed = append(f.existed, err == nil)
		f.contents = append(f.contents, string(b))
	}
	if len(in.Artifacts) == 0 && strings.TrimSpace(in.ManualText) == "" {
		return nil, domain.ErrEmptyInput
	}
	mode := pipeline.ModeFile
	if len(in.Artifacts) == 0 {
		mode = pipeline.ModeManual
	}
	n := 25
	return &pipeline.Run{
		ID:           "run-1",
		Mode:         mode,
		Filename:     mode.Filename(),
		CombinedText: "SPEC\n\n" + in.ManualText,
		Preliminary:  domain.SeedRecord{LicenseCount: &n},
		Result:       refine.Result{Kind: refine.KindDegraded, Seed: domain.SeedRecord{LicenseCount: &n}},
		ArtifactErrors: []*domain.ArtifactError{
			{Name: "x.mp3", Kind: domain.ArtifactAudio, Stage: "transcribe", Err: os.ErrNotExist},
		},
	}, nil
}

func newTestRouter(t *testing.T, runner *fakeRunner) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		Log:             logger.Nop(),
		HealthHandler:   httpH.NewHealthHandler(nil),
		ProposalHandler: httpH.NewProposalHandler(logger.Nop(), runner, t.TempDir(), 4),
	})
}

func multipartBody(t *testing.T, manual string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if manual != "" {
		if err := w.WriteField("manual_text", manual); err != nil {
			t.Fatal(err)
		}
	}
	for name, body := range files {
		fw, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, &fakeRunner{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: got %d %q", rec.Code, rec.Body.String())
	}
}

func TestCreateProposalManual(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestRouter(t, runner)
	body, ct := multipartBody(t, "necesitan 25 licencias", nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/proposals", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["filename"] != "variables_manual.json" || got["result_kind"] != "degraded" {
		t.Fatalf("response: got %v", got)
	}
	errs, _ := got["artifact_errors"].([]any)
	if len(errs) != 1 {
		t.Fatalf("artifact_errors: got %v", got["artifact_errors"])
	}
	if runner.in.ManualText != "necesitan 25 licencias" {
		t.Fatalf("manual text: got %q", runner.in.ManualText)
	}
}

func TestCreateProposalSavesUploads(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestRouter(t, runner)
	body, ct := multipartBody(t, "", map[string]string{"brief.pdf": "%PDF-1.4"})
	req := httptest.NewRequest(http.MethodPost, "/v1/proposals?download=1", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if len(runner.in.Artifacts) != 1 || runner.in.Artifacts[0].Kind != domain.ArtifactPDF {
		t.Fatalf("artifacts: got %+v", runner.in.Artifacts)
	}
	if !runner.existed[0] || runner.contents[0] != "%PDF-1.4" {
		t.Fatalf("upload not stored before run")
	}
	if _, err := os.Stat(runner.in.Artifacts[0].Path); !os.IsNotExist(err) {
		t.Fatalf("upload scratch should be removed after the run")
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "variables_propuesta.json") {
		t.Fatalf("content-disposition: got %q", cd)
	}
	if rec.Body.String() != "{\n  \"num_licencias\": 25\n}" {
		t.Fatalf("document: got %q", rec.Body.String())
	}
}

func TestCreateProposalRejectsUnsupportedFile(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestRouter(t, runner)
	body, ct := multipartBody(t, "", map[string]string{"notes.txt": "hola"})
	req := httptest.NewRequest(http.MethodPost, "/v1/proposals", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "unsupported_file") {
		t.Fatalf("want 400 unsupported_file got %d %s", rec.Code, rec.Body.String())
	}
	if runner.in.Artifacts != nil || runner.in.ManualText != "" {
		t.Fatalf("runner should not be called")
	}
}

func TestCreateProposalEmptyInput(t *testing.T) {
	r := newTestRouter(t, &fakeRunner{})
	body, ct := multipartBody(t, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/proposals", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "empty_input") {
		t.Fatalf("want 400 empty_input got %d %s", rec.Code, rec.Body.String())
	}
}
