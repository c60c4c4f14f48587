package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/http/response"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/corpus"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/pipeline"
	"github.com/yungbote/autodoc-backend/internal/platform/apierr"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

type ProposalRunner interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Run, error)
}

type ProposalHandler struct {
	log            *logger.Logger
	runner         ProposalRunner
	workDir        string
	maxUploadBytes int64
}

func NewProposalHandler(log *logger.Logger, runner ProposalRunner, workDir string, maxUploadMB int) *ProposalHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 512
	}
	return &ProposalHandler{
		log:            log.With("handler", "ProposalHandler"),
		runner:         runner,
		workDir:        workDir,
		maxUploadBytes: int64(maxUploadMB) << 20,
	}
}

type artifactErrorView struct {
	Name    string              `json:"name"`
	Kind    domain.ArtifactKind `json:"kind"`
	Stage   string              `json:"stage"`
	Message string              `json:"message"`
}

type proposalResponse struct {
	RunID          string                     `json:"run_id"`
	Mode           pipeline.Mode              `json:"mode"`
	Filename       string                     `json:"filename"`
	CombinedText   string                     `json:"combined_text"`
	Preliminary    domain.SeedRecord          `json:"preliminary"`
	ResultKind     string                     `json:"result_kind"`
	Record         any                        `json:"record"`
	Attempts       []domain.RefinementAttempt `json:"attempts"`
	ArtifactErrors []artifactErrorView        `json:"artifact_errors"`
	Warnings       []corpus.Warning           `json:"warnings"`
}

// POST /v1/proposals
//
// multipart fields: files (repeatable), manual_text. ?download=1 answers with
// the record document as an attachment.
func (h *ProposalHandler) Create(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	manual := ""
	var uploads []*multipart.FileHeader
	form, err := c.MultipartForm()
	switch {
	case err == nil:
		uploads = append(uploads, form.File["files"]...)
		uploads = append(uploads, form.File["files[]"]...)
		if v := form.Value["manual_text"]; len(v) > 0 {
			manual = v[0]
		}
	case errors.Is(err, http.ErrNotMultipart):
		manual = c.PostForm("manual_text")
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "upload_too_large", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_form", err)
		return
	}

	for _, fh := range uploads {
		if _, err := domain.KindFromFilename(fh.Filename); err != nil {
			response.RespondAPIError(c, apierr.BadRequest("unsupported_file", fmt.Errorf("%w; accepted: %s", err, strings.Join(domain.SupportedExtensions(), " "))))
			return
		}
	}

	scratch, err := h.scratchDir()
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "scratch_failed", err)
		return
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			h.log.Warn("upload scratch cleanup failed", "dir", scratch, "error", err)
		}
	}()

	artifacts := make([]domain.Artifact, 0, len(uploads))
	for i, fh := range uploads {
		name := filepath.Base(fh.Filename)
		dst := filepath.Join(scratch, fmt.Sprintf("%03d_%s", i, name))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			response.RespondError(c, http.StatusInternalServerError, "save_upload_failed", err)
			return
		}
		art, err := domain.NewArtifact(name, dst)
		if err != nil {
			response.RespondAPIError(c, apierr.BadRequest("unsupported_file", err))
			return
		}
		artifacts = append(artifacts, art)
	}

	run, err := h.runner.Run(c.Request.Context(), pipeline.Input{Artifacts: artifacts, ManualText: manual})
	if err != nil {
		if errors.Is(err, domain.ErrEmptyInput) {
			response.RespondAPIError(c, apierr.BadRequest("empty_input", err))
			return
		}
		_ = c.Error(err)
		response.RespondAPIError(c, err)
		return
	}

	if c.Query("download") == "1" {
		doc, err := run.Document()
		if err != nil {
			response.RespondError(c, http.StatusInternalServerError, "render_failed", err)
			return
		}
		response.RespondAttachment(c, run.Filename, doc)
		return
	}
	response.RespondOK(c, toResponse(run))
}

func (h *ProposalHandler) scratchDir() (string, error) {
	root := h.workDir
	if root == "" {
		root = filepath.Join(os.TempDir(), "autodoc-uploads")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(root, "upload-*")
}

func toResponse(run *pipeline.Run) proposalResponse {
	errs := make([]artifactErrorView, 0, len(run.ArtifactErrors))
	for _, e := range run.ArtifactErrors {
		msg := ""
		if e.Err != nil {
			msg = e.Err.Error()
		}
		errs = append(errs, artifactErrorView{Name: e.Name, Kind: e.Kind, Stage: e.Stage, Message: msg})
	}
	warnings := run.Warnings
	if warnings == nil {
		warnings = []corpus.Warning{}
	}
	attempts := run.Result.Attempts
	if attempts == nil {
		attempts = []domain.RefinementAttempt{}
	}
	return proposalResponse{
		RunID:          run.ID,
		Mode:           run.Mode,
		Filename:       run.Filename,
		CombinedText:   run.CombinedText,
		Preliminary:    run.Preliminary,
		ResultKind:     string(run.Result.Kind),
		Record:         run.Result.Value(),
		Attempts:       attempts,
		ArtifactErrors: errs,
		Warnings:       warnings,
	}
}
