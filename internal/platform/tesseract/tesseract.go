package tesseract

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

// Engine shells out to the tesseract CLI, one process per image.
type Engine interface {
	AssertReady(ctx context.Context) error
	OCRImage(ctx context.Context, imagePath string) (string, error)
}

type Options struct {
	BinaryPath string
	Language   string
	Timeout    time.Duration
}

type engine struct {
	log  *logger.Logger
	opts Options
}

func New(log *logger.Logger, opts Options) Engine {
	if opts.BinaryPath == "" {
		opts.BinaryPath = "tesseract"
	}
	if opts.Language == "" {
		opts.Language = "spa"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &engine{log: log.With("service", "Tesseract"), opts: opts}
}

func (e *engine) AssertReady(ctx context.Context) error {
	if _, err := exec.LookPath(e.opts.BinaryPath); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", e.opts.BinaryPath, err)
	}
	return nil
}

func (e *engine) OCRImage(ctx context.Context, imagePath string) (string, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.opts.BinaryPath, imagePath, "stdout", "-l", e.opts.Language)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w; stderr=%s", imagePath, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)), nil
}
