package services

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

// ImageSequence is an ordered set of image files. localmedia.FrameSet is one.
type ImageSequence interface {
	Images() ([]string, error)
}

// ImagePaths adapts a plain slice to ImageSequence.
type ImagePaths []string

func (p ImagePaths) Images() ([]string, error) { return p, nil }

// ImageOCR is satisfied by tesseract.Engine and gcp.Vision.
type ImageOCR interface {
	OCRImage(ctx context.Context, imagePath string) (string, error)
}

type OCRResult struct {
	Text       string `json:"text"`
	Recognized int    `json:"recognized"`
	Skipped    int    `json:"skipped"`
}

// FrameTextRecognizer reads text off still frames. Frames that fail to decode
// or to recognize are skipped and counted; they never fail the call.
type FrameTextRecognizer interface {
	Recognize(ctx context.Context, seq ImageSequence) (OCRResult, error)
}

type frameTextRecognizer struct {
	log      *logger.Logger
	ocr      ImageOCR
	provider string
}

func NewFrameTextRecognizer(log *logger.Logger, provider string, ocr ImageOCR) (FrameTextRecognizer, error) {
	if ocr == nil {
		return nil, fmt.Errorf("ocr backend required")
	}
	return &frameTextRecognizer{
		log:      log.With("service", "FrameTextRecognizer", "provider", provider),
		ocr:      ocr,
		provider: provider,
	}, nil
}

func (r *frameTextRecognizer) Recognize(ctx context.Context, seq ImageSequence) (OCRResult, error) {
	ctx = ctxutil.Default(ctx)
	if seq == nil {
		return OCRResult{}, nil
	}
	paths, err := seq.Images()
	if err != nil {
		return OCRResult{}, fmt.Errorf("list frames: %w", err)
	}

	var res OCRResult
	var b strings.Builder
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return OCRResult{}, err
		}
		text, ok := r.recognizeOne(ctx, p)
		if !ok {
			res.Skipped++
			continue
		}
		res.Recognized++
		b.WriteString(text)
		b.WriteString("\n")
	}
	res.Text = b.String()
	if res.Skipped > 0 {
		r.log.Warn("frames skipped during OCR", "skipped", res.Skipped, "recognized", res.Recognized)
	}
	return res, nil
}

func (r *frameTextRecognizer) recognizeOne(ctx context.Context, path string) (string, bool) {
	if err := decodable(path); err != nil {
		r.log.Debug("frame not decodable", "frame", path, "error", err.Error())
		return "", false
	}
	text, err := r.ocr.OCRImage(ctx, path)
	if err != nil {
		r.log.Debug("frame OCR failed", "frame", path, "error", err.Error())
		return "", false
	}
	return text, true
}

func decodable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	return err
}
