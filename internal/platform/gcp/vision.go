package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

// Vision runs DOCUMENT_TEXT_DETECTION on single images.
type Vision interface {
	OCRImage(ctx context.Context, imagePath string) (string, error)
	Close() error
}

type VisionConfig struct {
	Credentials   string
	LanguageHints []string
	Timeout       time.Duration
	MaxRetries    int
}

type visionService struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
	cfg    VisionConfig
}

func NewVision(ctx context.Context, log *logger.Logger, cfg VisionConfig) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if len(cfg.LanguageHints) == 0 {
		cfg.LanguageHints = []string{"es"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	c, err := vision.NewImageAnnotatorClient(ctxutil.Default(ctx), ClientOptions(cfg.Credentials)...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &visionService{log: log.With("service", "gcp.Vision"), client: c, cfg: cfg}, nil
}

func (s *visionService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *visionService) OCRImage(ctx context.Context, imagePath string) (string, error) {
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(img) == 0 {
		return "", nil
	}

	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	br := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{{
		Image:        &visionpb.Image{Content: img},
		Features:     []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		ImageContext: &visionpb.ImageContext{LanguageHints: s.cfg.LanguageHints},
	}}}
	resp, err := withRetry(ctx, s.cfg.MaxRetries, func() (*visionpb.BatchAnnotateImagesResponse, error) {
		return s.client.BatchAnnotateImages(ctx, br)
	})
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	if r0.FullTextAnnotation == nil {
		return "", nil
	}
	return strings.TrimSpace(r0.FullTextAnnotation.Text), nil
}
