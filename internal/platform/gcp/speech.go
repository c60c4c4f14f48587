package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

// Speech transcribes 16 kHz mono LINEAR16 WAV files with Cloud Speech.
type Speech interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
	Close() error
}

type SpeechConfig struct {
	Credentials string
	// LanguageCode is the primary guess; AlternativeLanguages let the service
	// pick another one per utterance.
	LanguageCode         string
	AlternativeLanguages []string
	Model                string
	SampleRateHz         int
	Timeout              time.Duration
	MaxRetries           int
}

type speechService struct {
	log    *logger.Logger
	client *speech.Client
	cfg    SpeechConfig
}

func NewSpeech(ctx context.Context, log *logger.Logger, cfg SpeechConfig) (Speech, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "es-ES"
	}
	if cfg.AlternativeLanguages == nil {
		cfg.AlternativeLanguages = []string{"en-US"}
	}
	if cfg.SampleRateHz <= 0 {
		cfg.SampleRateHz = 16000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Minute
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	c, err := speech.NewClient(ctxutil.Default(ctx), ClientOptions(cfg.Credentials)...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	slog := log.With("service", "gcp.Speech")
	slog.Info("Cloud Speech initialized", "language", cfg.LanguageCode, "alternatives", cfg.AlternativeLanguages)
	return &speechService{log: slog, client: c, cfg: cfg}, nil
}

func (s *speechService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *speechService) Transcribe(ctx context.Context, audioPath string) (string, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(s.cfg.SampleRateHz),
			AudioChannelCount:          1,
			LanguageCode:               s.cfg.LanguageCode,
			AlternativeLanguageCodes:   s.cfg.AlternativeLanguages,
			Model:                      s.cfg.Model,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	}

	resp, err := withRetry(ctx, s.cfg.MaxRetries, func() (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := s.client.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("speech LongRunningRecognize: %w", err)
	}
	return joinSpeechResults(resp.GetResults()), nil
}

func joinSpeechResults(results []*speechpb.SpeechRecognitionResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
