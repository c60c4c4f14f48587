package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

// SpeechTranscriber turns a mono 16 kHz WAV file into plain text. One instance
// is built per process and shared across files.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// SpeechBackend is satisfied by openai.Client and gcp.Speech.
type SpeechBackend interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

type speechTranscriber struct {
	log      *logger.Logger
	backend  SpeechBackend
	provider string
}

func NewSpeechTranscriber(log *logger.Logger, provider string, backend SpeechBackend) (SpeechTranscriber, error) {
	if backend == nil {
		return nil, fmt.Errorf("speech backend required")
	}
	return &speechTranscriber{
		log:      log.With("service", "SpeechTranscriber", "provider", provider),
		backend:  backend,
		provider: provider,
	}, nil
}

func (s *speechTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	ctx = ctxutil.Default(ctx)
	start := time.Now()
	text, err := s.backend.Transcribe(ctx, audioPath)
	if err != nil {
		return "", &domain.TranscriptionError{Path: audioPath, Err: err}
	}
	s.log.Debug("audio transcribed",
		"audio", audioPath,
		"chars", len(text),
		"elapsed", time.Since(start).String(),
	)
	return text, nil
}
