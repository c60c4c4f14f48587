package app

import (
	"context"
	"fmt"

	"github.com/yungbote/autodoc-backend/internal/config"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/refine"
	"github.com/yungbote/autodoc-backend/internal/platform/gcp"
	"github.com/yungbote/autodoc-backend/internal/platform/llmchain"
	"github.com/yungbote/autodoc-backend/internal/platform/localmedia"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
	"github.com/yungbote/autodoc-backend/internal/platform/openai"
	"github.com/yungbote/autodoc-backend/internal/platform/spacy"
	"github.com/yungbote/autodoc-backend/internal/platform/tesseract"
)

// Clients holds the external backends. Only the configured provider of each
// concern is non-nil.
type Clients struct {
	Media localmedia.Tools

	Whisper   openai.Client
	GCPSpeech gcp.Speech

	Tesseract tesseract.Engine
	GCPVision gcp.Vision

	Spacy       spacy.Client
	GCPLanguage gcp.Language

	DocAI gcp.Document

	LLM *llmchain.Chain

	closers []func() error
}

func (c Clients) Close(log *logger.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Warn("client close failed", "error", err)
		}
	}
}

func wireClients(ctx context.Context, log *logger.Logger, cfg config.Config) (Clients, error) {
	var c Clients
	fail := func(err error) (Clients, error) {
		c.Close(log)
		return Clients{}, err
	}

	log.Info("Wiring clients...", "speech", cfg.Speech.Provider, "ocr", cfg.OCR.Provider, "ner", cfg.NER.Provider, "docai", cfg.DocAI.Enabled)
	c.Media = localmedia.New(log, localmedia.Options{
		FFmpegPath:  cfg.Media.FFmpeg,
		FFprobePath: cfg.Media.FFprobe,
		WorkRoot:    cfg.WorkDir,
		Timeout:     cfg.MediaTimeout(),
	})

	switch cfg.Speech.Provider {
	case "gcp":
		s, err := gcp.NewSpeech(ctx, log, gcp.SpeechConfig{
			Credentials:          cfg.GCP.Credentials,
			LanguageCode:         cfg.Speech.LanguageCode,
			AlternativeLanguages: cfg.AltLanguageCodes(),
		})
		if err != nil {
			return fail(fmt.Errorf("init gcp speech: %w", err))
		}
		c.GCPSpeech = s
		c.closers = append(c.closers, s.Close)
	default:
		w, err := openai.NewClient(log, openai.Config{
			BaseURL:  cfg.Speech.BaseURL,
			APIKey:   cfg.Speech.APIKey,
			Model:    cfg.Speech.Model,
			Language: cfg.Speech.Language,
		})
		if err != nil {
			return fail(fmt.Errorf("init whisper client: %w", err))
		}
		c.Whisper = w
	}

	switch cfg.OCR.Provider {
	case "gcp":
		v, err := gcp.NewVision(ctx, log, gcp.VisionConfig{Credentials: cfg.GCP.Credentials})
		if err != nil {
			return fail(fmt.Errorf("init gcp vision: %w", err))
		}
		c.GCPVision = v
		c.closers = append(c.closers, v.Close)
	default:
		c.Tesseract = tesseract.New(log, tesseract.Options{BinaryPath: cfg.OCR.Tesseract, Language: cfg.OCR.Language})
	}

	switch cfg.NER.Provider {
	case "gcp":
		l, err := gcp.NewLanguage(ctx, log, gcp.LanguageConfig{Credentials: cfg.GCP.Credentials})
		if err != nil {
			return fail(fmt.Errorf("init gcp language: %w", err))
		}
		c.GCPLanguage = l
		c.closers = append(c.closers, l.Close)
	default:
		s, err := spacy.NewClient(log, spacy.Config{BaseURL: cfg.NER.BaseURL, Model: cfg.NER.Model})
		if err != nil {
			return fail(fmt.Errorf("init spacy client: %w", err))
		}
		c.Spacy = s
	}

	if cfg.DocAI.Enabled {
		d, err := gcp.NewDocument(ctx, log, gcp.DocumentConfig{
			Credentials: cfg.GCP.Credentials,
			ProjectID:   cfg.DocAI.ProjectID,
			Location:    cfg.DocAI.Location,
			ProcessorID: cfg.DocAI.ProcessorID,
		})
		if err != nil {
			return fail(fmt.Errorf("init document ai: %w", err))
		}
		c.DocAI = d
		c.closers = append(c.closers, d.Close)
	}

	llm, err := llmchain.New(log, llmchain.Config{
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		Timeout:           cfg.LLMTimeout(),
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	}, refine.PromptTemplate, refine.PromptVariables())
	if err != nil {
		return fail(fmt.Errorf("init llm chain: %w", err))
	}
	c.LLM = llm
	return c, nil
}
