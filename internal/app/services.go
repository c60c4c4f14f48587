package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/autodoc-backend/internal/config"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/corpus"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/entities"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/pipeline"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/refine"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
	"github.com/yungbote/autodoc-backend/internal/services"
)

type Services struct {
	Speech   services.SpeechTranscriber
	OCR      services.FrameTextRecognizer
	Docs     services.DocumentTextExtractor
	Corpus   *corpus.Assembler
	Entities *entities.Extractor
	Refiner  *refine.Refiner
	SpecText string
}

func wireServices(ctx context.Context, log *logger.Logger, cfg config.Config, c Clients) (Services, error) {
	log.Info("Wiring services...")
	var out Services
	var err error

	var speechBackend services.SpeechBackend = c.Whisper
	if c.GCPSpeech != nil {
		speechBackend = c.GCPSpeech
	}
	if out.Speech, err = services.NewSpeechTranscriber(log, cfg.Speech.Provider, speechBackend); err != nil {
		return Services{}, fmt.Errorf("init speech transcriber: %w", err)
	}

	var ocrBackend services.ImageOCR = c.Tesseract
	if c.GCPVision != nil {
		ocrBackend = c.GCPVision
	}
	if out.OCR, err = services.NewFrameTextRecognizer(log, cfg.OCR.Provider, ocrBackend); err != nil {
		return Services{}, fmt.Errorf("init frame ocr: %w", err)
	}

	var pdfOCR services.PDFOCR
	if c.DocAI != nil {
		pdfOCR = c.DocAI
	}
	out.Docs = services.NewDocumentTextExtractor(log, pdfOCR)

	if out.Corpus, err = corpus.NewAssembler(corpus.Deps{
		Log:    log,
		Media:  c.Media,
		Speech: out.Speech,
		OCR:    out.OCR,
		Docs:   out.Docs,
	}, corpus.Options{
		FrameInterval: cfg.FrameInterval(),
		Workers:       cfg.Pipeline.Workers,
	}); err != nil {
		return Services{}, err
	}

	var ner entities.Recognizer = c.Spacy
	if c.GCPLanguage != nil {
		ner = c.GCPLanguage
	}
	out.Entities = entities.NewExtractor(log, ner, entities.Options{StopAtFirstCardinal: cfg.NER.StopAtFirstCardinal})

	out.Refiner = refine.NewRefiner(log, c.LLM, refine.Options{
		MaxAttempts:    cfg.Refine.MaxAttempts,
		WaitAfterFinal: cfg.Refine.WaitAfterFinal,
	})

	if out.SpecText, err = loadSpecText(ctx, log, cfg.SpecPDF, out.Docs); err != nil {
		return Services{}, err
	}
	return out, nil
}

// loadSpecText extracts the static product PDF once per process.
func loadSpecText(ctx context.Context, log *logger.Logger, path string, docs services.DocumentTextExtractor) (string, error) {
	if strings.TrimSpace(path) == "" {
		log.Warn("no product specification configured; corpus starts empty")
		return "", nil
	}
	text, err := docs.ExtractPDF(ctx, path)
	if err != nil {
		return "", fmt.Errorf("load product specification: %w", err)
	}
	log.Info("product specification loaded", "path", path, "chars", len([]rune(text)))
	return text, nil
}

func wirePipeline(log *logger.Logger, cfg config.Config, s Services) (*pipeline.Pipeline, error) {
	return pipeline.New(pipeline.Deps{
		Log:      log,
		Corpus:   s.Corpus,
		Entities: s.Entities,
		Refiner:  s.Refiner,
		SpecText: s.SpecText,
	})
}
