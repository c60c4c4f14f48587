package gcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	language "cloud.google.com/go/language/apiv2"
	"cloud.google.com/go/language/apiv2/languagepb"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

// Language runs Natural Language entity analysis and reports every mention
// with spaCy-style labels.
type Language interface {
	Entities(ctx context.Context, text string) ([]domain.Entity, error)
	Close() error
}

type LanguageConfig struct {
	Credentials  string
	LanguageCode string
	Timeout      time.Duration
	MaxRetries   int
}

type languageService struct {
	log    *logger.Logger
	client *language.Client
	cfg    LanguageConfig
}

func NewLanguage(ctx context.Context, log *logger.Logger, cfg LanguageConfig) (Language, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	c, err := language.NewClient(ctxutil.Default(ctx), ClientOptions(cfg.Credentials)...)
	if err != nil {
		return nil, fmt.Errorf("language client: %w", err)
	}
	return &languageService{log: log.With("service", "gcp.Language"), client: c, cfg: cfg}, nil
}

func (s *languageService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *languageService) Entities(ctx context.Context, text string) ([]domain.Entity, error) {
	if text == "" {
		return nil, nil
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req := &languagepb.AnalyzeEntitiesRequest{
		Document: &languagepb.Document{
			Source:       &languagepb.Document_Content{Content: text},
			Type:         languagepb.Document_PLAIN_TEXT,
			LanguageCode: s.cfg.LanguageCode,
		},
		EncodingType: languagepb.EncodingType_UTF8,
	}
	resp, err := withRetry(ctx, s.cfg.MaxRetries, func() (*languagepb.AnalyzeEntitiesResponse, error) {
		return s.client.AnalyzeEntities(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("language AnalyzeEntities: %w", err)
	}
	return mentionsToEntities(resp.GetEntities()), nil
}

func mentionsToEntities(ents []*languagepb.Entity) []domain.Entity {
	out := []domain.Entity{}
	for _, e := range ents {
		label := spacyLabel(e.GetType())
		if label == "" {
			continue
		}
		for _, m := range e.GetMentions() {
			span := m.GetText()
			if span == nil || span.Content == "" {
				continue
			}
			start := int(span.BeginOffset)
			out = append(out, domain.Entity{
				Text:  span.Content,
				Label: label,
				Start: start,
				End:   start + len(span.Content),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func spacyLabel(t languagepb.Entity_Type) string {
	switch t {
	case languagepb.Entity_ORGANIZATION:
		return domain.LabelOrg
	case languagepb.Entity_NUMBER:
		return domain.LabelCardinal
	case languagepb.Entity_PERSON:
		return "PERSON"
	case languagepb.Entity_LOCATION:
		return "LOC"
	case languagepb.Entity_PRICE:
		return "MONEY"
	case languagepb.Entity_DATE:
		return "DATE"
	default:
		return ""
	}
}
