// Package entities derives the preliminary seed record from named entities
// found in the corpus.
package entities

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

// Recognizer is satisfied by the spaCy sidecar client and the Natural
// Language backend.
type Recognizer interface {
	Entities(ctx context.Context, text string) ([]domain.Entity, error)
}

type Options struct {
	// StopAtFirstCardinal leaves the license count unset when the first
	// CARDINAL does not parse, instead of trying later ones.
	StopAtFirstCardinal bool
}

type Extractor struct {
	log  *logger.Logger
	ner  Recognizer
	opts Options
}

func NewExtractor(log *logger.Logger, ner Recognizer, opts Options) *Extractor {
	return &Extractor{log: log.With("service", "EntityExtractor"), ner: ner, opts: opts}
}

// Extract runs recognition over the whole corpus. On a recognizer error the
// returned seed is empty and the error is handed back for reporting.
func (e *Extractor) Extract(ctx context.Context, corpus string) (domain.SeedRecord, error) {
	ctx = ctxutil.Default(ctx)
	ents, err := e.ner.Entities(ctx, corpus)
	if err != nil {
		e.log.Warn("entity recognition failed; continuing with empty seed", "error", err)
		return domain.SeedRecord{}, err
	}
	seed := SeedFromEntities(ents, e.opts)
	e.log.Debug("seed extracted", "entities", len(ents), "has_company", seed.CompanyName != nil, "has_licenses", seed.LicenseCount != nil)
	return seed, nil
}

// SeedFromEntities picks the first ORG and the first CARDINAL by position.
func SeedFromEntities(ents []domain.Entity, opts Options) domain.SeedRecord {
	sorted := make([]domain.Entity, len(ents))
	copy(sorted, ents)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var seed domain.SeedRecord
	cardinalSeen := false
	for _, ent := range sorted {
		switch ent.Label {
		case domain.LabelOrg:
			if seed.CompanyName == nil {
				name := strings.TrimSpace(ent.Text)
				seed.CompanyName = &name
			}
		case domain.LabelCardinal:
			if seed.LicenseCount != nil || (cardinalSeen && opts.StopAtFirstCardinal) {
				continue
			}
			cardinalSeen = true
			if n, ok := ParseCount(ent.Text); ok {
				seed.LicenseCount = &n
			}
		}
	}
	return seed
}

// ParseCount reads an integer written with optional thousands commas.
func ParseCount(s string) (int, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
