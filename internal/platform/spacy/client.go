// Package spacy is a client for a small HTTP sidecar that serves a spaCy
// pipeline. The sidecar accepts {"text": "..."} on POST /ents and answers
// {"ents": [{"text","label","start","end"}]} with character offsets.
package spacy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

type Client interface {
	Entities(ctx context.Context, text string) ([]domain.Entity, error)
}

type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

type client struct {
	log        *logger.Logger
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing spacy base url")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &client{
		log:        log.With("service", "SpacyClient"),
		baseURL:    baseURL,
		model:      strings.TrimSpace(cfg.Model),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type entsRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type entsResponse struct {
	Ents []struct {
		Text  string `json:"text"`
		Label string `json:"label"`
		Start int    `json:"start"`
		End   int    `json:"end"`
	} `json:"ents"`
}

func (c *client) Entities(ctx context.Context, text string) ([]domain.Entity, error) {
	ctx = ctxutil.Default(ctx)
	body, err := json.Marshal(entsRequest{Text: text, Model: c.model})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ents", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spacy request: %w", err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("spacy http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out entsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("spacy decode error: %w", err)
	}

	offsets := runeToByteOffsets(text)
	ents := make([]domain.Entity, 0, len(out.Ents))
	for _, e := range out.Ents {
		ents = append(ents, domain.Entity{
			Text:  e.Text,
			Label: strings.ToUpper(strings.TrimSpace(e.Label)),
			Start: offsets(e.Start),
			End:   offsets(e.End),
		})
	}
	sort.SliceStable(ents, func(i, j int) bool { return ents[i].Start < ents[j].Start })
	return ents, nil
}

// runeToByteOffsets converts the sidecar's character offsets to byte offsets
// into text. Out-of-range offsets clamp to len(text).
func runeToByteOffsets(text string) func(int) int {
	idx := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		idx = append(idx, i)
	}
	idx = append(idx, len(text))
	return func(r int) int {
		if r < 0 {
			return 0
		}
		if r >= len(idx) {
			return len(text)
		}
		return idx[r]
	}
}
