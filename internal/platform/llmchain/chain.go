// Package llmchain wraps a langchaingo prompt template and LLM chain against
// an OpenAI-compatible chat completion endpoint (Groq by default).
package llmchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"
	"golang.org/x/time/rate"

	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "meta-llama/llama-4-maverick-17b-128e-instruct"
)

var ErrInvalidConfig = errors.New("invalid llm configuration")

// Temperature is used for every generation call.
const Temperature = 0.0

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// RequestsPerMinute bounds outgoing calls; zero disables the limiter.
	RequestsPerMinute int
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api key required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// Chain renders one template and sends it as a single generation call.
type Chain struct {
	log     *logger.Logger
	chain   *chains.LLMChain
	timeout time.Duration
	limiter *rate.Limiter
}

func New(log *logger.Logger, cfg Config, template string, inputVars []string) (*Chain, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	llm, err := openai.New(
		openai.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}
	prompt := prompts.NewPromptTemplate(template, inputVars)

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Chain{
		log:     log.With("service", "LLMChain", "model", cfg.Model),
		chain:   chains.NewLLMChain(llm, prompt),
		timeout: timeout,
		limiter: limiter,
	}, nil
}

// Complete fills the template with vars and returns the raw model text.
func (c *Chain) Complete(ctx context.Context, vars map[string]any) (string, error) {
	ctx = ctxutil.Default(ctx)
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	out, err := chains.Call(ctx, c.chain, vars, chains.WithTemperature(Temperature))
	if err != nil {
		return "", err
	}
	text, ok := out[c.chain.OutputKey].(string)
	if !ok {
		return "", fmt.Errorf("llm chain returned %T for %q", out[c.chain.OutputKey], c.chain.OutputKey)
	}
	c.log.Debug("generation finished", "elapsed", time.Since(start).String(), "response", text)
	return text, nil
}
