// Package config loads runtime settings: defaults, then an optional YAML
// file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Env      string `koanf:"env"`
	LogMode  string `koanf:"log_mode"`
	LogLevel string `koanf:"log_level"`

	// SpecPDF is the static product specification prepended to every corpus.
	SpecPDF string `koanf:"spec_pdf"`
	WorkDir string `koanf:"work_dir"`

	HTTP     HTTPConfig     `koanf:"http"`
	Media    MediaConfig    `koanf:"media"`
	Speech   SpeechConfig   `koanf:"speech"`
	OCR      OCRConfig      `koanf:"ocr"`
	NER      NERConfig      `koanf:"ner"`
	DocAI    DocAIConfig    `koanf:"docai"`
	GCP      GCPConfig      `koanf:"gcp"`
	LLM      LLMConfig      `koanf:"llm"`
	Refine   RefineConfig   `koanf:"refine"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Otel     OtelConfig     `koanf:"otel"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
	// CORSOrigins is a comma-separated allow list; "*" allows any origin.
	CORSOrigins string `koanf:"cors_origins"`
	MaxUploadMB int    `koanf:"max_upload_mb"`
}

type MediaConfig struct {
	FFmpeg               string  `koanf:"ffmpeg"`
	FFprobe              string  `koanf:"ffprobe"`
	FrameIntervalSeconds float64 `koanf:"frame_interval_seconds"`
	TimeoutSeconds       int     `koanf:"timeout_seconds"`
}

type SpeechConfig struct {
	Provider string `koanf:"provider"`
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
	Model    string `koanf:"model"`
	// Language is empty for auto detection on the whisper backend.
	Language         string `koanf:"language"`
	LanguageCode     string `koanf:"language_code"`
	AltLanguageCodes string `koanf:"alt_language_codes"`
}

type OCRConfig struct {
	Provider  string `koanf:"provider"`
	Tesseract string `koanf:"tesseract"`
	Language  string `koanf:"language"`
}

type NERConfig struct {
	Provider            string `koanf:"provider"`
	BaseURL             string `koanf:"base_url"`
	Model               string `koanf:"model"`
	StopAtFirstCardinal bool   `koanf:"stop_at_first_cardinal"`
}

type DocAIConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ProjectID   string `koanf:"project_id"`
	Location    string `koanf:"location"`
	ProcessorID string `koanf:"processor_id"`
}

type GCPConfig struct {
	// Credentials is a JSON key or a path to one; empty uses ADC.
	Credentials string `koanf:"credentials"`
}

type LLMConfig struct {
	BaseURL           string `koanf:"base_url"`
	APIKey            string `koanf:"api_key"`
	Model             string `koanf:"model"`
	TimeoutSeconds    int    `koanf:"timeout_seconds"`
	RequestsPerMinute int    `koanf:"requests_per_minute"`
}

type RefineConfig struct {
	MaxAttempts    int  `koanf:"max_attempts"`
	WaitAfterFinal bool `koanf:"wait_after_final"`
}

type PipelineConfig struct {
	Workers int `koanf:"workers"`
}

type OtelConfig struct {
	Enabled     bool    `koanf:"enabled"`
	ServiceName string  `koanf:"service_name"`
	Endpoint    string  `koanf:"endpoint"`
	Headers     string  `koanf:"headers"`
	Insecure    bool    `koanf:"insecure"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

func Default() Config {
	return Config{
		Env:      "development",
		LogMode:  "development",
		LogLevel: "info",
		SpecPDF:  "assets/spec/monday_spec.pdf",
		WorkDir:  "",
		HTTP:     HTTPConfig{Addr: ":8080", CORSOrigins: "http://localhost:5173", MaxUploadMB: 512},
		Media:    MediaConfig{FFmpeg: "ffmpeg", FFprobe: "ffprobe", FrameIntervalSeconds: 5, TimeoutSeconds: 600},
		Speech: SpeechConfig{
			Provider:         "whisper",
			BaseURL:          "http://localhost:9000/v1",
			Model:            "base",
			LanguageCode:     "es-ES",
			AltLanguageCodes: "en-US",
		},
		OCR:      OCRConfig{Provider: "tesseract", Tesseract: "tesseract", Language: "spa"},
		NER:      NERConfig{Provider: "spacy", BaseURL: "http://localhost:8090", Model: "es_core_news_sm"},
		DocAI:    DocAIConfig{Location: "us"},
		LLM:      LLMConfig{BaseURL: "https://api.groq.com/openai/v1", Model: "meta-llama/llama-4-maverick-17b-128e-instruct", TimeoutSeconds: 120},
		Refine:   RefineConfig{MaxAttempts: 3, WaitAfterFinal: true},
		Pipeline: PipelineConfig{Workers: 1},
		Otel:     OtelConfig{ServiceName: "autodoc", SampleRatio: 0.1},
	}
}

// envKeys maps the supported environment variables onto config paths.
var envKeys = map[string]string{
	"APP_ENV":                     "env",
	"LOG_MODE":                    "log_mode",
	"LOG_LEVEL":                   "log_level",
	"SPEC_PDF_PATH":               "spec_pdf",
	"AUTODOC_WORK_DIR":            "work_dir",
	"HTTP_ADDR":                   "http.addr",
	"CORS_ORIGINS":                "http.cors_origins",
	"MAX_UPLOAD_MB":               "http.max_upload_mb",
	"FFMPEG_PATH":                 "media.ffmpeg",
	"FFPROBE_PATH":                "media.ffprobe",
	"FRAME_INTERVAL_SECONDS":      "media.frame_interval_seconds",
	"MEDIA_TIMEOUT_SECONDS":       "media.timeout_seconds",
	"SPEECH_PROVIDER":             "speech.provider",
	"WHISPER_BASE_URL":            "speech.base_url",
	"WHISPER_API_KEY":             "speech.api_key",
	"WHISPER_MODEL":               "speech.model",
	"WHISPER_LANGUAGE":            "speech.language",
	"SPEECH_LANGUAGE_CODE":        "speech.language_code",
	"SPEECH_ALT_LANGUAGE_CODES":   "speech.alt_language_codes",
	"OCR_PROVIDER":                "ocr.provider",
	"TESSERACT_PATH":              "ocr.tesseract",
	"OCR_LANGUAGE":                "ocr.language",
	"NER_PROVIDER":                "ner.provider",
	"SPACY_BASE_URL":              "ner.base_url",
	"SPACY_MODEL":                 "ner.model",
	"NER_STOP_AT_FIRST_CARDINAL":  "ner.stop_at_first_cardinal",
	"DOCAI_ENABLED":               "docai.enabled",
	"DOCAI_PROJECT_ID":            "docai.project_id",
	"DOCAI_LOCATION":              "docai.location",
	"DOCAI_PROCESSOR_ID":          "docai.processor_id",
	"GCP_CREDENTIALS":             "gcp.credentials",
	"LLM_BASE_URL":                "llm.base_url",
	"GROQ_API_KEY":                "llm.api_key",
	"LLM_MODEL":                   "llm.model",
	"LLM_TIMEOUT_SECONDS":         "llm.timeout_seconds",
	"LLM_REQUESTS_PER_MINUTE":     "llm.requests_per_minute",
	"REFINE_MAX_ATTEMPTS":         "refine.max_attempts",
	"REFINE_WAIT_AFTER_FINAL":     "refine.wait_after_final",
	"PIPELINE_WORKERS":            "pipeline.workers",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_EXPORTER_OTLP_HEADERS":  "otel.headers",
	"OTEL_EXPORTER_OTLP_INSECURE": "otel.insecure",
	"OTEL_SAMPLER_RATIO":          "otel.sample_ratio",
}

// Load reads configPath (if non-empty, falling back to $AUTODOC_CONFIG) and
// the environment on top of Default().
//
// Precedence, highest first: environment variables, YAML file, defaults.
func Load(configPath string) (Config, error) {
	k := koanf.New(".")
	if strings.TrimSpace(configPath) == "" {
		configPath = strings.TrimSpace(os.Getenv("AUTODOC_CONFIG"))
	}
	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config file %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	return os.ReadFile(path)
}

func normalize(c *Config) {
	c.Speech.Provider = strings.ToLower(strings.TrimSpace(c.Speech.Provider))
	c.OCR.Provider = strings.ToLower(strings.TrimSpace(c.OCR.Provider))
	c.NER.Provider = strings.ToLower(strings.TrimSpace(c.NER.Provider))
}

func (c Config) Validate() error {
	var errs []error
	switch c.Speech.Provider {
	case "whisper", "gcp":
	default:
		errs = append(errs, fmt.Errorf("speech.provider %q: want whisper or gcp", c.Speech.Provider))
	}
	switch c.OCR.Provider {
	case "tesseract", "gcp":
	default:
		errs = append(errs, fmt.Errorf("ocr.provider %q: want tesseract or gcp", c.OCR.Provider))
	}
	switch c.NER.Provider {
	case "spacy", "gcp":
	default:
		errs = append(errs, fmt.Errorf("ner.provider %q: want spacy or gcp", c.NER.Provider))
	}
	if c.Media.FrameIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("media.frame_interval_seconds must be > 0"))
	}
	if c.Refine.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("refine.max_attempts must be >= 1"))
	}
	if c.Pipeline.Workers < 1 {
		errs = append(errs, fmt.Errorf("pipeline.workers must be >= 1"))
	}
	if c.DocAI.Enabled && (c.DocAI.ProjectID == "" || c.DocAI.ProcessorID == "") {
		errs = append(errs, fmt.Errorf("docai requires project_id and processor_id"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func (c Config) FrameInterval() time.Duration {
	return time.Duration(c.Media.FrameIntervalSeconds * float64(time.Second))
}

func (c Config) MediaTimeout() time.Duration {
	return time.Duration(c.Media.TimeoutSeconds) * time.Second
}

func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// AltLanguageCodes splits the comma-separated list.
func (c Config) AltLanguageCodes() []string {
	return splitList(c.Speech.AltLanguageCodes)
}

func (c Config) AllowedOrigins() []string {
	return splitList(c.HTTP.CORSOrigins)
}

func splitList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
