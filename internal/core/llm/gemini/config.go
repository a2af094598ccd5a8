package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/pbb-arrears-tracker/constants"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/retry"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

// Config for the Gemini client.
type Config struct {
	APIKey      string        // if empty, falls back to env GEMINI_API_KEY
	Model       string        // e.g., "gemini-2.5-flash"
	Temperature float32       // 0..2
	Timeout     time.Duration // per-attempt deadline
	Years       entity.YearRange
	Retry       retry.Policy
}

// generator is the slice of *genai.GenerativeModel the client uses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Extractor against the Gemini API.
type Client struct {
	cfg    Config
	genai  *genai.Client
	model  generator
	logger *slog.Logger
}

// NewClient dials Gemini with cfg.APIKey and prepares a model with the arrears
// system instruction and response schema.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not found")
	}
	cfg = withDefaults(cfg)

	gc, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := gc.GenerativeModel(cfg.Model)
	configureModel(model, cfg)

	c := newClient(model, cfg, logger)
	c.genai = gc
	return c, nil
}

func newClient(model generator, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    withDefaults(cfg),
		model:  model,
		logger: logger,
	}
}

func withDefaults(cfg Config) Config {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if !cfg.Years.Valid() {
		cfg.Years = entity.YearRange{Start: constants.DefaultStartYear, End: constants.DefaultEndYear}
	}
	if cfg.Retry.MaxAttempts == 0 && cfg.Retry.InitialDelay == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	return cfg
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.genai == nil {
		return nil
	}
	return c.genai.Close()
}

// ConfigFrom maps the application configuration onto a client Config.
func ConfigFrom(c *common.Config) Config {
	p := retry.DefaultPolicy()
	if c.LLM.MaxAttempts > 0 {
		p.MaxAttempts = c.LLM.MaxAttempts
	}
	if c.LLM.InitialBackoff > 0 {
		p.InitialDelay = c.LLM.InitialBackoff
	}
	return Config{
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		Temperature: c.LLM.Temperature,
		Timeout:     c.LLM.Timeout,
		Years:       c.Years(),
		Retry:       p,
	}
}
