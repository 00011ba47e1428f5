package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"bingxTerminal/internal/domain"
	"bingxTerminal/internal/ports"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"

	// unavailableMessage is returned by Critique whenever the advisor cannot
	// produce an analysis. The dashboard shows it as-is.
	unavailableMessage = "AI analysis is unavailable. Check the advisor API key and connectivity."
)

// Advisor implements ports.StrategyAdvisor against the Gemini REST API.
// It is strictly advisory: every failure path degrades to a sentinel value
// and never disturbs the order state machine.
type Advisor struct {
	http   *resty.Client
	logger ports.Logger
	apiKey string
	model  string
}

// Config holds configuration specific to the Gemini advisor adapter.
type Config struct {
	APIKey  string // empty key puts the advisor in permanent-unavailable mode
	Model   string
	BaseURL string
	Timeout time.Duration
	Logger  ports.Logger
}

// New creates a new Gemini advisor adapter.
func New(cfg Config) (*Advisor, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Gemini advisor")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Advisor{
		http:   resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		logger: cfg.Logger,
		apiKey: cfg.APIKey,
		model:  model,
	}, nil
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// generate performs one generateContent call and returns the first text part.
func (a *Advisor) generate(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("%w: missing API key", ports.ErrAdvisorUnavailable)
	}

	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	if jsonOutput {
		req.GenerationConfig = &generationConfig{ResponseMimeType: "application/json"}
	}

	var out generateResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParam("key", a.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", a.model))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ports.ErrAdvisorUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("%w: HTTP %d", ports.ErrAdvisorUnavailable, resp.StatusCode())
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ports.ErrAdvisorUnavailable)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// Critique returns a human-readable risk assessment of the trade configuration.
// When the credential is absent or the remote call fails it returns a fixed
// unavailable message instead of an error.
func (a *Advisor) Critique(ctx context.Context, cfg domain.TradeConfig, currentPrice float64) string {
	prompt := fmt.Sprintf(`You are a professional crypto risk analyst.
Review the following pending-order setup for a BingX perpetual-futures bot:

Pair: %s
Current price: %v
Direction: %s
Entry price: %v
Leverage: %dx
Take profit: %v%%
Stop loss: %v%%
Position margin: %v USDT

1. Compute the resulting absolute TP and SL prices.
2. Assess the risk/reward ratio.
3. Give a strict critique of the setup (stop too tight for the volatility? leverage dangerous?).
4. Suggest small adjustments if needed.

Answer in at most 150 words as plain text with bullet points.`,
		cfg.Symbol, currentPrice, cfg.Side, cfg.EntryPrice, cfg.Leverage,
		cfg.TPPercent, cfg.SLPercent, cfg.AmountUSDT)

	text, err := a.generate(ctx, prompt, false)
	if err != nil {
		a.logger.Warn(ctx, "advisor critique failed", map[string]interface{}{"error": err.Error()})
		return unavailableMessage
	}
	if strings.TrimSpace(text) == "" {
		return unavailableMessage
	}
	return text
}

// Suggest proposes conservative scalping parameters for a market observation.
// Returns nil on missing credential, malformed response or remote failure.
func (a *Advisor) Suggest(ctx context.Context, observation string) (*ports.StrategySuggestion, error) {
	prompt := fmt.Sprintf(`Based on this market observation: %q,
suggest a conservative scalping strategy (TP %%, SL %%, leverage) for a BingX perpetual-futures bot.
Answer ONLY with a JSON object: { "tp": number, "sl": number, "leverage": number, "reasoning": "string" }.`,
		observation)

	text, err := a.generate(ctx, prompt, true)
	if err != nil {
		a.logger.Warn(ctx, "advisor suggestion failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	var suggestion ports.StrategySuggestion
	if err := json.Unmarshal([]byte(text), &suggestion); err != nil {
		a.logger.Warn(ctx, "advisor returned malformed suggestion", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: malformed suggestion: %w", ports.ErrAdvisorUnavailable, err)
	}
	return &suggestion, nil
}

// UnavailableMessage exposes the sentinel critique text for callers and tests.
func UnavailableMessage() string {
	return unavailableMessage
}
