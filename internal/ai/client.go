// Package ai generates stock-symbol lists from strategy prompts through the
// configured text platform (deepseek, openai, or claude), with a 24 hour
// settings-backed cache.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Supported platforms.
const (
	PlatformDeepSeek = "deepseek"
	PlatformOpenAI   = "openai"
	PlatformClaude   = "claude"

	DefaultPlatform = PlatformDeepSeek
)

// Credential setting row names, one per platform.
const (
	CredentialDeepSeek = "DeepSeek"
	CredentialOpenAI   = "OpenAI"
	CredentialClaude   = "Claude"
)

const stockListSystemPrompt = "You are a financial analyst. Given an investment strategy prompt, " +
	"provide a list of stock symbols (tickers) that match the criteria. " +
	"Return ONLY a comma-separated list of stock symbols, nothing else. " +
	"Example: AAPL, MSFT, GOOGL, AMZN, TSLA"

// CredentialSource supplies platform API keys. Empty or "demo" disables the
// platform.
type CredentialSource interface {
	APIKey(name string) (string, error)
}

type platformConfig struct {
	baseURL    string
	model      string
	credential string
	anthropic  bool
}

var platforms = map[string]platformConfig{
	PlatformDeepSeek: {
		baseURL:    "https://api.deepseek.com/v1",
		model:      "deepseek-chat",
		credential: CredentialDeepSeek,
	},
	PlatformOpenAI: {
		baseURL:    "https://api.openai.com/v1",
		model:      "gpt-4-turbo-preview",
		credential: CredentialOpenAI,
	},
	PlatformClaude: {
		baseURL:    "https://api.anthropic.com/v1",
		model:      "claude-3-sonnet-20240229",
		credential: CredentialClaude,
		anthropic:  true,
	},
}

// Client calls one AI platform's completion API.
type Client struct {
	http     *resty.Client
	platform string
	cfg      platformConfig
	creds    CredentialSource
	log      zerolog.Logger
}

// NewClient creates a platform client. Unknown platforms fall back to
// deepseek.
func NewClient(platform string, creds CredentialSource, log zerolog.Logger) *Client {
	cfg, ok := platforms[platform]
	if !ok {
		platform = DefaultPlatform
		cfg = platforms[platform]
	}

	httpClient := resty.New().
		SetBaseURL(cfg.baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:     httpClient,
		platform: platform,
		cfg:      cfg,
		creds:    creds,
		log:      log.With().Str("ai_platform", platform).Logger(),
	}
}

// Platform returns the resolved platform name.
func (c *Client) Platform() string { return c.platform }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	System    string        `json:"system"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// GenerateStockListText asks the platform for a symbol list. An empty
// string means the platform is unconfigured or had no usable answer.
func (c *Client) GenerateStockListText(ctx context.Context, prompt string) (string, error) {
	key, err := c.creds.APIKey(c.cfg.credential)
	if err != nil {
		return "", err
	}
	if key == "" || key == "demo" {
		c.log.Debug().Msg("Platform not configured, skipping AI call")
		return "", nil
	}

	userPrompt := fmt.Sprintf("Based on this investment strategy: %s\n\nProvide a list of stock symbols that match this strategy.", prompt)

	if c.cfg.anthropic {
		return c.anthropicCompletion(ctx, key, userPrompt)
	}
	return c.chatCompletion(ctx, key, userPrompt)
}

func (c *Client) chatCompletion(ctx context.Context, key, userPrompt string) (string, error) {
	var result chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(key).
		SetBody(chatRequest{
			Model: c.cfg.model,
			Messages: []chatMessage{
				{Role: "system", Content: stockListSystemPrompt},
				{Role: "user", Content: userPrompt},
			},
			Temperature: 0.3,
			MaxTokens:   500,
		}).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to call %s: %w", c.platform, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d", c.platform, resp.StatusCode())
	}
	if len(result.Choices) == 0 {
		return "", nil
	}
	return result.Choices[0].Message.Content, nil
}

func (c *Client) anthropicCompletion(ctx context.Context, key, userPrompt string) (string, error) {
	var result anthropicResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-api-key", key).
		SetHeader("anthropic-version", "2023-06-01").
		SetBody(anthropicRequest{
			Model:     c.cfg.model,
			System:    stockListSystemPrompt,
			Messages:  []chatMessage{{Role: "user", Content: userPrompt}},
			MaxTokens: 500,
		}).
		SetResult(&result).
		Post("/messages")
	if err != nil {
		return "", fmt.Errorf("failed to call %s: %w", c.platform, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d", c.platform, resp.StatusCode())
	}
	if len(result.Content) == 0 {
		return "", nil
	}
	return result.Content[0].Text, nil
}
