package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"study-translate/internal/models"
)

// DefaultBaseURL is the OpenRouter OpenAI-compatible API root.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

const chatProvider = "openrouter"

// ChatConfig configures a ChatClient.
type ChatConfig struct {
	BaseURL         string
	APIKey          string
	Referer         string
	Title           string
	MaxOutputTokens int
	// Timeout bounds a single HTTP exchange. Callers normally pass a
	// context with a tighter deadline.
	Timeout time.Duration
	Prompt  *Prompt
}

// ChatClient issues translation requests to a chat-completion endpoint.
// It performs exactly one HTTP call per request and never retries.
type ChatClient struct {
	baseURL   string
	apiKey    string
	referer   string
	title     string
	maxTokens int
	prompt    *Prompt
	http      *resty.Client
	log       logrus.FieldLogger
}

// --- Chat API types ---

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
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func NewChatClient(cfg ChatConfig, log logrus.FieldLogger) (*ChatClient, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if cfg.Prompt == nil {
		p, err := NewPrompt("")
		if err != nil {
			return nil, err
		}
		cfg.Prompt = p
	}

	c := resty.New()
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}

	return &ChatClient{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		referer:   cfg.Referer,
		title:     cfg.Title,
		maxTokens: cfg.MaxOutputTokens,
		prompt:    cfg.Prompt,
		http:      c,
		log:       log,
	}, nil
}

// Group identifies the upstream host shared by every model of this client.
func (c *ChatClient) Group() string {
	if u, err := url.Parse(c.baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return c.baseURL
}

// TranslateChunk translates text with a single call to model.
func (c *ChatClient) TranslateChunk(ctx context.Context, text, targetLang, sourceLang, model string) (string, error) {
	return c.chat(ctx, model, text, Options{
		TargetLang:  targetLang,
		SourceLang:  sourceLang,
		ContextType: models.ContextGeneral,
	})
}

// Model binds the client to one model so it can be used as a Translator.
func (c *ChatClient) Model(model string) Translator {
	return &modelTranslator{client: c, model: model}
}

// Models binds the client to each model in order.
func (c *ChatClient) Models(names []string) []Translator {
	out := make([]Translator, 0, len(names))
	for _, m := range names {
		out = append(out, c.Model(m))
	}
	return out
}

// chat sends a system + user message pair to /chat/completions
func (c *ChatClient) chat(ctx context.Context, model, text string, opts Options) (string, error) {
	if c.apiKey == "" {
		return "", &UpstreamError{Provider: chatProvider, Model: model, Kind: KindConfig,
			Err: fmt.Errorf("API key not configured (set OPENROUTER_API_KEY env var or upstream.api_key in config)")}
	}

	systemPrompt, err := c.prompt.Render(opts)
	if err != nil {
		return "", &UpstreamError{Provider: chatProvider, Model: model, Kind: KindConfig, Err: err}
	}

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: 0,
		MaxTokens:   MaxOutputTokens(text, c.maxTokens),
	}

	c.log.WithFields(logrus.Fields{
		"model":        model,
		"input_chars":  len(text),
		"input_tokens": EstimateTokens(text),
		"max_tokens":   reqBody.MaxTokens,
	}).Debug("calling chat completion")

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(reqBody)
	if c.referer != "" {
		req.SetHeader("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.SetHeader("X-Title", c.title)
	}

	resp, err := req.Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", transportError(chatProvider, model, err)
	}
	if !resp.IsSuccess() {
		return "", httpError(chatProvider, model, resp.StatusCode(), resp.Body())
	}

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", &UpstreamError{Provider: chatProvider, Model: model, Kind: KindMalformed,
			StatusCode: resp.StatusCode(), Body: abbreviate(resp.String(), maxErrorBody), Err: err}
	}
	if len(result.Choices) == 0 {
		return "", &UpstreamError{Provider: chatProvider, Model: model, Kind: KindMalformed,
			StatusCode: resp.StatusCode(), Body: abbreviate(resp.String(), maxErrorBody), Err: errNoChoices}
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", &UpstreamError{Provider: chatProvider, Model: model, Kind: KindEmpty,
			StatusCode: resp.StatusCode(), Body: abbreviate(resp.String(), maxErrorBody), Err: errEmptyContent}
	}
	return content, nil
}

// CheckConnection verifies the endpoint is reachable and the key is accepted
func (c *ChatClient) CheckConnection(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		Get(c.baseURL + "/models")
	if err != nil {
		return fmt.Errorf("cannot connect to %s: %w", c.baseURL, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%s returned status %d", chatProvider, resp.StatusCode())
	}
	return nil
}

type modelTranslator struct {
	client *ChatClient
	model  string
}

func (m *modelTranslator) Name() string {
	return m.model
}

func (m *modelTranslator) Group() string {
	return m.client.Group()
}

func (m *modelTranslator) Translate(ctx context.Context, text string, opts Options) (string, error) {
	return m.client.chat(ctx, m.model, text, opts)
}
