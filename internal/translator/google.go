package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"study-translate/internal/models"
)

const googleName = "google-translate"

// DefaultGoogleHost is the Cloud Translation API root.
const DefaultGoogleHost = "https://translation.googleapis.com"

// GoogleTranslator uses the Cloud Translation v2 REST API.
// Set API key via config or GOOGLE_TRANSLATE_API_KEY env var.
type GoogleTranslator struct {
	apiKey string
	host   string
	client *resty.Client
}

type googleRequest struct {
	Q      string `json:"q"`
	Target string `json:"target"`
	Source string `json:"source,omitempty"`
	Format string `json:"format"`
}

type googleResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func NewGoogleTranslator(apiKey, host string, timeout time.Duration) *GoogleTranslator {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_TRANSLATE_API_KEY")
	}
	if host == "" {
		host = DefaultGoogleHost
	}
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &GoogleTranslator{
		apiKey: apiKey,
		host:   strings.TrimSuffix(host, "/"),
		client: c,
	}
}

func (t *GoogleTranslator) Name() string {
	return googleName
}

func (t *GoogleTranslator) Group() string {
	if u, err := url.Parse(t.host); err == nil && u.Host != "" {
		return u.Host
	}
	return t.host
}

func (t *GoogleTranslator) Translate(ctx context.Context, text string, opts Options) (string, error) {
	if t.apiKey == "" {
		return "", &UpstreamError{Provider: googleName, Kind: KindConfig,
			Err: errors.New("API key not configured (set GOOGLE_TRANSLATE_API_KEY env var or engines.google.api_key in config)")}
	}

	reqBody := googleRequest{Q: text, Target: opts.TargetLang, Format: "text"}
	if opts.SourceLang != "" && opts.SourceLang != models.SourceAuto {
		reqBody.Source = opts.SourceLang
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", t.apiKey).
		SetBody(reqBody).
		Post(t.host + "/language/translate/v2")
	if err != nil {
		return "", transportError(googleName, "", err)
	}
	if !resp.IsSuccess() {
		return "", httpError(googleName, "", resp.StatusCode(), resp.Body())
	}

	var result googleResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", &UpstreamError{Provider: googleName, Kind: KindMalformed,
			StatusCode: resp.StatusCode(), Body: abbreviate(resp.String(), maxErrorBody), Err: err}
	}

	parts := make([]string, 0, len(result.Data.Translations))
	for _, tr := range result.Data.Translations {
		parts = append(parts, html.UnescapeString(tr.TranslatedText))
	}
	out := strings.TrimSpace(strings.Join(parts, "\n\n"))
	if out == "" {
		return "", &UpstreamError{Provider: googleName, Kind: KindEmpty, Err: errEmptyContent}
	}
	return out, nil
}

// CheckConnection verifies the API is reachable and the key is accepted
func (t *GoogleTranslator) CheckConnection(ctx context.Context) error {
	if t.apiKey == "" {
		return errors.New("Google Translate API key not configured")
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParam("key", t.apiKey).
		Get(t.host + "/language/translate/v2/languages")
	if err != nil {
		return fmt.Errorf("cannot connect to Google Translate: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("google translate returned status %d", resp.StatusCode())
	}
	return nil
}
