package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"study-translate/internal/models"
)

const deeplName = "deepl"

// DeepLTranslator uses the DeepL API.
// Free tier: 500,000 characters/month.
// Set API key via config or DEEPL_API_KEY env var.
type DeepLTranslator struct {
	apiKey string
	host   string
	client *resty.Client
}

type deeplRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
	SourceLang string   `json:"source_lang,omitempty"`
}

type deeplResponse struct {
	Translations []deeplTranslation `json:"translations"`
}

type deeplTranslation struct {
	DetectedSourceLanguage string `json:"detected_source_language"`
	Text                   string `json:"text"`
}

// NewDeepLTranslator creates a DeepL translator.
// apiKey can be empty, in which case DEEPL_API_KEY is used.
// free=true uses the free API endpoint (api-free.deepl.com).
func NewDeepLTranslator(apiKey string, free bool, timeout time.Duration) *DeepLTranslator {
	if apiKey == "" {
		apiKey = os.Getenv("DEEPL_API_KEY")
	}

	host := "https://api.deepl.com"
	if free {
		host = "https://api-free.deepl.com"
	}

	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}

	return &DeepLTranslator{
		apiKey: apiKey,
		host:   host,
		client: c,
	}
}

// WithHost points the translator at a different API root.
func (t *DeepLTranslator) WithHost(host string) *DeepLTranslator {
	t.host = strings.TrimSuffix(host, "/")
	return t
}

func (t *DeepLTranslator) Name() string {
	return deeplName
}

func (t *DeepLTranslator) Group() string {
	if u, err := url.Parse(t.host); err == nil && u.Host != "" {
		return u.Host
	}
	return t.host
}

// IsAvailable returns true if the API key is configured
func (t *DeepLTranslator) IsAvailable() bool {
	return t.apiKey != ""
}

// Translate translates text to opts.TargetLang
func (t *DeepLTranslator) Translate(ctx context.Context, text string, opts Options) (string, error) {
	if !t.IsAvailable() {
		return "", &UpstreamError{Provider: deeplName, Kind: KindConfig,
			Err: errors.New("API key not configured (set DEEPL_API_KEY env var or engines.deepl.api_key in config)")}
	}

	reqBody := deeplRequest{
		Text:       []string{text},
		TargetLang: strings.ToUpper(opts.TargetLang),
	}
	if opts.SourceLang != "" && opts.SourceLang != models.SourceAuto {
		reqBody.SourceLang = strings.ToUpper(opts.SourceLang)
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "DeepL-Auth-Key "+t.apiKey).
		SetBody(reqBody).
		Post(t.host + "/v2/translate")
	if err != nil {
		return "", transportError(deeplName, "", err)
	}

	if resp.StatusCode() != http.StatusOK {
		ue := httpError(deeplName, "", resp.StatusCode(), resp.Body())
		switch resp.StatusCode() {
		case http.StatusForbidden:
			ue.Err = errors.New("invalid API key")
		case 456:
			ue.Err = errors.New("quota exceeded (free tier: 500K chars/month)")
		}
		return "", ue
	}

	var result deeplResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", &UpstreamError{Provider: deeplName, Kind: KindMalformed,
			StatusCode: resp.StatusCode(), Body: abbreviate(resp.String(), maxErrorBody), Err: err}
	}

	if len(result.Translations) == 0 || strings.TrimSpace(result.Translations[0].Text) == "" {
		return "", &UpstreamError{Provider: deeplName, Kind: KindEmpty, Err: errEmptyContent}
	}

	return strings.TrimSpace(result.Translations[0].Text), nil
}

// CheckConnection verifies the DeepL API is reachable and the key is valid
func (t *DeepLTranslator) CheckConnection(ctx context.Context) error {
	if !t.IsAvailable() {
		return fmt.Errorf("DeepL API key not configured")
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "DeepL-Auth-Key "+t.apiKey).
		Get(t.host + "/v2/usage")
	if err != nil {
		return fmt.Errorf("cannot connect to DeepL API: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("DeepL returned status %d", resp.StatusCode())
	}

	return nil
}
