package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"study-translate/internal/models"
)

// DefaultLibreTranslateHost is the public LibreTranslate instance.
const DefaultLibreTranslateHost = "https://libretranslate.com"

const libreTranslateName = "libretranslate"

type LibreTranslateTranslator struct {
	host   string
	apiKey string
	client *resty.Client
}

type libreTranslateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreTranslateResponse struct {
	TranslatedText string `json:"translatedText"`
}

func NewLibreTranslateTranslator(host, apiKey string, timeout time.Duration) *LibreTranslateTranslator {
	if host == "" {
		host = DefaultLibreTranslateHost
	}
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &LibreTranslateTranslator{
		host:   strings.TrimSuffix(host, "/"),
		apiKey: apiKey,
		client: c,
	}
}

func (t *LibreTranslateTranslator) Name() string {
	return libreTranslateName
}

func (t *LibreTranslateTranslator) Group() string {
	if u, err := url.Parse(t.host); err == nil && u.Host != "" {
		return u.Host
	}
	return t.host
}

func (t *LibreTranslateTranslator) Translate(ctx context.Context, text string, opts Options) (string, error) {
	source := opts.SourceLang
	if source == "" {
		source = models.SourceAuto
	}

	reqBody := libreTranslateRequest{
		Q:      text,
		Source: source,
		Target: opts.TargetLang,
		Format: "text",
		APIKey: t.apiKey,
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(t.host + "/translate")
	if err != nil {
		return "", transportError(libreTranslateName, "", err)
	}
	if !resp.IsSuccess() {
		return "", httpError(libreTranslateName, "", resp.StatusCode(), resp.Body())
	}

	var result libreTranslateResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", &UpstreamError{Provider: libreTranslateName, Kind: KindMalformed,
			StatusCode: resp.StatusCode(), Body: abbreviate(resp.String(), maxErrorBody), Err: err}
	}

	out := strings.TrimSpace(result.TranslatedText)
	if out == "" {
		return "", &UpstreamError{Provider: libreTranslateName, Kind: KindEmpty, Err: errEmptyContent}
	}
	return out, nil
}

// CheckConnection verifies LibreTranslate is running
func (t *LibreTranslateTranslator) CheckConnection(ctx context.Context) error {
	resp, err := t.client.R().SetContext(ctx).Get(t.host + "/languages")
	if err != nil {
		return fmt.Errorf("cannot connect to LibreTranslate at %s: %w", t.host, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("libretranslate returned status %d", resp.StatusCode())
	}
	return nil
}
