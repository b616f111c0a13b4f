package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus/hooks/test"

	"study-translate/internal/config"
	"study-translate/internal/models"
	"study-translate/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	calls int
	got   models.TranslationRequest
	resp  *models.TranslationResponse
	err   error
}

func (f *fakeService) Translate(_ context.Context, req models.TranslationRequest) (*models.TranslationResponse, error) {
	f.calls++
	f.got = req
	return f.resp, f.err
}

func newTestServer(svc Translator) (*Server, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return New(config.ServerConfig{CORSOrigin: "https://app.example"}, svc, logger), hook
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestTranslateOK(t *testing.T) {
	svc := &fakeService{resp: &models.TranslationResponse{TranslatedText: "Bonjour", ModelUsed: "A"}}
	s, _ := newTestServer(svc)

	w := do(s, http.MethodPost, "/api/translate", `{"text":"Hello","targetLang":"fr","contextType":"notes"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	want := map[string]any{"translatedText": "Bonjour", "cached": false, "modelUsed": "A"}
	if diff := cmp.Diff(want, decode(t, w)); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if svc.got.Text != "Hello" || svc.got.TargetLang != "fr" || svc.got.ContextType != models.ContextNotes {
		t.Fatalf("request not passed through: %+v", svc.got)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Fatalf("missing CORS header: %v", w.Header())
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("missing request id")
	}
}

func TestTranslateValidationError(t *testing.T) {
	svc := &fakeService{err: &service.ValidationError{Message: "Missing required fields: text, targetLang"}}
	s, _ := newTestServer(svc)

	w := do(s, http.MethodPost, "/api/translate", `{"text":"Hello"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if got := decode(t, w)["error"]; got != "Missing required fields: text, targetLang" {
		t.Fatalf("unexpected error %v", got)
	}
}

func TestTranslateMissingTargetNeverCallsUpstream(t *testing.T) {
	// The real service rejects the request before any candidate is tried.
	svc := service.New(service.Deps{})
	s, _ := newTestServer(svc)

	w := do(s, http.MethodPost, "/api/translate", `{"text":"Hello"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTranslateInvalidJSON(t *testing.T) {
	svc := &fakeService{}
	s, _ := newTestServer(svc)

	for _, body := range []string{"", "{not json", `{"text": 5}`} {
		w := do(s, http.MethodPost, "/api/translate", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, w.Code)
		}
		out := decode(t, w)
		if out["error"] == "" || out["details"] == nil {
			t.Fatalf("body %q: expected error and details, got %v", body, out)
		}
	}
	if svc.calls != 0 {
		t.Fatal("service must not be called for malformed bodies")
	}
}

func TestTranslateInternalError(t *testing.T) {
	svc := &fakeService{err: errors.New("translation aborted at chunk 0: context canceled")}
	s, hook := newTestServer(svc)

	w := do(s, http.MethodPost, "/api/translate", `{"text":"Hello","targetLang":"fr"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	want := map[string]any{"error": "Translation failed", "details": "translation aborted at chunk 0: context canceled"}
	if diff := cmp.Diff(want, decode(t, w)); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Message == "translation failed" {
			logged = true
		}
	}
	if !logged {
		t.Fatal("expected the failure to be logged")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(&fakeService{})
	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := do(s, m, "/api/translate", "")
		if w.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405, got %d", m, w.Code)
		}
		if got := decode(t, w)["error"]; got != "Method not allowed" {
			t.Fatalf("%s: unexpected error %v", m, got)
		}
	}
}

func TestPreflight(t *testing.T) {
	svc := &fakeService{}
	s, _ := newTestServer(svc)

	w := do(s, http.MethodOptions, "/api/translate", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "POST, OPTIONS" {
		t.Fatalf("unexpected allowed methods %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
		t.Fatalf("unexpected allowed headers %q", got)
	}
	if svc.calls != 0 {
		t.Fatal("preflight must not translate")
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(&fakeService{})
	w := do(s, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || decode(t, w)["status"] != "ok" {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}
}

func TestRequestIDPropagation(t *testing.T) {
	s, hook := newTestServer(&fakeService{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Header().Get(requestIDHeader) != "abc-123" {
		t.Fatalf("expected caller request id to be echoed, got %q", w.Header().Get(requestIDHeader))
	}
	last := hook.LastEntry()
	if last == nil || last.Data["request_id"] != "abc-123" || last.Data["status"] != http.StatusOK {
		t.Fatalf("unexpected access log %+v", last)
	}
}
