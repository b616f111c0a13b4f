package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"study-translate/internal/chunker"
	"study-translate/internal/config"
	"study-translate/internal/models"
	"study-translate/internal/selector"
	"study-translate/internal/storage"
	"study-translate/internal/translator"
)

// ValidationError reports a request that can never succeed as sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ModelBackend binds model names to translators.
type ModelBackend interface {
	Model(name string) translator.Translator
}

// Deps are the collaborators of a Service.
type Deps struct {
	Selector     *selector.Selector
	Models       ModelBackend
	Engines      []translator.Translator
	Store        storage.Store
	Chunks       *translator.ChunkTranslator
	MaxChunkSize int
	Log          logrus.FieldLogger
}

// Service orchestrates a translation request: cache, chunking, model
// selection and per-chunk fallback.
type Service struct {
	selector     *selector.Selector
	models       ModelBackend
	engines      []translator.Translator
	store        storage.Store
	chunks       *translator.ChunkTranslator
	maxChunkSize int
	log          logrus.FieldLogger
	inflight     singleflight.Group
}

func New(d Deps) *Service {
	if d.Store == nil {
		d.Store = storage.NopStore{}
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Chunks == nil {
		d.Chunks = translator.NewChunkTranslator(translator.DefaultCallTimeout, d.Log)
	}
	return &Service{
		selector:     d.Selector,
		models:       d.Models,
		engines:      d.Engines,
		store:        d.Store,
		chunks:       d.Chunks,
		maxChunkSize: d.MaxChunkSize,
		log:          d.Log,
	}
}

// NewService creates a service wired from cfg.
func NewService(cfg *config.Config, store storage.Store, log logrus.FieldLogger) (*Service, error) {
	sel, err := cfg.Selector()
	if err != nil {
		return nil, err
	}

	prompt, err := translator.NewPrompt(cfg.Upstream.Prompt)
	if err != nil {
		return nil, err
	}

	client, err := translator.NewChatClient(translator.ChatConfig{
		BaseURL:         cfg.Upstream.BaseURL,
		APIKey:          cfg.Upstream.APIKey,
		Referer:         cfg.Upstream.Referer,
		Title:           cfg.Upstream.Title,
		MaxOutputTokens: cfg.Upstream.MaxOutputTokens,
		Timeout:         cfg.Upstream.Timeout,
		Prompt:          prompt,
	}, log)
	if err != nil {
		return nil, err
	}

	engines, err := createEngines(cfg)
	if err != nil {
		return nil, err
	}

	return New(Deps{
		Selector:     sel,
		Models:       client,
		Engines:      engines,
		Store:        store,
		Chunks:       translator.NewChunkTranslator(cfg.Upstream.Timeout, log),
		MaxChunkSize: cfg.Chunker.MaxChunkSize,
		Log:          log,
	}), nil
}

// Translate handles one translation request.
func (s *Service) Translate(ctx context.Context, req models.TranslationRequest) (*models.TranslationResponse, error) {
	req.Normalize()
	if req.Text == "" || req.TargetLang == "" {
		return nil, &ValidationError{Message: "Missing required fields: text, targetLang"}
	}

	if req.IsIdentity() {
		return &models.TranslationResponse{TranslatedText: req.Text, ModelUsed: models.ModelNone}, nil
	}

	key := storage.Key(req.Text, req.TargetLang)
	log := s.log.WithField("cache_key", key[:12])

	cached, err := s.store.Get(ctx, key)
	if err != nil {
		log.WithError(err).Warn("cache read failed, treating as miss")
	} else if cached != nil {
		log.Debug("cache hit")
		return &models.TranslationResponse{
			TranslatedText: cached.TranslatedText,
			Cached:         true,
			ModelUsed:      cached.ModelUsed,
		}, nil
	}

	v, err, shared := s.inflight.Do(key, func() (interface{}, error) {
		return s.translate(ctx, req, key, log)
	})
	if err != nil && shared && isContextErr(err) && ctx.Err() == nil {
		// The request we joined was cancelled; ours is still live.
		log.Debug("shared translation was cancelled, retrying")
		v, err = s.translate(ctx, req, key, log)
	}
	if err != nil {
		return nil, err
	}

	resp := *v.(*models.TranslationResponse)
	return &resp, nil
}

func (s *Service) translate(ctx context.Context, req models.TranslationRequest, key string, log logrus.FieldLogger) (*models.TranslationResponse, error) {
	chunks := chunker.Split(req.Text, s.maxChunkSize)
	if len(chunks) == 0 {
		return &models.TranslationResponse{TranslatedText: req.Text, ModelUsed: models.ModelNone}, nil
	}

	total := chunker.TotalLength(req.Text)
	tier := s.selector.SelectTier(total)
	candidates := s.candidates(tier)
	opts := translator.Options{
		TargetLang:  req.TargetLang,
		SourceLang:  req.SourceLang,
		ContextType: req.ContextType,
	}

	log.WithFields(logrus.Fields{
		"chars":      total,
		"chunks":     len(chunks),
		"tier":       tier,
		"candidates": len(candidates),
		"target":     req.TargetLang,
	}).Info("translating")

	start := time.Now()
	down := translator.NewUnreachable()
	parts := make([]string, 0, len(chunks))
	modelUsed := models.ModelNone
	degraded := 0

	for _, c := range chunks {
		res, err := s.chunks.Translate(ctx, c, opts, candidates, down)
		if err != nil {
			return nil, fmt.Errorf("translation aborted at chunk %d: %w", c.Index, err)
		}
		parts = append(parts, res.TranslatedText)
		if res.Degraded() {
			degraded++
			continue
		}
		modelUsed = res.ModelUsed
	}

	resp := &models.TranslationResponse{
		TranslatedText: chunker.Join(parts),
		ModelUsed:      modelUsed,
	}

	entry := &models.CacheEntry{
		Key:            key,
		TranslatedText: resp.TranslatedText,
		ModelUsed:      resp.ModelUsed,
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.Put(ctx, entry); err != nil {
		log.WithError(err).Warn("cache write failed")
	}

	log.WithFields(logrus.Fields{
		"model":    modelUsed,
		"degraded": degraded,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("translation finished")

	return resp, nil
}

// candidates lists the chat models from tier downward, then the fallback engines.
func (s *Service) candidates(tier string) []translator.Translator {
	names := s.selector.TierAndBelow(tier)
	out := make([]translator.Translator, 0, len(names)+len(s.engines))
	for _, n := range names {
		out = append(out, s.models.Model(n))
	}
	return append(out, s.engines...)
}

func createEngines(cfg *config.Config) ([]translator.Translator, error) {
	var engines []translator.Translator
	for _, name := range cfg.Engines.Order {
		switch name {
		case config.EngineLibreTranslate:
			engines = append(engines, translator.NewLibreTranslateTranslator(
				cfg.Engines.LibreTranslate.Host,
				cfg.Engines.LibreTranslate.APIKey,
				cfg.Upstream.Timeout,
			))
		case config.EngineDeepL:
			engines = append(engines, translator.NewDeepLTranslator(
				cfg.Engines.DeepL.APIKey,
				cfg.Engines.DeepL.Free,
				cfg.Upstream.Timeout,
			))
		case config.EngineGoogle:
			engines = append(engines, translator.NewGoogleTranslator(
				cfg.Engines.Google.APIKey,
				"",
				cfg.Upstream.Timeout,
			))
		default:
			return nil, fmt.Errorf("unknown fallback engine: %s", name)
		}
	}
	return engines, nil
}

// CheckResult is the outcome of one upstream connectivity check.
type CheckResult struct {
	Name string
	Err  error
}

// CheckUpstreams verifies the chat backend and every fallback engine that
// can check itself, in candidate order. Backends without a check are left out.
func (s *Service) CheckUpstreams(ctx context.Context) []CheckResult {
	var results []CheckResult
	check := func(name string, v any) {
		c, ok := v.(translator.Checker)
		if !ok {
			return
		}
		err := c.CheckConnection(ctx)
		if err != nil {
			s.log.WithField("upstream", name).WithError(err).Warn("upstream check failed")
		}
		results = append(results, CheckResult{Name: name, Err: err})
	}

	check("chat", s.models)
	for _, e := range s.engines {
		check(e.Name(), e)
	}
	return results
}

// Selector exposes the model ordering in use.
func (s *Service) Selector() *selector.Selector {
	return s.selector
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
