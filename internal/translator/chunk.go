package translator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"study-translate/internal/fallback"
	"study-translate/internal/models"
)

// DefaultCallTimeout bounds a single upstream attempt.
const DefaultCallTimeout = 60 * time.Second

// ChunkTranslator translates one chunk by walking an ordered candidate list.
type ChunkTranslator struct {
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewChunkTranslator(timeout time.Duration, log logrus.FieldLogger) *ChunkTranslator {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &ChunkTranslator{timeout: timeout, log: log}
}

// Unreachable records upstream hosts that could not be dialed during one
// request. Later candidates on the same host are skipped without a call.
type Unreachable struct {
	mu    sync.Mutex
	hosts map[string]struct{}
}

func NewUnreachable() *Unreachable {
	return &Unreachable{hosts: make(map[string]struct{})}
}

func (u *Unreachable) mark(group string) {
	if u == nil || group == "" {
		return
	}
	u.mu.Lock()
	u.hosts[group] = struct{}{}
	u.mu.Unlock()
}

func (u *Unreachable) has(group string) bool {
	if u == nil || group == "" {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.hosts[group]
	return ok
}

// Translate tries candidates in order. If every candidate fails, the result
// carries the original chunk text and ModelUsed set to models.ModelNone.
// The only error returned is the parent context's.
func (t *ChunkTranslator) Translate(ctx context.Context, chunk models.Chunk, opts Options, candidates []Translator, down *Unreachable) (models.ChunkResult, error) {
	log := t.log.WithField("chunk", chunk.Index)

	res, err := fallback.TryInOrder(ctx, candidates, func(ctx context.Context, c Translator) (string, error) {
		group := groupOf(c)
		if down.has(group) {
			return "", &UpstreamError{Provider: group, Model: c.Name(), Kind: KindSkipped, Err: errUnreachable}
		}

		callCtx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		start := time.Now()
		out, err := c.Translate(callCtx, chunk.Text, opts)
		if err == nil && strings.TrimSpace(out) == "" {
			err = &UpstreamError{Provider: group, Model: c.Name(), Kind: KindEmpty, Err: errEmptyContent}
		}
		if err != nil {
			if ue, ok := AsUpstream(err); ok && ue.Kind == KindUnreachable {
				down.mark(group)
			} else if !ok && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				err = &UpstreamError{Provider: group, Model: c.Name(), Kind: KindTimeout, Err: err}
			}
			log.WithFields(logrus.Fields{
				"model":    c.Name(),
				"duration": time.Since(start).Round(time.Millisecond),
			}).WithError(err).Warn("translation attempt failed")
			return "", err
		}

		log.WithFields(logrus.Fields{
			"model":    c.Name(),
			"duration": time.Since(start).Round(time.Millisecond),
			"chars":    len(chunk.Text),
		}).Debug("chunk translated")
		return out, nil
	})
	if err != nil {
		return models.ChunkResult{}, err
	}

	if res.Exhausted {
		log.WithField("attempts", len(res.Errors)).WithError(res.Err()).
			Error("all candidates failed, keeping original text")
		return models.ChunkResult{TranslatedText: chunk.Text, ModelUsed: models.ModelNone}, nil
	}

	return models.ChunkResult{TranslatedText: res.Value, ModelUsed: candidates[res.Index].Name()}, nil
}
