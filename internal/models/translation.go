package models

import (
	"strings"
	"time"
)

// ModelNone marks a result for which no upstream candidate succeeded.
const ModelNone = "none"

// SourceAuto lets the upstream model detect the source language.
const SourceAuto = "auto"

// ContextType tells the translator what kind of study content it is handling.
type ContextType string

const (
	ContextChat    ContextType = "chat"
	ContextSummary ContextType = "summary"
	ContextNotes   ContextType = "notes"
	ContextQuiz    ContextType = "quiz"
	ContextGeneral ContextType = "general"
)

// ParseContextType maps free-form input to a known ContextType, defaulting to general.
func ParseContextType(s string) ContextType {
	switch ct := ContextType(strings.ToLower(strings.TrimSpace(s))); ct {
	case ContextChat, ContextSummary, ContextNotes, ContextQuiz:
		return ct
	default:
		return ContextGeneral
	}
}

// TranslationRequest is the body accepted by the translate endpoint.
type TranslationRequest struct {
	Text        string      `json:"text"`
	TargetLang  string      `json:"targetLang"`
	SourceLang  string      `json:"sourceLang,omitempty"`
	ContextType ContextType `json:"contextType,omitempty"`
}

// Normalize fills in defaults for optional fields.
func (r *TranslationRequest) Normalize() {
	r.TargetLang = strings.TrimSpace(r.TargetLang)
	r.SourceLang = strings.TrimSpace(r.SourceLang)
	if r.SourceLang == "" {
		r.SourceLang = SourceAuto
	}
	r.ContextType = ParseContextType(string(r.ContextType))
}

// IsIdentity returns true if the request needs no translation at all.
func (r *TranslationRequest) IsIdentity() bool {
	return strings.EqualFold(r.TargetLang, "en") || strings.EqualFold(r.TargetLang, r.SourceLang)
}

// TranslationResponse is returned to callers of the translate endpoint.
type TranslationResponse struct {
	TranslatedText string `json:"translatedText"`
	Cached         bool   `json:"cached"`
	ModelUsed      string `json:"modelUsed"`
}

// Chunk is one structurally safe piece of the input text.
type Chunk struct {
	Text  string
	Index int
}

// ChunkResult is the outcome of translating one chunk.
type ChunkResult struct {
	TranslatedText string
	ModelUsed      string
}

// Degraded reports whether every candidate failed for the chunk.
func (r ChunkResult) Degraded() bool {
	return r.ModelUsed == ModelNone
}

// CacheEntry is a stored translation keyed by hash(text, targetLang).
type CacheEntry struct {
	Key            string    `json:"key"`
	TranslatedText string    `json:"translatedText"`
	ModelUsed      string    `json:"modelUsed"`
	SourceLang     string    `json:"sourceLang"`
	TargetLang     string    `json:"targetLang"`
	CreatedAt      time.Time `json:"createdAt"`
}
