package translator

import (
	"fmt"

	"github.com/cbroglie/mustache"

	"study-translate/internal/models"
)

const fence = "```"

// DefaultPromptTemplate is the system instruction sent with every chunk.
const DefaultPromptTemplate = `You are an expert translator. Translate the user's text to {{{target_lang}}}.
Source language: {{{source_lang}}}.
{{#context}}The text is {{{context}}} content from a study assistant.
{{/context}}Requirements:
- Preserve formatting: headings, bullet lists, numbered lists, tables and code blocks (` + fence + `).
- Keep special markers (e.g. "<<ANSWER: A>>") unchanged.
- Preserve inline code, variable names, identifiers and file names exactly.
- Do NOT add commentary or explain the translation. Output only the translated text.`

// Prompt renders the system instruction for a translation call.
type Prompt struct {
	tmpl *mustache.Template
}

// NewPrompt parses a mustache template. An empty template selects the default.
func NewPrompt(template string) (*Prompt, error) {
	if template == "" {
		template = DefaultPromptTemplate
	}
	tmpl, err := mustache.ParseString(template)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return &Prompt{tmpl: tmpl}, nil
}

// Render fills the template for opts.
func (p *Prompt) Render(opts Options) (string, error) {
	source := opts.SourceLang
	if source == "" || source == models.SourceAuto {
		source = "detect automatically"
	}

	contentType := ""
	if opts.ContextType != "" && opts.ContextType != models.ContextGeneral {
		contentType = string(opts.ContextType)
	}

	return p.tmpl.Render(map[string]interface{}{
		"target_lang": opts.TargetLang,
		"source_lang": source,
		"context":     contentType,
	})
}
