package translator

import (
	"context"

	"study-translate/internal/models"
)

// Options describe a single translation call.
type Options struct {
	TargetLang  string
	SourceLang  string
	ContextType models.ContextType
}

// Translator is the interface for translation backends
type Translator interface {
	// Translate translates text according to opts
	Translate(ctx context.Context, text string, opts Options) (string, error)

	// Name returns the name reported as modelUsed
	Name() string
}

// Checker is implemented by backends that can verify their endpoint and
// credentials without translating anything.
type Checker interface {
	CheckConnection(ctx context.Context) error
}

// grouped is implemented by translators that share an upstream host.
// A dial failure on one member skips the rest of its group.
type grouped interface {
	Group() string
}

func groupOf(t Translator) string {
	if g, ok := t.(grouped); ok {
		return g.Group()
	}
	return ""
}
