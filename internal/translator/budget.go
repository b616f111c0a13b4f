package translator

import (
	"math"
	"sync"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

// DefaultMaxOutputTokens caps max_tokens for a single call.
const DefaultMaxOutputTokens = 8000

const minOutputTokens = 256

// MaxOutputTokens returns the output budget for text: 1.5 tokens per input
// character, at least minOutputTokens, never above limit.
func MaxOutputTokens(text string, limit int) int {
	n := int(math.Ceil(1.5 * float64(utf8.RuneCountInString(text))))
	n = max(n, minOutputTokens)
	if limit > 0 {
		n = min(n, limit)
	}
	return n
}

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// EstimateTokens counts cl100k tokens in text, or returns -1 if the encoding
// is unavailable.
func EstimateTokens(text string) int {
	codecOnce.Do(func() {
		enc, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			codec = enc
		}
	})
	if codec == nil {
		return -1
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return -1
	}
	return len(ids)
}
