// Package chunker splits long text into ordered, structurally safe chunks.
//
// Text is split on blank lines into paragraphs which are then packed greedily
// into chunks of at most maxChunkSize runes. A chunk boundary never falls
// inside a paragraph or inside a fenced code block, so a chunk may exceed the
// nominal bound when a single paragraph or fence is larger than it.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"study-translate/internal/models"
)

// Separator joins paragraphs inside a chunk and chunks inside a document.
const Separator = "\n\n"

// DefaultMaxChunkSize is the chunk bound used when none is configured.
const DefaultMaxChunkSize = 100_000

const fenceMarker = "```"

var paragraphBreak = regexp.MustCompile(`(?:\r?\n){2,}`)

// Split divides text into chunks no larger than maxChunkSize runes where the
// structure allows it. A non-positive maxChunkSize disables the bound.
func Split(text string, maxChunkSize int) []models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var (
		chunks  []models.Chunk
		buf     strings.Builder
		bufLen  int
		inFence bool
	)

	flush := func() {
		if bufLen == 0 {
			return
		}
		chunks = append(chunks, models.Chunk{Text: buf.String(), Index: len(chunks)})
		buf.Reset()
		bufLen = 0
	}

	appendPara := func(p, sep string, n int) {
		if bufLen > 0 {
			buf.WriteString(sep)
			bufLen += len(sep)
		}
		buf.WriteString(p)
		bufLen += n
	}

	for _, para := range paragraphs(text) {
		p := para.text
		// Inside a fence the blank-line run is code and is kept as written.
		sep := Separator
		if inFence {
			sep = para.sep
		}

		fences := strings.Count(p, fenceMarker)
		forced := inFence || fences > 0
		if fences%2 == 1 {
			inFence = !inFence
		}

		if !forced && strings.TrimSpace(p) == "" {
			continue
		}

		n := utf8.RuneCountInString(p)
		if forced || maxChunkSize <= 0 || bufLen == 0 || bufLen+len(Separator)+n <= maxChunkSize {
			appendPara(p, sep, n)
			continue
		}

		flush()
		appendPara(p, sep, n)
	}
	flush()

	return chunks
}

type paragraph struct {
	text string
	sep  string // blank-line run preceding text; empty for the first paragraph
}

func paragraphs(text string) []paragraph {
	var out []paragraph
	start, sep := 0, ""
	for _, loc := range paragraphBreak.FindAllStringIndex(text, -1) {
		out = append(out, paragraph{text: text[start:loc[0]], sep: sep})
		sep = text[loc[0]:loc[1]]
		start = loc[1]
	}
	return append(out, paragraph{text: text[start:], sep: sep})
}

// Join reassembles chunk texts in order with Separator.
func Join(texts []string) string {
	return strings.Join(texts, Separator)
}

// TotalLength returns the length of text in runes, the unit used for chunk
// bounds and tier selection.
func TotalLength(text string) int {
	return utf8.RuneCountInString(text)
}
