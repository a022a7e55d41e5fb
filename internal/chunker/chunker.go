// Package chunker splits raw sample text into bounded segments suitable for a
// single embedding call.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the chunk bound used when the caller has no preference.
const DefaultMaxLength = 512

var whitespaceRe = regexp.MustCompile(`\s+`)

// sentenceRe matches, in order of preference: text followed by a run of
// terminators, trailing text with no terminator, or a bare terminator run.
// Successive matches cover the input completely.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$|[.!?]+`)

// Normalize collapses every whitespace run to a single space and trims.
func Normalize(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// Sentences splits text into sentence-like units. Units keep their leading
// whitespace so that concatenating them reproduces text exactly. Text without
// any terminator is returned as a single unit; empty text yields none.
func Sentences(text string) []string {
	if text == "" {
		return nil
	}
	return sentenceRe.FindAllString(text, -1)
}

// Chunk normalizes text and greedily packs its sentences into chunks of at
// most maxLength characters (runes). A sentence longer than maxLength is
// hard-split into maxLength slices. Chunk order follows input order.
//
// Empty or whitespace-only input yields zero chunks. A maxLength below 1
// yields nil. Chunk never fails.
func Chunk(text string, maxLength int) []string {
	if maxLength < 1 {
		return nil
	}
	normalized := Normalize(text)
	chunks := []string{}
	if normalized == "" {
		return chunks
	}

	var buf string
	flush := func() {
		if s := strings.TrimSpace(buf); s != "" {
			chunks = append(chunks, s)
		}
		buf = ""
	}

	for _, unit := range Sentences(normalized) {
		candidate := buf + unit
		if utf8.RuneCountInString(strings.TrimSpace(candidate)) <= maxLength {
			buf = candidate
			continue
		}
		flush()
		unit = strings.TrimSpace(unit)
		if utf8.RuneCountInString(unit) <= maxLength {
			buf = unit
			continue
		}
		chunks = append(chunks, splitByLength(unit, maxLength)...)
	}
	flush()
	return chunks
}

// splitByLength cuts s into consecutive slices of n runes. Slices are trimmed
// and whitespace-only slices are dropped.
func splitByLength(s string, n int) []string {
	runes := []rune(s)
	out := make([]string, 0, len(runes)/n+1)
	for start := 0; start < len(runes); start += n {
		end := start + n
		if end > len(runes) {
			end = len(runes)
		}
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
	}
	return out
}
