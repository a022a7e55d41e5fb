// Package metrics derives lexical style statistics from raw sample text.
// Analysis is deterministic and never fails.
package metrics

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/styletwin/internal/chunker"
	"github.com/dshills/styletwin/internal/lexicon"
	"github.com/dshills/styletwin/internal/schema"
	"github.com/dshills/styletwin/internal/vecmath"
)

// MaxSignaturePhrases bounds the phrase list returned by Analyze.
const MaxSignaturePhrases = 5

const neutralFormality = 5.0

var (
	terminatorRe = regexp.MustCompile(`[.!?]+`)
	tokenRe      = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// Analyzer scores text against a Lexicon.
type Analyzer struct {
	Lexicon lexicon.Lexicon
}

// Tally is the raw count breakdown behind StyleMetrics.
type Tally struct {
	Words     int `json:"words"`
	Sentences int `json:"sentences"`
	Tokens    int `json:"tokens"`
	Unique    int `json:"unique"`
	Positive  int `json:"positive"`
	Negative  int `json:"negative"`
	Formal    int `json:"formal"`
	Informal  int `json:"informal"`
}

// Tokens returns the case-folded alphanumeric runs of text in order.
func Tokens(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// Tally counts words, sentences, and lexicon hits in text.
func (a Analyzer) Tally(text string) Tally {
	t := Tally{
		Words:     len(strings.Fields(text)),
		Sentences: len(terminatorRe.FindAllStringIndex(text, -1)),
	}
	tokens := Tokens(text)
	t.Tokens = len(tokens)
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		seen[tok] = struct{}{}
		if a.Lexicon.Has(lexicon.Positive, tok) {
			t.Positive++
		}
		if a.Lexicon.Has(lexicon.Negative, tok) {
			t.Negative++
		}
		if a.Lexicon.Has(lexicon.Formal, tok) {
			t.Formal++
		}
		if a.Lexicon.Has(lexicon.Informal, tok) {
			t.Informal++
		}
	}
	t.Unique = len(seen)
	return t
}

// Analyze computes the StyleMetrics of text. Empty text yields zero metrics
// with neutral formality and an empty phrase list.
func (a Analyzer) Analyze(text string) schema.StyleMetrics {
	t := a.Tally(text)
	return schema.StyleMetrics{
		FormalityLevel:         formality(t),
		AvgSentenceLength:      avgSentenceLength(t),
		UniqueWordsCount:       t.Unique,
		PositiveTonePercentage: positiveTone(t),
		SignaturePhrases:       SignaturePhrases(text, MaxSignaturePhrases),
	}
}

func avgSentenceLength(t Tally) int {
	if t.Sentences == 0 {
		return 0
	}
	return int(math.Round(float64(t.Words) / float64(t.Sentences)))
}

// positiveTone counts positive tokens only; negative hits do not offset it.
func positiveTone(t Tally) float64 {
	if t.Words == 0 {
		return 0
	}
	return vecmath.Clamp(math.Round(float64(t.Positive)/float64(t.Words)*100), 0, 100)
}

func formality(t Tally) float64 {
	score := float64(t.Formal - t.Informal)
	divisor := math.Max(1, float64(t.Words)/100)
	return vecmath.Clamp(neutralFormality+score/divisor, 0, 10)
}

// SignaturePhrases returns up to limit 2- and 3-word phrases that recur in
// text. Windows never cross sentence boundaries. Phrases seen once are
// dropped; the rest are ordered by descending count, ties by first
// appearance, with the first letter upper-cased.
func SignaturePhrases(text string, limit int) []string {
	counts := make(map[string]int)
	var order []string
	add := func(words []string) {
		p := strings.Join(words, " ")
		if counts[p] == 0 {
			order = append(order, p)
		}
		counts[p]++
	}
	for _, sentence := range chunker.Sentences(text) {
		words := Tokens(sentence)
		for i := 0; i+1 < len(words); i++ {
			add(words[i : i+2])
			if i+2 < len(words) {
				add(words[i : i+3])
			}
		}
	}

	recurring := make([]string, 0, len(order))
	for _, p := range order {
		if counts[p] > 1 {
			recurring = append(recurring, p)
		}
	}
	sort.SliceStable(recurring, func(i, j int) bool {
		return counts[recurring[i]] > counts[recurring[j]]
	})
	if limit >= 0 && len(recurring) > limit {
		recurring = recurring[:limit]
	}
	for i, p := range recurring {
		recurring[i] = capitalize(p)
	}
	return recurring
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
