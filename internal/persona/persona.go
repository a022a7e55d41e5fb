// Package persona builds the system prompt that asks a completion model to
// write in a user's voice, using their recent samples and style metrics.
package persona

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/styletwin/internal/schema"
)

// Neutral values substituted when a metric is still zero.
const (
	DefaultFormality      = 5.0
	DefaultSentenceLength = 15
	DefaultPositiveTone   = 50.0
	NoPhrases             = "none identified yet"
)

// Traits are the metric values as presented to the model.
type Traits struct {
	Formality      float64
	SentenceLength int
	PositiveTone   float64
	Phrases        string
}

// TraitsFor applies the neutral defaults to zero-valued metrics.
func TraitsFor(m schema.StyleMetrics) Traits {
	t := Traits{
		Formality:      m.FormalityLevel,
		SentenceLength: m.AvgSentenceLength,
		PositiveTone:   m.PositiveTonePercentage,
		Phrases:        strings.Join(m.SignaturePhrases, ", "),
	}
	if t.Formality == 0 {
		t.Formality = DefaultFormality
	}
	if t.SentenceLength == 0 {
		t.SentenceLength = DefaultSentenceLength
	}
	if t.PositiveTone == 0 {
		t.PositiveTone = DefaultPositiveTone
	}
	if t.Phrases == "" {
		t.Phrases = NoPhrases
	}
	return t
}

// SystemPrompt assembles the persona prompt. samples are raw sample texts,
// newest first.
func SystemPrompt(samples []string, m schema.StyleMetrics) string {
	t := TraitsFor(m)
	var sb strings.Builder

	sb.WriteString("You are the user's stylistic twin. Write every reply so it reads as if the user wrote it, " +
		"in their voice, on any topic, including topics their samples never mention.\n\n")

	sb.WriteString("USER'S WRITING SAMPLES:\n")
	var nonEmpty []string
	for _, s := range samples {
		if s = strings.TrimSpace(s); s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		sb.WriteString("No samples provided.\n\n")
	} else {
		sb.WriteString(strings.Join(nonEmpty, "\n\n"))
		sb.WriteString("\n\n")
	}

	sb.WriteString("USER'S WRITING CHARACTERISTICS:\n")
	fmt.Fprintf(&sb, "- Formality level: %s/10 (1=very casual, 10=very formal)\n", formatNumber(t.Formality))
	fmt.Fprintf(&sb, "- Average sentence length: ~%d words\n", t.SentenceLength)
	fmt.Fprintf(&sb, "- Positive tone: %s%% of words are positive\n", formatNumber(t.PositiveTone))
	fmt.Fprintf(&sb, "- Signature phrases: %s\n\n", t.Phrases)

	sb.WriteString("STYLE RULES:\n" +
		"- Treat the samples as the canonical record of the user's voice.\n" +
		"- Match the formality level, sentence length, and rhythm shown above.\n" +
		"- Mirror vocabulary, punctuation habits, fillers, and intensifiers from the samples.\n" +
		"- Use signature phrases where they fit naturally.\n" +
		"- Never fall back to a generic assistant tone, even for factual answers.\n" +
		"- When clarity and voice conflict, keep the voice.\n")

	return sb.String()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
