// Package render formats engine results for the command line as JSON or
// GitHub-flavoured Markdown.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/styletwin/internal/metrics"
	"github.com/dshills/styletwin/internal/schema"
)

// Format selects an output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat converts s to a Format. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("render: unknown format %q (available: json, markdown)", s)
}

// RenderJSON produces a pretty-printed JSON representation of v.
func RenderJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("render: nil value")
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: json marshal: %w", err)
	}
	return b, nil
}

// Write encodes v in format f to w. md supplies the Markdown rendering.
func Write(w io.Writer, f Format, v any, md func() string) error {
	if f == FormatMarkdown {
		_, err := io.WriteString(w, md())
		return err
	}
	b, err := RenderJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

// Profile renders a style profile summary. The raw vector is not printed.
func Profile(p *schema.StyleProfile) string {
	if p == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Style Profile: %s\n\n", mdEscape(p.UserID))
	if p.HasStyleVector() {
		fmt.Fprintf(&sb, "**Style vector:** %d dimensions from %d chunks  \n", len(p.StyleVector), p.VectorCount)
	} else {
		sb.WriteString("**Style vector:** not set  \n")
	}
	fmt.Fprintf(&sb, "**Updated:** %s\n\n", p.UpdatedAt.UTC().Format(time.RFC3339))
	writeMetricsTable(&sb, p.StyleMetrics)
	return sb.String()
}

// Analysis renders the metrics of a single text with the counts behind them.
func Analysis(m schema.StyleMetrics, t metrics.Tally) string {
	var sb strings.Builder
	sb.WriteString("## Style Analysis\n\n")
	writeMetricsTable(&sb, m)
	sb.WriteString("## Counts\n\n")
	sb.WriteString("| Words | Sentences | Unique | Positive | Negative | Formal | Informal |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(&sb, "| %d | %d | %d | %d | %d | %d | %d |\n\n",
		t.Words, t.Sentences, t.Unique, t.Positive, t.Negative, t.Formal, t.Informal)
	return sb.String()
}

// Chunks renders numbered chunks with their lengths.
func Chunks(chunks []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Chunks (%d)\n\n", len(chunks))
	for i, c := range chunks {
		fmt.Fprintf(&sb, "%d. (%d chars) %s\n", i+1, len([]rune(c)), c)
	}
	if len(chunks) > 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}

// Drift renders a drift result.
func Drift(r schema.DriftResult) string {
	var sb strings.Builder
	sb.WriteString("## Drift Check\n\n")
	fmt.Fprintf(&sb, "**Drift level:** %s  \n", r.Tier)
	fmt.Fprintf(&sb, "**Similarity:** %d%%  \n", r.Percentage)
	fmt.Fprintf(&sb, "**Score:** %s\n\n", strconv.FormatFloat(r.Score, 'f', 4, 64))
	return sb.String()
}

// History renders generation records as a table, newest first.
func History(userID string, recs []schema.GenerationRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Generation History: %s\n\n", mdEscape(userID))
	if len(recs) == 0 {
		sb.WriteString("No generations recorded.\n")
		return sb.String()
	}
	sb.WriteString("| Time | Prompt | Output | Drift |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, r := range recs {
		drift := "-"
		if r.Drift != nil {
			drift = fmt.Sprintf("%s (%d%%)", r.Drift.Tier, r.Drift.Percentage)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
			r.CreatedAt.UTC().Format(time.RFC3339), mdEscape(truncate(r.Prompt, 60)), mdEscape(truncate(r.Output, 80)), drift)
	}
	sb.WriteString("\n")
	return sb.String()
}

func writeMetricsTable(sb *strings.Builder, m schema.StyleMetrics) {
	phrases := "none"
	if len(m.SignaturePhrases) > 0 {
		phrases = strings.Join(m.SignaturePhrases, ", ")
	}
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|---|---|\n")
	fmt.Fprintf(sb, "| Formality | %s/10 |\n", strconv.FormatFloat(m.FormalityLevel, 'f', -1, 64))
	fmt.Fprintf(sb, "| Avg sentence length | %d words |\n", m.AvgSentenceLength)
	fmt.Fprintf(sb, "| Unique words | %d |\n", m.UniqueWordsCount)
	fmt.Fprintf(sb, "| Positive tone | %s%% |\n", strconv.FormatFloat(m.PositiveTonePercentage, 'f', -1, 64))
	fmt.Fprintf(sb, "| Signature phrases | %s |\n\n", mdEscape(phrases))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// mdEscape replaces characters that would break Markdown table cells.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
