// Package schema defines the canonical data types shared by the style engine,
// the profile store, and the service layers. JSON field names on these types
// are the stable contract exposed to API consumers.
package schema

import (
	"fmt"
	"time"
)

// DriftTier classifies how far generated text has drifted from a style vector.
type DriftTier string

const (
	DriftLow    DriftTier = "low"
	DriftMedium DriftTier = "medium"
	DriftHigh   DriftTier = "high"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StyleMetrics holds the lexical statistics derived from a single sample.
type StyleMetrics struct {
	FormalityLevel         float64  `json:"formality_level"`
	AvgSentenceLength      int      `json:"avg_sentence_length"`
	UniqueWordsCount       int      `json:"unique_words_count"`
	PositiveTonePercentage float64  `json:"positive_tone_percentage"`
	SignaturePhrases       []string `json:"signature_phrases"`
}

// StyleProfile is the per-user aggregate of all submitted samples.
type StyleProfile struct {
	UserID string `json:"user_id"`
	// StyleVector is nil until at least one sample with an embedding exists.
	StyleVector []float64 `json:"style_vector"`
	// VectorSum and VectorCount back the incremental aggregation mode.
	// They are maintained in both modes.
	VectorSum   []float64 `json:"-"`
	VectorCount int       `json:"vector_count"`
	// StyleMetrics is embedded so its fields serialize at the top level.
	StyleMetrics
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasStyleVector reports whether the profile carries a usable style vector.
func (p StyleProfile) HasStyleVector() bool {
	return len(p.StyleVector) > 0
}

// NewStyleProfile returns the lazily-created default profile for userID.
func NewStyleProfile(userID string, now time.Time) StyleProfile {
	return StyleProfile{
		UserID: userID,
		StyleMetrics: StyleMetrics{
			SignaturePhrases: []string{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SampleChunk is one embedded segment of a writing sample.
type SampleChunk struct {
	Index     int       `json:"index"`
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding"`
}

// WritingSample is a single text submission. Immutable once stored.
type WritingSample struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	RawText   string        `json:"raw_text"`
	Chunks    []SampleChunk `json:"chunks"`
	CreatedAt time.Time     `json:"created_at"`
}

// Embeddings returns the chunk embeddings in chunk order.
func (s WritingSample) Embeddings() [][]float64 {
	out := make([][]float64, 0, len(s.Chunks))
	for _, c := range s.Chunks {
		out = append(out, c.Embedding)
	}
	return out
}

// DriftResult is the outcome of scoring a candidate text against a profile.
type DriftResult struct {
	Score      float64   `json:"drift_score"`
	Tier       DriftTier `json:"drift_level"`
	Percentage int       `json:"similarity_percentage"`
}

// GenerationRecord is an audit entry for one generated text.
type GenerationRecord struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Prompt    string       `json:"input_prompt"`
	Output    string       `json:"generated_output"`
	Drift     *DriftResult `json:"drift,omitempty"`
	CreatedAt time.Time    `json:"timestamp"`
}

// Message is one turn of a conversation sent to a completion provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ValidationError reports malformed input. It is always surfaced to callers.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}
