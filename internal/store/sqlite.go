package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dshills/styletwin/internal/schema"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS user_profiles (
	user_id TEXT PRIMARY KEY,
	style_vector TEXT,
	vector_sum TEXT,
	vector_count INTEGER NOT NULL DEFAULT 0,
	formality_level REAL NOT NULL DEFAULT 0,
	avg_sentence_length INTEGER NOT NULL DEFAULT 0,
	unique_words_count INTEGER NOT NULL DEFAULT 0,
	positive_tone_percentage REAL NOT NULL DEFAULT 0,
	signature_phrases TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS writing_samples (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	raw_text TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_samples_user ON writing_samples(user_id, created_at);

CREATE TABLE IF NOT EXISTS sample_chunks (
	sample_id TEXT NOT NULL REFERENCES writing_samples(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	chunk_text TEXT NOT NULL,
	embedding TEXT NOT NULL,
	PRIMARY KEY (sample_id, chunk_index)
);

CREATE TABLE IF NOT EXISTS generation_history (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	input_prompt TEXT NOT NULL,
	generated_output TEXT NOT NULL,
	drift_score REAL,
	drift_level TEXT,
	similarity_percentage INTEGER,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_generations_user ON generation_history(user_id, created_at);
`

// SQLite is a Store backed by a modernc.org/sqlite database.
// It holds a single connection, so statements and transactions are
// serialized.
type SQLite struct {
	sqlRepo
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// Open opens or creates the database at path and applies the schema.
// The path ":memory:" opens a private in-memory database.
func Open(path string) (*SQLite, error) {
	dsn := path
	memory := path == ":memory:"
	if memory {
		// Named shared-cache database so every pooled connection sees the
		// same data while separate Stores stay isolated.
		dsn = fmt.Sprintf("file:styletwin-%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}
	pragmas := []string{"PRAGMA foreign_keys=ON"}
	if !memory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLite{sqlRepo: sqlRepo{q: db}, db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a database transaction.
func (s *SQLite) WithTx(ctx context.Context, fn func(Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	if err := fn(sqlRepo{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("store: rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// AppendSample stores the sample and its chunks in one transaction.
func (s *SQLite) AppendSample(ctx context.Context, sample schema.WritingSample) error {
	return s.WithTx(ctx, func(r Repository) error {
		return r.AppendSample(ctx, sample)
	})
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlRepo struct {
	q querier
}

func (r sqlRepo) GetProfile(ctx context.Context, userID string) (schema.StyleProfile, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT user_id, style_vector, vector_sum, vector_count,
			formality_level, avg_sentence_length, unique_words_count,
			positive_tone_percentage, signature_phrases, created_at, updated_at
		FROM user_profiles WHERE user_id = ?`, userID)

	var (
		p                      schema.StyleProfile
		styleVector, vectorSum sql.NullString
		phrases                string
		createdAt, updatedAt   string
	)
	err := row.Scan(&p.UserID, &styleVector, &vectorSum, &p.VectorCount,
		&p.FormalityLevel, &p.AvgSentenceLength, &p.UniqueWordsCount,
		&p.PositiveTonePercentage, &phrases, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.StyleProfile{}, ErrNotFound
	}
	if err != nil {
		return schema.StyleProfile{}, fmt.Errorf("store: get profile %s: %w", userID, err)
	}

	if p.StyleVector, err = decodeVector(styleVector); err != nil {
		return schema.StyleProfile{}, fmt.Errorf("store: get profile %s: style_vector: %w", userID, err)
	}
	if p.VectorSum, err = decodeVector(vectorSum); err != nil {
		return schema.StyleProfile{}, fmt.Errorf("store: get profile %s: vector_sum: %w", userID, err)
	}
	p.SignaturePhrases = []string{}
	if err := json.Unmarshal([]byte(phrases), &p.SignaturePhrases); err != nil {
		return schema.StyleProfile{}, fmt.Errorf("store: get profile %s: signature_phrases: %w", userID, err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return schema.StyleProfile{}, fmt.Errorf("store: get profile %s: %w", userID, err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return schema.StyleProfile{}, fmt.Errorf("store: get profile %s: %w", userID, err)
	}
	return p, nil
}

func (r sqlRepo) PutProfile(ctx context.Context, p schema.StyleProfile) error {
	if p.UserID == "" {
		return &schema.ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	styleVector, err := encodeVector(p.StyleVector)
	if err != nil {
		return fmt.Errorf("store: put profile %s: %w", p.UserID, err)
	}
	vectorSum, err := encodeVector(p.VectorSum)
	if err != nil {
		return fmt.Errorf("store: put profile %s: %w", p.UserID, err)
	}
	phrases := p.SignaturePhrases
	if phrases == nil {
		phrases = []string{}
	}
	phrasesJSON, err := json.Marshal(phrases)
	if err != nil {
		return fmt.Errorf("store: put profile %s: %w", p.UserID, err)
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO user_profiles (
			user_id, style_vector, vector_sum, vector_count,
			formality_level, avg_sentence_length, unique_words_count,
			positive_tone_percentage, signature_phrases, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			style_vector = excluded.style_vector,
			vector_sum = excluded.vector_sum,
			vector_count = excluded.vector_count,
			formality_level = excluded.formality_level,
			avg_sentence_length = excluded.avg_sentence_length,
			unique_words_count = excluded.unique_words_count,
			positive_tone_percentage = excluded.positive_tone_percentage,
			signature_phrases = excluded.signature_phrases,
			updated_at = excluded.updated_at`,
		p.UserID, styleVector, vectorSum, p.VectorCount,
		p.FormalityLevel, p.AvgSentenceLength, p.UniqueWordsCount,
		p.PositiveTonePercentage, string(phrasesJSON),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("store: put profile %s: %w", p.UserID, err)
	}
	return nil
}

func (r sqlRepo) ListSampleEmbeddings(ctx context.Context, userID string) ([][]float64, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT c.embedding
		FROM sample_chunks c
		JOIN writing_samples s ON s.id = c.sample_id
		WHERE s.user_id = ?
		ORDER BY s.created_at, s.rowid, c.chunk_index`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list embeddings %s: %w", userID, err)
	}
	defer rows.Close()

	var out [][]float64
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: list embeddings %s: %w", userID, err)
		}
		v, err := decodeVector(sql.NullString{String: raw, Valid: true})
		if err != nil {
			return nil, fmt.Errorf("store: list embeddings %s: %w", userID, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list embeddings %s: %w", userID, err)
	}
	return out, nil
}

func (r sqlRepo) AppendSample(ctx context.Context, s schema.WritingSample) error {
	if s.ID == "" {
		return &schema.ValidationError{Field: "id", Message: "must not be empty"}
	}
	if s.UserID == "" {
		return &schema.ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO writing_samples (id, user_id, raw_text, created_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, s.RawText, formatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("store: append sample %s: %w", s.ID, err)
	}
	for _, c := range s.Chunks {
		emb, err := json.Marshal(c.Embedding)
		if err != nil {
			return fmt.Errorf("store: append sample %s: chunk %d: %w", s.ID, c.Index, err)
		}
		_, err = r.q.ExecContext(ctx,
			`INSERT INTO sample_chunks (sample_id, chunk_index, chunk_text, embedding) VALUES (?, ?, ?, ?)`,
			s.ID, c.Index, c.Text, string(emb))
		if err != nil {
			return fmt.Errorf("store: append sample %s: chunk %d: %w", s.ID, c.Index, err)
		}
	}
	return nil
}

func (r sqlRepo) ListRecentSamples(ctx context.Context, userID string, limit int) ([]schema.WritingSample, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, raw_text, created_at
		FROM writing_samples
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list samples %s: %w", userID, err)
	}
	defer rows.Close()

	out := []schema.WritingSample{}
	for rows.Next() {
		var (
			s         schema.WritingSample
			createdAt string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.RawText, &createdAt); err != nil {
			return nil, fmt.Errorf("store: list samples %s: %w", userID, err)
		}
		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("store: list samples %s: %w", userID, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list samples %s: %w", userID, err)
	}
	return out, nil
}

func (r sqlRepo) AppendGeneration(ctx context.Context, g schema.GenerationRecord) error {
	if g.ID == "" {
		return &schema.ValidationError{Field: "id", Message: "must not be empty"}
	}
	var (
		score sql.NullFloat64
		level sql.NullString
		pct   sql.NullInt64
	)
	if g.Drift != nil {
		score = sql.NullFloat64{Float64: g.Drift.Score, Valid: true}
		level = sql.NullString{String: string(g.Drift.Tier), Valid: true}
		pct = sql.NullInt64{Int64: int64(g.Drift.Percentage), Valid: true}
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO generation_history (
			id, user_id, input_prompt, generated_output,
			drift_score, drift_level, similarity_percentage, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Prompt, g.Output, score, level, pct, formatTime(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("store: append generation %s: %w", g.ID, err)
	}
	return nil
}

func (r sqlRepo) ListGenerations(ctx context.Context, userID string, limit int) ([]schema.GenerationRecord, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, input_prompt, generated_output,
			drift_score, drift_level, similarity_percentage, created_at
		FROM generation_history
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list generations %s: %w", userID, err)
	}
	defer rows.Close()

	out := []schema.GenerationRecord{}
	for rows.Next() {
		var (
			g         schema.GenerationRecord
			score     sql.NullFloat64
			level     sql.NullString
			pct       sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Prompt, &g.Output, &score, &level, &pct, &createdAt); err != nil {
			return nil, fmt.Errorf("store: list generations %s: %w", userID, err)
		}
		if score.Valid {
			g.Drift = &schema.DriftResult{
				Score:      score.Float64,
				Tier:       schema.DriftTier(level.String),
				Percentage: int(pct.Int64),
			}
		}
		if g.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("store: list generations %s: %w", userID, err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list generations %s: %w", userID, err)
	}
	return out, nil
}

// encodeVector stores nil as NULL and everything else as a JSON array.
func encodeVector(v []float64) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeVector(ns sql.NullString) ([]float64, error) {
	if !ns.Valid {
		return nil, nil
	}
	var v []float64
	if err := json.Unmarshal([]byte(ns.String), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
