// Package engine orchestrates the style profile operations: it chunks and
// embeds samples, keeps each user's style vector current, scores drift, and
// drives persona generation. Provider calls are throttled, bounded by a
// per-call timeout, and retried here.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dshills/styletwin/internal/aggregate"
	"github.com/dshills/styletwin/internal/chunker"
	"github.com/dshills/styletwin/internal/config"
	"github.com/dshills/styletwin/internal/drift"
	"github.com/dshills/styletwin/internal/lexicon"
	"github.com/dshills/styletwin/internal/llm"
	"github.com/dshills/styletwin/internal/logger"
	"github.com/dshills/styletwin/internal/metrics"
	"github.com/dshills/styletwin/internal/persona"
	"github.com/dshills/styletwin/internal/schema"
	"github.com/dshills/styletwin/internal/store"
)

var (
	// ErrMissingInput is returned when a required request field is empty.
	ErrMissingInput = errors.New("engine: missing required input")
	// ErrStyleVectorUnset is returned when drift is requested for a profile
	// that has no style vector yet.
	ErrStyleVectorUnset = errors.New("engine: profile has no style vector")
)

// Completion settings for the two persona operations.
const (
	GenerateTemperature = 0.7
	GenerateMaxTokens   = 500
	ChatTemperature     = 0.8
	ChatMaxTokens       = 300
)

// Deps are the collaborators a Service needs. Generator and Chat may be the
// same Completer.
type Deps struct {
	Store     store.Store
	Embedder  llm.Embedder
	Generator llm.Completer
	Chat      llm.Completer
	Lexicon   lexicon.Lexicon
	Logger    *logger.Logger
}

// Options tune a Service. Zero values fall back to the config defaults.
type Options struct {
	ChunkSize        int
	RecentSamples    int
	Aggregation      aggregate.Mode
	EmbedConcurrency int
	// EmbedRate is embedding calls per second; 0 disables throttling.
	EmbedRate             float64
	EmbedBurst            int
	RequestTimeout        time.Duration
	MaxRetries            int
	RetryBackoff          time.Duration
	DriftCheckGenerations bool
	GenerationModel       string
	ChatModel             string
}

// OptionsFromConfig maps loaded configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	mode, err := aggregate.ParseMode(cfg.Engine.Aggregation)
	if err != nil {
		return Options{}, err
	}
	e := cfg.Engine
	return Options{
		ChunkSize:             e.ChunkSize,
		RecentSamples:         e.RecentSamples,
		Aggregation:           mode,
		EmbedConcurrency:      e.EmbedConcurrency,
		EmbedRate:             e.EmbedRate,
		EmbedBurst:            e.EmbedBurst,
		RequestTimeout:        e.RequestTimeout.Duration,
		MaxRetries:            e.MaxRetries,
		RetryBackoff:          e.RetryBackoff.Duration,
		DriftCheckGenerations: e.DriftCheckGenerations,
		GenerationModel:       cfg.Generation.Model,
		ChatModel:             cfg.Chat.Model,
	}, nil
}

func (o Options) withDefaults() Options {
	d := config.Default().Engine
	if o.ChunkSize < 1 {
		o.ChunkSize = d.ChunkSize
	}
	if o.RecentSamples <= 0 {
		o.RecentSamples = d.RecentSamples
	}
	if o.Aggregation == "" {
		o.Aggregation = aggregate.ModeFull
	}
	if o.EmbedConcurrency < 1 {
		o.EmbedConcurrency = d.EmbedConcurrency
	}
	if o.EmbedBurst < 1 {
		o.EmbedBurst = d.EmbedBurst
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = d.RequestTimeout.Duration
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	return o
}

// Service runs the style profile operations against one store.
type Service struct {
	store     store.Store
	embedder  llm.Embedder
	generator llm.Completer
	chat      llm.Completer
	analyzer  metrics.Analyzer
	log       *logger.Logger
	opts      Options
	limiter   *rate.Limiter
	locks     *keyedMutex

	now   func() time.Time
	newID func() string
}

// New builds a Service. Store and Embedder are required; a missing Completer
// only fails the operations that need it.
func New(deps Deps, opts Options) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if deps.Embedder == nil {
		return nil, errors.New("engine: embedder is required")
	}
	if deps.Chat == nil {
		deps.Chat = deps.Generator
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	opts = opts.withDefaults()

	limit := rate.Inf
	if opts.EmbedRate > 0 {
		limit = rate.Limit(opts.EmbedRate)
	}
	return &Service{
		store:     deps.Store,
		embedder:  deps.Embedder,
		generator: deps.Generator,
		chat:      deps.Chat,
		analyzer:  metrics.Analyzer{Lexicon: deps.Lexicon},
		log:       log,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, opts.EmbedBurst),
		locks:     newKeyedMutex(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}, nil
}

// SampleResult reports the outcome of AddSample.
type SampleResult struct {
	SampleID string              `json:"sample_id"`
	Chunks   int                 `json:"chunks"`
	Metrics  schema.StyleMetrics `json:"metrics"`
	Profile  schema.StyleProfile `json:"profile"`
}

// AddSample chunks and embeds rawText, stores it as a new sample for userID,
// and recomputes the user's style vector and metrics. The profile is created
// on first use. Concurrent calls for the same user are serialized so no
// sample is lost from the aggregate.
func (s *Service) AddSample(ctx context.Context, userID, rawText string) (SampleResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SampleResult{}, fmt.Errorf("%w: userId", ErrMissingInput)
	}
	if strings.TrimSpace(rawText) == "" {
		return SampleResult{}, fmt.Errorf("%w: rawText", ErrMissingInput)
	}

	texts := chunker.Chunk(rawText, s.opts.ChunkSize)
	embeddings, err := s.embedAll(ctx, texts)
	if err != nil {
		return SampleResult{}, err
	}
	if _, err := aggregate.Fold(embeddings); err != nil {
		return SampleResult{}, fmt.Errorf("engine: sample embeddings: %w", err)
	}
	m := s.analyzer.Analyze(rawText)

	now := s.now()
	sample := schema.WritingSample{
		ID:        s.newID(),
		UserID:    userID,
		RawText:   rawText,
		Chunks:    make([]schema.SampleChunk, len(texts)),
		CreatedAt: now,
	}
	for i, text := range texts {
		sample.Chunks[i] = schema.SampleChunk{Index: i, Text: text, Embedding: embeddings[i]}
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	var profile schema.StyleProfile
	err = s.store.WithTx(ctx, func(r store.Repository) error {
		p, err := r.GetProfile(ctx, userID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			p = schema.NewStyleProfile(userID, now)
		case err != nil:
			return err
		}
		if err := r.AppendSample(ctx, sample); err != nil {
			return err
		}
		c, err := s.recompute(ctx, r, p, embeddings)
		if err != nil {
			return err
		}
		if c.Count > 0 {
			p.StyleVector = c.Mean()
		}
		p.VectorSum = c.Sum
		p.VectorCount = c.Count
		p.StyleMetrics = m
		p.UpdatedAt = now
		if err := r.PutProfile(ctx, p); err != nil {
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		return SampleResult{}, fmt.Errorf("engine: add sample: %w", err)
	}

	s.log.Info("sample processed",
		"user_id", userID,
		"sample_id", sample.ID,
		"chunks", len(texts),
		"vector_count", profile.VectorCount,
	)
	return SampleResult{
		SampleID: sample.ID,
		Chunks:   len(texts),
		Metrics:  m,
		Profile:  profile,
	}, nil
}

// recompute returns the centroid after the new sample has been stored. In
// full mode every stored embedding is re-read; in incremental mode the
// persisted running sum is extended.
func (s *Service) recompute(ctx context.Context, r store.Repository, p schema.StyleProfile, added [][]float64) (aggregate.Centroid, error) {
	if s.opts.Aggregation == aggregate.ModeIncremental {
		c := aggregate.Resume(p.VectorSum, p.VectorCount)
		for i, v := range added {
			if err := c.Add(v); err != nil {
				return aggregate.Centroid{}, fmt.Errorf("aggregate: chunk %d: %w", i, err)
			}
		}
		return c, nil
	}
	all, err := r.ListSampleEmbeddings(ctx, p.UserID)
	if err != nil {
		return aggregate.Centroid{}, err
	}
	return aggregate.Fold(all)
}

// CheckDrift embeds text and scores it against userID's style vector.
func (s *Service) CheckDrift(ctx context.Context, userID, text string) (schema.DriftResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return schema.DriftResult{}, fmt.Errorf("%w: userId", ErrMissingInput)
	}
	if strings.TrimSpace(text) == "" {
		return schema.DriftResult{}, fmt.Errorf("%w: generatedText", ErrMissingInput)
	}
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return schema.DriftResult{}, err
	}
	return s.score(ctx, p, text)
}

func (s *Service) score(ctx context.Context, p schema.StyleProfile, text string) (schema.DriftResult, error) {
	if !p.HasStyleVector() {
		return schema.DriftResult{}, fmt.Errorf("engine: drift for %q: %w", p.UserID, ErrStyleVectorUnset)
	}
	v, err := s.embed(ctx, text)
	if err != nil {
		return schema.DriftResult{}, fmt.Errorf("engine: drift: %w", err)
	}
	res, err := drift.Detect(v, p.StyleVector)
	if err != nil {
		return schema.DriftResult{}, fmt.Errorf("engine: drift: %w", err)
	}
	return res, nil
}

// GenerateOptions adjusts a single Generate call.
type GenerateOptions struct {
	// CheckDrift scores the output against the profile even when drift
	// checking is not enabled service-wide.
	CheckDrift bool
}

// GenerateResult is the output of Generate.
type GenerateResult struct {
	Text        string                  `json:"generated_text"`
	StyleVector []float64               `json:"style_vector"`
	Record      schema.GenerationRecord `json:"record"`
}

// Generate writes a response to prompt in userID's voice and records it in
// the generation history.
func (s *Service) Generate(ctx context.Context, userID, prompt string, opts GenerateOptions) (GenerateResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return GenerateResult{}, fmt.Errorf("%w: userId", ErrMissingInput)
	}
	if strings.TrimSpace(prompt) == "" {
		return GenerateResult{}, fmt.Errorf("%w: prompt", ErrMissingInput)
	}
	if s.generator == nil {
		return GenerateResult{}, errors.New("engine: no generation provider configured")
	}
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return GenerateResult{}, err
	}
	system, err := s.systemPrompt(ctx, p)
	if err != nil {
		return GenerateResult{}, err
	}

	messages := []schema.Message{
		{Role: schema.RoleSystem, Content: system},
		{Role: schema.RoleUser, Content: prompt},
	}
	params := llm.Params{Model: s.opts.GenerationModel, Temperature: GenerateTemperature, MaxTokens: GenerateMaxTokens}
	text, err := s.complete(ctx, "generate", s.generator, messages, params)
	if err != nil {
		return GenerateResult{}, err
	}

	rec := schema.GenerationRecord{
		ID:        s.newID(),
		UserID:    userID,
		Prompt:    prompt,
		Output:    text,
		CreatedAt: s.now(),
	}
	if (opts.CheckDrift || s.opts.DriftCheckGenerations) && p.HasStyleVector() {
		res, err := s.score(ctx, p, text)
		if err != nil {
			s.log.Warn("drift check of generated text failed", "user_id", userID, "error", err)
		} else {
			rec.Drift = &res
		}
	}
	if err := s.store.AppendGeneration(ctx, rec); err != nil {
		s.log.Error("failed to record generation", "user_id", userID, "generation_id", rec.ID, "error", err)
	}

	s.log.Info("text generated", "user_id", userID, "generation_id", rec.ID, "chars", len(text))
	return GenerateResult{Text: text, StyleVector: p.StyleVector, Record: rec}, nil
}

// ChatResult is the output of Chat.
type ChatResult struct {
	Response    string    `json:"response"`
	StyleVector []float64 `json:"style_vector"`
}

// Chat continues a conversation in userID's voice. Only user and assistant
// turns with content are taken from history.
func (s *Service) Chat(ctx context.Context, userID, message string, history []schema.Message) (ChatResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ChatResult{}, fmt.Errorf("%w: userId", ErrMissingInput)
	}
	if strings.TrimSpace(message) == "" {
		return ChatResult{}, fmt.Errorf("%w: message", ErrMissingInput)
	}
	if s.chat == nil {
		return ChatResult{}, errors.New("engine: no chat provider configured")
	}
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return ChatResult{}, err
	}
	system, err := s.systemPrompt(ctx, p)
	if err != nil {
		return ChatResult{}, err
	}

	messages := make([]schema.Message, 0, len(history)+2)
	messages = append(messages, schema.Message{Role: schema.RoleSystem, Content: system})
	for _, m := range history {
		if (m.Role == schema.RoleUser || m.Role == schema.RoleAssistant) && strings.TrimSpace(m.Content) != "" {
			messages = append(messages, m)
		}
	}
	messages = append(messages, schema.Message{Role: schema.RoleUser, Content: message})

	params := llm.Params{Model: s.opts.ChatModel, Temperature: ChatTemperature, MaxTokens: ChatMaxTokens}
	text, err := s.complete(ctx, "chat", s.chat, messages, params)
	if err != nil {
		return ChatResult{}, err
	}
	return ChatResult{Response: text, StyleVector: p.StyleVector}, nil
}

// Profile returns userID's stored profile. The error wraps store.ErrNotFound
// when the user has never submitted a sample.
func (s *Service) Profile(ctx context.Context, userID string) (schema.StyleProfile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return schema.StyleProfile{}, fmt.Errorf("%w: userId", ErrMissingInput)
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return schema.StyleProfile{}, fmt.Errorf("engine: profile %q: %w", userID, err)
	}
	return p, nil
}

// History returns up to limit generation records for userID, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]schema.GenerationRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: userId", ErrMissingInput)
	}
	recs, err := s.store.ListGenerations(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("engine: history %q: %w", userID, err)
	}
	return recs, nil
}

func (s *Service) systemPrompt(ctx context.Context, p schema.StyleProfile) (string, error) {
	recent, err := s.store.ListRecentSamples(ctx, p.UserID, s.opts.RecentSamples)
	if err != nil {
		return "", fmt.Errorf("engine: recent samples: %w", err)
	}
	texts := make([]string, len(recent))
	for i, r := range recent {
		texts[i] = r.RawText
	}
	return persona.SystemPrompt(texts, p.StyleMetrics), nil
}

// embedAll embeds texts concurrently. Results keep the input order.
func (s *Service) embedAll(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.EmbedConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			v, err := s.embed(gctx, text)
			if err != nil {
				return fmt.Errorf("engine: embed chunk %d: %w", i, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) embed(ctx context.Context, text string) ([]float64, error) {
	var v []float64
	err := s.withRetry(ctx, "embed", s.limiter, func(ctx context.Context) error {
		var err error
		v, err = s.embedder.Embed(ctx, text)
		return err
	})
	return v, err
}

func (s *Service) complete(ctx context.Context, op string, c llm.Completer, messages []schema.Message, params llm.Params) (string, error) {
	var text string
	err := s.withRetry(ctx, op, nil, func(ctx context.Context) error {
		var err error
		text, err = c.Complete(ctx, messages, params)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("engine: %s: %w", op, err)
	}
	return text, nil
}

// withRetry runs fn under a per-attempt timeout, repeating retryable
// failures up to MaxRetries times with exponential backoff. A non-nil limiter
// is waited on against ctx before each attempt, so throttling delays do not
// count toward the per-attempt timeout.
func (s *Service) withRetry(ctx context.Context, op string, limiter *rate.Limiter, fn func(context.Context) error) error {
	backoff := s.opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt >= s.opts.MaxRetries || ctx.Err() != nil || !llm.Retryable(err) {
			return err
		}
		s.log.Warn("provider call failed, retrying",
			"op", op,
			"attempt", attempt+1,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
