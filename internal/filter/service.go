// Package filter is the orchestrator of the scoring pipeline: context
// building, embedding-cache lookup, similarity scoring against the registry,
// and constrained top-k selection.
//
// The Service is long-lived and safe for concurrent use. The registry is
// immutable post-build and scored without locking; the embedding cache takes
// a brief lock per lookup. No request blocks another except through that
// cache lock, which is never held across an embedding-provider call — two
// concurrent requests with the same uncached context may both embed it and
// both write the identical result, which is accepted duplication.
package filter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/toolscope/internal/contextbuild"
	"github.com/fyrsmithlabs/toolscope/internal/embeddings"
	"github.com/fyrsmithlabs/toolscope/internal/lru"
	"github.com/fyrsmithlabs/toolscope/internal/registry"
	"github.com/fyrsmithlabs/toolscope/internal/selector"
	"github.com/fyrsmithlabs/toolscope/internal/vectorops"
)

// Fallbacks for zero-valued Config fields.
const (
	// DefaultCacheEntries is the default context-embedding cache capacity.
	DefaultCacheEntries = 100

	// DefaultTopK bounds eligible results when the config does not say.
	DefaultTopK = 10

	// DefaultContextMessages bounds the trailing message window.
	DefaultContextMessages = 10

	// DefaultMaxContextTokens bounds the context string's token budget.
	DefaultMaxContextTokens = 2000
)

// Config configures a filter Service.
type Config struct {
	// CacheEntries is the context-embedding cache capacity.
	// Defaults to DefaultCacheEntries.
	CacheEntries int

	// Defaults fill in unset per-request options.
	Defaults Defaults

	// Logger for structured logging. Defaults to a nop logger.
	Logger *zap.Logger
}

// Service wires the filter pipeline over a shared registry, embedding
// provider, and context-embedding cache.
type Service struct {
	registry *registry.Registry
	provider embeddings.Provider
	cache    *lru.Cache[uint64, []float32]
	defaults Defaults
	logger   *zap.Logger
	metrics  *serviceMetrics
}

// NewService creates a filter service.
func NewService(reg *registry.Registry, provider embeddings.Provider, cfg Config) (*Service, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}

	entries := cfg.CacheEntries
	if entries <= 0 {
		entries = DefaultCacheEntries
	}
	if cfg.Defaults.TopK <= 0 {
		cfg.Defaults.TopK = DefaultTopK
	}
	if cfg.Defaults.ContextMessages <= 0 {
		cfg.Defaults.ContextMessages = DefaultContextMessages
	}
	if cfg.Defaults.MaxContextTokens <= 0 {
		cfg.Defaults.MaxContextTokens = DefaultMaxContextTokens
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		registry: reg,
		provider: provider,
		cache:    lru.New[uint64, []float32](entries),
		defaults: cfg.Defaults,
		logger:   logger,
		metrics:  newServiceMetrics(logger),
	}, nil
}

// Filter ranks the registry's tools against the request's context and applies
// the request's constraints. Provider failures and dimension mismatches fail
// the whole request; nothing is retried here.
func (s *Service) Filter(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	requestID := uuid.NewString()

	var reqErr error
	var m Metrics
	defer func() {
		m.TotalTime = time.Since(start)
		s.metrics.recordFilter(ctx, m, reqErr)
	}()

	if !s.registry.Initialized() {
		reqErr = registry.ErrUninitialized
		return nil, reqErr
	}

	opts := s.defaults.resolve(req.Options)

	// Stage: context build.
	buildStart := time.Now()
	var contextStr string
	if len(req.Messages) > 0 {
		contextStr = contextbuild.FromMessages(req.Messages, opts.contextMessages, opts.maxContextTokens)
	} else {
		contextStr = contextbuild.FromText(req.Text, opts.maxContextTokens)
	}
	m.ContextBuildTime = time.Since(buildStart)

	// Stage: context embedding, served from cache when possible.
	fingerprint := contextbuild.Fingerprint(contextStr)
	contextVec, hit := s.cache.Get(fingerprint)
	m.CacheHit = hit
	if !hit {
		embedStart := time.Now()
		raw, err := s.provider.EmbedQuery(ctx, contextStr)
		m.EmbeddingTime = time.Since(embedStart)
		if err != nil {
			// A failed or canceled call never inserts into the cache.
			reqErr = fmt.Errorf("embedding context: %w", err)
			return nil, reqErr
		}
		// The raw buffer is not reused elsewhere, so normalize in place.
		contextVec = vectorops.Normalize(raw, true)
		s.cache.Put(fingerprint, contextVec)
	}

	// Stage: similarity scoring over the full registry, linear scan.
	scoreStart := time.Now()
	candidates := make([]registry.ScoredTool, 0, s.registry.Len())
	err := s.registry.Range(func(rec *registry.ToolRecord) error {
		if opts.exclude[rec.ToolName] {
			return nil
		}
		score, err := vectorops.Similarity(contextVec, rec.Embedding)
		if err != nil {
			return fmt.Errorf("scoring %s: %w", rec.Key(), err)
		}
		candidates = append(candidates, registry.ScoredTool{Tool: rec, Score: score})
		return nil
	})
	m.SimilarityTime = time.Since(scoreStart)
	m.ToolsEvaluated = len(candidates)
	if err != nil {
		reqErr = err
		return nil, reqErr
	}

	// Stage: constrained selection.
	selectStart := time.Now()
	selected := selector.Select(candidates, selector.Options{
		TopK:          opts.topK,
		MinScore:      opts.minScore,
		AlwaysInclude: opts.alwaysInclude,
	})
	m.SelectionTime = time.Since(selectStart)

	tools := make([]RankedTool, len(selected))
	for i, c := range selected {
		tools[i] = RankedTool{
			ServerID: c.Tool.ServerID,
			ToolName: c.Tool.ToolName,
			Tool:     c.Tool,
			Score:    c.Score,
		}
	}

	s.logger.Debug("filter request served",
		zap.String("request_id", requestID),
		zap.Int("tools_evaluated", m.ToolsEvaluated),
		zap.Int("tools_returned", len(tools)),
		zap.Bool("cache_hit", hit),
		zap.Duration("embedding_time", m.EmbeddingTime),
	)

	m.TotalTime = time.Since(start)
	return &Response{Tools: tools, Metrics: m}, nil
}

// Stats reports the engine's long-lived state.
func (s *Service) Stats() Stats {
	return Stats{
		Initialized:         s.registry.Initialized(),
		ToolCount:           s.registry.Len(),
		CacheSize:           s.cache.Len(),
		EmbeddingDimensions: s.registry.Dimension(),
	}
}

// ClearCache drops every cached context embedding.
func (s *Service) ClearCache() {
	s.cache.Clear()
	s.logger.Info("context embedding cache cleared")
}
