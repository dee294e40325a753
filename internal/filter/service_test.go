package filter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/toolscope/internal/catalog"
	"github.com/fyrsmithlabs/toolscope/internal/contextbuild"
	"github.com/fyrsmithlabs/toolscope/internal/registry"
)

// scriptedProvider embeds documents onto fixed axes by keyword and returns a
// fixed query vector, so cosine scores are fully controlled by the test.
type scriptedProvider struct {
	mu         sync.Mutex
	queryVec   []float32
	queryCalls int
	queryErr   error
	queryDelay time.Duration
}

func (p *scriptedProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		switch {
		case strings.Contains(text, "inbox"):
			out[i] = []float32{1, 0, 0}
		case strings.Contains(text, "calendar"):
			out[i] = []float32{0, 1, 0}
		default:
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (p *scriptedProvider) EmbedQuery(ctx context.Context, _ string) ([]float32, error) {
	p.mu.Lock()
	p.queryCalls++
	p.mu.Unlock()

	if p.queryDelay > 0 {
		select {
		case <-time.After(p.queryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	vec := make([]float32, len(p.queryVec))
	copy(vec, p.queryVec)
	return vec, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queryCalls
}

func (p *scriptedProvider) Dimension() int { return 3 }
func (p *scriptedProvider) Close() error   { return nil }

func scenarioCatalog() []catalog.Server {
	return []catalog.Server{{
		ID:   "assistant",
		Name: "Assistant Tools",
		Tools: []catalog.Tool{
			{Name: "email_search", Description: "Search the inbox for messages"},
			{Name: "calendar_list", Description: "List calendar events"},
			{Name: "web_search", Description: "Query the public web"},
		},
	}}
}

// newScenarioService builds a service whose three tools score roughly
// {email_search: 0.94, calendar_list: 0.31, web_search: 0.10} against any
// context (normalization of the raw (0.9, 0.3, 0.1) query vector scales the
// components by ~1.048).
func newScenarioService(t *testing.T, cfg Config) (*Service, *scriptedProvider) {
	t.Helper()

	provider := &scriptedProvider{queryVec: []float32{0.9, 0.3, 0.1}}
	reg := registry.New(zap.NewNop())
	require.NoError(t, reg.Build(context.Background(), scenarioCatalog(), provider))

	svc, err := NewService(reg, provider, cfg)
	require.NoError(t, err)
	return svc, provider
}

func rankedNames(resp *Response) []string {
	out := make([]string, len(resp.Tools))
	for i, tool := range resp.Tools {
		out[i] = tool.ToolName
	}
	return out
}

func intPtr(v int) *int             { return &v }
func float32Ptr(v float32) *float32 { return &v }

func TestFilterTopKWithThreshold(t *testing.T) {
	svc, _ := newScenarioService(t, Config{})

	resp, err := svc.Filter(context.Background(), Request{
		Text: "find that message from yesterday",
		Options: Options{
			TopK:     intPtr(2),
			MinScore: float32Ptr(0.2),
		},
	})
	require.NoError(t, err)

	// web_search is below the threshold and outside topK anyway.
	assert.Equal(t, []string{"email_search", "calendar_list"}, rankedNames(resp))
	assert.Equal(t, 3, resp.Metrics.ToolsEvaluated)
	assert.Greater(t, resp.Tools[0].Score, resp.Tools[1].Score)
}

func TestFilterForcedEntryLeadsRegardlessOfScore(t *testing.T) {
	svc, _ := newScenarioService(t, Config{})

	resp, err := svc.Filter(context.Background(), Request{
		Text: "anything",
		Options: Options{
			TopK:          intPtr(1),
			MinScore:      float32Ptr(0.2),
			AlwaysInclude: []string{"web_search"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"web_search", "email_search"}, rankedNames(resp))
	assert.Less(t, resp.Tools[0].Score, float32(0.2), "forced entry bypasses the threshold")
}

func TestFilterExcludeBeatsAlwaysInclude(t *testing.T) {
	svc, _ := newScenarioService(t, Config{})

	resp, err := svc.Filter(context.Background(), Request{
		Text: "anything",
		Options: Options{
			TopK:          intPtr(3),
			AlwaysInclude: []string{"web_search"},
			Exclude:       []string{"web_search"},
		},
	})
	require.NoError(t, err)

	assert.NotContains(t, rankedNames(resp), "web_search")
	// Excluded tools never reach scoring.
	assert.Equal(t, 2, resp.Metrics.ToolsEvaluated)
}

func TestFilterCacheHitSkipsEmbedding(t *testing.T) {
	svc, provider := newScenarioService(t, Config{})
	req := Request{Text: "schedule a meeting with the team"}

	first, err := svc.Filter(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Metrics.CacheHit)
	assert.Equal(t, 1, provider.calls())

	second, err := svc.Filter(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Metrics.CacheHit)
	assert.Equal(t, time.Duration(0), second.Metrics.EmbeddingTime)
	assert.Equal(t, 1, provider.calls(), "cache hit must not call the provider")

	// Score-identical results.
	require.Equal(t, rankedNames(first), rankedNames(second))
	for i := range first.Tools {
		assert.Equal(t, first.Tools[i].Score, second.Tools[i].Score)
	}
}

func TestFilterUninitializedRegistry(t *testing.T) {
	provider := &scriptedProvider{queryVec: []float32{1, 0, 0}}
	svc, err := NewService(registry.New(nil), provider, Config{})
	require.NoError(t, err)

	_, err = svc.Filter(context.Background(), Request{Text: "anything"})
	assert.ErrorIs(t, err, registry.ErrUninitialized)
}

func TestFilterProviderFailurePropagates(t *testing.T) {
	svc, provider := newScenarioService(t, Config{})
	provider.queryErr = errors.New("upstream 429")

	_, err := svc.Filter(context.Background(), Request{Text: "fresh context"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 429")

	// A failed call never inserts into the cache.
	assert.Equal(t, 0, svc.Stats().CacheSize)
}

func TestFilterCanceledEmbeddingLeavesCacheClean(t *testing.T) {
	svc, provider := newScenarioService(t, Config{})
	provider.queryDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Filter(ctx, Request{Text: "doomed request"})
	require.Error(t, err)
	assert.Equal(t, 0, svc.Stats().CacheSize)
}

func TestFilterMessageInput(t *testing.T) {
	svc, _ := newScenarioService(t, Config{
		Defaults: Defaults{TopK: 3, ContextMessages: 10, MaxContextTokens: 500},
	})

	resp, err := svc.Filter(context.Background(), Request{
		Messages: []contextbuild.Message{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "what's on my calendar today?"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Tools, 3)
	assert.Equal(t, "email_search", resp.Tools[0].ToolName)
}

func TestFilterDefaultsApply(t *testing.T) {
	svc, _ := newScenarioService(t, Config{
		Defaults: Defaults{TopK: 1, MinScore: 0},
	})

	resp, err := svc.Filter(context.Background(), Request{Text: "anything"})
	require.NoError(t, err)
	assert.Equal(t, []string{"email_search"}, rankedNames(resp))
}

func TestFilterExplicitZeroTopK(t *testing.T) {
	svc, _ := newScenarioService(t, Config{Defaults: Defaults{TopK: 5}})

	resp, err := svc.Filter(context.Background(), Request{
		Text:    "anything",
		Options: Options{TopK: intPtr(0)},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Tools, "explicit topK=0 is not 'use default'")
}

func TestFilterConcurrentRequests(t *testing.T) {
	svc, _ := newScenarioService(t, Config{CacheEntries: 8})

	var wg sync.WaitGroup
	errCh := make(chan error, 32)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 4; i++ {
				_, err := svc.Filter(context.Background(), Request{
					Text: strings.Repeat("context ", g+1),
				})
				if err != nil {
					errCh <- err
				}
			}
		}(g)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent filter failed: %v", err)
	}
	assert.LessOrEqual(t, svc.Stats().CacheSize, 8)
}

func TestStats(t *testing.T) {
	svc, _ := newScenarioService(t, Config{})

	stats := svc.Stats()
	assert.True(t, stats.Initialized)
	assert.Equal(t, 3, stats.ToolCount)
	assert.Equal(t, 3, stats.EmbeddingDimensions)
	assert.Equal(t, 0, stats.CacheSize)

	_, err := svc.Filter(context.Background(), Request{Text: "warm the cache"})
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Stats().CacheSize)

	svc.ClearCache()
	assert.Equal(t, 0, svc.Stats().CacheSize)
}

func TestFilterDimensionMismatch(t *testing.T) {
	svc, provider := newScenarioService(t, Config{})
	provider.queryVec = []float32{1, 0, 0, 0} // registry built at dimension 3

	_, err := svc.Filter(context.Background(), Request{Text: "mismatched"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}
