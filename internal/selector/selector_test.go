package selector

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/toolscope/internal/registry"
)

func candidate(name string, score float32) registry.ScoredTool {
	return registry.ScoredTool{
		Tool:  &registry.ToolRecord{ServerID: "test", ToolName: name},
		Score: score,
	}
}

func names(selected []registry.ScoredTool) []string {
	out := make([]string, len(selected))
	for i, s := range selected {
		out[i] = s.Tool.ToolName
	}
	return out
}

// Fixture matching the stock three-tool scenario: email_search 0.9,
// calendar_list 0.3, web_search 0.1.
func threeTools() []registry.ScoredTool {
	return []registry.ScoredTool{
		candidate("email_search", 0.9),
		candidate("calendar_list", 0.3),
		candidate("web_search", 0.1),
	}
}

func TestTopKWithMinScore(t *testing.T) {
	got := Select(threeTools(), Options{TopK: 2, MinScore: 0.2})
	assert.Equal(t, []string{"email_search", "calendar_list"}, names(got))
}

func TestForcedBypassesThresholdAndLeads(t *testing.T) {
	got := Select(threeTools(), Options{
		TopK:          1,
		MinScore:      0.2,
		AlwaysInclude: []string{"web_search"},
	})
	// Forced first regardless of its 0.1 score, then the single best eligible.
	require.Equal(t, []string{"web_search", "email_search"}, names(got))
	assert.InDelta(t, 0.1, float64(got[0].Score), 1e-6)
}

func TestForcedBelowMeritCutKeepsSlotsFree(t *testing.T) {
	// web_search passes the (zero) threshold but would not have made the
	// top-1 on score, so it must not displace email_search.
	got := Select(threeTools(), Options{
		TopK:          1,
		AlwaysInclude: []string{"web_search"},
	})
	assert.Equal(t, []string{"web_search", "email_search"}, names(got))
}

func TestForcedCountsAgainstTopK(t *testing.T) {
	got := Select(threeTools(), Options{
		TopK:          2,
		AlwaysInclude: []string{"calendar_list"},
	})
	// One slot remains after the forced entry.
	assert.Equal(t, []string{"calendar_list", "email_search"}, names(got))
}

func TestForcedOverflowLeavesNoEligibleSlots(t *testing.T) {
	got := Select(threeTools(), Options{
		TopK:          1,
		AlwaysInclude: []string{"email_search", "web_search"},
	})
	assert.Equal(t, []string{"email_search", "web_search"}, names(got))
}

func TestTopKZeroReturnsOnlyForced(t *testing.T) {
	got := Select(threeTools(), Options{TopK: 0, AlwaysInclude: []string{"web_search"}})
	assert.Equal(t, []string{"web_search"}, names(got))

	got = Select(threeTools(), Options{TopK: 0})
	assert.Empty(t, got)

	got = Select(threeTools(), Options{TopK: -3})
	assert.Empty(t, got)
}

func TestOutputLengthBound(t *testing.T) {
	got := Select(threeTools(), Options{TopK: 2, AlwaysInclude: []string{"web_search"}})
	assert.LessOrEqual(t, len(got), 2+1)
}

func TestTopKLargerThanPool(t *testing.T) {
	got := Select(threeTools(), Options{TopK: 50})
	assert.Equal(t, []string{"email_search", "calendar_list", "web_search"}, names(got))
}

func TestMinScoreDropsEverything(t *testing.T) {
	got := Select(threeTools(), Options{TopK: 3, MinScore: 0.95})
	assert.Empty(t, got)
}

func TestStableOnTies(t *testing.T) {
	pool := []registry.ScoredTool{
		candidate("first", 0.5),
		candidate("second", 0.5),
		candidate("third", 0.5),
		candidate("fourth", 0.7),
	}
	got := Select(pool, Options{TopK: 3})
	assert.Equal(t, []string{"fourth", "first", "second"}, names(got))
}

func TestEmptyCandidates(t *testing.T) {
	got := Select(nil, Options{TopK: 5, AlwaysInclude: []string{"ghost"}})
	assert.Empty(t, got)
}

// Both selection policies must rank identically; run the heap path against
// the sort path over a large randomized pool.
func TestHeapAndSortPathsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pool := make([]registry.ScoredTool, heapSelectionThreshold+500)
	for i := range pool {
		// Coarse scores force plenty of ties.
		pool[i] = candidate(fmt.Sprintf("tool_%04d", i), float32(rng.Intn(20))/20)
	}

	const k = 25
	viaHeap := topByScore(pool, k)

	small := make([]registry.ScoredTool, len(pool))
	copy(small, pool)
	viaSort := topByScore(small[:heapSelectionThreshold], k) // sort path on a prefix

	// Cross-check the heap path against an independent full sort of the pool.
	h := newBoundedHeap(k, func(c registry.ScoredTool) float32 { return c.Score })
	for i, c := range pool {
		h.Offer(c, i)
	}
	assert.Equal(t, names(h.Sorted()), names(viaHeap))

	// Sort path sanity: descending and stable.
	for i := 1; i < len(viaSort); i++ {
		assert.GreaterOrEqual(t, viaSort[i-1].Score, viaSort[i].Score)
	}

	// Full agreement on the same input either side of the threshold.
	reference := topByScore(pool[:heapSelectionThreshold], k)
	viaHeapSame := func() []registry.ScoredTool {
		hh := newBoundedHeap(k, func(c registry.ScoredTool) float32 { return c.Score })
		for i, c := range pool[:heapSelectionThreshold] {
			hh.Offer(c, i)
		}
		return hh.Sorted()
	}()
	assert.Equal(t, names(reference), names(viaHeapSame))
}

func TestBoundedHeapKZero(t *testing.T) {
	h := newBoundedHeap(0, func(c registry.ScoredTool) float32 { return c.Score })
	h.Offer(candidate("x", 1), 0)
	assert.Empty(t, h.Sorted())
}

func TestBoundedHeapKeepsBest(t *testing.T) {
	h := newBoundedHeap(2, func(c registry.ScoredTool) float32 { return c.Score })
	for i, s := range []float32{0.1, 0.9, 0.5, 0.7, 0.2} {
		h.Offer(candidate(fmt.Sprintf("t%d", i), s), i)
	}
	got := h.Sorted()
	require.Len(t, got, 2)
	assert.Equal(t, []string{"t1", "t3"}, names(got))
}
