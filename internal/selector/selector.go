// Package selector applies inclusion, threshold, and top-k constraints to a
// scored candidate set.
//
// The selector is a pure function of its inputs. Exclusion is not handled
// here: excluded tools are stripped upstream by the orchestrator and never
// appear as candidates.
package selector

import (
	"sort"

	"github.com/fyrsmithlabs/toolscope/internal/registry"
)

// heapSelectionThreshold is the candidate-pool size above which partial
// selection switches from a full stable sort (O(n log n)) to a bounded
// min-heap of size k (O(n log k)). Both paths produce identical output.
const heapSelectionThreshold = 500

// Options constrain one selection pass.
type Options struct {
	// TopK bounds the number of results chosen on score. A forced entry
	// consumes a slot only when it would have made the cut on score alone;
	// forcing a tool that would not have been selected anyway must not crowd
	// out an eligible candidate. Zero or negative means no eligible results,
	// forced entries are still returned.
	TopK int

	// MinScore drops eligible candidates scoring below it. Forced entries
	// bypass the threshold.
	MinScore float32

	// AlwaysInclude names tools returned regardless of score or TopK, in
	// their candidate encounter order, ahead of the eligible results.
	AlwaysInclude []string
}

// Select returns the forced entries (encounter order) followed by the top
// remaining eligible candidates by descending score, stable on ties.
func Select(candidates []registry.ScoredTool, opts Options) []registry.ScoredTool {
	forcedNames := make(map[string]bool, len(opts.AlwaysInclude))
	for _, name := range opts.AlwaysInclude {
		forcedNames[name] = true
	}

	var forced, eligible []registry.ScoredTool
	for _, c := range candidates {
		if forcedNames[c.Tool.ToolName] {
			forced = append(forced, c)
			continue
		}
		if c.Score < opts.MinScore {
			continue
		}
		eligible = append(eligible, c)
	}

	remaining := opts.TopK - meritSlots(candidates, forcedNames, opts)
	selected := topByScore(eligible, remaining)

	out := make([]registry.ScoredTool, 0, len(forced)+len(selected))
	out = append(out, forced...)
	out = append(out, selected...)
	return out
}

// meritSlots counts the forced entries that rank inside the top-k of the
// threshold-passing pool on score alone. Only those consume TopK slots.
func meritSlots(candidates []registry.ScoredTool, forcedNames map[string]bool, opts Options) int {
	if len(forcedNames) == 0 || opts.TopK <= 0 {
		return 0
	}

	merit := make([]registry.ScoredTool, 0, len(candidates))
	hasForced := false
	for _, c := range candidates {
		if c.Score < opts.MinScore {
			continue
		}
		if forcedNames[c.Tool.ToolName] {
			hasForced = true
		}
		merit = append(merit, c)
	}
	if !hasForced {
		return 0
	}

	used := 0
	for _, c := range topByScore(merit, opts.TopK) {
		if forcedNames[c.Tool.ToolName] {
			used++
		}
	}
	return used
}

// topByScore returns the k highest-scoring candidates in descending order,
// first-encountered winning ties.
func topByScore(eligible []registry.ScoredTool, k int) []registry.ScoredTool {
	if k <= 0 || len(eligible) == 0 {
		return nil
	}

	if k >= len(eligible) {
		// Nothing to discard; sort the whole set.
		sorted := make([]registry.ScoredTool, len(eligible))
		copy(sorted, eligible)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Score > sorted[j].Score
		})
		return sorted
	}

	if len(eligible) > heapSelectionThreshold {
		h := newBoundedHeap(k, func(c registry.ScoredTool) float32 { return c.Score })
		for i, c := range eligible {
			h.Offer(c, i)
		}
		return h.Sorted()
	}

	sorted := make([]registry.ScoredTool, len(eligible))
	copy(sorted, eligible)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted[:k]
}
