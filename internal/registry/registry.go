// Package registry holds the embedded tool catalog the filter engine scores
// against.
//
// A Registry is built once from a catalog plus an embedding provider and is
// immutable afterwards: concurrent filter requests read it without locking.
// Rebuilding replaces the whole record set atomically.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/toolscope/internal/catalog"
	"github.com/fyrsmithlabs/toolscope/internal/embeddings"
	"github.com/fyrsmithlabs/toolscope/internal/vectorops"
)

// ErrUninitialized indicates a query arrived before a successful Build.
// Recoverable: the caller can retry after initialization completes.
var ErrUninitialized = errors.New("registry not initialized")

// Key identifies a tool uniquely within the registry.
type Key struct {
	ServerID string
	ToolName string
}

func (k Key) String() string {
	return k.ServerID + "/" + k.ToolName
}

// ToolRecord is one embedded catalog entry. Created during Build, immutable
// thereafter.
type ToolRecord struct {
	ServerID    string
	ToolName    string
	Description string
	Keywords    []string
	Category    string
	Parameters  []string

	// Embedding is the unit-length vector of the synthesized description.
	Embedding []float32
}

// Key returns the record's registry key.
func (t *ToolRecord) Key() Key {
	return Key{ServerID: t.ServerID, ToolName: t.ToolName}
}

// ScoredTool is an ephemeral per-request pairing of a record with its cosine
// similarity against the context embedding.
type ScoredTool struct {
	Tool  *ToolRecord
	Score float32
}

// snapshot is the immutable result of one Build.
type snapshot struct {
	records   map[Key]*ToolRecord
	order     []Key // encounter order, for deterministic scoring passes
	dimension int
}

// Registry maps (serverID, toolName) keys to embedded tool records.
type Registry struct {
	mu      sync.RWMutex
	current *snapshot // nil until the first successful Build
	logger  *zap.Logger
}

// New creates an empty, uninitialized registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// Build embeds the whole catalog in one batch call and replaces the registry
// contents. The registry counts as initialized only after Build returns nil;
// a failed Build leaves the previous contents (or the uninitialized state)
// untouched rather than admitting a partial set.
func (r *Registry) Build(ctx context.Context, servers []catalog.Server, provider embeddings.Provider) error {
	if err := catalog.Validate(servers); err != nil {
		return err
	}

	var (
		keys  []Key
		texts []string
		recs  []*ToolRecord
	)
	for _, srv := range servers {
		for _, tool := range srv.Tools {
			rec := &ToolRecord{
				ServerID:    srv.ID,
				ToolName:    tool.Name,
				Description: tool.Description,
				Keywords:    tool.Keywords,
				Category:    tool.Category,
				Parameters:  tool.ParameterNames(),
			}
			keys = append(keys, rec.Key())
			texts = append(texts, synthesizeDescription(srv, tool))
			recs = append(recs, rec)
		}
	}

	next := &snapshot{records: make(map[Key]*ToolRecord, len(recs))}

	if len(recs) > 0 {
		vectors, err := provider.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding catalog: %w", err)
		}
		if len(vectors) != len(recs) {
			return fmt.Errorf("embedding catalog: got %d vectors for %d tools", len(vectors), len(recs))
		}

		for i, rec := range recs {
			rec.Embedding = vectorops.Normalize(vectors[i], true)

			if prev, dup := next.records[keys[i]]; dup {
				// Last write wins; the earlier record is dropped silently.
				r.logger.Debug("duplicate tool key during build",
					zap.String("key", keys[i].String()),
					zap.String("replaced_description", prev.Description),
				)
				for j, k := range next.order {
					if k == keys[i] {
						next.order = append(next.order[:j], next.order[j+1:]...)
						break
					}
				}
			}
			next.records[keys[i]] = rec
			next.order = append(next.order, keys[i])
		}
		next.dimension = len(recs[0].Embedding)
	} else {
		next.dimension = provider.Dimension()
	}

	r.mu.Lock()
	r.current = next
	r.mu.Unlock()

	r.logger.Info("registry built",
		zap.Int("tools", len(next.records)),
		zap.Int("dimension", next.dimension),
	)
	return nil
}

// snapshotOrErr returns the current snapshot or ErrUninitialized.
func (r *Registry) snapshotOrErr() (*snapshot, error) {
	r.mu.RLock()
	s := r.current
	r.mu.RUnlock()
	if s == nil {
		return nil, ErrUninitialized
	}
	return s, nil
}

// Initialized reports whether a Build has completed successfully.
func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current != nil
}

// Get returns the record for key.
func (r *Registry) Get(key Key) (*ToolRecord, error) {
	s, err := r.snapshotOrErr()
	if err != nil {
		return nil, err
	}
	rec, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("tool %s not in registry", key)
	}
	return rec, nil
}

// Len returns the number of registered tools, zero before initialization.
func (r *Registry) Len() int {
	s, err := r.snapshotOrErr()
	if err != nil {
		return 0
	}
	return len(s.records)
}

// Dimension returns the embedding dimension fixed at build time, zero before
// initialization.
func (r *Registry) Dimension() int {
	s, err := r.snapshotOrErr()
	if err != nil {
		return 0
	}
	return s.dimension
}

// Range calls fn for every record in encounter order. Returns
// ErrUninitialized before the first successful Build.
func (r *Registry) Range(fn func(*ToolRecord) error) error {
	s, err := r.snapshotOrErr()
	if err != nil {
		return err
	}
	for _, key := range s.order {
		if err := fn(s.records[key]); err != nil {
			return err
		}
	}
	return nil
}

// synthesizeDescription builds the text that gets embedded for a tool.
// Richer text than the raw description improves retrieval quality, so the
// server description, keywords, category, and parameter names are folded in.
func synthesizeDescription(srv catalog.Server, tool catalog.Tool) string {
	var b strings.Builder
	b.WriteString(tool.Description)

	if srv.Description != "" {
		b.WriteString("\nContext: ")
		b.WriteString(srv.Description)
	}
	if len(tool.Keywords) > 0 {
		b.WriteString("\nKeywords: ")
		b.WriteString(strings.Join(tool.Keywords, ", "))
	}
	if tool.Category != "" {
		b.WriteString("\nCategory: ")
		b.WriteString(tool.Category)
	}
	if params := tool.ParameterNames(); len(params) > 0 {
		b.WriteString("\nParameters: ")
		b.WriteString(strings.Join(params, ", "))
	}
	return b.String()
}
