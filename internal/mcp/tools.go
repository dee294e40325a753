package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/toolscope/internal/contextbuild"
	"github.com/fyrsmithlabs/toolscope/internal/filter"
)

type messageInput struct {
	Role    string `json:"role" jsonschema:"Message role (user, assistant, or system)"`
	Content string `json:"content" jsonschema:"Message content"`
}

type toolFilterInput struct {
	Text             string         `json:"text,omitempty" jsonschema:"Raw conversational context to match tools against"`
	Messages         []messageInput `json:"messages,omitempty" jsonschema:"Structured conversation messages (takes precedence over text)"`
	TopK             *int           `json:"top_k,omitempty" jsonschema:"Maximum number of tools to select"`
	MinScore         *float64       `json:"min_score,omitempty" jsonschema:"Minimum similarity score for eligible tools"`
	AlwaysInclude    []string       `json:"always_include,omitempty" jsonschema:"Tool names to include regardless of score"`
	Exclude          []string       `json:"exclude,omitempty" jsonschema:"Tool names to exclude from results"`
	ContextMessages  *int           `json:"context_messages,omitempty" jsonschema:"Number of trailing messages to consider"`
	MaxContextTokens *int           `json:"max_context_tokens,omitempty" jsonschema:"Approximate token budget for the context"`
}

type rankedToolOutput struct {
	ServerID string  `json:"server_id" jsonschema:"Server the tool belongs to"`
	ToolName string  `json:"tool_name" jsonschema:"Tool name"`
	Score    float32 `json:"score" jsonschema:"Cosine similarity score"`
}

type toolFilterOutput struct {
	Tools          []rankedToolOutput `json:"tools" jsonschema:"Selected tools in rank order"`
	ToolsEvaluated int                `json:"tools_evaluated" jsonschema:"Number of catalog tools scored"`
	CacheHit       bool               `json:"cache_hit" jsonschema:"Whether the context embedding was served from cache"`
	DurationMs     float64            `json:"duration_ms" jsonschema:"Total filter duration in milliseconds"`
}

type registryStatsInput struct{}

type registryStatsOutput struct {
	Initialized         bool `json:"initialized" jsonschema:"Whether the tool registry has been built"`
	ToolCount           int  `json:"tool_count" jsonschema:"Number of tools in the registry"`
	CacheSize           int  `json:"cache_size" jsonschema:"Number of cached context embeddings"`
	EmbeddingDimensions int  `json:"embedding_dimensions" jsonschema:"Embedding vector dimensionality"`
}

type cacheClearInput struct{}

type cacheClearOutput struct {
	Cleared bool `json:"cleared" jsonschema:"Whether the cache was cleared"`
}

func (s *Server) registerTools() {
	// tool_filter
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "tool_filter",
		Description: "Select the most relevant tools for the given conversational context. Returns tool_reference blocks for selected tools so the client can expand them to full definitions without loading the whole catalog.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args toolFilterInput) (*mcp.CallToolResult, toolFilterOutput, error) {
		start := time.Now()
		var toolErr error
		defer func() {
			s.metrics.RecordInvocation(ctx, "tool_filter", time.Since(start), toolErr)
		}()

		filterReq := filter.Request{
			Text: args.Text,
			Options: filter.Options{
				AlwaysInclude: args.AlwaysInclude,
				Exclude:       args.Exclude,
			},
		}
		for _, m := range args.Messages {
			filterReq.Messages = append(filterReq.Messages, contextbuild.Message{
				Role:    m.Role,
				Content: m.Content,
			})
		}
		filterReq.Options.TopK = args.TopK
		filterReq.Options.ContextMessages = args.ContextMessages
		filterReq.Options.MaxContextTokens = args.MaxContextTokens
		if args.MinScore != nil {
			minScore := float32(*args.MinScore)
			filterReq.Options.MinScore = &minScore
		}

		resp, err := s.service.Filter(ctx, filterReq)
		if err != nil {
			toolErr = fmt.Errorf("tool filter failed: %w", err)
			return nil, toolFilterOutput{}, toolErr
		}

		output := toolFilterOutput{
			Tools:          make([]rankedToolOutput, 0, len(resp.Tools)),
			ToolsEvaluated: resp.Metrics.ToolsEvaluated,
			CacheHit:       resp.Metrics.CacheHit,
			DurationMs:     float64(resp.Metrics.TotalTime.Microseconds()) / 1000.0,
		}

		content := []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Selected %d of %d tools", len(resp.Tools), resp.Metrics.ToolsEvaluated)},
		}
		for _, rt := range resp.Tools {
			output.Tools = append(output.Tools, rankedToolOutput{
				ServerID: rt.ServerID,
				ToolName: rt.ToolName,
				Score:    rt.Score,
			})
			content = append(content, newToolReferenceContent(rt.ToolName))
		}

		s.logger.Debug("tool_filter completed",
			zap.Int("selected", len(resp.Tools)),
			zap.Bool("cache_hit", resp.Metrics.CacheHit),
		)

		return &mcp.CallToolResult{
			Content: content,
		}, output, nil
	})

	// registry_stats
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "registry_stats",
		Description: "Report tool registry and embedding cache statistics.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args registryStatsInput) (*mcp.CallToolResult, registryStatsOutput, error) {
		start := time.Now()
		defer func() {
			s.metrics.RecordInvocation(ctx, "registry_stats", time.Since(start), nil)
		}()

		stats := s.service.Stats()
		output := registryStatsOutput{
			Initialized:         stats.Initialized,
			ToolCount:           stats.ToolCount,
			CacheSize:           stats.CacheSize,
			EmbeddingDimensions: stats.EmbeddingDimensions,
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("%d tools registered, %d cached contexts", output.ToolCount, output.CacheSize)},
			},
		}, output, nil
	})

	// cache_clear
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "cache_clear",
		Description: "Drop all cached context embeddings. Subsequent requests re-embed their context.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args cacheClearInput) (*mcp.CallToolResult, cacheClearOutput, error) {
		start := time.Now()
		defer func() {
			s.metrics.RecordInvocation(ctx, "cache_clear", time.Since(start), nil)
		}()

		s.service.ClearCache()

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: "Embedding cache cleared"},
			},
		}, cacheClearOutput{Cleared: true}, nil
	})
}
