package filter

import (
	"time"

	"github.com/fyrsmithlabs/toolscope/internal/contextbuild"
	"github.com/fyrsmithlabs/toolscope/internal/registry"
)

// Request is one filter invocation. Messages takes precedence over Text when
// both are set.
type Request struct {
	// Text is a raw context string.
	Text string `json:"text,omitempty"`

	// Messages is an ordered conversational history.
	Messages []contextbuild.Message `json:"messages,omitempty"`

	// Options override the configured defaults; nil fields fall back.
	Options Options `json:"options"`
}

// Options are the per-request constraints. Pointer fields distinguish
// "unset, use the configured default" from an explicit zero (topK=0 is a
// meaningful request: forced entries only).
type Options struct {
	// TopK bounds the number of eligible results.
	TopK *int `json:"topK,omitempty"`

	// MinScore drops eligible candidates scoring below it.
	MinScore *float32 `json:"minScore,omitempty"`

	// ContextMessages bounds how many trailing non-system messages are kept.
	ContextMessages *int `json:"contextMessages,omitempty"`

	// MaxContextTokens bounds the context string's approximate token count.
	MaxContextTokens *int `json:"maxContextTokens,omitempty"`

	// AlwaysInclude names tools returned regardless of score.
	AlwaysInclude []string `json:"alwaysInclude,omitempty"`

	// Exclude names tools removed before scoring. Exclude beats
	// AlwaysInclude for the same name.
	Exclude []string `json:"exclude,omitempty"`
}

// Defaults are the configured fallbacks for unset request options.
type Defaults struct {
	TopK             int
	MinScore         float32
	ContextMessages  int
	MaxContextTokens int
}

// resolved is one request's options after defaulting.
type resolved struct {
	topK             int
	minScore         float32
	contextMessages  int
	maxContextTokens int
	alwaysInclude    []string
	exclude          map[string]bool
}

func (d Defaults) resolve(o Options) resolved {
	r := resolved{
		topK:             d.TopK,
		minScore:         d.MinScore,
		contextMessages:  d.ContextMessages,
		maxContextTokens: d.MaxContextTokens,
		alwaysInclude:    o.AlwaysInclude,
	}
	if o.TopK != nil {
		r.topK = *o.TopK
	}
	if o.MinScore != nil {
		r.minScore = *o.MinScore
	}
	if o.ContextMessages != nil {
		r.contextMessages = *o.ContextMessages
	}
	if o.MaxContextTokens != nil {
		r.maxContextTokens = *o.MaxContextTokens
	}
	if len(o.Exclude) > 0 {
		r.exclude = make(map[string]bool, len(o.Exclude))
		for _, name := range o.Exclude {
			r.exclude[name] = true
		}
	}
	return r
}

// RankedTool is one entry of the filter response.
type RankedTool struct {
	ServerID string               `json:"serverId"`
	ToolName string               `json:"toolName"`
	Tool     *registry.ToolRecord `json:"-"`
	Score    float32              `json:"score"`
}

// Metrics reports per-stage timings for one filter request.
type Metrics struct {
	TotalTime        time.Duration `json:"totalTime"`
	ContextBuildTime time.Duration `json:"contextBuildTime"`
	EmbeddingTime    time.Duration `json:"embeddingTime"`
	SimilarityTime   time.Duration `json:"similarityTime"`
	SelectionTime    time.Duration `json:"selectionTime"`
	ToolsEvaluated   int           `json:"toolsEvaluated"`
	CacheHit         bool          `json:"cacheHit"`
}

// Response is the ranked result of one filter request.
type Response struct {
	Tools   []RankedTool `json:"tools"`
	Metrics Metrics      `json:"metrics"`
}

// Stats describes the engine's long-lived state.
type Stats struct {
	Initialized         bool `json:"initialized"`
	ToolCount           int  `json:"toolCount"`
	CacheSize           int  `json:"cacheSize"`
	EmbeddingDimensions int  `json:"embeddingDimensions"`
}
