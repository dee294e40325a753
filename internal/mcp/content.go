package mcp

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolReference is the tool_reference block from the Anthropic tool search
// protocol. The go-sdk rejects content types it does not know on the wire,
// so the block travels as the text payload of a TextContent block; clients
// following the protocol parse the JSON and expand the reference to a full
// tool definition.
//
// See: https://platform.claude.com/docs/en/agents-and-tools/tool-use/tool-search-tool#custom-tool-search-implementation
type toolReference struct {
	Type     string `json:"type"`
	ToolName string `json:"tool_name"`
}

// newToolReferenceContent encodes a tool_reference block for toolName.
func newToolReferenceContent(toolName string) *mcp.TextContent {
	data, _ := json.Marshal(toolReference{Type: "tool_reference", ToolName: toolName})
	return &mcp.TextContent{Text: string(data)}
}
