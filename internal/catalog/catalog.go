// Package catalog defines the tool catalog fed into the registry build and
// its structural validation.
//
// A catalog is an ordered collection of servers, each carrying the tool
// definitions it exposes. Catalog content is validated only for structural
// presence of required fields; semantic quality of descriptions is the
// catalog author's problem.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrInvalidCatalog indicates a structurally malformed catalog entry, e.g. a
// tool with no name or description. Detected at build time, it fails the whole
// registry build rather than admitting a partially built registry.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Tool is one tool definition within a server.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Keywords    []string       `json:"keywords,omitempty"`
	Category    string         `json:"category,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// Server is one tool-providing server in the catalog.
type Server struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Tools       []Tool `json:"tools"`
}

// Load reads a JSON catalog file: either a top-level array of servers or an
// object with a "servers" key.
func Load(path string) ([]Server, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes catalog JSON.
func Parse(data []byte) ([]Server, error) {
	var servers []Server
	if err := json.Unmarshal(data, &servers); err == nil {
		return servers, nil
	}

	var wrapped struct {
		Servers []Server `json:"servers"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if wrapped.Servers == nil {
		return nil, fmt.Errorf("%w: no servers found", ErrInvalidCatalog)
	}
	return wrapped.Servers, nil
}

// Validate checks structural presence of required fields across the catalog.
func Validate(servers []Server) error {
	for _, srv := range servers {
		if srv.ID == "" {
			return fmt.Errorf("%w: server %q has no id", ErrInvalidCatalog, srv.Name)
		}
		for _, tool := range srv.Tools {
			if tool.Name == "" {
				return fmt.Errorf("%w: server %q has a tool with no name", ErrInvalidCatalog, srv.ID)
			}
			if tool.Description == "" {
				return fmt.Errorf("%w: tool %q on server %q has no description", ErrInvalidCatalog, tool.Name, srv.ID)
			}
		}
	}
	return nil
}

// ParameterNames extracts the parameter names from a JSON Schema input schema
// (its "properties" keys), sorted for deterministic synthesized descriptions.
// Returns nil when the schema is absent or has no properties.
func (t Tool) ParameterNames() []string {
	if t.InputSchema == nil {
		return nil
	}
	props, ok := t.InputSchema["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return nil
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
