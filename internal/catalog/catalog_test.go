package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArrayForm(t *testing.T) {
	data := []byte(`[
		{"id": "email", "name": "Email Server", "tools": [
			{"name": "email_search", "description": "Search mail"}
		]}
	]`)

	servers, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "email", servers[0].ID)
	require.Len(t, servers[0].Tools, 1)
	assert.Equal(t, "email_search", servers[0].Tools[0].Name)
}

func TestParseWrappedForm(t *testing.T) {
	data := []byte(`{"servers": [{"id": "cal", "name": "Calendar", "tools": []}]}`)

	servers, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "cal", servers[0].ID)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte(`{"nope": true}`))
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = Parse([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"s1","name":"S1","tools":[]}]`), 0o600))

	servers, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, servers, 1)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		servers []Server
		wantErr bool
	}{
		{
			name: "valid",
			servers: []Server{{ID: "s1", Name: "S1", Tools: []Tool{
				{Name: "a", Description: "does a"},
			}}},
		},
		{
			name:    "missing server id",
			servers: []Server{{Name: "S1"}},
			wantErr: true,
		},
		{
			name: "missing tool name",
			servers: []Server{{ID: "s1", Tools: []Tool{
				{Description: "anonymous"},
			}}},
			wantErr: true,
		},
		{
			name: "missing tool description",
			servers: []Server{{ID: "s1", Tools: []Tool{
				{Name: "a"},
			}}},
			wantErr: true,
		},
		{
			name:    "empty catalog is valid",
			servers: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.servers)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCatalog)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParameterNames(t *testing.T) {
	tool := Tool{
		Name:        "email_search",
		Description: "Search mail",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":   map[string]any{"type": "string"},
				"folder":  map[string]any{"type": "string"},
				"max_hits": map[string]any{"type": "integer"},
			},
		},
	}

	assert.Equal(t, []string{"folder", "max_hits", "query"}, tool.ParameterNames())
}

func TestParameterNamesAbsentSchema(t *testing.T) {
	assert.Nil(t, Tool{Name: "x", Description: "y"}.ParameterNames())
	assert.Nil(t, Tool{InputSchema: map[string]any{"type": "object"}}.ParameterNames())
}
