package schema

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"
)

// compare walks the genai schema and its prompt form together.
func compare(t *testing.T, path string, s *genai.Schema, p map[string]any) {
	t.Helper()
	require.NotNil(t, p, path)
	assert.Equal(t, strings.ToLower(string(s.Type)), p["type"], path)
	assert.NotContains(t, p, "propertyOrdering", path)
	assert.NotContains(t, p, "PropertyOrdering", path)

	if len(s.Enum) > 0 {
		assert.Equal(t, s.Enum, p["enum"], path)
	}
	if len(s.Required) > 0 {
		assert.Equal(t, s.Required, p["required"], path)
	}
	if s.Items != nil {
		items, ok := p["items"].(map[string]any)
		require.True(t, ok, path+": items")
		compare(t, path+".items", s.Items, items)
	}
	if len(s.Properties) == 0 {
		assert.NotContains(t, p, "properties", path)
		return
	}
	props, ok := p["properties"].(map[string]any)
	require.True(t, ok, path+": properties")
	want := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		want = append(want, k)
	}
	got := make([]string, 0, len(props))
	for k := range props {
		got = append(got, k)
	}
	sort.Strings(want)
	sort.Strings(got)
	require.Equal(t, want, got, path)
	for k, sub := range s.Properties {
		compare(t, path+"."+k, sub, props[k].(map[string]any))
	}
}

func TestForPromptMirrorsProcessFlowSchema(t *testing.T) {
	compare(t, "flow", ProcessFlow(), ProcessFlowForPrompt())
}

func TestForPromptMirrorsChatRefinementSchema(t *testing.T) {
	compare(t, "refinement", ChatRefinement(), ChatRefinementForPrompt())
}

func TestForPromptKeepsDescriptionsAndEnum(t *testing.T) {
	p := ProcessFlowForPrompt()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	text := string(b)

	assert.Contains(t, text, `"type":"object"`)
	assert.Contains(t, text, `"type":"array"`)
	assert.Contains(t, text, `"enum":["High","Medium","Low","None"]`)
	assert.Contains(t, text, "The job title or role responsible for this step")
	assert.NotContains(t, text, "OBJECT")
	assert.NotContains(t, text, "STRING")
}

func TestProcessFlowReturnsIndependentCopies(t *testing.T) {
	a := ProcessFlow()
	a.Properties["process_name"].Description = "changed"
	b := ProcessFlow()
	assert.NotEqual(t, "changed", b.Properties["process_name"].Description)
}

func TestForPromptNil(t *testing.T) {
	assert.Nil(t, ForPrompt(nil))
}
