package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryDecode(t *testing.T) {
	payload := `[
		{"id": 1, "name": "site", "description": null, "topics": [], "has_pages": true, "fork": false, "owner": {"login": "alice"}},
		{"name": "docs", "description": "Docs", "topics": ["go", "web"], "has_pages": false, "fork": true},
		{"name": "bare"}
	]`

	var repos []Repository
	require.NoError(t, json.Unmarshal([]byte(payload), &repos))
	require.Len(t, repos, 3)

	assert.Equal(t, "site", repos[0].Name)
	assert.Nil(t, repos[0].Description)
	assert.Empty(t, repos[0].Topics)
	assert.True(t, repos[0].HasPages)

	assert.Equal(t, "Docs", *repos[1].Description)
	assert.Equal(t, []string{"go", "web"}, repos[1].Topics)
	assert.True(t, repos[1].Fork)

	assert.Nil(t, repos[2].Topics)
	assert.False(t, repos[2].HasPages)
}

func TestDescriptionOr(t *testing.T) {
	empty, text := "", "hello"

	assert.Equal(t, "def", Repository{}.DescriptionOr("def"))
	assert.Equal(t, "def", Repository{Description: &empty}.DescriptionOr("def"))
	assert.Equal(t, "hello", Repository{Description: &text}.DescriptionOr("def"))
}
