package json_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jsonparser "github.com/sevigo/semchunk/parsers/json"
	logger "github.com/sevigo/semchunk/parsers/testing"
	model "github.com/sevigo/semchunk/schema"
)

func TestJsonPlugin(t *testing.T) {
	log, _ := logger.NewTestLogger(t)
	plugin := jsonparser.NewJSONPlugin(log)

	t.Run("BasicInfo", func(t *testing.T) {
		assert.Equal(t, "json", plugin.Name())
		assert.Contains(t, plugin.Extensions(), ".json")
		assert.True(t, plugin.CanHandle("package.JSON", nil))
	})

	t.Run("Object", func(t *testing.T) {
		content := `{
  "name": "demo",
  "dev_dependencies": {
    "a": "1.0",
    "b": "2.0"
  },
  "scripts": [
    "build",
    "test"
  ]
}
`
		sections, err := plugin.Chunk(content, "package.json", nil)
		require.NoError(t, err)

		byID := make(map[string]model.Section)
		for _, s := range sections {
			byID[s.Identifier] = s
		}

		name := byID["name"]
		assert.Equal(t, 2, name.LineStart)
		assert.Equal(t, 2, name.LineEnd)
		assert.Equal(t, "string", name.Annotations["value_kind"])

		deps := byID["dev_dependencies"]
		assert.Equal(t, 3, deps.LineStart)
		assert.Equal(t, 6, deps.LineEnd)
		assert.Equal(t, "object", deps.Annotations["value_kind"])
		assert.Equal(t, "2", deps.Annotations["members"])
		assert.Equal(t, "Dev Dependencies", deps.Annotations["label"])

		b := byID["dev_dependencies.b"]
		assert.Equal(t, 1, b.Depth)
		assert.Equal(t, 5, b.LineStart)

		scripts := byID["scripts"]
		assert.Equal(t, 7, scripts.LineStart)
		assert.Equal(t, 10, scripts.LineEnd)

		second := byID["scripts[1]"]
		assert.Equal(t, "item", second.Type)
		assert.Equal(t, 9, second.LineStart)
	})

	t.Run("TopLevelArray", func(t *testing.T) {
		sections, err := plugin.Chunk("[\n  {\"id\": 1},\n  {\"id\": 2}\n]\n", "list.json", nil)
		require.NoError(t, err)
		require.NotEmpty(t, sections)
		assert.Equal(t, "[0]", sections[0].Identifier)
		assert.Equal(t, 2, sections[0].LineStart)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := plugin.Chunk(`{"a": }`, "bad.json", nil)
		assert.ErrorIs(t, err, jsonparser.ErrInvalidJSON)
	})
}
