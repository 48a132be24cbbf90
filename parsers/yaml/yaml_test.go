package yaml_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logger "github.com/sevigo/semchunk/parsers/testing"
	"github.com/sevigo/semchunk/parsers/yaml"
	"github.com/sevigo/semchunk/schema"
)

func index(sections []schema.Section) map[string]schema.Section {
	out := make(map[string]schema.Section, len(sections))
	for _, s := range sections {
		out[s.Identifier] = s
	}
	return out
}

func TestYamlPlugin(t *testing.T) {
	log, _ := logger.NewTestLogger(t)
	plugin := yaml.NewYamlPlugin(log)

	t.Run("BasicInfo", func(t *testing.T) {
		assert.Equal(t, "yaml", plugin.Name())
		assert.True(t, plugin.CanHandle("config.YML", nil))
		assert.False(t, plugin.CanHandle("config.json", nil))
	})

	t.Run("Keys", func(t *testing.T) {
		content := `server:
  host: localhost
  port: 8080
database_pool:
  url: postgres://x
  pool:
    max: 10
features:
  - name: a
    enabled: true
  - name: b
`
		sections, err := plugin.Chunk(content, "app.yaml", nil)
		require.NoError(t, err)
		byID := index(sections)

		server := byID["server"]
		assert.Equal(t, 1, server.LineStart)
		assert.Equal(t, 3, server.LineEnd)
		assert.Equal(t, "mapping", server.Annotations["value_kind"])

		db := byID["database_pool"]
		assert.Equal(t, 4, db.LineStart)
		assert.Equal(t, 7, db.LineEnd)
		assert.Equal(t, "Database Pool", db.Annotations["label"])

		pool := byID["database_pool.pool"]
		assert.Equal(t, 1, pool.Depth)
		assert.Equal(t, 6, pool.LineStart)
		assert.Equal(t, 7, pool.LineEnd)

		first := byID["features[0]"]
		assert.Equal(t, "item", first.Type)
		assert.Equal(t, 9, first.LineStart)
		assert.Equal(t, 10, first.LineEnd)

		last := byID["features[1]"]
		assert.Equal(t, 11, last.LineStart)
		assert.Equal(t, 11, last.LineEnd)
	})

	t.Run("MultipleDocuments", func(t *testing.T) {
		content := `apiVersion: v1
kind: Service
metadata:
  name: web
---
apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
`
		sections, err := plugin.Chunk(content, "k8s.yaml", nil)
		require.NoError(t, err)
		byID := index(sections)

		svc, ok := byID["Service/web"]
		require.True(t, ok)
		assert.Equal(t, "document", svc.Type)
		assert.Equal(t, 1, svc.LineStart)
		assert.Equal(t, 4, svc.LineEnd)

		deploy, ok := byID["Deployment/web"]
		require.True(t, ok)
		assert.Equal(t, 6, deploy.LineStart)
		assert.Equal(t, 9, deploy.LineEnd)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := plugin.Chunk("key: [unclosed\n", "bad.yaml", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, yaml.ErrInvalidYAML)
	})
}
