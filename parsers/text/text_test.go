package text_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logger "github.com/sevigo/semchunk/parsers/testing"
	"github.com/sevigo/semchunk/parsers/text"
)

func TestTextPlugin(t *testing.T) {
	log, _ := logger.NewTestLogger(t)
	plugin := text.NewTextPlugin(log)

	t.Run("CanHandle", func(t *testing.T) {
		assert.True(t, plugin.CanHandle("notes.txt", nil))
		assert.True(t, plugin.CanHandle("/repo/LICENSE", nil))
		assert.False(t, plugin.CanHandle("main.go", nil))
	})

	t.Run("Headings", func(t *testing.T) {
		content := `Project Guide
=============

Welcome to the guide.

INSTALLATION

Run make install.

1. Usage

Call the binary.

1.1 Flags

Pass --help.

2. Support

Open an issue.
`
		sections, err := plugin.Chunk(content, "guide.txt", nil)
		require.NoError(t, err)
		require.Len(t, sections, 5)

		assert.Equal(t, "Project Guide", sections[0].Identifier)
		assert.Equal(t, 1, sections[0].LineStart)
		assert.Equal(t, 5, sections[0].LineEnd)

		assert.Equal(t, "Installation", sections[1].Identifier)
		assert.Equal(t, 6, sections[1].LineStart)
		assert.Equal(t, 9, sections[1].LineEnd)

		assert.Equal(t, "Usage", sections[2].Identifier)
		assert.Equal(t, 10, sections[2].LineStart)
		assert.Equal(t, 17, sections[2].LineEnd)

		assert.Equal(t, "Flags", sections[3].Identifier)
		assert.Equal(t, 1, sections[3].Depth)

		assert.Equal(t, "Support", sections[4].Identifier)
		assert.Equal(t, 18, sections[4].LineStart)
	})

	t.Run("PlainProse", func(t *testing.T) {
		sections, err := plugin.Chunk("just some words\nacross two lines\n", "a.txt", nil)
		require.NoError(t, err)
		assert.Empty(t, sections)
	})
}
