package pdf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/semchunk/parsers/pdf"
	logger "github.com/sevigo/semchunk/parsers/testing"
	"github.com/sevigo/semchunk/schema"
)

func TestPDFPlugin(t *testing.T) {
	log, _ := logger.NewTestLogger(t)
	plugin := pdf.NewPDFPlugin(log)

	t.Run("BasicInfo", func(t *testing.T) {
		assert.Equal(t, "pdf", plugin.Name())
		assert.True(t, plugin.CanHandle("docs/Manual.PDF", nil))
		_, ok := plugin.(schema.TextExtractor)
		assert.True(t, ok)
	})

	t.Run("Pages", func(t *testing.T) {
		text := "--- Page 1 ---\nIntro text.\n\n--- Page 3 ---\nMore text.\nEnd.\n"
		sections, err := plugin.Chunk(text, "manual.pdf", nil)
		require.NoError(t, err)
		require.Len(t, sections, 2)
		assert.Equal(t, "page 1", sections[0].Identifier)
		assert.Equal(t, 1, sections[0].LineStart)
		assert.Equal(t, 3, sections[0].LineEnd)
		assert.Equal(t, "3", sections[1].Annotations["page"])
		assert.Equal(t, 4, sections[1].LineStart)
		assert.Equal(t, 6, sections[1].LineEnd)
	})

	t.Run("InvalidBytes", func(t *testing.T) {
		extractor := plugin.(schema.TextExtractor)
		_, err := extractor.ExtractText([]byte("not a pdf"))
		assert.ErrorIs(t, err, pdf.ErrInvalidPDF)
	})
}
