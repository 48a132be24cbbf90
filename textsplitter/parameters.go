package textsplitter

import (
	"fmt"
	"path/filepath"
	"strings"
)

// estimationRatio converts the token sizes below into characters.
const estimationRatio = 4.0

// Parameters are the effective size limits for one file.
type Parameters struct {
	MaxChunkChars    int
	MinChunkChars    int
	MaxLinesPerChunk int
}

// Recommend returns size limits derived from the file type and length.
// Explicit values in override win over the recommendation.
func Recommend(filePath string, contentLength int, override Parameters) Parameters {
	tokens := recommendedTokens(filePath, contentLength)

	params := Parameters{
		MaxChunkChars:    int(float64(tokens) * estimationRatio),
		MinChunkChars:    minChunkSize,
		MaxLinesPerChunk: calculateMaxLinesPerChunk(tokens),
	}
	if override.MaxChunkChars > 0 {
		params.MaxChunkChars = min(override.MaxChunkChars, maxChunkSize)
		if override.MaxLinesPerChunk <= 0 {
			params.MaxLinesPerChunk = calculateMaxLinesPerChunk(int(float64(params.MaxChunkChars) / estimationRatio))
		}
	}
	if override.MinChunkChars > 0 {
		params.MinChunkChars = override.MinChunkChars
	}
	if override.MaxLinesPerChunk > 0 {
		params.MaxLinesPerChunk = override.MaxLinesPerChunk
	}
	if params.MinChunkChars > params.MaxChunkChars {
		params.MinChunkChars = params.MaxChunkChars
	}
	return params
}

// Validate rejects limits no splitter can honour.
func (p Parameters) Validate() error {
	if p.MaxChunkChars < 0 || p.MinChunkChars < 0 || p.MaxLinesPerChunk < 0 {
		return fmt.Errorf("%w: limits cannot be negative", ErrInvalidChunkSize)
	}
	if p.MaxChunkChars > maxChunkSize {
		return fmt.Errorf("%w: chunk size too large: %d (max: %d)", ErrInvalidChunkSize, p.MaxChunkChars, maxChunkSize)
	}
	if p.MaxChunkChars > 0 && p.MinChunkChars > p.MaxChunkChars {
		return fmt.Errorf("%w: min chunk size %d exceeds max %d", ErrInvalidChunkSize, p.MinChunkChars, p.MaxChunkChars)
	}
	return nil
}

func calculateMaxLinesPerChunk(tokens int) int {
	maxLines := int(float64(tokens) / (estimationRatio * 2))
	if maxLines < 5 {
		maxLines = 5
	}
	if maxLines > 200 {
		maxLines = 200
	}
	return maxLines
}

func recommendedTokens(filePath string, contentLength int) int {
	ext := strings.ToLower(filepath.Ext(filePath))
	if rec := languageSpecificRecommendation(ext, contentLength); rec > 0 {
		return rec
	}
	return contentSizeBasedRecommendation(contentLength)
}

func languageSpecificRecommendation(ext string, contentLength int) int {
	var baseSize int

	switch ext {
	case ".go", ".java", ".cs", ".cpp", ".cc", ".cxx", ".rs", ".kt", ".scala", ".swift":
		baseSize = 1024
	case ".js", ".jsx", ".ts", ".tsx", ".py", ".rb", ".php", ".lua":
		baseSize = 768
	case ".c", ".h":
		baseSize = 512
	case ".md", ".txt", ".rst":
		baseSize = 1024
	case ".json", ".xml", ".yaml", ".yml", ".toml":
		baseSize = 512
	default:
		return 0
	}

	if contentLength > 200000 { // ~200KB
		return baseSize * 2
	}
	if contentLength > 50000 { // ~50KB
		return int(float64(baseSize) * 1.5)
	}

	return baseSize
}

func contentSizeBasedRecommendation(contentLength int) int {
	switch {
	case contentLength > 200000: // ~200KB
		return 1024
	case contentLength > 50000: // ~50KB
		return 768
	default:
		return defaultChunkSize / int(estimationRatio)
	}
}
