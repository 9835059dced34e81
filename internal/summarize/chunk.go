package summarize

import (
	"strings"

	"github.com/memohai/recap/internal/prune"
)

const (
	// MinChunkSize is the floor applied to MaxCharsPerChunk.
	MinChunkSize = 1000
	// DefaultMaxCharsPerChunk is the default chunk budget.
	DefaultMaxCharsPerChunk = 8000
)

// ChunkOptions configures ChunkText.
type ChunkOptions struct {
	// MaxCharsPerChunk is a byte budget; values below MinChunkSize are raised.
	MaxCharsPerChunk int
}

// EffectiveMax returns the chunk budget actually applied.
func (o ChunkOptions) EffectiveMax() int {
	if o.MaxCharsPerChunk < MinChunkSize {
		return MinChunkSize
	}
	return o.MaxCharsPerChunk
}

// ChunkText splits text into pieces of at most EffectiveMax bytes whose
// concatenation is text. It cuts before the last newline of each window,
// or just after the last ". " when that newline falls in the first 60% of
// the window, and hard-cuts on a rune boundary otherwise.
func ChunkText(text string, opts ChunkOptions) []string {
	limit := opts.EffectiveMax()
	if len(text) <= limit {
		return []string{text}
	}

	chunks := make([]string, 0, len(text)/limit+2)
	for start := 0; start < len(text); {
		rest := text[start:]
		if len(rest) <= limit {
			chunks = append(chunks, rest)
			break
		}
		window := prune.SafeUTF8Prefix(rest, limit)
		if window == "" {
			// rest starts with continuation bytes; there is no rune boundary to respect.
			window = rest[:limit]
		}
		cut := strings.LastIndexByte(window, '\n')
		if cut*10 < len(window)*6 {
			if period := strings.LastIndex(window, ". "); period > 0 {
				cut = period + 1
			}
		}
		if cut <= 0 {
			cut = len(window)
		}
		chunks = append(chunks, window[:cut])
		start += cut
	}
	return chunks
}
