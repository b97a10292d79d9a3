package indexer

import "strings"

const (
	// DefaultChunkSize is the target chunk length in runes.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is how many runes consecutive chunks share.
	DefaultChunkOverlap = 100
)

// Sentence terminators tried in order when no paragraph break is found.
var sentenceEnds = []rune{'。', '！', '？', '.', '!', '?', '\n'}

// SplitChunks slices content into overlapping chunks of roughly chunkSize
// runes. Each window prefers to end at a paragraph break, then at a sentence
// terminator, provided the cut falls in the second half of the window;
// otherwise it cuts at the raw boundary. Chunks are trimmed and empty chunks
// are dropped.
func SplitChunks(content string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
	}

	runes := []rune(content)
	if len(runes) <= chunkSize {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	half := chunkSize / 2
	var chunks []string

	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			window := runes[start:end]
			if cut := lastParagraphBreak(window, half); cut > 0 {
				end = start + cut
			} else if cut := lastSentenceEnd(window, half); cut > 0 {
				end = start + cut
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			// Guard against pathological size/overlap combinations
			next = end
		}
		start = next
	}

	return chunks
}

// lastParagraphBreak returns the rune index just past the last blank line in
// the window, or -1 when none falls after the half mark.
func lastParagraphBreak(window []rune, half int) int {
	for i := len(window) - 2; i > half; i-- {
		if window[i] == '\n' && window[i+1] == '\n' {
			return i + 2
		}
	}
	return -1
}

// lastSentenceEnd returns the rune index just past the last sentence
// terminator in the window, or -1 when none falls after the half mark.
// Terminators are tried in priority order, CJK first.
func lastSentenceEnd(window []rune, half int) int {
	for _, sep := range sentenceEnds {
		for i := len(window) - 1; i > half; i-- {
			if window[i] == sep {
				return i + 1
			}
		}
	}
	return -1
}
