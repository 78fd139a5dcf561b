// Package knowledge implements retrieval-augmented question answering over
// the reference document corpus: chunking, embedding, vector retrieval, and
// answer synthesis with a web-search fallback.
package knowledge

import (
	"strings"
	"unicode/utf8"
)

// Chunk is one overlapping slice of a source document.
type Chunk struct {
	DocID string `json:"doc_id"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// SplitDocument cuts text into fixed-size chunks with the given overlap.
// Sizes are in runes so multi-byte scripts do not split mid-character.
// Chunking is deterministic: identical input always yields identical chunks.
func SplitDocument(docID, text string, size, overlap int) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" || size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	step := size - overlap
	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, Chunk{DocID: docID, Index: len(chunks), Text: piece})
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// RuneLen reports the rune length of a chunk's text.
func (c Chunk) RuneLen() int { return utf8.RuneCountInString(c.Text) }
