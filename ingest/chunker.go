package ingest

import (
	"regexp"
	"strings"
)

// Chunking defaults matching the embedding model's useful context size.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

var sentenceEndRe = regexp.MustCompile(`(?:[.!?])\s+`)

// Chunk splits cleaned prose on paragraph boundaries into pieces of at
// most maxSize characters. Paragraphs longer than maxSize are split on
// sentence boundaries first. Consecutive chunks share a word-level
// overlap so context spanning a boundary is not lost.
func Chunk(content string, maxSize, overlap int) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}

	var pieces []string
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > maxSize {
			pieces = append(pieces, splitSentences(para, maxSize)...)
		} else {
			pieces = append(pieces, para)
		}
	}

	var (
		chunks  []string
		current string
	)
	for _, piece := range pieces {
		if current != "" && len(current)+1+len(piece) > maxSize {
			chunks = append(chunks, current)
			current = tailWords(current, overlap)
		}
		if current == "" {
			current = piece
		} else {
			current += " " + piece
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// splitSentences packs sentences of an oversized paragraph into pieces
// of at most maxSize characters. A single sentence longer than maxSize
// becomes its own piece.
func splitSentences(para string, maxSize int) []string {
	var sentences []string
	rest := para
	for {
		loc := sentenceEndRe.FindStringIndex(rest)
		if loc == nil {
			sentences = append(sentences, rest)
			break
		}
		sentences = append(sentences, strings.TrimSpace(rest[:loc[1]]))
		rest = rest[loc[1]:]
	}

	var (
		pieces  []string
		current string
	)
	for _, sentence := range sentences {
		if current != "" && len(current)+1+len(sentence) > maxSize {
			pieces = append(pieces, current)
			current = sentence
			continue
		}
		if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}
	if strings.TrimSpace(current) != "" {
		pieces = append(pieces, current)
	}
	return pieces
}

// tailWords returns the trailing whole words of s up to maxChars, used
// as the overlap carried into the next chunk.
func tailWords(s string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	words := strings.Fields(s)
	tail := ""
	for i := len(words) - 1; i >= 0; i-- {
		candidate := words[i]
		if tail != "" {
			candidate += " " + tail
		}
		if len(candidate) > maxChars {
			break
		}
		tail = candidate
	}
	return tail
}
