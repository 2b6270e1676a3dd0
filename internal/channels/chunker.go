package channels

import (
	"strings"
	"unicode"

	"github.com/hikevindiaz/linkai/pkg/models"
)

// MessageChunker splits long outbound messages into channel-sized pieces,
// preferring natural boundaries: paragraph breaks, then newlines, then
// sentence endings, then word boundaries, with a hard break as last resort.
type MessageChunker struct {
	// MaxSize is the maximum chunk size in characters.
	MaxSize int
}

// NewMessageChunker creates a chunker with the given max size.
func NewMessageChunker(maxSize int) *MessageChunker {
	if maxSize <= 0 {
		maxSize = 4000
	}
	return &MessageChunker{MaxSize: maxSize}
}

// ChunkerFromCapabilities creates a chunker sized for the channel's
// declared message limit, falling back to the default size for channels
// that declare none.
func ChunkerFromCapabilities(caps models.Capabilities) *MessageChunker {
	return NewMessageChunker(caps.MaxMessageLength)
}

// Chunk splits text into in-order pieces each at most MaxSize characters.
// Limits count runes, not bytes, so multibyte text is never cut mid-rune.
func (c *MessageChunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}

	if c.windowEnd(text) == len(text) {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for {
		end := c.windowEnd(remaining)
		if end == len(remaining) {
			break
		}
		breakIdx := c.findBreakPoint(remaining, end)
		if breakIdx <= 0 {
			breakIdx = end
		}

		chunk := strings.TrimRightFunc(remaining[:breakIdx], unicode.IsSpace)
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = strings.TrimLeftFunc(remaining[breakIdx:], unicode.IsSpace)
	}

	if remaining = strings.TrimSpace(remaining); remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}

// windowEnd returns the byte offset just past the first MaxSize runes, or
// len(text) when the whole text fits. The offset is always a rune boundary.
func (c *MessageChunker) windowEnd(text string) int {
	runes := 0
	for i := range text {
		if runes == c.MaxSize {
			return i
		}
		runes++
	}
	return len(text)
}

func (c *MessageChunker) findBreakPoint(text string, end int) int {
	window := text[:end]

	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return idx + 1
	}
	if idx := strings.LastIndex(window, "\n"); idx > 0 {
		return idx + 1
	}
	for _, ending := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(window, ending); idx > 0 {
			return idx + 1
		}
	}
	if idx := strings.LastIndexFunc(window, unicode.IsSpace); idx > 0 {
		return idx
	}
	return end
}
