package channels

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hikevindiaz/linkai/pkg/models"
)

type stubAdapter struct {
	channelType models.ChannelType
	caps        models.Capabilities
}

func (a *stubAdapter) Type() models.ChannelType          { return a.channelType }
func (a *stubAdapter) Capabilities() models.Capabilities { return a.caps }

func (a *stubAdapter) HandleIncoming(ctx context.Context, payload []byte) (*models.Message, *models.ChannelContext, error) {
	return nil, nil, nil
}

func (a *stubAdapter) SendOutgoing(ctx context.Context, msg *models.Message, cctx *models.ChannelContext) error {
	return nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	adapter := &stubAdapter{channelType: models.ChannelSMS, caps: models.Capabilities{MaxMessageLength: 160}}

	if err := registry.Register(adapter); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	got, err := registry.Get(models.ChannelSMS)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Type() != models.ChannelSMS {
		t.Errorf("Get() returned wrong adapter")
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	adapter := &stubAdapter{channelType: models.ChannelWeb}

	if err := registry.Register(adapter); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := registry.Register(adapter); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestRegistry_ValidatesCapabilitiesAtRegistration(t *testing.T) {
	registry := NewRegistry()
	adapter := &stubAdapter{
		channelType: models.ChannelSMS,
		caps:        models.Capabilities{MaxMessageLength: -1},
	}
	if err := registry.Register(adapter); err == nil {
		t.Fatalf("expected invalid capabilities to be rejected at registration")
	}
}

func TestRegistry_UnknownChannel(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Get(models.ChannelVoice); err == nil {
		t.Fatalf("expected lookup of unregistered channel to fail")
	}
}

func TestChunkerFromCapabilities_UsesDeclaredLimit(t *testing.T) {
	chunker := ChunkerFromCapabilities(models.Capabilities{MaxMessageLength: 160})
	if chunker.MaxSize != 160 {
		t.Errorf("MaxSize = %d, want the channel's declared limit", chunker.MaxSize)
	}

	chunker = ChunkerFromCapabilities(models.Capabilities{})
	if chunker.MaxSize != 4000 {
		t.Errorf("MaxSize = %d, want the default for channels without a limit", chunker.MaxSize)
	}
}

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	chunker := NewMessageChunker(160)
	chunks := chunker.Chunk("short message")
	if len(chunks) != 1 || chunks[0] != "short message" {
		t.Fatalf("Chunk() = %v", chunks)
	}
}

func TestChunker_400CharsInto160Limit(t *testing.T) {
	chunker := NewMessageChunker(160)
	text := strings.TrimSpace(strings.Repeat("The quick brown fox jumps over the lazy dog. ", 9)) // ~400+ chars

	chunks := chunker.Chunk(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 160 {
			t.Errorf("chunk %d exceeds 160 chars: %d", i, len(chunk))
		}
	}
	// Order and content preserved modulo collapsed whitespace.
	joined := strings.Join(chunks, " ")
	if strings.Join(strings.Fields(joined), " ") != strings.Join(strings.Fields(text), " ") {
		t.Errorf("chunks do not reassemble the original text")
	}
}

func TestChunker_PrefersParagraphBreaks(t *testing.T) {
	chunker := NewMessageChunker(50)
	text := "First paragraph here.\n\nSecond paragraph that continues for a while longer."

	chunks := chunker.Chunk(text)
	if chunks[0] != "First paragraph here." {
		t.Errorf("first chunk = %q, want break at paragraph", chunks[0])
	}
}

func TestChunker_MultibyteHardBreakStaysValidUTF8(t *testing.T) {
	chunker := NewMessageChunker(160)
	text := strings.Repeat("好", 400)

	chunks := chunker.Chunk(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %d is invalid UTF-8: %q", i, chunk)
		}
		if n := utf8.RuneCountInString(chunk); n > 160 {
			t.Errorf("chunk %d exceeds 160 characters: %d", i, n)
		}
	}
	if strings.Join(chunks, "") != text {
		t.Errorf("chunks do not reassemble the original text")
	}
}

func TestChunker_LimitCountsRunesNotBytes(t *testing.T) {
	chunker := NewMessageChunker(10)
	text := strings.Repeat("ü", 10) // 20 bytes, 10 runes

	chunks := chunker.Chunk(text)
	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("Chunk() = %v, want single chunk", chunks)
	}
}

func TestChunker_HardBreakWithoutWhitespace(t *testing.T) {
	chunker := NewMessageChunker(10)
	text := strings.Repeat("a", 25)

	chunks := chunker.Chunk(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if len(chunk) > 10 {
			t.Errorf("chunk exceeds limit: %q", chunk)
		}
	}
}
