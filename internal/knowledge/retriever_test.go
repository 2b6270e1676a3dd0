package knowledge

import (
	"context"
	"testing"
)

func TestStaticRetriever_EmptySourceListReturnsNothing(t *testing.T) {
	r := NewStaticRetriever(map[string][]string{
		"kb-1": {"shipping takes three days"},
	})
	snippets, err := r.Retrieve(context.Background(), "shipping", nil, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(snippets) != 0 {
		t.Fatalf("expected no snippets for empty source list, got %d", len(snippets))
	}
}

func TestStaticRetriever_RanksByOverlap(t *testing.T) {
	r := NewStaticRetriever(map[string][]string{
		"kb-1": {
			"returns are accepted within thirty days",
			"shipping is free for orders over fifty dollars",
			"our shipping partners deliver shipping updates daily",
		},
	})

	snippets, err := r.Retrieve(context.Background(), "shipping updates", []string{"kb-1"}, 2)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(snippets) != 2 {
		t.Fatalf("expected 2 snippets, got %d", len(snippets))
	}
	if snippets[0].Text != "our shipping partners deliver shipping updates daily" {
		t.Fatalf("expected best match first, got %q", snippets[0].Text)
	}
	if snippets[0].SourceID != "kb-1" {
		t.Fatalf("expected source id kb-1, got %q", snippets[0].SourceID)
	}
}

func TestStaticRetriever_UnknownSource(t *testing.T) {
	r := NewStaticRetriever(nil)
	snippets, err := r.Retrieve(context.Background(), "anything", []string{"missing"}, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(snippets) != 0 {
		t.Fatalf("expected no snippets, got %d", len(snippets))
	}
}
