// Package knowledge defines the retrieval collaborator used for prompt
// grounding. The runtime consumes this interface; ingestion and embedding
// live elsewhere.
package knowledge

import (
	"context"
	"sort"
	"strings"
)

// Snippet is one ranked piece of retrieved text.
type Snippet struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	SourceID string  `json:"source_id"`
}

// Retriever returns ranked snippets for a query against a set of knowledge
// sources.
//
// Implementations must be safe to call with an empty source list: that case
// returns no snippets immediately, with no network call.
type Retriever interface {
	Retrieve(ctx context.Context, query string, sourceIDs []string, limit int) ([]Snippet, error)
}

// StaticRetriever serves snippets from an in-memory corpus. It backs local
// runs and tests; production deployments plug in a remote retriever.
type StaticRetriever struct {
	// corpus maps source ID to its documents.
	corpus map[string][]string
}

// NewStaticRetriever creates a retriever over the given source corpus.
func NewStaticRetriever(corpus map[string][]string) *StaticRetriever {
	if corpus == nil {
		corpus = map[string][]string{}
	}
	return &StaticRetriever{corpus: corpus}
}

// Retrieve scores documents by naive term overlap with the query.
func (r *StaticRetriever) Retrieve(ctx context.Context, query string, sourceIDs []string, limit int) ([]Snippet, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query))
	var snippets []Snippet
	for _, sourceID := range sourceIDs {
		for _, doc := range r.corpus[sourceID] {
			score := overlapScore(strings.ToLower(doc), terms)
			if score > 0 {
				snippets = append(snippets, Snippet{Text: doc, Score: score, SourceID: sourceID})
			}
		}
	}

	sort.SliceStable(snippets, func(i, j int) bool {
		return snippets[i].Score > snippets[j].Score
	})
	if limit > 0 && len(snippets) > limit {
		snippets = snippets[:limit]
	}
	return snippets, nil
}

func overlapScore(doc string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	hits := 0
	for _, term := range terms {
		if strings.Contains(doc, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
