package memtier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aatumaykin/memtier/internal/namespace"
)

// vectorRecord is the stored form of an embedded text chunk.
type vectorRecord struct {
	Text      string         `json:"text"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// VectorMatch is one result of a similarity search, best first.
type VectorMatch struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

// StoreVector caches an embedding in the vector namespace under an ID
// derived from the text, so storing the same text twice overwrites rather
// than duplicates. Returns the ID.
func (c *Controller) StoreVector(ctx context.Context, text string, embedding []float32, metadata map[string]any) (string, error) {
	id := vectorID(text)
	rec := vectorRecord{Text: text, Embedding: embedding, Metadata: metadata}

	start := time.Now()
	err := c.ns.Store(ctx, namespace.Vector, id, rec, 0)
	c.metrics.RecordOperation(c.store.Name(), time.Since(start), err)
	if err != nil {
		return "", err
	}
	return id, nil
}

// SearchVectors ranks every live vector entry by cosine similarity to the
// query embedding and returns the top matches. Entries whose TTL has
// lapsed are skipped.
func (c *Controller) SearchVectors(ctx context.Context, query []float32, limit int) ([]VectorMatch, error) {
	start := time.Now()
	matches, err := c.doSearchVectors(ctx, query, limit)
	c.metrics.RecordOperation(c.store.Name(), time.Since(start), err)
	return matches, err
}

func (c *Controller) doSearchVectors(ctx context.Context, query []float32, limit int) ([]VectorMatch, error) {
	keys, err := c.ns.Keys(ctx, namespace.Vector)
	if err != nil {
		return nil, err
	}

	matches := make([]VectorMatch, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimPrefix(key, namespace.Vector.Prefix())

		var rec vectorRecord
		found, err := c.ns.Retrieve(ctx, namespace.Vector, id, &rec)
		if err != nil || !found {
			continue
		}
		matches = append(matches, VectorMatch{
			ID:       id,
			Text:     rec.Text,
			Metadata: rec.Metadata,
			Score:    cosineSimilarity(query, rec.Embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// vectorID derives a stable entry ID from the text content.
func vectorID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// cosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched lengths and zero-norm vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
