package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

type Hit[T any] struct {
	Item  T
	Score float64
}

// Index ranks items against a query. With an embedder it ranks by cosine
// similarity; without one, or when embedding the query fails, it ranks by
// term overlap.
type Index[T any] struct {
	name     string
	items    []T
	texts    []string
	embedder Embedder

	mu      sync.RWMutex
	vectors [][]float32

	queries singleflight.Group
}

func NewIndex[T any](name string, items []T, text func(T) string, embedder Embedder) *Index[T] {
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = text(it)
	}
	return &Index[T]{
		name:     name,
		items:    items,
		texts:    texts,
		embedder: embedder,
	}
}

func (ix *Index[T]) Name() string { return ix.name }

func (ix *Index[T]) Len() int { return len(ix.items) }

// Semantic reports whether vectors are available.
func (ix *Index[T]) Semantic() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors) == len(ix.items) && len(ix.items) > 0
}

// Build embeds every item. It is a no-op without an embedder.
func (ix *Index[T]) Build(ctx context.Context) error {
	if ix.embedder == nil || len(ix.texts) == 0 {
		return nil
	}

	vectors, err := ix.embedder.Embed(ctx, ix.texts)
	if err != nil {
		return fmt.Errorf("build %s index: %w", ix.name, err)
	}
	if len(vectors) != len(ix.texts) {
		return fmt.Errorf("build %s index: got %d vectors for %d items", ix.name, len(vectors), len(ix.texts))
	}

	ix.mu.Lock()
	ix.vectors = vectors
	ix.mu.Unlock()
	return nil
}

func (ix *Index[T]) Search(ctx context.Context, query string, k int) []Hit[T] {
	query = strings.TrimSpace(query)
	if query == "" || k <= 0 || len(ix.items) == 0 {
		return nil
	}

	if ix.Semantic() {
		hits, err := ix.semanticSearch(ctx, query, k)
		if err == nil {
			return hits
		}
		log.Ctx(ctx).Warn().Err(err).Str("index", ix.name).Msg("semantic search failed, using keyword ranking")
	}
	return ix.keywordSearch(query, k)
}

func (ix *Index[T]) semanticSearch(ctx context.Context, query string, k int) ([]Hit[T], error) {
	v, err, _ := ix.queries.Do(query, func() (any, error) {
		vecs, err := ix.embedder.Embed(ctx, []string{query})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 {
			return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
		}
		return vecs[0], nil
	})
	if err != nil {
		return nil, err
	}
	qv := v.([]float32)

	ix.mu.RLock()
	scores := make([]float64, len(ix.vectors))
	for i, vec := range ix.vectors {
		scores[i] = cosineSimilarity(qv, vec)
	}
	ix.mu.RUnlock()

	return ix.topK(scores, k, false), nil
}

func (ix *Index[T]) keywordSearch(query string, k int) []Hit[T] {
	terms := tokenize(query)
	scores := make([]float64, len(ix.texts))
	for i, text := range ix.texts {
		lower := strings.ToLower(text)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				scores[i] += float64(len([]rune(term)))
			}
		}
	}
	return ix.topK(scores, k, true)
}

func (ix *Index[T]) topK(scores []float64, k int, dropZero bool) []Hit[T] {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	hits := make([]Hit[T], 0, k)
	for _, i := range order {
		if len(hits) == k {
			break
		}
		if dropZero && scores[i] <= 0 {
			break
		}
		hits = append(hits, Hit[T]{Item: ix.items[i], Score: scores[i]})
	}
	return hits
}

// tokenize splits on non letters/digits. Han runs are further split into
// bigrams so Chinese queries can match without a segmenter.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	var out []string
	add := func(t string) {
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, f := range fields {
		runes := []rune(f)
		if !containsHan(runes) {
			add(f)
			continue
		}
		if len(runes) == 1 {
			add(f)
			continue
		}
		for i := 0; i+1 < len(runes); i++ {
			add(string(runes[i : i+2]))
		}
	}
	return out
}

func containsHan(runes []rune) bool {
	for _, r := range runes {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
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
