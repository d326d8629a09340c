package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"TaskIntake/internal/ports"
)

// DefaultDimension is the vector size used when none is configured.
const DefaultDimension = 512

// HashingEmbedder projects term frequencies into a fixed-size vector using
// signed feature hashing. Identical text always yields an identical vector.
type HashingEmbedder struct {
	dim int
}

var _ ports.Embedder = (*HashingEmbedder)(nil)

// NewHashingEmbedder builds an embedder; non-positive dim falls back to DefaultDimension.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &HashingEmbedder{dim: dim}
}

// Dimension reports the vector size.
func (h *HashingEmbedder) Dimension() int {
	return h.dim
}

// EmbedQuery embeds a single query string.
func (h *HashingEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return h.embed(text), nil
}

// EmbedDocuments embeds each text independently.
func (h *HashingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = h.embed(text)
	}
	return vectors, nil
}

func (h *HashingEmbedder) embed(text string) []float32 {
	vector := make([]float32, h.dim)
	for _, token := range Tokenize(text) {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(token))
		sum := hasher.Sum32()

		idx := int(sum % uint32(h.dim))
		if sum&(1<<31) != 0 {
			vector[idx]--
		} else {
			vector[idx]++
		}
	}
	normalize(vector)
	return vector
}

// Tokenize lower-cases text and splits it on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vector []float32) {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vector {
		vector[i] /= norm
	}
}
