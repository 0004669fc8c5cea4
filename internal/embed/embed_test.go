// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	return math.Sqrt(Dot(v, v))
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 1}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"good", "cibil", "score"}, Tokenize("What is a good CIBIL score?"))
	assert.Equal(t, []string{"home", "loan", "income", "50000", "rejected"},
		Tokenize("Why are home loans with income 50000 rejected?"))
	assert.Empty(t, Tokenize("what is the"))
	assert.Equal(t, []string{"loan", "loan"}, Tokenize("loan loans"))
	assert.Equal(t, []string{"why", "were", "loan", "with", "good", "cibil", "score", "rejected"},
		EmbedTokens("Why were loans with a good CIBIL score rejected?"))
	assert.Equal(t, []string{"what", "good", "cibil", "score"}, EmbedTokens("What is a good CIBIL score?"))
	assert.Equal(t, []string{"loan"}, UniqueTokens("loan loans"))
}

func TestHashEmbedder(t *testing.T) {
	h := NewHashEmbedder(64)
	ctx := context.Background()
	assert.Equal(t, 64, h.Dimension())

	a, err := h.Embed(ctx, "What is a good CIBIL score?")
	require.NoError(t, err)
	b, err := h.Embed(ctx, "What is a good CIBIL score?")
	require.NoError(t, err)
	require.Len(t, a, 64)
	assert.Equal(t, a, b, "identical text yields identical vectors")
	assert.InDelta(t, 1, norm(a), 1e-6)

	c, err := h.Embed(ctx, "what is the good cibil score")
	require.NoError(t, err)
	assert.InDelta(t, 1, Cosine(a, c), 1e-6, "function words do not change the vector")

	d, err := h.Embed(ctx, "documents required for a home loan")
	require.NoError(t, err)
	assert.Less(t, Cosine(a, d), 0.5)

	empty, err := h.Embed(ctx, "the of and")
	require.NoError(t, err)
	assert.Zero(t, norm(empty))

	batch, err := h.EmbedBatch(ctx, []string{"What is a good CIBIL score?", "documents required for a home loan"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{a, d}, batch)
}

func TestHashEmbedderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEmbedder(8).Embed(ctx, "loan")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnavailable(t *testing.T) {
	u := Unavailable{Dim: 8}
	_, err := u.Embed(context.Background(), "loan")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = u.EmbedBatch(context.Background(), []string{"loan"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 8, u.Dimension())
}
