// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed turns text into fixed-dimension, unit-length vectors.
// Identical text always yields the identical vector for a given embedder.
package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrUnavailable is returned when the embedding model cannot produce a
// vector. Callers recover with their own fallback rather than retrying.
var ErrUnavailable = errors.New("embedding unavailable")

// Embedder produces L2-normalized vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Unavailable is an Embedder whose every call fails with ErrUnavailable.
// It stands in for an unreachable model.
type Unavailable struct {
	Dim int
}

func (u Unavailable) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("%w: model offline", ErrUnavailable)
}

func (u Unavailable) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("%w: model offline", ErrUnavailable)
}

func (u Unavailable) Dimension() int { return u.Dim }

// Normalize scales v in place to unit length and returns it. A zero vector
// is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// Dot returns the inner product of a and b over their common length.
func Dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	na, nb := Dot(a, a), Dot(b, b)
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / math.Sqrt(na*nb)
}
