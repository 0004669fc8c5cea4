//go:build mage

package main

import (
	"context"
	"fmt"

	"github.com/magefile/mage/mg"

	"github.com/arvindpandey4/loan-insight-assistant/internal/corpus"
	"github.com/arvindpandey4/loan-insight-assistant/internal/embed"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

// Seed writes the sample loan cases to the default index path, embedded with
// the local hashing embedder at the default dimension.
func Seed() error {
	mg.Deps(Init)
	cfg := types.DefaultConfig()
	n, err := corpus.Seed(context.Background(), cfg.Index.Path, embed.NewHashEmbedder(cfg.Embedding.Dimension))
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d cases into %s\n", n, cfg.Index.Path)
	return nil
}
