package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/arvindpandey4/loan-insight-assistant/internal/index"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the historical case index",
	Long: `Index reads the SQLite corpus written by the ingestion job. The corpus
is opened read-only; nothing here modifies it.`,
}

// --- stats subcommand ---

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize outcomes, purposes and CIBIL scores in the corpus",
	RunE:  runIndexStats,
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	idx, err := index.Open(context.Background(), cfg.Index, logger)
	if err != nil {
		return err
	}
	s := idx.Stats()

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		writeStats(os.Stdout, s)
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use text, yaml or json", format)
	}
}

func writeStats(w io.Writer, s index.Stats) {
	fmt.Fprintf(w, "Records:   %d\nDimension: %d\n", s.Records, s.Dimension)

	fmt.Fprintln(w, "\nStatus:")
	for _, k := range sortedKeys(s.StatusCounts) {
		line := fmt.Sprintf("  %-12s %6d", k, s.StatusCounts[k])
		if avg, ok := s.AvgCIBILByStatus[k]; ok {
			line += fmt.Sprintf("   avg CIBIL %.0f", avg)
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w, "\nPurpose:")
	for _, k := range sortedKeys(s.PurposeCounts) {
		fmt.Fprintf(w, "  %-12s %6d   rejected %d\n", k, s.PurposeCounts[k], s.RejectionsByPurpose[k])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- export subcommand ---

var indexExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export corpus records to YAML or JSON",
	Long: `Export writes the corpus records (without vectors) to stdout or to
--out. The status, purpose and area flags restrict the export to matching
records.`,
	RunE: runIndexExport,
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	status, _ := cmd.Flags().GetString("status")
	purpose, _ := cmd.Flags().GetString("purpose")
	area, _ := cmd.Flags().GetString("area")

	idx, err := index.Open(context.Background(), cfg.Index, logger)
	if err != nil {
		return err
	}

	w := io.Writer(os.Stdout)
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	filters := types.Filters{Status: status, Purpose: purpose, PropertyArea: area}
	if err := idx.Export(w, format, filters); err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintf(os.Stderr, "Exported to %s\n", out)
	}
	return nil
}

func init() {
	indexStatsCmd.Flags().String("format", "text", "output format: text, yaml or json")

	indexExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	indexExportCmd.Flags().String("out", "", "output file (default: stdout)")
	indexExportCmd.Flags().String("status", "", "only records with this status")
	indexExportCmd.Flags().String("purpose", "", "only records with this purpose")
	indexExportCmd.Flags().String("area", "", "only records in this property area")

	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexExportCmd)
	rootCmd.AddCommand(indexCmd)
}
