package index

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

// ExportEntry is one record as written by Export. Vectors are omitted.
type ExportEntry struct {
	CaseID     string               `json:"case_id" yaml:"case_id"`
	Attributes types.LoanAttributes `json:"attributes" yaml:"attributes"`
	Summary    string               `json:"summary" yaml:"summary"`
}

// Export writes the records matching filters to w as "yaml" or "json", in
// corpus order.
func (x *Index) Export(w io.Writer, format string, filters types.Filters) error {
	entries := make([]ExportEntry, 0, len(x.records))
	for _, r := range x.records {
		if !filters.Matches(r) {
			continue
		}
		entries = append(entries, ExportEntry{CaseID: r.CaseID, Attributes: r.Attributes, Summary: r.Summary})
	}

	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q (want yaml or json)", format)
	}
}
