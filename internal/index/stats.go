// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

// Stats summarizes the corpus: outcome and purpose distributions, where
// rejections cluster, and the mean CIBIL score per outcome.
type Stats struct {
	Records             int                `json:"records" yaml:"records"`
	Dimension           int                `json:"dimension" yaml:"dimension"`
	StatusCounts        map[string]int     `json:"status_counts" yaml:"status_counts"`
	PurposeCounts       map[string]int     `json:"purpose_counts" yaml:"purpose_counts"`
	RejectionsByPurpose map[string]int     `json:"rejections_by_purpose" yaml:"rejections_by_purpose"`
	AvgCIBILByStatus    map[string]float64 `json:"avg_cibil_by_status" yaml:"avg_cibil_by_status"`
}

// Stats computes corpus statistics. Records without a CIBIL score are left
// out of the averages.
func (x *Index) Stats() Stats {
	s := Stats{
		Records:             len(x.records),
		Dimension:           x.dim,
		StatusCounts:        map[string]int{},
		PurposeCounts:       map[string]int{},
		RejectionsByPurpose: map[string]int{},
		AvgCIBILByStatus:    map[string]float64{},
	}
	cibilSum := map[string]int{}
	cibilN := map[string]int{}
	for _, r := range x.records {
		a := r.Attributes
		status := label(a.Status)
		purpose := label(a.Purpose)
		s.StatusCounts[status]++
		s.PurposeCounts[purpose]++
		if a.IsRejected() {
			s.RejectionsByPurpose[purpose]++
		}
		if a.CIBILScore > 0 {
			cibilSum[status] += a.CIBILScore
			cibilN[status]++
		}
	}
	for status, n := range cibilN {
		s.AvgCIBILByStatus[status] = float64(cibilSum[status]) / float64(n)
	}
	return s
}

func label(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}
