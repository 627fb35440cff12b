package analyses

import (
	"slices"
	"time"

	"contract-analyzer/internal/prompts"
)

// Record is the merged result of the four analysis tasks for one document.
type Record struct {
	KeyInformation  KeyInformation `json:"key_information"`
	Risks           string         `json:"risks"`
	ClauseSummaries string         `json:"clause_summaries"`
	OverallScore    string         `json:"overall_score"`
	// Failures lists tasks whose model call failed; their fields hold display text.
	Failures     []prompts.Kind `json:"failures,omitempty"`
	DocumentHash string         `json:"document_hash"`
	AnalyzedAt   time.Time      `json:"analyzed_at"`
}

// Failed reports whether the given task failed.
func (r Record) Failed(kind prompts.Kind) bool {
	return slices.Contains(r.Failures, kind)
}

// Complete reports whether every task succeeded.
func (r Record) Complete() bool {
	return len(r.Failures) == 0
}
