package sessions

import (
	"encoding/json"
	"fmt"
	"time"

	"contract-analyzer/internal/analyses"
	"contract-analyzer/internal/prompts"
)

const (
	keyInfoStructured = "structured"
	keyInfoUnparsed   = "unparsed"
)

// storedRecord is the JSONB form of a record. The key information variant is
// stored explicitly so an unparsed reply never reads back as structured data.
type storedRecord struct {
	KeyInformationKind string          `json:"key_information_kind"`
	KeyInformation     json.RawMessage `json:"key_information,omitempty"`
	KeyInformationRaw  string          `json:"key_information_raw,omitempty"`
	Risks              string          `json:"risks"`
	ClauseSummaries    string          `json:"clause_summaries"`
	OverallScore       string          `json:"overall_score"`
	Failures           []prompts.Kind  `json:"failures,omitempty"`
	DocumentHash       string          `json:"document_hash"`
	AnalyzedAt         time.Time       `json:"analyzed_at"`
}

func encodeRecord(r *analyses.Record) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	stored := storedRecord{
		Risks:           r.Risks,
		ClauseSummaries: r.ClauseSummaries,
		OverallScore:    r.OverallScore,
		Failures:        r.Failures,
		DocumentHash:    r.DocumentHash,
		AnalyzedAt:      r.AnalyzedAt,
	}
	if r.KeyInformation.IsStructured() {
		raw, err := r.KeyInformation.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode key information: %w", err)
		}
		stored.KeyInformationKind = keyInfoStructured
		stored.KeyInformation = raw
	} else {
		text, _ := r.KeyInformation.Raw()
		stored.KeyInformationKind = keyInfoUnparsed
		stored.KeyInformationRaw = text
	}
	return json.Marshal(stored)
}

func decodeRecord(payload []byte) (*analyses.Record, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var stored storedRecord
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	record := &analyses.Record{
		Risks:           stored.Risks,
		ClauseSummaries: stored.ClauseSummaries,
		OverallScore:    stored.OverallScore,
		Failures:        stored.Failures,
		DocumentHash:    stored.DocumentHash,
		AnalyzedAt:      stored.AnalyzedAt,
	}
	switch stored.KeyInformationKind {
	case keyInfoStructured:
		keyInfo, err := analyses.StructuredJSON(stored.KeyInformation)
		if err != nil {
			return nil, fmt.Errorf("decode key information: %w", err)
		}
		record.KeyInformation = keyInfo
	case keyInfoUnparsed:
		record.KeyInformation = analyses.Unparsed(stored.KeyInformationRaw)
	default:
		return nil, fmt.Errorf("decode record: unknown key information kind %q", stored.KeyInformationKind)
	}
	return record, nil
}
