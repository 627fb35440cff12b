package sessions

import (
	"time"

	"contract-analyzer/internal/analyses"
)

// Session is one isolated analysis context: a document, the record produced
// from it (if any), and its lifetime.
type Session struct {
	ID        string
	Document  string
	Record    *analyses.Record
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func cloneRecord(r *analyses.Record) *analyses.Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Failures = append(cp.Failures[:0:0], r.Failures...)
	return &cp
}
