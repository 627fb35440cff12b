package sessions

import (
	"time"
	"unicode/utf8"

	"contract-analyzer/internal/analyses"
	"contract-analyzer/internal/shared/util"
)

const previewChars = 1000

// SessionResponse is the outward-facing representation of a session.
type SessionResponse struct {
	SessionID        string           `json:"sessionId"`
	DocumentChars    int              `json:"documentChars"`
	DocumentPreview  string           `json:"documentPreview"`
	PreviewTruncated bool             `json:"previewTruncated"`
	Analysis         *analyses.Record `json:"analysis"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	ExpiresAt        time.Time        `json:"expiresAt"`
}

func toResponse(sess Session) SessionResponse {
	preview, truncated := util.Preview(sess.Document, previewChars)
	return SessionResponse{
		SessionID:        sess.ID,
		DocumentChars:    utf8.RuneCountInString(sess.Document),
		DocumentPreview:  preview,
		PreviewTruncated: truncated,
		Analysis:         sess.Record,
		CreatedAt:        sess.CreatedAt,
		UpdatedAt:        sess.UpdatedAt,
		ExpiresAt:        sess.ExpiresAt,
	}
}

type setDocumentRequest struct {
	Text string `json:"text"`
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}
