package sessions

import "errors"

// NoAnalysisMessage is the guidance shown when a question arrives before analysis.
const NoAnalysisMessage = "Please load and analyze a contract first."

var (
	// ErrNoAnalysis is returned by Ask when the held document has no matching record.
	ErrNoAnalysis = errors.New("no analysis for the current document")
	// ErrNotFound is returned for unknown or expired sessions.
	ErrNotFound = errors.New("session not found")
	// ErrDocumentTooLarge is returned when a document exceeds the configured limit.
	ErrDocumentTooLarge = errors.New("document exceeds maximum length")
	// ErrEmptyQuestion is returned by Ask for blank questions.
	ErrEmptyQuestion = errors.New("question is empty")
)
