package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"contract-analyzer/internal/analyses"
	"contract-analyzer/internal/llm"
	"contract-analyzer/internal/prompts"
	"contract-analyzer/internal/shared/metrics"
	"contract-analyzer/internal/shared/util"
)

// Analyzer produces a record for a document.
type Analyzer interface {
	Analyze(ctx context.Context, documentText string) (analyses.Record, error)
}

// Orchestrator holds one document and its analysis record, and answers
// questions about them. Operations are serialized.
type Orchestrator struct {
	mu               sync.Mutex
	analyzer         Analyzer
	chat             llm.Client
	maxDocumentChars int

	document string
	record   *analyses.Record
}

// NewOrchestrator constructs an Orchestrator. maxDocumentChars of 0 disables
// the document length limit.
func NewOrchestrator(analyzer Analyzer, chat llm.Client, maxDocumentChars int) *Orchestrator {
	return &Orchestrator{
		analyzer:         analyzer,
		chat:             chat,
		maxDocumentChars: maxDocumentChars,
	}
}

// SetDocument replaces the held document and drops any previous record.
func (o *Orchestrator) SetDocument(text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.maxDocumentChars > 0 {
		if n := utf8.RuneCountInString(text); n > o.maxDocumentChars {
			return fmt.Errorf("%w: %d characters, limit %d", ErrDocumentTooLarge, n, o.maxDocumentChars)
		}
	}
	o.document = text
	o.record = nil
	return nil
}

// Analyze runs the analyzer over the held document and replaces the record.
// On error the previous record is kept.
func (o *Orchestrator) Analyze(ctx context.Context) (analyses.Record, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	record, err := o.analyzer.Analyze(ctx, o.document)
	if err != nil {
		return analyses.Record{}, err
	}
	o.record = &record
	return record, nil
}

// Ask answers question from the held document and its record. Without a record
// for the exact held document it returns ErrNoAnalysis and makes no model call.
func (o *Orchestrator) Ask(ctx context.Context, question string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.record == nil || o.document == "" || o.record.DocumentHash != util.HashText(o.document) {
		metrics.IncChatQuestion("no_analysis")
		return "", ErrNoAnalysis
	}
	if strings.TrimSpace(question) == "" {
		metrics.IncChatQuestion("rejected")
		return "", ErrEmptyQuestion
	}

	chatContext, err := BuildChatContext(o.document, *o.record, question)
	if err != nil {
		metrics.IncChatQuestion("failed")
		return "", err
	}
	answer, err := o.chat.Generate(ctx, prompts.ChatSystem.Text, chatContext)
	if err != nil {
		metrics.IncChatQuestion("failed")
		return "", err
	}
	metrics.IncChatQuestion("answered")
	return answer, nil
}

// Document returns the held document text.
func (o *Orchestrator) Document() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.document
}

// Record returns a copy of the current record and whether one exists.
func (o *Orchestrator) Record() (analyses.Record, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.record == nil {
		return analyses.Record{}, false
	}
	return *cloneRecord(o.record), true
}

func (o *Orchestrator) restore(document string, record *analyses.Record) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.document = document
	o.record = cloneRecord(record)
}

// BuildChatContext assembles the chat user message: document, key information
// as two-space indented JSON, risks, clause summaries, overall score, question.
func BuildChatContext(document string, record analyses.Record, question string) (string, error) {
	keyInfo, err := indentJSON(record.KeyInformation)
	if err != nil {
		return "", fmt.Errorf("encode key information: %w", err)
	}

	var b strings.Builder
	b.WriteString("Contract Document:\n---\n")
	b.WriteString(document)
	b.WriteString("\n---\n\nExtracted Key Information:\n")
	b.WriteString(keyInfo)
	b.WriteString("\n\nIdentified Risks:\n")
	b.WriteString(record.Risks)
	b.WriteString("\n\nClause Summaries:\n")
	b.WriteString(record.ClauseSummaries)
	b.WriteString("\n\nOverall Score:\n")
	b.WriteString(record.OverallScore)
	b.WriteString("\n\nUser Query: ")
	b.WriteString(question)
	return b.String(), nil
}

func indentJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
