package analyses

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"contract-analyzer/internal/llm"
	"contract-analyzer/internal/prompts"
	"contract-analyzer/internal/shared/metrics"
	"contract-analyzer/internal/shared/telemetry"
	"contract-analyzer/internal/shared/util"
)

// Analyzer runs the four analysis tasks against a model and merges the results.
type Analyzer struct {
	LLM llm.Client
	// Concurrency bounds in-flight model calls; 0 runs all four at once,
	// 1 runs them one after another.
	Concurrency int
}

// NewAnalyzer constructs an Analyzer.
func NewAnalyzer(client llm.Client, concurrency int) *Analyzer {
	return &Analyzer{LLM: client, Concurrency: concurrency}
}

type taskResult struct {
	text string
	err  error
}

// Analyze returns the merged record for documentText. It fails only for empty
// text (without calling the model) or a cancelled context. A failed task does
// not stop the others; its field holds display text and it is listed in Failures.
func (a *Analyzer) Analyze(ctx context.Context, documentText string) (Record, error) {
	if strings.TrimSpace(documentText) == "" {
		return Record{}, ErrEmptyInput
	}

	start := time.Now()
	metrics.IncAnalysisStarted()
	requestID := requestIDFromContext(ctx)

	results := make([]taskResult, len(prompts.Kinds))
	var g errgroup.Group
	if a.Concurrency > 0 {
		g.SetLimit(a.Concurrency)
	}
	for i, kind := range prompts.Kinds {
		g.Go(func() error {
			results[i] = a.runTask(ctx, requestID, kind, documentText)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	record := Record{
		DocumentHash: util.HashText(documentText),
		AnalyzedAt:   time.Now().UTC(),
	}
	for i, kind := range prompts.Kinds {
		res := results[i]
		text := res.text
		if res.err != nil {
			text = llm.DisplayText(res.err)
			record.Failures = append(record.Failures, kind)
			metrics.IncAnalysisTaskFailed(string(kind))
		}
		switch kind {
		case prompts.KindKeyInformation:
			if res.err != nil {
				record.KeyInformation = Unparsed(text)
				continue
			}
			record.KeyInformation = ParseKeyInformation(text)
			if !record.KeyInformation.IsStructured() {
				telemetry.Warn("analysis.key_information.unparsed", map[string]any{
					"request_id": requestID,
					"bytes":      len(text),
				})
			}
		case prompts.KindRisks:
			record.Risks = text
		case prompts.KindClauseSummaries:
			record.ClauseSummaries = text
		case prompts.KindOverallScore:
			record.OverallScore = text
		}
	}

	elapsed := time.Since(start)
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(elapsed.Microseconds()) / 1000.0)
	telemetry.Info("analysis.complete", map[string]any{
		"request_id":  requestID,
		"failures":    len(record.Failures),
		"duration_ms": elapsed.Milliseconds(),
	})
	return record, nil
}

func (a *Analyzer) runTask(ctx context.Context, requestID string, kind prompts.Kind, documentText string) taskResult {
	tmpl, _ := prompts.Task(kind)
	start := time.Now()
	telemetry.Info("analysis.task", map[string]any{
		"request_id": requestID,
		"task":       string(kind),
		"status":     "started",
	})

	out, err := a.LLM.Generate(ctx, prompts.GeneralSystem.Text, tmpl.Render(documentText))

	fields := map[string]any{
		"request_id":  requestID,
		"task":        string(kind),
		"status":      "completed",
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["status"] = "failed"
		fields["error"] = err
		telemetry.Error("analysis.task", fields)
		return taskResult{err: err}
	}
	telemetry.Info("analysis.task", fields)
	return taskResult{text: out}
}
