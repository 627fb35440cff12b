package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"contract-analyzer/internal/analyses"
	"contract-analyzer/internal/llm"
	"contract-analyzer/internal/sessions"
	"contract-analyzer/internal/shared/util"
)

const previewChars = 1000

func analyzeAndChat(ctx context.Context, orch *sessions.Orchestrator, text string, opts options, in io.Reader, out io.Writer) error {
	if err := orch.SetDocument(text); err != nil {
		return err
	}
	if !opts.jsonOut {
		preview, truncated := util.Preview(text, previewChars)
		if truncated {
			preview += "..."
		}
		fmt.Fprintf(out, "Document Preview (first %d characters)\n%s\n\n", previewChars, preview)
	}

	record, err := orch.Analyze(ctx)
	if err != nil {
		if errors.Is(err, analyses.ErrEmptyInput) {
			return errors.New(analyses.EmptyInputMessage)
		}
		return err
	}
	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(record); err != nil {
			return err
		}
	} else {
		printRecord(out, record)
	}

	if !opts.chat {
		return nil
	}
	return chatLoop(ctx, orch, in, out)
}

func printRecord(out io.Writer, record analyses.Record) {
	fmt.Fprintln(out, "Key Information")
	if raw, ok := record.KeyInformation.Raw(); ok {
		fmt.Fprintln(out, "(raw output, the model did not return structured data)")
		fmt.Fprintln(out, raw)
	} else {
		data, err := json.MarshalIndent(record.KeyInformation, "", "  ")
		if err != nil {
			fmt.Fprintln(out, llm.DisplayText(fmt.Errorf("render key information: %w", err)))
		} else {
			fmt.Fprintln(out, string(data))
		}
	}
	fmt.Fprintf(out, "\nIdentified Risks\n%s\n", record.Risks)
	fmt.Fprintf(out, "\nClause Summaries\n%s\n", record.ClauseSummaries)
	fmt.Fprintf(out, "\nOverall Score\n%s\n", record.OverallScore)
	if !record.Complete() {
		kinds := make([]string, 0, len(record.Failures))
		for _, k := range record.Failures {
			kinds = append(kinds, string(k))
		}
		fmt.Fprintf(out, "\nIncomplete analysis, failed tasks: %s\n", strings.Join(kinds, ", "))
	}
}

func chatLoop(ctx context.Context, orch *sessions.Orchestrator, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	fmt.Fprint(out, "\nAsk a question about the contract (\"exit\" to quit).\n> ")
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(question) {
		case "":
			fmt.Fprint(out, "> ")
			continue
		case "exit", "quit":
			return nil
		}

		answer, err := orch.Ask(ctx, question)
		switch {
		case err == nil:
			fmt.Fprintf(out, "%s\n> ", answer)
		case errors.Is(err, sessions.ErrNoAnalysis):
			fmt.Fprintf(out, "%s\n> ", sessions.NoAnalysisMessage)
		case errors.Is(err, context.Canceled):
			return err
		default:
			fmt.Fprintf(out, "%s\n> ", llm.DisplayText(err))
		}
	}
	return scanner.Err()
}
