// Command analyze extracts a contract PDF, prints its analysis and optionally
// answers questions about it from stdin.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"contract-analyzer/internal/analyses"
	"contract-analyzer/internal/bootstrap"
	"contract-analyzer/internal/extract"
	"contract-analyzer/internal/sessions"
	"contract-analyzer/internal/shared/config"
	"contract-analyzer/internal/shared/telemetry"
)

type options struct {
	chat      bool
	jsonOut   bool
	plainText bool
	verbose   bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "analyze <contract.pdf>",
		Short: "Analyze a contract and chat about it",
		Long: `Analyze extracts the text of a contract PDF and asks the configured
Azure OpenAI deployment for its key information, risks, clause summaries and
an overall score. With --chat it then answers questions read from stdin, one
per line, until EOF or "exit".`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, args[0], opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.chat, "chat", false, "Answer questions from stdin after the analysis")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the analysis record as JSON")
	cmd.Flags().BoolVar(&opts.plainText, "text", false, "Read the file as plain text instead of PDF")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Write structured logs to stderr")
	return cmd
}

func run(ctx context.Context, path string, opts options, in io.Reader, out io.Writer) error {
	if opts.verbose {
		telemetry.SetOutput(os.Stderr)
	} else {
		telemetry.SetOutput(io.Discard)
	}

	cfg := config.Load()
	client, err := bootstrap.NewLLMClient(cfg.Azure)
	if err != nil {
		return err
	}

	text, err := readDocument(ctx, path, opts.plainText)
	if err != nil {
		return err
	}

	analyzer := analyses.NewAnalyzer(client, cfg.Concurrency)
	orch := sessions.NewOrchestrator(analyzer, client, cfg.MaxDocumentChars)
	return analyzeAndChat(ctx, orch, text, opts, in, out)
}

func readDocument(ctx context.Context, path string, plainText bool) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open contract: %w", err)
	}
	defer f.Close()

	if plainText {
		data, err := io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("read contract: %w", err)
		}
		return string(data), nil
	}
	text := extract.ExtractPDF(ctx, f)
	if text == "" {
		return "", fmt.Errorf("failed to extract text from the PDF; please check the file's content")
	}
	return text, nil
}
