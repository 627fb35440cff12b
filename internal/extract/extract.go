package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"contract-analyzer/internal/shared/metrics"
	"contract-analyzer/internal/shared/telemetry"
)

var errNoText = errors.New("no extractable text")

// ExtractPDF returns the text of every page of the PDF read from r, each page
// followed by a newline. Any failure (unreadable stream, corrupt or encrypted
// file, image-only pages) is logged and reported as "".
func ExtractPDF(ctx context.Context, r io.Reader) string {
	if err := ctx.Err(); err != nil {
		logFailure(0, err)
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil {
		logFailure(0, fmt.Errorf("read: %w", err))
		return ""
	}
	return ExtractPDFBytes(ctx, data)
}

// ExtractPDFBytes is ExtractPDF for an in-memory payload.
func ExtractPDFBytes(ctx context.Context, data []byte) string {
	if err := ctx.Err(); err != nil {
		logFailure(len(data), err)
		return ""
	}
	text, err := extractPages(ctx, data)
	if err != nil {
		logFailure(len(data), err)
		return ""
	}
	return text
}

func extractPages(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("pdf parser panic: %v", rec)
		}
	}()

	if len(data) == 0 {
		return "", errors.New("empty pdf data")
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var buf strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			buf.WriteString("\n")
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		buf.WriteString(content)
		buf.WriteString("\n")
	}

	out := buf.String()
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w in %d page(s)", errNoText, pages)
	}
	return out, nil
}

func logFailure(size int, err error) {
	metrics.IncExtractionFailed()
	telemetry.Error("extract.failed", map[string]any{
		"format": "pdf",
		"bytes":  size,
		"error":  err,
	})
}
