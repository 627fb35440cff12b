package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorMarker prefixes the display text of a failed generation call.
const ErrorMarker = "An error occurred:"

var (
	// ErrConfiguration is returned when a client is built with missing settings.
	ErrConfiguration = errors.New("llm configuration error")
	// ErrProviderCall marks any failure while talking to the provider.
	ErrProviderCall = errors.New("llm provider call failed")
)

// Client sends one system/user exchange to a hosted model and returns the completion.
type Client interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// ProviderError describes a failed generation call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Reason     string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " http status %d", e.StatusCode)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProviderCall}
	}
	return []error{ErrProviderCall, e.Err}
}

// ConfigError builds an ErrConfiguration naming the missing settings.
func ConfigError(missing ...string) error {
	return fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(missing, ", "))
}

// DisplayText renders err for end users. The result always starts with ErrorMarker.
func DisplayText(err error) string {
	if err == nil {
		return ""
	}
	return ErrorMarker + " " + err.Error()
}

// IsErrorText reports whether s is display text produced by DisplayText.
func IsErrorText(s string) bool {
	return strings.HasPrefix(s, ErrorMarker)
}

// GenerateText calls c and folds any failure into display text, so callers at
// the presentation boundary always get something to show.
func GenerateText(ctx context.Context, c Client, system, user string) string {
	out, err := c.Generate(ctx, system, user)
	if err != nil {
		return DisplayText(err)
	}
	return out
}
