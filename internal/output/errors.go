package output

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/user/kiji/internal/apierr"
)

const (
	ExitSuccess    = 0
	ExitGeneral    = 1
	ExitUsageError = 2
	ExitNetwork    = 3
	ExitNotFound   = 4
)

// CLIError is a structured error with user-facing context
type CLIError struct {
	Summary    string
	Detail     string
	Suggestion string
	ExitCode   int
}

func (e *CLIError) Error() string {
	return e.Summary
}

// FromError turns any command error into a CLIError. API errors keep their
// user message; the endpoint and status go into Detail.
func FromError(err error, baseURL string) *CLIError {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	if e, ok := apierr.As(err); ok {
		out := &CLIError{
			Summary:  e.UserMessage(),
			Detail:   detail(e),
			ExitCode: ExitGeneral,
		}
		switch {
		case e.IsNetwork():
			out.ExitCode = ExitNetwork
			out.Suggestion = fmt.Sprintf("Check that the backend is running at %s or set KIJI_API_BASE_URL", baseURL)
		case e.IsNotFound():
			out.ExitCode = ExitNotFound
		case e.IsUnauthorized() || e.IsForbidden():
			out.Suggestion = "Check the credentials configured for the backend"
		}
		return out
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &CLIError{Summary: "request timed out", Detail: err.Error(), ExitCode: ExitNetwork}
	}
	return &CLIError{Summary: err.Error(), ExitCode: ExitGeneral}
}

func detail(e *apierr.Error) string {
	if e.IsNetwork() {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Message)
}

// FormatError prints e to stderr: the summary, then an indented cause and
// suggestion when present. Quiet mode does not apply.
func (p *Printer) FormatError(e *CLIError) {
	p.line(p.err, statusError, "%s", []any{e.Summary})
	if e.Detail != "" {
		fmt.Fprintf(p.err, "  Cause: %s\n", e.Detail)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(p.err, "  Suggestion: %s\n", p.style(e.Suggestion, color.FgCyan))
	}
}
