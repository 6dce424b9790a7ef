package metrics

import (
	"fmt"
	"strings"
)

// snippet length keeps diagnostics useful without dumping whole pages
// (which may embed nvram contents) into logs.
const maxSnippetLen = 120

// ParseError reports command output that could not be tokenized into the
// expected shape. Scoped to one collector; never aborts the cycle.
type ParseError struct {
	Command string
	Reason  string
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s (output %q)", e.Command, e.Reason, e.Snippet)
}

func newParseError(command, reason, body string) *ParseError {
	s := strings.TrimSpace(body)
	if len(s) > maxSnippetLen {
		s = s[:maxSnippetLen] + "..."
	}
	return &ParseError{Command: command, Reason: reason, Snippet: s}
}
