package client

import (
	"fmt"
	"io"
	"strings"

	"github.com/func/avictl/config"
	"github.com/hashicorp/hcl2/hcl"
)

// A DiagnosticsError is returned when the error originated from hcl diagnostics.
type DiagnosticsError struct {
	loader ConfigLoader
	hcl.Diagnostics
}

// PrintDiagnostics prints diagnostics to the given writer.
//
// If w is a terminal, the output will be colorized and wrap at the terminal
// width. Otherwise, wrap will occur at 78 characters and output won't contain
// ANSI escape characters.
func (d *DiagnosticsError) PrintDiagnostics(w io.Writer) {
	d.loader.WriteDiagnostics(w, d.Diagnostics)
}

// An ApplyError is returned when one or more resources could not be
// reconciled. Resources in later waves are not attempted.
type ApplyError struct {
	Failed  []Result
	Skipped []config.Resource
}

func (e *ApplyError) Error() string {
	names := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		names[i] = fmt.Sprintf("%s %q", f.Resource.Type, f.Resource.Name)
	}
	msg := fmt.Sprintf("%d failed: %s", len(e.Failed), strings.Join(names, ", "))
	if len(e.Skipped) > 0 {
		msg += fmt.Sprintf("; %d not attempted", len(e.Skipped))
	}
	return msg
}
