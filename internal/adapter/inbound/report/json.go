package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"markupcheck/internal/application/dto"
)

// ErrorCodeFatal marks a report in which some documents could not be checked.
const ErrorCodeFatal = "CHECK_FAILED"

// Envelope is the JSON output envelope. Data always carries the report so
// partial results survive a fatal file.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      *dto.Report `json:"data,omitempty"`
	Error     *Error      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Error is the structured error of an envelope.
type Error struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []FileFailure `json:"details,omitempty"`
}

// FileFailure names a document that could not be checked.
type FileFailure struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// JSONRenderer writes the report inside the envelope.
type JSONRenderer struct {
	// Indent pretty-prints the output.
	Indent bool
}

// Render implements Renderer.
func (r JSONRenderer) Render(w io.Writer, report *dto.Report) error {
	env := Envelope{
		Success:   !report.AnyFatal(),
		Data:      report,
		Timestamp: time.Now(),
	}

	if report.AnyFatal() {
		var failures []FileFailure
		for _, f := range report.Files {
			if f.Error == nil {
				continue
			}
			failures = append(failures, FileFailure{
				Path:     f.Path,
				Category: string(f.Error.Category),
				Message:  f.Error.Message,
			})
		}
		env.Error = &Error{
			Code:    ErrorCodeFatal,
			Message: fmt.Sprintf("%d of %d file(s) could not be checked", report.Totals.Fatal, report.Totals.Files),
			Details: failures,
		}
	}

	enc := json.NewEncoder(w)
	if r.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(env)
}
