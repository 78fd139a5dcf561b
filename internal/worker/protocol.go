package worker

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// The stdio contract with task programs: the full request payload is written
// to stdin as a single JSON value and stdin is then closed.  A successful
// task exits 0 and writes exactly one JSON value to stdout; everything on
// stderr is diagnostic only.

// DegradedOutput is the shape a text-only task's result is coerced into when
// the program exits cleanly but its stdout is not valid JSON.
type DegradedOutput struct {
	Output string `json:"output"`
}

// RuntimeFailure carries the observable facts of a worker process that
// exited non-zero.
type RuntimeFailure struct {
	Task     string `json:"task"`
	ExitCode int    `json:"exit_code"`
	// Output is stderr if the process wrote any, otherwise stdout.
	Output string `json:"output"`
}

// newRuntimeError wraps a RuntimeFailure into an AppError with the failure
// encoded in the detail field so callers can recover it structurally.
func newRuntimeError(f RuntimeFailure) error {
	detail, _ := json.Marshal(f)
	return apperrors.Newf(apperrors.ErrCodeWorkerRuntime,
		"task %q exited with code %d", f.Task, f.ExitCode).WithDetail(string(detail))
}

// AsRuntimeFailure extracts the RuntimeFailure from a worker runtime error.
func AsRuntimeFailure(err error) (RuntimeFailure, bool) {
	if !apperrors.IsCode(err, apperrors.ErrCodeWorkerRuntime) {
		return RuntimeFailure{}, false
	}
	var f RuntimeFailure
	if jsonErr := json.Unmarshal([]byte(apperrors.GetDetail(err)), &f); jsonErr != nil {
		return RuntimeFailure{}, false
	}
	return f, true
}

// decodeResult enforces the single-JSON-value stdout contract.  Valid output
// is returned byte-for-byte as produced by the task.  Invalid output from a
// text-only task degrades to {"output": <trimmed stdout>}; from a structured
// task it is a protocol error.
func decodeResult(task string, stdout []byte, textOnly bool) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(stdout))
	var raw json.RawMessage
	err := dec.Decode(&raw)
	if err == nil {
		// Anything beyond the first value, other than whitespace, breaks
		// the contract.
		if _, trailing := dec.Token(); trailing != io.EOF {
			err = apperrors.Newf(apperrors.ErrCodeWorkerProtocol,
				"task %q wrote multiple values to stdout", task)
		}
	}
	if err == nil {
		return raw, nil
	}

	if textOnly {
		degraded, _ := json.Marshal(DegradedOutput{Output: strings.TrimSpace(string(stdout))})
		return degraded, nil
	}
	if apperrors.IsCode(err, apperrors.ErrCodeWorkerProtocol) {
		return nil, err
	}
	return nil, apperrors.Wrap(err, apperrors.ErrCodeWorkerProtocol,
		"task "+task+" stdout is not a JSON value")
}

// IsDegraded reports whether a raw result is the degraded text-only form.
func IsDegraded(raw json.RawMessage) bool {
	var d struct {
		Output *string `json:"output"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return false
	}
	return d.Output != nil
}
