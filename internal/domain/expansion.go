package domain

import (
	"encoding/json"
	"fmt"
)

// Status enumerates the lifecycle states of an expansion job.
type Status string

const (
	StatusUnderstanding Status = "understanding"
	StatusSearching     Status = "searching"
	StatusGenerating    Status = "generating"
	StatusFinished      Status = "finished"
	StatusFailed        Status = "failed"
	StatusStopped       Status = "stopped"
)

// Terminal reports whether no further transitions are expected after s.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinished, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnderstanding, StatusSearching, StatusGenerating, StatusFinished, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// ErrorCode classifies failed jobs.
type ErrorCode string

const (
	ErrorNoRelevantData ErrorCode = "NO_RELEVANT_DATA"
	ErrorNoRelevantSQL  ErrorCode = "NO_RELEVANT_SQL"
	ErrorOthers         ErrorCode = "OTHERS"
)

// Error is the failure payload attached to a failed record.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Step is one SQL fragment of an expansion result.
type Step struct {
	SQL     string `json:"sql"`
	Summary string `json:"summary"`
	CTEName string `json:"cte_name"`
}

// Result is the payload of a finished record.
type Result struct {
	Description string `json:"description"`
	Steps       []Step `json:"steps"`
}

// Record is the externally visible state of one job. The zero value is not
// a valid record; use the constructors, which keep Result and Error mutually
// exclusive.
type Record struct {
	status  Status
	result  *Result
	err     *Error
	traceID string
}

// InProgress builds a record for one of the non-terminal statuses.
func InProgress(status Status, traceID string) Record {
	if status.Terminal() || !status.Valid() {
		panic(fmt.Sprintf("domain: %q is not an in-progress status", status))
	}
	return Record{status: status, traceID: traceID}
}

// Finished builds a finished record carrying result.
func Finished(result Result, traceID string) Record {
	return Record{status: StatusFinished, result: &result, traceID: traceID}
}

// Failed builds a failed record carrying an error payload.
func Failed(code ErrorCode, message, traceID string) Record {
	return Record{status: StatusFailed, err: &Error{Code: code, Message: message}, traceID: traceID}
}

// Stopped builds a stopped record.
func Stopped(traceID string) Record {
	return Record{status: StatusStopped, traceID: traceID}
}

func (r Record) Status() Status  { return r.status }
func (r Record) TraceID() string { return r.traceID }

// Result returns the finished payload, if any.
func (r Record) Result() (Result, bool) {
	if r.result == nil {
		return Result{}, false
	}
	return *r.result, true
}

// Error returns the failure payload, if any.
func (r Record) Error() (Error, bool) {
	if r.err == nil {
		return Error{}, false
	}
	return *r.err, true
}

type recordJSON struct {
	Status   Status  `json:"status"`
	Response *Result `json:"response,omitempty"`
	Error    *Error  `json:"error,omitempty"`
	TraceID  string  `json:"trace_id,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{Status: r.status, Response: r.result, Error: r.err, TraceID: r.traceID})
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if !raw.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, raw.Status)
	}
	switch {
	case raw.Status == StatusFinished && (raw.Response == nil || raw.Error != nil):
		return fmt.Errorf("%w: finished record needs a response and no error", ErrInvalidRecord)
	case raw.Status == StatusFailed && (raw.Error == nil || raw.Response != nil):
		return fmt.Errorf("%w: failed record needs an error and no response", ErrInvalidRecord)
	case raw.Status != StatusFinished && raw.Status != StatusFailed && (raw.Response != nil || raw.Error != nil):
		return fmt.Errorf("%w: %s record carries a payload", ErrInvalidRecord, raw.Status)
	}
	*r = Record{status: raw.Status, result: raw.Response, err: raw.Error, traceID: raw.TraceID}
	return nil
}
