package expansion

import (
	"encoding/json"

	"sqlexpansion/internal/stage"
)

// FailureTimeout marks an invalid candidate whose validation timed out.
// Such candidates are not sent to correction.
const FailureTimeout = "TIME_OUT"

// Candidate is one generated SQL statement. Invalid candidates carry a
// failure type and the validation error. A decoded candidate keeps the exact
// object the stage returned and encodes back to it, so fields this package
// does not read still reach the correction stage.
type Candidate struct {
	SQL           string `json:"sql"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Type          string `json:"type,omitempty"`
	Error         string `json:"error,omitempty"`

	raw json.RawMessage
}

type candidateFields Candidate

func (c *Candidate) UnmarshalJSON(b []byte) error {
	var f candidateFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*c = Candidate(f)
	c.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (c Candidate) MarshalJSON() ([]byte, error) {
	if len(c.raw) > 0 {
		return c.raw, nil
	}
	return json.Marshal(candidateFields(c))
}

// Summary pairs a valid SQL statement with its natural language summary.
type Summary struct {
	SQL     string `json:"sql"`
	Summary string `json:"summary"`
}

func decodeCandidates(out stage.Outputs) (valid, invalid []Candidate, err error) {
	if err := out.Decode("post_process.valid_generation_results", &valid); err != nil {
		return nil, nil, err
	}
	if err := out.Decode("post_process.invalid_generation_results", &invalid); err != nil {
		return nil, nil, err
	}
	return valid, invalid, nil
}

// needsCorrection reports whether the invalid candidates go to correction:
// there is at least one and the first did not time out.
func needsCorrection(invalid []Candidate) bool {
	return len(invalid) > 0 && invalid[0].Type != FailureTimeout
}

// timedOut reports whether the first invalid candidate timed out, which
// skips correction and keeps its error for the final message.
func timedOut(invalid []Candidate) bool {
	return len(invalid) > 0 && invalid[0].Type == FailureTimeout
}
