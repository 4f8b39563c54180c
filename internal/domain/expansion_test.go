package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusUnderstanding, false},
		{StatusSearching, false},
		{StatusGenerating, false},
		{StatusFinished, true},
		{StatusFailed, true},
		{StatusStopped, true},
	}
	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			if got := tc.status.Terminal(); got != tc.want {
				t.Fatalf("Terminal() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInProgressRejectsTerminalStatus(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for terminal status")
		}
	}()
	_ = InProgress(StatusFinished, "")
}

func TestRecordPayloadExclusivity(t *testing.T) {
	finished := Finished(Result{Steps: []Step{{SQL: "select 1", Summary: "one"}}}, "trace-1")
	if _, ok := finished.Error(); ok {
		t.Fatal("finished record must not carry an error")
	}
	res, ok := finished.Result()
	if !ok || len(res.Steps) != 1 || res.Steps[0].SQL != "select 1" {
		t.Fatalf("Result() = %#v, %v", res, ok)
	}

	failed := Failed(ErrorNoRelevantSQL, "No relevant SQL", "trace-2")
	if _, ok := failed.Result(); ok {
		t.Fatal("failed record must not carry a result")
	}
	e, ok := failed.Error()
	if !ok || e.Code != ErrorNoRelevantSQL || e.Message != "No relevant SQL" {
		t.Fatalf("Error() = %#v, %v", e, ok)
	}

	stopped := Stopped("")
	if _, ok := stopped.Result(); ok {
		t.Fatal("stopped record must not carry a result")
	}
	if _, ok := stopped.Error(); ok {
		t.Fatal("stopped record must not carry an error")
	}
}

func TestRecordMarshalJSON(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   string
	}{
		{
			name:   "in progress",
			record: InProgress(StatusSearching, "t1"),
			want:   `{"status":"searching","trace_id":"t1"}`,
		},
		{
			name:   "stopped without trace",
			record: Stopped(""),
			want:   `{"status":"stopped"}`,
		},
		{
			name:   "failed",
			record: Failed(ErrorNoRelevantData, "No relevant data", "t2"),
			want:   `{"status":"failed","error":{"code":"NO_RELEVANT_DATA","message":"No relevant data"},"trace_id":"t2"}`,
		},
		{
			name:   "finished",
			record: Finished(Result{Steps: []Step{{SQL: "select 1", Summary: "s"}}}, "t3"),
			want:   `{"status":"finished","response":{"description":"","steps":[{"sql":"select 1","summary":"s","cte_name":""}]},"trace_id":"t3"}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.record)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}
			if string(b) != tc.want {
				t.Fatalf("Marshal = %s, want %s", b, tc.want)
			}
			var back Record
			if err := json.Unmarshal(b, &back); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}
			if back.Status() != tc.record.Status() || back.TraceID() != tc.record.TraceID() {
				t.Fatalf("round trip = %s/%s, want %s/%s", back.Status(), back.TraceID(), tc.record.Status(), tc.record.TraceID())
			}
		})
	}
}

func TestRecordUnmarshalRejectsMismatchedPayload(t *testing.T) {
	inputs := []string{
		`{"status":"finished"}`,
		`{"status":"failed","response":{"description":"","steps":[]}}`,
		`{"status":"generating","error":{"code":"OTHERS","message":"x"}}`,
		`{"status":"paused"}`,
	}
	for _, in := range inputs {
		var r Record
		err := json.Unmarshal([]byte(in), &r)
		if !errors.Is(err, ErrInvalidRecord) {
			t.Fatalf("Unmarshal(%s) error = %v, want ErrInvalidRecord", in, err)
		}
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "English"},
		{"  ", "English"},
		{"en", "English"},
		{"fr", "French"},
		{"id", "Indonesian"},
		{"Traditional Chinese", "Traditional Chinese"},
		{"zh-Hant", "Traditional Chinese"},
		{"zh-TW", "Chinese (Taiwan)"},
		{"English", "English"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := NormalizeLanguage(tc.in); got != tc.want {
				t.Fatalf("NormalizeLanguage(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestHistoryAcceptsObjectOrArray(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"object", `{"history":{"sql":"select 1","question":"q"}}`, 1},
		{"array", `{"history":[{"sql":"a"},{"sql":"b"}]}`, 2},
		{"null", `{"history":null}`, 0},
		{"absent", `{}`, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var req Request
			if err := json.Unmarshal([]byte(tc.in), &req); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}
			if len(req.History) != tc.want {
				t.Fatalf("len(History) = %d, want %d", len(req.History), tc.want)
			}
		})
	}
}

func TestHistoryForwardedAsArray(t *testing.T) {
	var req Request
	if err := json.Unmarshal([]byte(`{"history":{"sql":"select 1","question":"q"}}`), &req); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	b, err := json.Marshal(req.History)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if want := `[{"sql":"select 1","question":"q"}]`; string(b) != want {
		t.Fatalf("history = %s, want %s", b, want)
	}
}
