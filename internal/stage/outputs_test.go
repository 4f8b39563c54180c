package stage

import (
	"context"
	"errors"
	"testing"
)

func TestOutputsDecodePath(t *testing.T) {
	out, err := ParseOutputs([]byte(`{"post_process":{"valid_generation_results":[{"sql":"select 1"}],"invalid_generation_results":[]}}`))
	if err != nil {
		t.Fatalf("ParseOutputs error: %v", err)
	}
	var valid []struct {
		SQL string `json:"sql"`
	}
	if err := out.Decode("post_process.valid_generation_results", &valid); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(valid) != 1 || valid[0].SQL != "select 1" {
		t.Fatalf("valid = %#v", valid)
	}

	var missing []string
	err = out.Decode("post_process.sql_summary_results", &missing)
	if !errors.Is(err, ErrMissingOutput) {
		t.Fatalf("Decode(missing) error = %v, want ErrMissingOutput", err)
	}
	err = out.Decode("post_process.valid_generation_results.sql", &missing)
	if !errors.Is(err, ErrInvalidOutput) {
		t.Fatalf("Decode(through array) error = %v, want ErrInvalidOutput", err)
	}
}

func TestOutputsDecodeOptional(t *testing.T) {
	out, err := NewOutputs(map[string]any{"other": 1})
	if err != nil {
		t.Fatalf("NewOutputs error: %v", err)
	}
	docs := []string{"untouched"}
	if err := out.DecodeOptional("construct_retrieval_results.retrieval_results", &docs); err != nil {
		t.Fatalf("DecodeOptional error: %v", err)
	}
	if len(docs) != 1 || docs[0] != "untouched" {
		t.Fatalf("docs = %#v, want untouched", docs)
	}
}

func TestParseOutputsRejectsNonObject(t *testing.T) {
	for _, in := range []string{`[]`, `null`, `"x"`, `{`} {
		if _, err := ParseOutputs([]byte(in)); !errors.Is(err, ErrInvalidOutput) {
			t.Fatalf("ParseOutputs(%s) error = %v, want ErrInvalidOutput", in, err)
		}
	}
}

func TestRegistry(t *testing.T) {
	reg := Registry{
		Retrieval: PipelineFunc(func(ctx context.Context, in Inputs) (Outputs, error) {
			return NewOutputs(map[string]any{"echo": in["query"]})
		}),
	}
	out, err := reg.Run(context.Background(), Retrieval, Inputs{"query": "q"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	var echo string
	if err := out.Decode("echo", &echo); err != nil || echo != "q" {
		t.Fatalf("echo = %q, err %v", echo, err)
	}
	if _, err := reg.Run(context.Background(), Summary, nil); !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("Run(unknown) error = %v, want ErrUnknownStage", err)
	}
	if err := reg.Require(Names...); !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("Require error = %v, want ErrUnknownStage", err)
	}
	if err := reg.Require(Retrieval); err != nil {
		t.Fatalf("Require(retrieval) error = %v", err)
	}
}
