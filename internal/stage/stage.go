// Package stage runs the named processing stages of an expansion job:
// retrieval, generation, correction and summarization. Each stage takes
// keyword inputs and returns a JSON object of outputs.
package stage

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Stage names.
const (
	Retrieval  = "retrieval"
	Generation = "sql_expansion"
	Correction = "sql_correction"
	Summary    = "sql_summary"
)

// Names lists every stage an expansion run needs.
var Names = []string{Retrieval, Generation, Correction, Summary}

var (
	ErrUnknownStage  = errors.New("unknown stage")
	ErrMissingOutput = errors.New("missing stage output")
	ErrInvalidOutput = errors.New("invalid stage output")
)

// Inputs are the keyword arguments of a stage run.
type Inputs map[string]any

// Pipeline runs one stage.
type Pipeline interface {
	Run(ctx context.Context, in Inputs) (Outputs, error)
}

// PipelineFunc adapts a function to Pipeline.
type PipelineFunc func(ctx context.Context, in Inputs) (Outputs, error)

func (f PipelineFunc) Run(ctx context.Context, in Inputs) (Outputs, error) {
	return f(ctx, in)
}

// Registry maps stage names to their pipelines.
type Registry map[string]Pipeline

// Run invokes the named stage.
func (r Registry) Run(ctx context.Context, name string, in Inputs) (Outputs, error) {
	p, ok := r[name]
	if !ok || p == nil {
		return Outputs{}, fmt.Errorf("%w: %s", ErrUnknownStage, name)
	}
	return p.Run(ctx, in)
}

// Require reports every name that has no pipeline.
func (r Registry) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if p, ok := r[name]; !ok || p == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %v", ErrUnknownStage, missing)
}
