package expansion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"sqlexpansion/internal/domain"
	"sqlexpansion/internal/stage"
)

const (
	msgNoRelevantData = "No relevant data"
	msgNoRelevantSQL  = "No relevant SQL"
)

// Outcome summarizes a finished run for the caller of Expand.
type Outcome struct {
	Result       *domain.Result
	ErrorType    domain.ErrorCode
	ErrorMessage string
	// Abandoned is set when a stop was observed at a checkpoint.
	Abandoned bool
}

// stateFn is one state of the job machine. It returns the next state, or nil
// when the run is over.
type stateFn func(ctx context.Context) (stateFn, error)

type run struct {
	svc     *Service
	req     domain.Request
	traceID string
	log     zerolog.Logger
	last    domain.Status

	documents    []json.RawMessage
	valid        []Candidate
	invalid      []Candidate
	errorMessage string
	outcome      Outcome
}

func (s *Service) newRun(req domain.Request) *run {
	req.Configuration.Language = domain.NormalizeLanguage(req.Configuration.Language)
	traceID := s.traceID()
	return &run{
		svc:     s,
		req:     req,
		traceID: traceID,
		log:     s.logger.With().Str("query_id", req.QueryID).Str("trace_id", traceID).Logger(),
	}
}

func (r *run) drive(ctx context.Context, state stateFn) {
	for state != nil {
		state = r.exec(ctx, state)
	}
}

// exec runs one state. Errors and panics end the run with an OTHERS failure.
func (r *run) exec(ctx context.Context, state stateFn) (next stateFn) {
	defer func() {
		if p := recover(); p != nil {
			r.failOthers(ctx, fmt.Errorf("%v", p))
			next = nil
		}
	}()
	n, err := state(ctx)
	if err != nil {
		r.failOthers(ctx, err)
		return nil
	}
	return n
}

// proceed is the cancellation checkpoint in front of every in-progress write.
func (r *run) proceed(ctx context.Context) bool {
	if r.svc.isStopped(ctx, r.req.QueryID) {
		r.log.Info().Str("status", string(r.last)).Msg("sql expansion: stop observed, abandoning run")
		r.outcome.Abandoned = true
		return false
	}
	return true
}

func (r *run) understand(ctx context.Context) (stateFn, error) {
	if !r.proceed(ctx) {
		return nil, nil
	}
	if err := r.write(ctx, domain.InProgress(domain.StatusUnderstanding, r.traceID)); err != nil {
		return nil, err
	}
	return r.search, nil
}

func (r *run) search(ctx context.Context) (stateFn, error) {
	if !r.proceed(ctx) {
		return nil, nil
	}
	if err := r.write(ctx, domain.InProgress(domain.StatusSearching, r.traceID)); err != nil {
		return nil, err
	}
	out, err := r.svc.stages.Run(ctx, stage.Retrieval, stage.Inputs{
		"query": r.req.Query,
		"id":    r.req.ProjectID,
	})
	if err != nil {
		return nil, err
	}
	if err := out.DecodeOptional("construct_retrieval_results.retrieval_results", &r.documents); err != nil {
		return nil, err
	}
	if len(r.documents) == 0 {
		r.log.Warn().Str("query", r.req.Query).Msg("sql expansion: no relevant data")
		return nil, r.fail(ctx, domain.ErrorNoRelevantData, msgNoRelevantData)
	}
	return r.generate, nil
}

func (r *run) generate(ctx context.Context) (stateFn, error) {
	if !r.proceed(ctx) {
		return nil, nil
	}
	if err := r.write(ctx, domain.InProgress(domain.StatusGenerating, r.traceID)); err != nil {
		return nil, err
	}
	out, err := r.svc.stages.Run(ctx, stage.Generation, stage.Inputs{
		"query":         r.req.Query,
		"contexts":      r.documents,
		"history":       r.req.History,
		"project_id":    r.req.ProjectID,
		"configuration": r.req.Configuration,
	})
	if err != nil {
		return nil, err
	}
	valid, invalid, err := decodeCandidates(out)
	if err != nil {
		return nil, err
	}
	r.valid = append(r.valid, valid...)
	r.invalid = invalid

	switch {
	case needsCorrection(invalid):
		return r.correct, nil
	case timedOut(invalid):
		r.errorMessage = invalid[0].Error
	}
	return r.summarize, nil
}

func (r *run) correct(ctx context.Context) (stateFn, error) {
	out, err := r.svc.stages.Run(ctx, stage.Correction, stage.Inputs{
		"contexts":                   r.documents,
		"invalid_generation_results": r.invalid,
		"project_id":                 r.req.ProjectID,
	})
	if err != nil {
		return nil, err
	}
	valid, invalid, err := decodeCandidates(out)
	if err != nil {
		return nil, err
	}
	switch {
	case len(valid) > 0:
		r.valid = append(r.valid, valid...)
	case len(invalid) > 0:
		r.errorMessage = invalid[0].Error
	}
	return r.summarize, nil
}

func (r *run) summarize(ctx context.Context) (stateFn, error) {
	var summaries []Summary
	if len(r.valid) > 0 {
		sqls := make([]string, 0, len(r.valid))
		for _, c := range r.valid {
			sqls = append(sqls, c.SQL)
		}
		out, err := r.svc.stages.Run(ctx, stage.Summary, stage.Inputs{
			"query":    r.req.Query,
			"sqls":     sqls,
			"language": r.req.Configuration.Language,
		})
		if err != nil {
			return nil, err
		}
		if err := out.Decode("post_process.sql_summary_results", &summaries); err != nil {
			return nil, err
		}
	}
	if len(summaries) == 0 {
		r.log.Warn().Str("query", r.req.Query).Str("error_message", r.errorMessage).Msg("sql expansion: no relevant sql")
		msg := r.errorMessage
		if msg == "" {
			msg = msgNoRelevantSQL
		}
		r.outcome.ErrorMessage = r.errorMessage
		return nil, r.fail(ctx, domain.ErrorNoRelevantSQL, msg)
	}
	return r.finish(summaries[0]), nil
}

func (r *run) finish(s Summary) stateFn {
	return func(ctx context.Context) (stateFn, error) {
		result := domain.Result{
			Description: "",
			Steps:       []domain.Step{{SQL: s.SQL, Summary: s.Summary, CTEName: ""}},
		}
		if err := r.write(ctx, domain.Finished(result, r.traceID)); err != nil {
			return nil, err
		}
		r.outcome.Result = &result
		r.log.Info().Msg("sql expansion: finished")
		return nil, nil
	}
}

func (r *run) write(ctx context.Context, rec domain.Record) error {
	if err := r.svc.store.Put(ctx, r.req.QueryID, rec); err != nil {
		return fmt.Errorf("write %s: %w", rec.Status(), err)
	}
	r.svc.record(ctx, r.req.QueryID, r.last, rec)
	r.last = rec.Status()
	r.log.Debug().Str("status", string(rec.Status())).Msg("sql expansion: status")
	return nil
}

func (r *run) fail(ctx context.Context, code domain.ErrorCode, message string) error {
	r.outcome.ErrorType = code
	return r.write(ctx, domain.Failed(code, message, r.traceID))
}

func (r *run) failOthers(ctx context.Context, cause error) {
	r.log.Error().Err(cause).Str("status", string(r.last)).Msg("sql expansion: run failed")
	r.outcome.Result = nil
	r.outcome.ErrorMessage = cause.Error()
	if err := r.fail(ctx, domain.ErrorOthers, cause.Error()); err != nil {
		r.log.Error().Err(err).Msg("sql expansion: failed to record failure")
	}
}
