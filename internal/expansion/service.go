// Package expansion drives SQL expansion jobs through retrieval, generation,
// correction and summarization, publishing every status change to a result
// store that callers poll.
package expansion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sqlexpansion/internal/domain"
	"sqlexpansion/internal/resultstore"
	"sqlexpansion/internal/stage"
)

// ErrServiceClosed is returned by Start once Shutdown has begun.
var ErrServiceClosed = errors.New("expansion service closed")

// Service starts, stops and reports expansion jobs.
type Service struct {
	stages  stage.Registry
	store   resultstore.Store
	journal domain.TransitionRepository
	logger  zerolog.Logger
	traceID func() string
	now     func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	active atomic.Int64
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithJournal records every status write in repo.
func WithJournal(repo domain.TransitionRepository) Option {
	return func(s *Service) { s.journal = repo }
}

// WithTraceIDs overrides how per-run trace identifiers are minted.
func WithTraceIDs(fn func() string) Option {
	return func(s *Service) { s.traceID = fn }
}

// NewService wires a Service. Every stage in stage.Names must be registered.
func NewService(stages stage.Registry, store resultstore.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("expansion: result store is required")
	}
	if err := stages.Require(stage.Names...); err != nil {
		return nil, fmt.Errorf("expansion: %w", err)
	}
	s := &Service{
		stages:  stages,
		store:   store,
		logger:  zerolog.Nop(),
		traceID: uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start accepts a job and runs it in the background. The first status write
// happens before Start returns, so the id is immediately pollable. A missing
// QueryID is assigned.
func (s *Service) Start(ctx context.Context, req domain.Request) (string, error) {
	if strings.TrimSpace(req.QueryID) == "" {
		req.QueryID = uuid.NewString()
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrServiceClosed
	}
	s.wg.Add(1)
	s.active.Add(1)
	s.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	r := s.newRun(req)
	next := r.exec(runCtx, r.understand)
	go func() {
		defer s.wg.Done()
		defer s.active.Add(-1)
		r.drive(runCtx, next)
	}()
	return req.QueryID, nil
}

// Expand runs a job to completion on the calling goroutine.
func (s *Service) Expand(ctx context.Context, req domain.Request) Outcome {
	if strings.TrimSpace(req.QueryID) == "" {
		req.QueryID = uuid.NewString()
	}
	r := s.newRun(req)
	r.drive(ctx, r.understand)
	return r.outcome
}

// Stop marks a job stopped. It works for ids that have not started yet, and
// the trace id of an existing record is carried over.
func (s *Service) Stop(ctx context.Context, queryID string) error {
	var from domain.Status
	traceID := ""
	prev, ok, err := s.store.Get(ctx, queryID)
	if err != nil {
		s.logger.Warn().Err(err).Str("query_id", queryID).Msg("sql expansion: read before stop failed")
	} else if ok {
		from = prev.Status()
		traceID = prev.TraceID()
	}
	rec := domain.Stopped(traceID)
	if err := s.store.Put(ctx, queryID, rec); err != nil {
		return fmt.Errorf("expansion: stop %s: %w", queryID, err)
	}
	s.record(ctx, queryID, from, rec)
	s.logger.Info().Str("query_id", queryID).Msg("sql expansion: stopped")
	return nil
}

// Result returns the current record of a job. Unknown or expired ids yield a
// failed record rather than an error.
func (s *Service) Result(ctx context.Context, queryID string) domain.Record {
	rec, ok, err := s.store.Get(ctx, queryID)
	if err != nil {
		s.logger.Error().Err(err).Str("query_id", queryID).Msg("sql expansion: result lookup failed")
		return domain.Failed(domain.ErrorOthers, err.Error(), "")
	}
	if !ok {
		s.logger.Warn().Str("query_id", queryID).Msg("sql expansion: result not found")
		return domain.Failed(domain.ErrorOthers, queryID+" is not found", "")
	}
	return rec
}

// Transitions lists the journal of a job. It returns domain.ErrNotFound when
// no journal is configured.
func (s *Service) Transitions(ctx context.Context, queryID string) ([]domain.Transition, error) {
	if s.journal == nil {
		return nil, domain.ErrNotFound
	}
	return s.journal.ListByQueryID(ctx, queryID)
}

// JournalEnabled reports whether transitions are being recorded.
func (s *Service) JournalEnabled() bool {
	return s.journal != nil
}

// Ready probes the result store.
func (s *Service) Ready(ctx context.Context) error {
	_, _, err := s.store.Get(ctx, "__ready__")
	return err
}

// Active returns the number of jobs started with Start that are still running.
func (s *Service) Active() int64 {
	return s.active.Load()
}

// Shutdown refuses new jobs and waits for running ones until ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) isStopped(ctx context.Context, queryID string) bool {
	rec, ok, err := s.store.Get(ctx, queryID)
	if err != nil {
		s.logger.Warn().Err(err).Str("query_id", queryID).Msg("sql expansion: stop check failed")
		return false
	}
	return ok && rec.Status() == domain.StatusStopped
}

func (s *Service) record(ctx context.Context, queryID string, from domain.Status, rec domain.Record) {
	if s.journal == nil {
		return
	}
	t := domain.Transition{
		QueryID:    queryID,
		FromStatus: from,
		ToStatus:   rec.Status(),
		TraceID:    rec.TraceID(),
		At:         s.now().UTC(),
	}
	if e, ok := rec.Error(); ok {
		t.ErrorCode = e.Code
	}
	if err := s.journal.Append(ctx, t); err != nil {
		s.logger.Warn().Err(err).Str("query_id", queryID).Str("status", string(rec.Status())).Msg("sql expansion: journal append failed")
	}
}
