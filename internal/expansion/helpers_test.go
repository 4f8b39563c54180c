package expansion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sqlexpansion/internal/domain"
	"sqlexpansion/internal/resultstore"
	"sqlexpansion/internal/stage"
)

func mustOutputs(t *testing.T, v map[string]any) stage.Outputs {
	t.Helper()
	out, err := stage.NewOutputs(v)
	if err != nil {
		t.Fatalf("NewOutputs error: %v", err)
	}
	return out
}

// callLog wraps pipelines and remembers which stages ran with which inputs.
type callLog struct {
	mu     sync.Mutex
	calls  []string
	inputs map[string]stage.Inputs
}

func (c *callLog) wrap(name string, p stage.Pipeline) stage.Pipeline {
	return stage.PipelineFunc(func(ctx context.Context, in stage.Inputs) (stage.Outputs, error) {
		c.mu.Lock()
		c.calls = append(c.calls, name)
		if c.inputs == nil {
			c.inputs = map[string]stage.Inputs{}
		}
		c.inputs[name] = in
		c.mu.Unlock()
		return p.Run(ctx, in)
	})
}

func (c *callLog) called(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.calls {
		if n == name {
			return true
		}
	}
	return false
}

func (c *callLog) input(name string) stage.Inputs {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputs[name]
}

func retrieval(t *testing.T, docs ...map[string]any) stage.Pipeline {
	return stage.PipelineFunc(func(context.Context, stage.Inputs) (stage.Outputs, error) {
		return mustOutputs(t, map[string]any{
			"construct_retrieval_results": map[string]any{"retrieval_results": docs},
		}), nil
	})
}

func candidates(t *testing.T, valid, invalid []Candidate) stage.Pipeline {
	return stage.PipelineFunc(func(context.Context, stage.Inputs) (stage.Outputs, error) {
		return mustOutputs(t, map[string]any{
			"post_process": map[string]any{
				"valid_generation_results":   valid,
				"invalid_generation_results": invalid,
			},
		}), nil
	})
}

func summaries(t *testing.T, s ...Summary) stage.Pipeline {
	return stage.PipelineFunc(func(_ context.Context, in stage.Inputs) (stage.Outputs, error) {
		return mustOutputs(t, map[string]any{
			"post_process": map[string]any{"sql_summary_results": s},
		}), nil
	})
}

func failing(err error) stage.Pipeline {
	return stage.PipelineFunc(func(context.Context, stage.Inputs) (stage.Outputs, error) {
		return stage.Outputs{}, err
	})
}

var table = map[string]any{"table_name": "orders", "table_ddl": "CREATE TABLE orders (id int)"}

// recordingStore remembers the status of every write.
type recordingStore struct {
	resultstore.Store
	mu       sync.Mutex
	statuses []domain.Status
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Store: resultstore.NewMemory(100, time.Minute)}
}

func (s *recordingStore) Put(ctx context.Context, id string, rec domain.Record) error {
	s.mu.Lock()
	s.statuses = append(s.statuses, rec.Status())
	s.mu.Unlock()
	return s.Store.Put(ctx, id, rec)
}

func (s *recordingStore) written() []domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Status(nil), s.statuses...)
}

type brokenStore struct{}

func (brokenStore) Put(context.Context, string, domain.Record) error {
	return errors.New("store unavailable")
}

func (brokenStore) Get(context.Context, string) (domain.Record, bool, error) {
	return domain.Record{}, false, errors.New("store unavailable")
}

type memoryJournal struct {
	mu          sync.Mutex
	transitions []domain.Transition
	err         error
}

func (j *memoryJournal) Append(_ context.Context, t domain.Transition) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.transitions = append(j.transitions, t)
	return nil
}

func (j *memoryJournal) ListByQueryID(_ context.Context, queryID string) ([]domain.Transition, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []domain.Transition
	for _, t := range j.transitions {
		if t.QueryID == queryID {
			out = append(out, t)
		}
	}
	return out, nil
}

func newTestService(t *testing.T, reg stage.Registry, store resultstore.Store, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithTraceIDs(func() string { return "trace-1" })}, opts...)
	svc, err := NewService(reg, store, opts...)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc
}

func request(id string) domain.Request {
	return domain.Request{
		QueryID:   id,
		Query:     "top customers by revenue",
		ProjectID: "project-1",
		History:   domain.History{{SQL: "select * from customers", Question: "list customers"}},
	}
}

func equalStatuses(a, b []domain.Status) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
