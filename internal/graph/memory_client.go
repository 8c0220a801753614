package graph

import (
	"context"
	"maps"
	"strings"
	"sync"
)

// MemoryClient is a scripted Client for tests. It records every statement and
// answers from stubs matched by cypher fragment, then from a FIFO queue, then
// with an empty Result.
type MemoryClient struct {
	mu           sync.Mutex
	reads        script
	writes       script
	err          error
	connectivity error
	closed       bool
}

// ExecutedQuery captures a cypher statement and parameters executed against the graph.
type ExecutedQuery struct {
	Query  string
	Params map[string]any
}

type stub struct {
	fragment string
	result   Result
}

// script is the call log and canned answers for one access mode.
type script struct {
	calls []ExecutedQuery
	stubs []stub
	queue []Result
}

func (s *script) stub(fragment string, res Result) {
	for i := range s.stubs {
		if s.stubs[i].fragment == fragment {
			s.stubs[i].result = res
			return
		}
	}
	s.stubs = append(s.stubs, stub{fragment: fragment, result: res})
}

func (s *script) answer(cypher string, params map[string]any) Result {
	s.calls = append(s.calls, ExecutedQuery{Query: cypher, Params: maps.Clone(params)})
	for _, st := range s.stubs {
		if strings.Contains(cypher, st.fragment) {
			return st.result
		}
	}
	if len(s.queue) == 0 {
		return Result{}
	}
	res := s.queue[0]
	s.queue = s.queue[1:]
	return res
}

// NewMemoryClient instantiates an empty in-memory client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError makes every subsequent read and write fail with err.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError forces VerifyConnectivity to return err.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// StubRead answers every read whose cypher contains fragment with res.
// Later stubs for the same fragment replace earlier ones.
func (m *MemoryClient) StubRead(fragment string, res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads.stub(fragment, res)
}

// PushReadResult queues res for the next read no stub matches.
func (m *MemoryClient) PushReadResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads.queue = append(m.reads.queue, res)
}

// PushWriteResult queues res for the next write.
func (m *MemoryClient) PushWriteResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes.queue = append(m.writes.queue, res)
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Result{}, m.err
	}
	return m.writes.answer(cypher, params), nil
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Result{}, m.err
	}
	return m.reads.answer(cypher, params), nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MemoryClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// WriteCalls returns the executed write statements in order.
func (m *MemoryClient) WriteCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.writes.calls...)
}

// ReadCalls returns the executed read statements in order.
func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.reads.calls...)
}
