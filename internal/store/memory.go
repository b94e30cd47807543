package store

import (
	"context"
	"sync"
	"time"

	"talentflow/approval-service/internal/hiringflow"
)

// MemoryFlowStore is a mutex-guarded in-memory FlowStore with the same guard
// semantics as the PostgreSQL implementation. Used by tests.
type MemoryFlowStore struct {
	mu    sync.Mutex
	flows map[string]*hiringflow.FlowRecord
}

// NewMemoryFlowStore returns an empty in-memory flow store.
func NewMemoryFlowStore() *MemoryFlowStore {
	return &MemoryFlowStore{flows: make(map[string]*hiringflow.FlowRecord)}
}

func (s *MemoryFlowStore) Create(_ context.Context, rec *hiringflow.FlowRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.flows[rec.CandidateID]; exists {
		return &hiringflow.ValidationError{Msg: "a hiring flow already exists for this candidate"}
	}
	clone := *rec
	s.flows[rec.CandidateID] = &clone
	return nil
}

func (s *MemoryFlowStore) Get(_ context.Context, candidateID string) (*hiringflow.FlowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.flows[candidateID]
	if !ok {
		return nil, hiringflow.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *MemoryFlowStore) ApplyDecision(_ context.Context, candidateID string, expected, next hiringflow.Step, role hiringflow.Role, entry hiringflow.ApprovalEntry) (*hiringflow.FlowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.flows[candidateID]
	if !ok {
		return nil, hiringflow.ErrNotFound
	}
	if rec.Approvals.Get(role) != nil {
		return nil, &hiringflow.AlreadyDecidedError{Role: role}
	}
	if rec.CurrentStep != expected {
		return nil, &hiringflow.StageMismatchError{Role: role, Expected: expected, Current: rec.CurrentStep}
	}
	rec.CurrentStep = next
	e := entry
	rec.Approvals.Set(role, &e)
	rec.UpdatedAt = time.Now().UTC()
	clone := *rec
	return &clone, nil
}

func (s *MemoryFlowStore) SetStep(_ context.Context, candidateID string, expected, next hiringflow.Step) (*hiringflow.FlowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.flows[candidateID]
	if !ok {
		return nil, hiringflow.ErrNotFound
	}
	if rec.CurrentStep != expected {
		return nil, &hiringflow.StageMismatchError{Expected: expected, Current: rec.CurrentStep}
	}
	rec.CurrentStep = next
	rec.UpdatedAt = time.Now().UTC()
	clone := *rec
	return &clone, nil
}

// MemoryTokenStore is a mutex-guarded in-memory TokenStore. Redeem holds the
// lock across the check and the used-flag flip, so concurrent redemptions of
// one token see exactly one success — the same property the conditional
// UPDATE gives the PostgreSQL store.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*hiringflow.Token
}

// NewMemoryTokenStore returns an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*hiringflow.Token)}
}

func (s *MemoryTokenStore) Mint(_ context.Context, t *hiringflow.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *t
	s.tokens[t.Token] = &clone
	return nil
}

func (s *MemoryTokenStore) Redeem(_ context.Context, token string, now time.Time) (*hiringflow.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok || t.Used || !now.Before(t.ExpiresAt) {
		return nil, hiringflow.ErrTokenInvalid
	}
	t.Used = true
	clone := *t
	return &clone, nil
}

func (s *MemoryTokenStore) Lookup(_ context.Context, token string) (*hiringflow.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok || t.Used || !time.Now().UTC().Before(t.ExpiresAt) {
		return nil, hiringflow.ErrTokenInvalid
	}
	clone := *t
	return &clone, nil
}

func (s *MemoryTokenStore) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, t := range s.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(s.tokens, k)
			n++
		}
	}
	return n, nil
}
