package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"policyd/internal/policy/models"
	"policyd/pkg/platform/sentinel"
)

// InMemory keeps policy snapshots in a map. Used in unit tests and local
// development; the postgres store is the production implementation.
type InMemory struct {
	mu       sync.RWMutex
	policies map[uuid.UUID]models.Policy
}

func NewInMemory() *InMemory {
	return &InMemory{policies: make(map[uuid.UUID]models.Policy)}
}

// Save stores a deep copy of the full snapshot, inserting or replacing.
func (s *InMemory) Save(_ context.Context, p *models.Policy) (*models.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.ID] = *clonePolicy(p)
	saved := s.policies[p.ID]
	return clonePolicy(&saved), nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clonePolicy(&p), nil
}

func (s *InMemory) FindByCustomerID(_ context.Context, customerID uuid.UUID) ([]*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Policy
	for _, p := range s.policies {
		if p.CustomerID == customerID {
			p := p
			out = append(out, clonePolicy(&p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// clonePolicy copies the aggregate including its reference-typed fields so
// callers can never mutate stored state behind the store's back.
func clonePolicy(p *models.Policy) *models.Policy {
	cp := *p
	if p.Coverages != nil {
		cp.Coverages = make(map[string]decimal.Decimal, len(p.Coverages))
		for name, amount := range p.Coverages {
			cp.Coverages[name] = amount
		}
	}
	if p.Assistances != nil {
		cp.Assistances = append([]string(nil), p.Assistances...)
	}
	if p.History != nil {
		cp.History = append([]models.StatusChange(nil), p.History...)
	}
	if p.FinishedAt != nil {
		t := *p.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}
