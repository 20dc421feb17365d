package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"policyd/internal/policy/models"
	"policyd/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) newPolicy(customerID uuid.UUID) *models.Policy {
	p, err := models.NewPolicy(models.NewPolicyInput{
		CustomerID:          customerID,
		ProductID:           uuid.New(),
		Category:            models.CategoryLife,
		SalesChannel:        "WEB",
		PaymentMethod:       "PIX",
		TotalMonthlyPremium: decimal.NewFromInt(50),
		InsuredAmount:       decimal.NewFromInt(100_000),
		Coverages:           map[string]decimal.Decimal{"Morte": decimal.NewFromInt(100_000)},
		Assistances:         []string{"Funeral"},
	}, time.Now())
	s.Require().NoError(err)
	return p
}

func (s *MemoryStoreSuite) TestSaveAndFind() {
	s.Run("saves and finds by id", func() {
		p := s.newPolicy(uuid.New())
		_, err := s.store.Save(s.ctx, p)
		s.Require().NoError(err)

		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(p.ID, found.ID)
		s.Equal(models.StatusReceived, found.Status)
		s.Len(found.History, 1)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, uuid.New())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("replaces the snapshot on repeated save", func() {
		p := s.newPolicy(uuid.New())
		_, err := s.store.Save(s.ctx, p)
		s.Require().NoError(err)

		s.Require().NoError(p.Cancel(time.Now()))
		_, err = s.store.Save(s.ctx, p)
		s.Require().NoError(err)

		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, found.Status)
		s.Len(found.History, 2)
	})
}

func (s *MemoryStoreSuite) TestFindByCustomerID() {
	customer := uuid.New()
	first := s.newPolicy(customer)
	second := s.newPolicy(customer)
	other := s.newPolicy(uuid.New())
	for _, p := range []*models.Policy{first, second, other} {
		_, err := s.store.Save(s.ctx, p)
		s.Require().NoError(err)
	}

	found, err := s.store.FindByCustomerID(s.ctx, customer)
	s.Require().NoError(err)
	s.Len(found, 2)

	found, err = s.store.FindByCustomerID(s.ctx, uuid.New())
	s.Require().NoError(err)
	s.Empty(found)
}

func (s *MemoryStoreSuite) TestReturnedSnapshotsAreIsolated() {
	p := s.newPolicy(uuid.New())
	_, err := s.store.Save(s.ctx, p)
	s.Require().NoError(err)

	found, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	found.Status = models.StatusApproved
	found.History = append(found.History, models.StatusChange{Status: models.StatusApproved})

	again, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusReceived, again.Status, "mutating a returned snapshot must not affect the store")
	s.Len(again.History, 1)
}
