//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"policyd/internal/policy/models"
	"policyd/internal/policy/risk"
	"policyd/internal/policy/store"
	"policyd/pkg/platform/sentinel"
	"policyd/pkg/platform/tx"
	"policyd/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "policies")
	s.Require().NoError(err)
}

func newStoredPolicy(s *PostgresStoreSuite, customerID uuid.UUID) *models.Policy {
	p, err := models.NewPolicy(models.NewPolicyInput{
		CustomerID:          customerID,
		ProductID:           uuid.New(),
		Category:            models.CategoryAuto,
		SalesChannel:        "MOBILE",
		PaymentMethod:       "CREDIT_CARD",
		TotalMonthlyPremium: decimal.NewFromFloat(75.25),
		InsuredAmount:       decimal.NewFromInt(275_000),
		Coverages: map[string]decimal.Decimal{
			"Collision":   decimal.NewFromInt(100_000),
			"Third Party": decimal.NewFromInt(75_000),
		},
		Assistances: []string{"Roadside Assistance", "Glass Protection"},
	}, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return p
}

func (s *PostgresStoreSuite) TestSaveAndFindRoundTrip() {
	ctx := context.Background()
	p := newStoredPolicy(s, uuid.New())

	saved, err := s.store.Save(ctx, p)
	s.Require().NoError(err)
	s.Equal(p.ID, saved.ID)

	found, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.CustomerID, found.CustomerID)
	s.Equal(p.ProductID, found.ProductID)
	s.Equal(models.CategoryAuto, found.Category)
	s.Equal("MOBILE", found.SalesChannel)
	s.Equal("CREDIT_CARD", found.PaymentMethod)
	s.True(p.InsuredAmount.Equal(found.InsuredAmount))
	s.True(p.TotalMonthlyPremium.Equal(found.TotalMonthlyPremium))
	s.Len(found.Coverages, 2)
	s.True(found.Coverages["Collision"].Equal(decimal.NewFromInt(100_000)))
	s.Equal(p.Assistances, found.Assistances)
	s.Equal(models.StatusReceived, found.Status)
	s.Nil(found.FinishedAt)
	s.Require().Len(found.History, 1)
	s.Equal(models.StatusReceived, found.History[0].Status)
}

func (s *PostgresStoreSuite) TestSavePersistsFullLifecycle() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := newStoredPolicy(s, uuid.New())

	_, err := s.store.Save(ctx, p)
	s.Require().NoError(err)

	s.Require().NoError(p.Validate(models.RiskRegular, risk.IsApproved, now))
	s.Require().NoError(p.MarkAsPending(now))
	_, err = p.ConfirmPayment()
	s.Require().NoError(err)
	_, err = p.AuthorizeSubscription()
	s.Require().NoError(err)
	s.Require().NoError(p.Approve(now))

	_, err = s.store.Save(ctx, p)
	s.Require().NoError(err)

	found, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, found.Status)
	s.True(found.PaymentConfirmed)
	s.True(found.SubscriptionAuthorized)
	s.Require().NotNil(found.FinishedAt)
	s.Require().Len(found.History, 4)
	s.Equal(models.StatusReceived, found.History[0].Status)
	s.Equal(models.StatusValidated, found.History[1].Status)
	s.Equal(models.StatusPending, found.History[2].Status)
	s.Equal(models.StatusApproved, found.History[3].Status)
}

func (s *PostgresStoreSuite) TestFindByIDNotFound() {
	_, err := s.store.FindByID(context.Background(), uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindByCustomerID() {
	ctx := context.Background()
	customerID := uuid.New()

	first := newStoredPolicy(s, customerID)
	second := newStoredPolicy(s, customerID)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	other := newStoredPolicy(s, uuid.New())

	for _, p := range []*models.Policy{second, first, other} {
		_, err := s.store.Save(ctx, p)
		s.Require().NoError(err)
	}

	found, err := s.store.FindByCustomerID(ctx, customerID)
	s.Require().NoError(err)
	s.Require().Len(found, 2)
	s.Equal(first.ID, found[0].ID)
	s.Equal(second.ID, found[1].ID)
}

func (s *PostgresStoreSuite) TestFindByCustomerIDEmpty() {
	found, err := s.store.FindByCustomerID(context.Background(), uuid.New())
	s.Require().NoError(err)
	s.Empty(found)
}

func (s *PostgresStoreSuite) TestConcurrentSavesSamePolicy() {
	ctx := context.Background()
	p := newStoredPolicy(s, uuid.New())

	const goroutines = 50
	var wg sync.WaitGroup
	var saveErrors atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.Save(ctx, p); err != nil {
				saveErrors.Add(1)
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(0), saveErrors.Load(), "all upserts of the same snapshot should succeed")

	found, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusReceived, found.Status)
}

func (s *PostgresStoreSuite) TestSaveWithinRolledBackTransaction() {
	ctx := context.Background()
	p := newStoredPolicy(s, uuid.New())

	dbTx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)

	txCtx := tx.WithTx(ctx, dbTx)
	_, err = s.store.Save(txCtx, p)
	s.Require().NoError(err)

	// Visible inside the transaction.
	found, err := s.store.FindByID(txCtx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, found.ID)

	s.Require().NoError(dbTx.Rollback())

	// Gone after rollback.
	_, err = s.store.FindByID(ctx, p.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
