package models_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"policyd/internal/policy/models"
	"policyd/internal/policy/risk"
	"policyd/pkg/testutil"
)

type PolicySuite struct {
	suite.Suite
	now time.Time
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

func (s *PolicySuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PolicySuite) newPolicy(category models.Category, insuredAmount int64) *models.Policy {
	p, err := models.NewPolicy(models.NewPolicyInput{
		CustomerID:          uuid.New(),
		ProductID:           uuid.New(),
		Category:            category,
		SalesChannel:        "MOBILE",
		PaymentMethod:       "CREDIT_CARD",
		TotalMonthlyPremium: decimal.NewFromInt(75),
		InsuredAmount:       decimal.NewFromInt(insuredAmount),
		Coverages:           map[string]decimal.Decimal{"Roubo": decimal.NewFromInt(50_000)},
		Assistances:         []string{"Guincho até 250km"},
	}, s.now)
	s.Require().NoError(err)
	return p
}

func (s *PolicySuite) TestNewPolicy() {
	s.Run("seeds history with RECEIVED", func() {
		p := s.newPolicy(models.CategoryLife, 9_999)
		s.Equal(models.StatusReceived, p.Status)
		s.Require().Len(p.History, 1)
		s.Equal(models.StatusReceived, p.History[0].Status)
		s.Equal(s.now, p.History[0].Timestamp)
		s.Nil(p.FinishedAt)
		s.False(p.PaymentConfirmed)
		s.False(p.SubscriptionAuthorized)
	})

	s.Run("rejects missing customer id", func() {
		_, err := models.NewPolicy(models.NewPolicyInput{
			ProductID:     uuid.New(),
			Category:      models.CategoryAuto,
			InsuredAmount: decimal.NewFromInt(1),
		}, s.now)
		s.Require().Error(err)
	})

	s.Run("rejects negative insured amount", func() {
		_, err := models.NewPolicy(models.NewPolicyInput{
			CustomerID:    uuid.New(),
			ProductID:     uuid.New(),
			Category:      models.CategoryAuto,
			InsuredAmount: decimal.NewFromInt(-1),
		}, s.now)
		s.Require().Error(err)
	})
}

func (s *PolicySuite) TestValidate() {
	s.Run("approved classification moves to VALIDATED", func() {
		p := s.newPolicy(models.CategoryLife, 9_999)
		later := s.now.Add(time.Minute)

		s.Require().NoError(p.Validate(models.RiskRegular, risk.IsApproved, later))

		s.Equal(models.StatusValidated, p.Status)
		s.Len(p.History, 2)
		s.Nil(p.FinishedAt)
	})

	s.Run("rejected classification moves to REJECTED and finishes", func() {
		p := s.newPolicy(models.CategoryLife, 1_000_000)
		later := s.now.Add(time.Minute)

		s.Require().NoError(p.Validate(models.RiskHigh, risk.IsApproved, later))

		s.Equal(models.StatusRejected, p.Status)
		s.Len(p.History, 2)
		s.Require().NotNil(p.FinishedAt)
		s.Equal(later, *p.FinishedAt)
	})

	s.Run("boundary amount is approved", func() {
		p := s.newPolicy(models.CategoryLife, 500_000)
		s.Require().NoError(p.Validate(models.RiskRegular, risk.IsApproved, s.now))
		s.Equal(models.StatusValidated, p.Status)
	})

	s.Run("one over boundary is rejected", func() {
		p := s.newPolicy(models.CategoryLife, 500_001)
		s.Require().NoError(p.Validate(models.RiskRegular, risk.IsApproved, s.now))
		s.Equal(models.StatusRejected, p.Status)
	})

	s.Run("fails from a non-RECEIVED status without mutating", func() {
		p := s.newPolicy(models.CategoryLife, 9_999)
		s.Require().NoError(p.Cancel(s.now))
		before := len(p.History)

		err := p.Validate(models.RiskRegular, risk.IsApproved, s.now)

		s.Require().Error(err)
		s.Equal(models.StatusCancelled, p.Status)
		s.Len(p.History, before)
	})
}

func (s *PolicySuite) TestFullApprovalPath() {
	p := s.newPolicy(models.CategoryAuto, 100_000)
	t1 := s.now.Add(1 * time.Minute)
	t2 := s.now.Add(2 * time.Minute)
	t3 := s.now.Add(3 * time.Minute)

	s.Require().NoError(p.Validate(models.RiskRegular, risk.IsApproved, t1))
	s.Require().NoError(p.MarkAsPending(t2))

	changed, err := p.ConfirmPayment()
	s.Require().NoError(err)
	s.True(changed)
	s.False(p.BothConfirmed())

	changed, err = p.AuthorizeSubscription()
	s.Require().NoError(err)
	s.True(changed)
	s.True(p.BothConfirmed())

	s.Require().NoError(p.Approve(t3))

	s.Equal(models.StatusApproved, p.Status)
	s.Require().NotNil(p.FinishedAt)
	s.Equal(t3, *p.FinishedAt)

	want := []models.Status{models.StatusReceived, models.StatusValidated, models.StatusPending, models.StatusApproved}
	s.Require().Len(p.History, len(want))
	for i, status := range want {
		s.Equal(status, p.History[i].Status)
		if i > 0 {
			s.False(p.History[i].Timestamp.Before(p.History[i-1].Timestamp))
		}
	}
}

func (s *PolicySuite) TestTerminalStatusesAreFinal() {
	terminalSetups := map[string]func(p *models.Policy){
		"cancelled": func(p *models.Policy) {
			s.Require().NoError(p.Cancel(s.now))
		},
		"rejected": func(p *models.Policy) {
			s.Require().NoError(p.Validate(models.RiskRegular, risk.IsApproved, s.now))
			s.Require().NoError(p.Reject(s.now))
		},
		"approved": func(p *models.Policy) {
			s.Require().NoError(p.Validate(models.RiskRegular, risk.IsApproved, s.now))
			s.Require().NoError(p.MarkAsPending(s.now))
			s.Require().NoError(p.Approve(s.now))
		},
	}

	for name, setup := range terminalSetups {
		s.Run(name, func() {
			p := s.newPolicy(models.CategoryLife, 9_999)
			setup(p)
			s.Require().NotNil(p.FinishedAt)
			finishedAt := *p.FinishedAt
			history := len(p.History)

			s.Error(p.Approve(s.now))
			s.Error(p.Reject(s.now))
			s.Error(p.Cancel(s.now))
			s.Error(p.MarkAsPending(s.now))
			_, err := p.ConfirmPayment()
			s.Error(err)
			_, err = p.AuthorizeSubscription()
			s.Error(err)

			s.Len(p.History, history, "failed transitions must not append history")
			s.Equal(finishedAt, *p.FinishedAt, "finishedAt is set exactly once")
		})
	}
}

func (s *PolicySuite) TestCancelTwiceFailsSecondTime() {
	p := s.newPolicy(models.CategoryResidential, 10_000)
	s.Require().NoError(p.Cancel(s.now))
	s.Error(p.Cancel(s.now))
	s.Equal(models.StatusCancelled, p.Status)
	s.Len(p.History, 2)
}

func (s *PolicySuite) TestConfirmationFlagsAreIdempotent() {
	p := s.newPolicy(models.CategoryLife, 9_999)
	s.Require().NoError(p.Validate(models.RiskRegular, risk.IsApproved, s.now))
	s.Require().NoError(p.MarkAsPending(s.now))

	changed, err := p.ConfirmPayment()
	s.Require().NoError(err)
	s.True(changed)

	changed, err = p.ConfirmPayment()
	s.Require().NoError(err)
	s.False(changed, "setting an already-true flag is a no-op")
	s.True(p.PaymentConfirmed)
}

func (s *PolicySuite) TestRejectIsInvalidFromReceived() {
	p := s.newPolicy(models.CategoryLife, 9_999)
	s.Error(p.Reject(s.now))
	s.Equal(models.StatusReceived, p.Status)
	s.Len(p.History, 1)
}

func TestPolicyHappyPath(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p, err := models.NewPolicy(models.NewPolicyInput{
		CustomerID:    uuid.New(),
		ProductID:     uuid.New(),
		Category:      models.CategoryAuto,
		InsuredAmount: decimal.NewFromInt(300_000),
	}, now)
	if err != nil {
		t.Fatal(err)
	}

	testutil.Given(t, "a received auto policy within the regular limit", func(t *testing.T) {
		if p.Status != models.StatusReceived {
			t.Fatalf("expected RECEIVED, got %s", p.Status)
		}
	})

	testutil.When(t, "it is validated and both confirmations arrive", func(t *testing.T) {
		if err := p.Validate(models.RiskRegular, risk.IsApproved, now); err != nil {
			t.Fatal(err)
		}
		if err := p.MarkAsPending(now); err != nil {
			t.Fatal(err)
		}
		if _, err := p.ConfirmPayment(); err != nil {
			t.Fatal(err)
		}
		if _, err := p.AuthorizeSubscription(); err != nil {
			t.Fatal(err)
		}
	})

	testutil.Then(t, "it can be approved with a full history and a finish time", func(t *testing.T) {
		if !p.BothConfirmed() {
			t.Fatal("expected both confirmations to be recorded")
		}
		if err := p.Approve(now); err != nil {
			t.Fatal(err)
		}
		if p.Status != models.StatusApproved {
			t.Fatalf("expected APPROVED, got %s", p.Status)
		}
		if len(p.History) != 4 {
			t.Fatalf("expected 4 history entries, got %d", len(p.History))
		}
		if p.FinishedAt == nil {
			t.Fatal("expected FinishedAt to be set on a terminal status")
		}
	})
}
