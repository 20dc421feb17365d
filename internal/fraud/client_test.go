package fraud

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"policyd/internal/policy/models"
	dErrors "policyd/pkg/domain-errors"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]models.RiskClassification
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[uuid.UUID]models.RiskClassification)}
}

func (m *memoryCache) Get(_ context.Context, policyID uuid.UUID) (models.RiskClassification, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.entries[policyID]
	return c, ok, nil
}

func (m *memoryCache) Set(_ context.Context, policyID uuid.UUID, c models.RiskClassification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[policyID] = c
	return nil
}

type FraudClientSuite struct {
	suite.Suite
}

func TestFraudClientSuite(t *testing.T) {
	suite.Run(t, new(FraudClientSuite))
}

func analysisBody(policyID, customerID uuid.UUID, classification string) string {
	return fmt.Sprintf(`{
		"order_id": %q,
		"customer_id": %q,
		"analyzed_at": "2025-06-15T12:00:00Z",
		"classification": %q,
		"occurrences": [
			{
				"id": %q,
				"product_id": %q,
				"type": "FRAUD",
				"description": "Attempted fraudulent transaction",
				"created_at": "2024-05-10T10:00:00Z",
				"updated_at": "2024-05-10T10:00:00Z"
			}
		]
	}`, policyID, customerID, classification, uuid.New(), uuid.New())
}

func (s *FraudClientSuite) TestClassifyParsesResponse() {
	policyID, customerID := uuid.New(), uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(fmt.Sprintf("/frauds/%s/customers/%s", policyID, customerID), r.URL.Path)
		fmt.Fprint(w, analysisBody(policyID, customerID, "HIGH_RISK"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	classification, err := c.Classify(context.Background(), policyID, customerID)
	s.Require().NoError(err)
	s.Equal(models.RiskHigh, classification)
}

func (s *FraudClientSuite) TestClassifyUnknownClassification() {
	policyID, customerID := uuid.New(), uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, analysisBody(policyID, customerID, "SOMETHING_ELSE"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Classify(context.Background(), policyID, customerID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidData))
}

func (s *FraudClientSuite) TestClassifyUpstreamError() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Classify(context.Background(), uuid.New(), uuid.New())
	s.Error(err)
}

func (s *FraudClientSuite) TestCacheHitSkipsHTTP() {
	var calls atomic.Int32
	policyID, customerID := uuid.New(), uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, analysisBody(policyID, customerID, "PREFERENTIAL"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, WithCache(newMemoryCache()))

	first, err := c.Classify(context.Background(), policyID, customerID)
	s.Require().NoError(err)
	second, err := c.Classify(context.Background(), policyID, customerID)
	s.Require().NoError(err)

	s.Equal(models.RiskPreferential, first)
	s.Equal(first, second)
	s.Equal(int32(1), calls.Load(), "second lookup must come from the cache")
}

func (s *FraudClientSuite) TestCircuitOpensAfterConsecutiveFailures() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	for i := 0; i < 5; i++ {
		_, err := c.Classify(context.Background(), uuid.New(), uuid.New())
		s.Error(err)
	}
	s.True(c.breaker.IsOpen())

	// Fast-fail while open; the probe window was consumed by the opening calls.
	c.lastProbe = time.Now()
	_, err := c.Classify(context.Background(), uuid.New(), uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidData))
}

func (s *FraudClientSuite) TestConcurrentLookupsCollapse() {
	var calls atomic.Int32
	policyID, customerID := uuid.New(), uuid.New()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release
		fmt.Fprint(w, analysisBody(policyID, customerID, "REGULAR"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)

	var wg sync.WaitGroup
	results := make([]models.RiskClassification, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			classification, err := c.Classify(context.Background(), policyID, customerID)
			s.NoError(err)
			results[idx] = classification
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	s.Equal(int32(1), calls.Load(), "concurrent lookups for one policy share a request")
	for _, r := range results {
		s.Equal(models.RiskRegular, r)
	}
}
