// Package fraud calls the external fraud analysis API to classify the risk
// profile of a policy request.
package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"policyd/internal/platform/metrics"
	"policyd/internal/policy/models"
	dErrors "policyd/pkg/domain-errors"
	"policyd/pkg/platform/circuit"
	"policyd/pkg/platform/sentinel"
)

// Occurrence is one prior fraud record reported for the customer. It informs
// operators via logs; the decision table only consumes the classification.
type Occurrence struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AnalysisResponse is the fraud API response body.
type AnalysisResponse struct {
	PolicyID       uuid.UUID    `json:"order_id"`
	CustomerID     uuid.UUID    `json:"customer_id"`
	AnalyzedAt     time.Time    `json:"analyzed_at"`
	Classification string       `json:"classification"`
	Occurrences    []Occurrence `json:"occurrences"`
}

// ClassificationCache stores resolved classifications keyed by policy id.
type ClassificationCache interface {
	Get(ctx context.Context, policyID uuid.UUID) (models.RiskClassification, bool, error)
	Set(ctx context.Context, policyID uuid.UUID, classification models.RiskClassification) error
}

// Client resolves risk classifications over HTTP. Concurrent lookups for the
// same policy collapse into one in-flight request, and a circuit breaker
// sheds load from an unresponsive upstream.
type Client struct {
	http    *http.Client
	baseURL string
	cache   ClassificationCache
	breaker *circuit.Breaker
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics

	// The breaker has no timer; while open, one probe request per
	// probeInterval is let through to discover recovery.
	probeInterval time.Duration
	probeMu       sync.Mutex
	lastProbe     time.Time
}

type Option func(c *Client)

func WithCache(cache ClassificationCache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient constructs a fraud API client. The timeout applies per request;
// the upstream specifies none of its own.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http:          &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		breaker:       circuit.New("fraud-api", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		logger:        slog.Default(),
		probeInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the risk classification for a policy request.
func (c *Client) Classify(ctx context.Context, policyID, customerID uuid.UUID) (models.RiskClassification, error) {
	if c.cache != nil {
		if classification, ok, err := c.cache.Get(ctx, policyID); err == nil && ok {
			c.countLookup("cache_hit")
			return classification, nil
		}
	}

	v, err, _ := c.group.Do(policyID.String(), func() (any, error) {
		return c.fetch(ctx, policyID, customerID)
	})
	if err != nil {
		return "", err
	}
	return v.(models.RiskClassification), nil
}

func (c *Client) fetch(ctx context.Context, policyID, customerID uuid.UUID) (models.RiskClassification, error) {
	if c.breaker.IsOpen() && !c.allowProbe() {
		c.countLookup("circuit_open")
		return "", dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeInvalidData, "fraud api circuit open")
	}

	start := time.Now()
	resp, err := c.doRequest(ctx, policyID, customerID)
	c.observeLatency(time.Since(start))
	if err != nil {
		c.recordFailure(ctx)
		c.countLookup("error")
		return "", err
	}

	classification, ok := models.ParseRiskClassification(resp.Classification)
	if !ok {
		// A well-formed transport answer with a garbage body still counts
		// against the upstream.
		c.recordFailure(ctx)
		c.countLookup("invalid")
		return "", dErrors.New(dErrors.CodeInvalidData, "fraud api returned unknown classification "+resp.Classification)
	}
	c.recordSuccess(ctx)
	c.countLookup("ok")

	if len(resp.Occurrences) > 0 {
		c.logger.InfoContext(ctx, "fraud occurrences reported",
			slog.String("policy_id", policyID.String()),
			slog.String("customer_id", customerID.String()),
			slog.Int("occurrences", len(resp.Occurrences)))
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, policyID, classification); err != nil {
			c.logger.WarnContext(ctx, "fraud classification cache write failed",
				slog.String("policy_id", policyID.String()),
				slog.String("error", err.Error()))
		}
	}
	return classification, nil
}

func (c *Client) doRequest(ctx context.Context, policyID, customerID uuid.UUID) (*AnalysisResponse, error) {
	url := fmt.Sprintf("%s/frauds/%s/customers/%s", c.baseURL, policyID, customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fraud request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call fraud api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fraud api returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var analysis AnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("decode fraud response: %w", err)
	}
	return &analysis, nil
}

func (c *Client) allowProbe() bool {
	c.probeMu.Lock()
	defer c.probeMu.Unlock()
	if time.Since(c.lastProbe) < c.probeInterval {
		return false
	}
	c.lastProbe = time.Now()
	return true
}

func (c *Client) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "fraud api circuit opened",
			slog.String("breaker", c.breaker.Name()))
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "fraud api circuit closed",
			slog.String("breaker", c.breaker.Name()))
	}
}

func (c *Client) countLookup(outcome string) {
	if c.metrics != nil {
		c.metrics.FraudLookups.WithLabelValues(outcome).Inc()
	}
}

func (c *Client) observeLatency(d time.Duration) {
	if c.metrics != nil {
		c.metrics.FraudLatency.Observe(d.Seconds())
	}
}
