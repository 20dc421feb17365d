package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"policyd/internal/policy/models"
	"policyd/pkg/platform/sentinel"
	"policyd/pkg/platform/tx"
)

// Schema creates the policies table. The aggregate is stored document-style:
// scalar columns for the fields queries filter on, jsonb for the nested
// collections that are only ever read back whole.
const Schema = `
CREATE TABLE IF NOT EXISTS policies (
	id uuid PRIMARY KEY,
	customer_id uuid NOT NULL,
	product_id uuid NOT NULL,
	category text NOT NULL,
	sales_channel text NOT NULL DEFAULT '',
	payment_method text NOT NULL DEFAULT '',
	total_monthly_premium numeric NOT NULL,
	insured_amount numeric NOT NULL,
	coverages jsonb NOT NULL DEFAULT '{}',
	assistances jsonb NOT NULL DEFAULT '[]',
	payment_confirmed boolean NOT NULL DEFAULT false,
	subscription_authorized boolean NOT NULL DEFAULT false,
	status text NOT NULL,
	created_at timestamptz NOT NULL,
	finished_at timestamptz,
	history jsonb NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS policies_customer_id_idx ON policies (customer_id);
`

// Postgres persists policy snapshots in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed policy store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction from context when one is present, so callers can
// group a save with other writes, and the plain pool otherwise.
func (s *Postgres) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

// EnsureSchema creates the policies table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure policies schema: %w", err)
	}
	return nil
}

const upsertPolicy = `
INSERT INTO policies (
	id, customer_id, product_id, category, sales_channel, payment_method,
	total_monthly_premium, insured_amount, coverages, assistances,
	payment_confirmed, subscription_authorized, status, created_at, finished_at, history
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (id) DO UPDATE SET
	payment_confirmed = EXCLUDED.payment_confirmed,
	subscription_authorized = EXCLUDED.subscription_authorized,
	status = EXCLUDED.status,
	finished_at = EXCLUDED.finished_at,
	history = EXCLUDED.history
`

// Save inserts or replaces the full snapshot.
func (s *Postgres) Save(ctx context.Context, p *models.Policy) (*models.Policy, error) {
	coverages, err := json.Marshal(p.Coverages)
	if err != nil {
		return nil, fmt.Errorf("marshal coverages: %w", err)
	}
	assistances, err := json.Marshal(p.Assistances)
	if err != nil {
		return nil, fmt.Errorf("marshal assistances: %w", err)
	}
	history, err := json.Marshal(p.History)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}

	var finishedAt sql.NullTime
	if p.FinishedAt != nil {
		finishedAt = sql.NullTime{Time: *p.FinishedAt, Valid: true}
	}

	_, err = s.q(ctx).ExecContext(ctx, upsertPolicy,
		p.ID, p.CustomerID, p.ProductID, string(p.Category), p.SalesChannel, p.PaymentMethod,
		p.TotalMonthlyPremium, p.InsuredAmount, coverages, assistances,
		p.PaymentConfirmed, p.SubscriptionAuthorized, string(p.Status), p.CreatedAt, finishedAt, history,
	)
	if err != nil {
		return nil, fmt.Errorf("save policy: %w", err)
	}
	return clonePolicy(p), nil
}

const selectPolicy = `
SELECT id, customer_id, product_id, category, sales_channel, payment_method,
	total_monthly_premium, insured_amount, coverages, assistances,
	payment_confirmed, subscription_authorized, status, created_at, finished_at, history
FROM policies
`

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	row := s.q(ctx).QueryRowContext(ctx, selectPolicy+"WHERE id = $1", id)
	p, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find policy: %w", err)
	}
	return p, nil
}

func (s *Postgres) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*models.Policy, error) {
	rows, err := s.q(ctx).QueryContext(ctx, selectPolicy+"WHERE customer_id = $1 ORDER BY created_at", customerID)
	if err != nil {
		return nil, fmt.Errorf("find policies by customer: %w", err)
	}
	defer rows.Close()

	var out []*models.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*models.Policy, error) {
	var (
		p           models.Policy
		category    string
		status      string
		premium     decimal.Decimal
		insured     decimal.Decimal
		coverages   []byte
		assistances []byte
		history     []byte
		finishedAt  sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.CustomerID, &p.ProductID, &category, &p.SalesChannel, &p.PaymentMethod,
		&premium, &insured, &coverages, &assistances,
		&p.PaymentConfirmed, &p.SubscriptionAuthorized, &status, &p.CreatedAt, &finishedAt, &history,
	)
	if err != nil {
		return nil, err
	}

	p.Category = models.Category(category)
	p.Status = models.Status(status)
	p.TotalMonthlyPremium = premium
	p.InsuredAmount = insured
	if finishedAt.Valid {
		t := finishedAt.Time
		p.FinishedAt = &t
	}
	if err := json.Unmarshal(coverages, &p.Coverages); err != nil {
		return nil, fmt.Errorf("unmarshal coverages: %w", err)
	}
	if err := json.Unmarshal(assistances, &p.Assistances); err != nil {
		return nil, fmt.Errorf("unmarshal assistances: %w", err)
	}
	if err := json.Unmarshal(history, &p.History); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	return &p, nil
}
