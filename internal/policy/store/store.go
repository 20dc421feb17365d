// Package store persists policy aggregate snapshots.
//
// Stores work at the infrastructure-fact level: they return sentinel errors
// and leave domain error translation to the service layer.
package store

import (
	"context"

	"github.com/google/uuid"

	"policyd/internal/policy/models"
)

// Store is the snapshot repository for policy aggregates. Save writes the
// full current snapshot (insert or replace); reads return sentinel.ErrNotFound
// for unknown ids.
type Store interface {
	Save(ctx context.Context, p *models.Policy) (*models.Policy, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Policy, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*models.Policy, error)
}
