package professional

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("professional not found")

type Repository interface {
	Create(ctx context.Context, p *Professional) error
	GetByID(ctx context.Context, clinicID string, id uuid.UUID) (*Professional, error)
	Update(ctx context.Context, p *Professional) error
	Delete(ctx context.Context, clinicID string, id uuid.UUID) error
	ListByClinic(ctx context.Context, clinicID string, activeOnly bool, limit, offset int) ([]*Professional, int, error)
}
