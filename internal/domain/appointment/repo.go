package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("appointment not found")

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, clinicID string, id uuid.UUID) (*Record, error)
	UpdateStatus(ctx context.Context, clinicID string, id uuid.UUID, status string) error
	// List returns records scheduled inside [from, to], ascending. Nil bounds
	// are open.
	List(ctx context.Context, clinicID string, from, to *time.Time, limit, offset int) ([]*Record, int, error)
	ListSince(ctx context.Context, clinicID string, since time.Time) ([]*Record, error)
}
