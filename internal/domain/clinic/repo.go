package clinic

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("clinic not found")

type Repository interface {
	GetByID(ctx context.Context, id string) (*Clinic, error)
}
