package lead

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrLeadNotFound = errors.New("lead not found")

type Repository interface {
	ListTagAssociations(ctx context.Context, clinicID string) ([]*TagAssociation, error)
	// Attach tags the lead with tagName, creating the tag when the clinic
	// does not have it yet. Attaching twice is a no-op.
	Attach(ctx context.Context, clinicID string, leadID uuid.UUID, tagName string) (*TagAssociation, error)
	Detach(ctx context.Context, clinicID string, leadID, tagID uuid.UUID) error
}
