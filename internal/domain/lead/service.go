package lead

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxTagName = 100

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "leads").Logger()}
}

func (s *Service) ListTagAssociations(ctx context.Context, clinicID string) ([]*TagAssociation, error) {
	return s.repo.ListTagAssociations(ctx, clinicID)
}

func (s *Service) Attach(ctx context.Context, clinicID string, leadID uuid.UUID, tagName string) (*TagAssociation, error) {
	tagName = strings.TrimSpace(tagName)
	if tagName == "" {
		return nil, fmt.Errorf("tag is required")
	}
	if len(tagName) > maxTagName {
		return nil, fmt.Errorf("tag must be at most %d characters", maxTagName)
	}
	a, err := s.repo.Attach(ctx, clinicID, leadID, tagName)
	if err != nil {
		return nil, err
	}
	if tagName == TagBooked {
		s.logger.Info().Str("clinic_id", clinicID).Str("lead_id", leadID.String()).Msg("lead booked")
	}
	return a, nil
}

func (s *Service) Detach(ctx context.Context, clinicID string, leadID, tagID uuid.UUID) error {
	return s.repo.Detach(ctx, clinicID, leadID, tagID)
}
