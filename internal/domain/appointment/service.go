package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	loc    *time.Location
	now    func() time.Time
	logger zerolog.Logger
}

func NewService(repo Repository, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:   repo,
		loc:    loc,
		now:    time.Now,
		logger: logger.With().Str("component", "appointments").Logger(),
	}
}

func (s *Service) Create(ctx context.Context, clinicID string, a *Record) error {
	a.PatientID = strings.TrimSpace(a.PatientID)
	if a.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if a.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled_at is required")
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if !validStatuses[a.Status] {
		return fmt.Errorf("invalid status: %s", a.Status)
	}
	if a.Origin == "" {
		a.Origin = OriginManual
	}
	if !validOrigins[a.Origin] {
		return fmt.Errorf("invalid origin: %s", a.Origin)
	}
	a.ClinicID = clinicID
	return s.repo.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, clinicID string, id uuid.UUID) (*Record, error) {
	return s.repo.GetByID(ctx, clinicID, id)
}

// UpdateStatus sets any valid status. Overwriting a settled outcome is
// allowed but logged.
func (s *Service) UpdateStatus(ctx context.Context, clinicID string, id uuid.UUID, status string) (*Record, error) {
	if !validStatuses[status] {
		return nil, fmt.Errorf("invalid status: %s", status)
	}
	cur, err := s.repo.GetByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if cur.Settled() && cur.Status != status {
		s.logger.Warn().
			Str("clinic_id", clinicID).
			Str("appointment_id", id.String()).
			Str("from", cur.Status).
			Str("to", status).
			Msg("overwriting settled appointment status")
	}
	if err := s.repo.UpdateStatus(ctx, clinicID, id, status); err != nil {
		return nil, err
	}
	cur.Status = status
	return cur, nil
}

// List returns the clinic's appointments for a period, ascending.
func (s *Service) List(ctx context.Context, clinicID string, period Period, year, limit, offset int) ([]*Record, int, error) {
	from, to, err := period.Bounds(s.now(), year, s.loc)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, clinicID, from, to, limit, offset)
}

// ListSince returns every appointment scheduled at or after since.
func (s *Service) ListSince(ctx context.Context, clinicID string, since time.Time) ([]*Record, error) {
	return s.repo.ListSince(ctx, clinicID, since)
}
