package professional

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicops/agenda/internal/domain/agenda"
)

// maxOwners bounds the directory read that labels calendar events.
const maxOwners = 500

// ErrNoCalendars is returned when no calendar provider is wired.
var ErrNoCalendars = errors.New("calendar listing is not available")

type Service struct {
	repo      Repository
	calendars agenda.CalendarLister
	logger    zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "professionals").Logger(),
	}
}

// WithCalendars lets the service list the clinic's external calendars.
func (s *Service) WithCalendars(l agenda.CalendarLister) *Service {
	s.calendars = l
	return s
}

func normalize(p *Professional) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.ExternalCalendarID != nil {
		id := strings.TrimSpace(*p.ExternalCalendarID)
		if id == "" {
			p.ExternalCalendarID = nil
		} else {
			p.ExternalCalendarID = &id
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, clinicID string, p *Professional) error {
	if err := normalize(p); err != nil {
		return err
	}
	p.ClinicID = clinicID
	p.Active = true
	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create professional: %w", err)
	}
	s.logger.Info().Str("clinic_id", clinicID).Str("professional_id", p.ID.String()).Msg("professional created")
	return nil
}

func (s *Service) Get(ctx context.Context, clinicID string, id uuid.UUID) (*Professional, error) {
	return s.repo.GetByID(ctx, clinicID, id)
}

func (s *Service) Update(ctx context.Context, clinicID string, p *Professional) error {
	if err := normalize(p); err != nil {
		return err
	}
	p.ClinicID = clinicID
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, clinicID string, id uuid.UUID) error {
	return s.repo.Delete(ctx, clinicID, id)
}

func (s *Service) List(ctx context.Context, clinicID string, activeOnly bool, limit, offset int) ([]*Professional, int, error) {
	return s.repo.ListByClinic(ctx, clinicID, activeOnly, limit, offset)
}

// CalendarOwners implements agenda.OwnerDirectory. Only active professionals
// with a linked calendar are returned; unlinked ones share the primary
// calendar and cannot label its events.
func (s *Service) CalendarOwners(ctx context.Context, clinicID string) ([]agenda.CalendarOwner, error) {
	items, _, err := s.repo.ListByClinic(ctx, clinicID, true, maxOwners, 0)
	if err != nil {
		return nil, fmt.Errorf("list professionals: %w", err)
	}
	owners := make([]agenda.CalendarOwner, 0, len(items))
	for _, p := range items {
		if p.ExternalCalendarID == nil {
			continue
		}
		owners = append(owners, agenda.CalendarOwner{
			ProfessionalID: p.ID.String(),
			Name:           p.Name,
			CalendarID:     p.CalendarID(),
		})
	}
	return owners, nil
}

// Calendars lists the calendars of the clinic's connected account, the
// choices for a professional's external calendar.
func (s *Service) Calendars(ctx context.Context, clinicID string) ([]agenda.CalendarInfo, error) {
	if s.calendars == nil {
		return nil, ErrNoCalendars
	}
	items, err := s.calendars.ListCalendars(ctx, clinicID)
	if err != nil {
		s.logger.Error().Err(err).Str("clinic_id", clinicID).Msg("list calendars failed")
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	return items, nil
}
