package clinic

import (
	"context"
	"fmt"
)

// Service answers the calendar connection questions the providers ask.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CalendarProvider returns the provider name configured for the clinic.
func (s *Service) CalendarProvider(ctx context.Context, clinicID string) (string, error) {
	c, err := s.repo.GetByID(ctx, clinicID)
	if err != nil {
		return "", fmt.Errorf("load clinic %s: %w", clinicID, err)
	}
	if c.CalendarProvider == "" {
		return ProviderBridge, nil
	}
	return c.CalendarProvider, nil
}

// FeedURL returns the clinic's published iCalendar URL, or "" when none is set.
func (s *Service) FeedURL(ctx context.Context, clinicID string) (string, error) {
	c, err := s.repo.GetByID(ctx, clinicID)
	if err != nil {
		return "", fmt.Errorf("load clinic %s: %w", clinicID, err)
	}
	if c.ICSURL == nil {
		return "", nil
	}
	return *c.ICSURL, nil
}
