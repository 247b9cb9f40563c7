package insights

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/clinicops/agenda/internal/domain/appointment"
	"github.com/clinicops/agenda/internal/domain/lead"
)

type AppointmentSource interface {
	ListSince(ctx context.Context, clinicID string, since time.Time) ([]*appointment.Record, error)
}

type TagSource interface {
	ListTagAssociations(ctx context.Context, clinicID string) ([]*lead.TagAssociation, error)
}

// Metric names used as keys of Summary.Errors.
const (
	MetricAppointments = "appointments"
	MetricConversion   = "conversion"
)

// Summary is the dashboard's insight strip. A metric whose source failed
// keeps its zero value and gets an entry in Errors.
type Summary struct {
	ClinicID     string            `json:"clinic_id"`
	Appointments AppointmentStats  `json:"appointments"`
	Conversion   Conversion        `json:"conversion"`
	Errors       map[string]string `json:"errors,omitempty"`
	GeneratedAt  time.Time         `json:"generated_at"`
}

type Service struct {
	appointments AppointmentSource
	tags         TagSource
	now          func() time.Time
	logger       zerolog.Logger
}

func NewService(appts AppointmentSource, tags TagSource, logger zerolog.Logger) *Service {
	return &Service{
		appointments: appts,
		tags:         tags,
		now:          time.Now,
		logger:       logger.With().Str("component", "insights").Logger(),
	}
}

// Summary runs both analyzers concurrently. A failing source only blanks its
// own metric; the summary fails when no metric could be computed.
func (s *Service) Summary(ctx context.Context, clinicID string) (*Summary, error) {
	now := s.now()
	out := &Summary{ClinicID: clinicID, GeneratedAt: now}

	var (
		mu   sync.Mutex
		errs = map[string]error{}
	)
	fail := func(metric string, err error) {
		mu.Lock()
		errs[metric] = err
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		records, err := s.appointments.ListSince(ctx, clinicID, now.AddDate(0, 0, -StatsWindowDays))
		if err != nil {
			fail(MetricAppointments, fmt.Errorf("appointment stats: %w", err))
			return nil
		}
		out.Appointments = AnalyzeAppointments(untilNow(records, now))
		return nil
	})
	g.Go(func() error {
		rows, err := s.tags.ListTagAssociations(ctx, clinicID)
		if err != nil {
			fail(MetricConversion, fmt.Errorf("booking conversion: %w", err))
			return nil
		}
		out.Conversion = AnalyzeConversion(rows)
		return nil
	})
	_ = g.Wait()

	if len(errs) == 0 {
		return out, nil
	}
	out.Errors = make(map[string]string, len(errs))
	for metric, err := range errs {
		s.logger.Error().Err(err).Str("clinic_id", clinicID).Str("metric", metric).Msg("insight unavailable")
		out.Errors[metric] = err.Error()
	}
	if len(errs) == 2 {
		return nil, errors.Join(errs[MetricAppointments], errs[MetricConversion])
	}
	return out, nil
}

// untilNow drops appointments booked after now; the stats window ends at now.
func untilNow(records []*appointment.Record, now time.Time) []*appointment.Record {
	out := records[:0:0]
	for _, r := range records {
		if !r.ScheduledAt.After(now) {
			out = append(out, r)
		}
	}
	return out
}
