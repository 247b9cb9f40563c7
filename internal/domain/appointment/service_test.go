package appointment

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repository --

type mockRepo struct {
	items    map[uuid.UUID]*Record
	lastFrom *time.Time
	lastTo   *time.Time
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Record)}
}

func (m *mockRepo) Create(_ context.Context, a *Record) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.items[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, clinicID string, id uuid.UUID) (*Record, error) {
	a, ok := m.items[id]
	if !ok || a.ClinicID != clinicID {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, clinicID string, id uuid.UUID, status string) error {
	a, ok := m.items[id]
	if !ok || a.ClinicID != clinicID {
		return ErrNotFound
	}
	a.Status = status
	return nil
}

func (m *mockRepo) List(_ context.Context, clinicID string, from, to *time.Time, limit, offset int) ([]*Record, int, error) {
	m.lastFrom, m.lastTo = from, to
	var result []*Record
	for _, a := range m.items {
		if a.ClinicID != clinicID {
			continue
		}
		if from != nil && a.ScheduledAt.Before(*from) {
			continue
		}
		if to != nil && a.ScheduledAt.After(*to) {
			continue
		}
		result = append(result, a)
	}
	return result, len(result), nil
}

func (m *mockRepo) ListSince(_ context.Context, clinicID string, since time.Time) ([]*Record, error) {
	var result []*Record
	for _, a := range m.items {
		if a.ClinicID == clinicID && !a.ScheduledAt.Before(since) {
			result = append(result, a)
		}
	}
	return result, nil
}

var testNow = time.Date(2024, 4, 10, 15, 30, 0, 0, brt)

func newTestService() (*Service, *mockRepo, *bytes.Buffer) {
	repo := newMockRepo()
	var buf bytes.Buffer
	svc := NewService(repo, brt, zerolog.New(&buf))
	svc.now = func() time.Time { return testNow }
	return svc, repo, &buf
}

func TestService_Create_Defaults(t *testing.T) {
	svc, _, _ := newTestService()
	a := &Record{PatientID: "lead-1", ScheduledAt: testNow}
	if err := svc.Create(context.Background(), "clinic-1", a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("expected AGENDADA, got %s", a.Status)
	}
	if a.Origin != OriginManual {
		t.Errorf("expected MANUAL, got %s", a.Origin)
	}
	if a.ClinicID != "clinic-1" {
		t.Errorf("expected clinic-1, got %s", a.ClinicID)
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, repo, _ := newTestService()
	cases := []*Record{
		{ScheduledAt: testNow},
		{PatientID: "lead-1"},
		{PatientID: "lead-1", ScheduledAt: testNow, Status: "booked"},
		{PatientID: "lead-1", ScheduledAt: testNow, Origin: "PHONE"},
	}
	for i, a := range cases {
		if err := svc.Create(context.Background(), "clinic-1", a); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
	if len(repo.items) != 0 {
		t.Error("nothing should be stored on validation failure")
	}
}

func TestService_UpdateStatus(t *testing.T) {
	svc, repo, logs := newTestService()
	ctx := context.Background()
	a := &Record{PatientID: "lead-1", ScheduledAt: testNow}
	svc.Create(ctx, "clinic-1", a)

	got, err := svc.UpdateStatus(ctx, "clinic-1", a.ID, StatusAttended)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusAttended || repo.items[a.ID].Status != StatusAttended {
		t.Errorf("expected COMPARECEU, got %s", got.Status)
	}
	if logs.Len() != 0 {
		t.Errorf("expected no warning for a first outcome, got %s", logs.String())
	}
}

func TestService_UpdateStatus_OverwriteIsAcceptedAndLogged(t *testing.T) {
	svc, repo, logs := newTestService()
	ctx := context.Background()
	a := &Record{PatientID: "lead-1", ScheduledAt: testNow, Status: StatusNoShow}
	svc.Create(ctx, "clinic-1", a)

	if _, err := svc.UpdateStatus(ctx, "clinic-1", a.ID, StatusScheduled); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.items[a.ID].Status != StatusScheduled {
		t.Errorf("expected overwrite to AGENDADA, got %s", repo.items[a.ID].Status)
	}
	out := logs.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"from":"FALTOU"`) {
		t.Errorf("expected warn log naming the previous status, got %s", out)
	}
}

func TestService_UpdateStatus_Invalid(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.UpdateStatus(context.Background(), "clinic-1", uuid.New(), "DONE"); err == nil {
		t.Error("expected error for invalid status")
	}
	if _, err := svc.UpdateStatus(context.Background(), "clinic-1", uuid.New(), StatusCancelled); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_ListByPeriod(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	for _, at := range []time.Time{
		time.Date(2024, 4, 10, 9, 0, 0, 0, brt),
		time.Date(2024, 4, 12, 9, 0, 0, 0, brt),
		time.Date(2024, 5, 2, 9, 0, 0, 0, brt),
	} {
		svc.Create(ctx, "clinic-1", &Record{PatientID: "lead", ScheduledAt: at})
	}

	_, total, err := svc.List(ctx, "clinic-1", PeriodToday, 0, 50, 0)
	if err != nil || total != 1 {
		t.Errorf("today: expected 1, got %d (%v)", total, err)
	}
	_, total, _ = svc.List(ctx, "clinic-1", PeriodWeek, 0, 50, 0)
	if total != 2 {
		t.Errorf("week: expected 2, got %d", total)
	}
	_, total, _ = svc.List(ctx, "clinic-1", PeriodAll, 0, 50, 0)
	if total != 3 || repo.lastFrom != nil {
		t.Errorf("all: expected 3 with open bounds, got %d", total)
	}
	if _, _, err := svc.List(ctx, "clinic-1", "decade", 0, 50, 0); err == nil {
		t.Error("expected error for unknown period")
	}
}
