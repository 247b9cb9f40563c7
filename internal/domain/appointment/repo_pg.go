package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/agenda/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const cols = `id, clinic_id, patient_id, professional_id, scheduled_at, status, origin, notes, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var a Record
	err := row.Scan(&a.ID, &a.ClinicID, &a.PatientID, &a.ProfessionalID, &a.ScheduledAt,
		&a.Status, &a.Origin, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Record) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, clinic_id, patient_id, professional_id, scheduled_at, status, origin, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		a.ID, a.ClinicID, a.PatientID, a.ProfessionalID, a.ScheduledAt, a.Status, a.Origin, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, clinicID string, id uuid.UUID) (*Record, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM appointments WHERE clinic_id = $1 AND id = $2`, clinicID, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, clinicID string, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET status = $3, updated_at = NOW() WHERE clinic_id = $1 AND id = $2`,
		clinicID, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, clinicID string, from, to *time.Time, limit, offset int) ([]*Record, int, error) {
	where := ` WHERE clinic_id = $1`
	args := []interface{}{clinicID}
	idx := 2
	if from != nil {
		where += fmt.Sprintf(` AND scheduled_at >= $%d`, idx)
		args = append(args, *from)
		idx++
	}
	if to != nil {
		where += fmt.Sprintf(` AND scheduled_at <= $%d`, idx)
		args = append(args, *to)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + cols + ` FROM appointments` + where +
		fmt.Sprintf(` ORDER BY scheduled_at ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collect(rows)
	return items, total, err
}

func (r *repoPG) ListSince(ctx context.Context, clinicID string, since time.Time) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM appointments WHERE clinic_id = $1 AND scheduled_at >= $2`, clinicID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]*Record, error) {
	var items []*Record
	for rows.Next() {
		a, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
