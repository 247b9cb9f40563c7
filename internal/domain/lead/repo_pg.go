package lead

import (
	"context"
	"errors"

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

func (r *repoPG) ListTagAssociations(ctx context.Context, clinicID string) ([]*TagAssociation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT lt.lead_id, lt.tag_id, t.name
		FROM lead_tags lt
		JOIN leads l ON l.id = lt.lead_id
		LEFT JOIN tags t ON t.id = lt.tag_id
		WHERE l.clinic_id = $1`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TagAssociation
	for rows.Next() {
		var a TagAssociation
		if err := rows.Scan(&a.LeadID, &a.TagID, &a.TagName); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *repoPG) ensureLead(ctx context.Context, clinicID string, leadID uuid.UUID) error {
	var one int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT 1 FROM leads WHERE clinic_id = $1 AND id = $2`, clinicID, leadID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrLeadNotFound
	}
	return err
}

func (r *repoPG) Attach(ctx context.Context, clinicID string, leadID uuid.UUID, tagName string) (*TagAssociation, error) {
	out := &TagAssociation{LeadID: leadID, TagName: &tagName}
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if err := r.ensureLead(ctx, clinicID, leadID); err != nil {
			return err
		}
		if err := r.conn(ctx).QueryRow(ctx, `
			INSERT INTO tags (id, clinic_id, name) VALUES ($1, $2, $3)
			ON CONFLICT (clinic_id, name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, uuid.New(), clinicID, tagName).Scan(&out.TagID); err != nil {
			return err
		}
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO lead_tags (lead_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, leadID, out.TagID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repoPG) Detach(ctx context.Context, clinicID string, leadID, tagID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if err := r.ensureLead(ctx, clinicID, leadID); err != nil {
			return err
		}
		_, err := r.conn(ctx).Exec(ctx, `DELETE FROM lead_tags WHERE lead_id = $1 AND tag_id = $2`, leadID, tagID)
		return err
	})
}
