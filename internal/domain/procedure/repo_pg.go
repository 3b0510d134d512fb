package procedure

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliniops/cliniops/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const procedureCols = `id, treatment_id, practitioner_id, kind, code, name, area, status,
	scheduled_at, executed_at, recommendations, result, before_image, after_image, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Procedure, error) {
	var p Procedure
	err := row.Scan(&p.ID, &p.TreatmentID, &p.PractitionerID, &p.Kind, &p.Code, &p.Name, &p.Area,
		&p.Status, &p.ScheduledAt, &p.ExecutedAt, &p.Recommendations, &p.Result,
		&p.BeforeImage, &p.AfterImage, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Procedure) error {
	q := r.conn(ctx)

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM treatment WHERE id = $1)`, p.TreatmentID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrTreatmentNotFound
	}

	p.ID = uuid.New()
	p.Status = StatusScheduled
	_, err := q.Exec(ctx, `
		INSERT INTO clinical_procedure
			(id, treatment_id, practitioner_id, kind, code, name, area, status, scheduled_at, recommendations)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.TreatmentID, p.PractitionerID, p.Kind, p.Code, p.Name, p.Area, p.Status,
		p.ScheduledAt, p.Recommendations)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, treatmentID, id uuid.UUID) (*Procedure, error) {
	p, err := r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+procedureCols+` FROM clinical_procedure WHERE id = $1 AND treatment_id = $2`, id, treatmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProcedureNotFound
	}
	return p, err
}

func (r *repoPG) GetDetail(ctx context.Context, treatmentID, id uuid.UUID) (*Detail, error) {
	p, err := r.GetByID(ctx, treatmentID, id)
	if err != nil {
		return nil, err
	}
	d := &Detail{Procedure: *p, ConsumedProducts: []*ConsumedProduct{}}

	q := r.conn(ctx)

	if p.PractitionerID != nil {
		err := q.QueryRow(ctx, `SELECT first_name || ' ' || last_name FROM practitioner WHERE id = $1`,
			*p.PractitionerID).Scan(&d.PractitionerName)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	rows, err := q.Query(ctx, `
		SELECT cp.id, cp.procedure_id, cp.product_id, cp.quantity, cp.unit, cp.created_at,
		       pr.name, pr.code
		FROM consumed_product cp
		LEFT JOIN product pr ON pr.id = cp.product_id
		WHERE cp.procedure_id = $1
		ORDER BY cp.created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item ConsumedProduct
		if err := rows.Scan(&item.ID, &item.ProcedureID, &item.ProductID, &item.Quantity, &item.Unit,
			&item.CreatedAt, &item.ProductName, &item.ProductCode); err != nil {
			return nil, err
		}
		d.ConsumedProducts = append(d.ConsumedProducts, &item)
	}
	return d, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, treatmentID, id uuid.UUID, upd UpdateRequest) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_procedure SET
			kind            = COALESCE($3, kind),
			code            = COALESCE($4, code),
			name            = COALESCE($5, name),
			area            = COALESCE($6, area),
			scheduled_at    = COALESCE($7, scheduled_at),
			practitioner_id = COALESCE($8, practitioner_id),
			recommendations = COALESCE($9, recommendations),
			result          = COALESCE($10, result),
			before_image    = COALESCE($11, before_image),
			after_image     = COALESCE($12, after_image),
			updated_at      = NOW()
		WHERE id = $1 AND treatment_id = $2`,
		id, treatmentID, upd.Kind, upd.Code, upd.Name, upd.Area, upd.ScheduledAt,
		upd.PractitionerID, upd.Recommendations, upd.Result, upd.BeforeImage, upd.AfterImage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProcedureNotFound
	}
	return nil
}

func (r *repoPG) ApplyExecution(ctx context.Context, treatmentID, id uuid.UUID, exec Execution) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_procedure SET
			status          = 'executed',
			executed_at     = $3,
			practitioner_id = COALESCE($4, practitioner_id),
			result          = COALESCE($5, result),
			before_image    = COALESCE($6, before_image),
			after_image     = COALESCE($7, after_image),
			updated_at      = NOW()
		WHERE id = $1 AND treatment_id = $2`,
		id, treatmentID, exec.ExecutedAt, exec.PractitionerID, exec.Result, exec.BeforeImage, exec.AfterImage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProcedureNotFound
	}
	return nil
}

func (r *repoPG) ReplaceConsumedProducts(ctx context.Context, procedureID uuid.UUID, items []ConsumedProductInput) error {
	q := r.conn(ctx)

	if _, err := q.Exec(ctx, `DELETE FROM consumed_product WHERE procedure_id = $1`, procedureID); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := q.Exec(ctx, `
			INSERT INTO consumed_product (id, procedure_id, product_id, quantity, unit)
			VALUES ($1,$2,$3,$4,$5)`,
			uuid.New(), procedureID, item.ProductID, item.Quantity, item.Unit); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) ListByTreatment(ctx context.Context, treatmentID uuid.UUID, limit, offset int) ([]*Procedure, int, error) {
	q := r.conn(ctx)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM clinical_procedure WHERE treatment_id = $1`, treatmentID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `
		SELECT `+procedureCols+` FROM clinical_procedure
		WHERE treatment_id = $1
		ORDER BY scheduled_at DESC NULLS LAST, created_at DESC
		LIMIT $2 OFFSET $3`, treatmentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Procedure
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}
