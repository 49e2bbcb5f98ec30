package officehours

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odonto/odonto/internal/platform/db"
	"github.com/odonto/odonto/pkg/civil"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const cols = `id, practitioner_id, weekday, to_char(open_time, 'HH24:MI'), to_char(close_time, 'HH24:MI'),
	visit_minutes, active, created_at, updated_at`

func scanOfficeHours(row pgx.Row) (*OfficeHours, error) {
	var h OfficeHours
	var weekday int16
	var open, close string
	if err := row.Scan(&h.ID, &h.PractitionerID, &weekday, &open, &close,
		&h.VisitMinutes, &h.Active, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	h.Weekday = Weekday(weekday)
	var err error
	if h.OpenTime, err = civil.ParseTimeOfDay(open); err != nil {
		return nil, err
	}
	if h.CloseTime, err = civil.ParseTimeOfDay(close); err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *repoPG) Get(ctx context.Context, practitionerID uuid.UUID, weekday Weekday) (*OfficeHours, error) {
	h, err := scanOfficeHours(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM office_hours WHERE practitioner_id = $1 AND weekday = $2`,
		practitionerID, int16(weekday)))
	if db.IsNotFound(err) {
		return nil, nil
	}
	return h, err
}

func (r *repoPG) ListWeek(ctx context.Context, practitionerID uuid.UUID) ([]*OfficeHours, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM office_hours WHERE practitioner_id = $1 ORDER BY weekday`, practitionerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*OfficeHours
	for rows.Next() {
		h, err := scanOfficeHours(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

// ReplaceWeek keeps the id and created_at of days that already exist.
func (r *repoPG) ReplaceWeek(ctx context.Context, practitionerID uuid.UUID, week []*OfficeHours) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		if err := db.AdvisoryLock(ctx, "office_hours:"+practitionerID.String()); err != nil {
			return err
		}
		for _, h := range week {
			err := r.conn(ctx).QueryRow(ctx, `
				INSERT INTO office_hours (id, practitioner_id, weekday, open_time, close_time,
					visit_minutes, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4::time, $5::time, $6, $7, $8, $8)
				ON CONFLICT (practitioner_id, weekday) DO UPDATE SET
					open_time = EXCLUDED.open_time, close_time = EXCLUDED.close_time,
					visit_minutes = EXCLUDED.visit_minutes, active = EXCLUDED.active,
					updated_at = EXCLUDED.updated_at
				RETURNING id, created_at`,
				h.ID, practitionerID, int16(h.Weekday), h.OpenTime.String(), h.CloseTime.String(),
				h.VisitMinutes, h.Active, h.UpdatedAt,
			).Scan(&h.ID, &h.CreatedAt)
			if err != nil {
				return fmt.Errorf("upsert %s: %w", h.Weekday, err)
			}
		}
		return nil
	})
}
