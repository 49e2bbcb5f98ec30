package reminder

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odonto/odonto/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) Append(ctx context.Context, rec *Record) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO reminder_record (id, appointment_id, practitioner_id, recipient, channel,
			dispatched_at, success, error_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.AppointmentID, rec.PractitionerID, rec.Recipient, rec.Channel,
		rec.DispatchedAt, rec.Success, rec.Error)
	return err
}

func (r *repoPG) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, appointment_id, practitioner_id, recipient, channel, dispatched_at, success, error_text
		FROM reminder_record WHERE appointment_id = $1 ORDER BY dispatched_at`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.AppointmentID, &rec.PractitionerID, &rec.Recipient, &rec.Channel,
			&rec.DispatchedAt, &rec.Success, &rec.Error); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *repoPG) Stats(ctx context.Context, practitionerID *uuid.UUID) (*Stats, error) {
	query := `SELECT recipient, success, COUNT(*) FROM reminder_record`
	var args []interface{}
	if practitionerID != nil {
		query += ` WHERE practitioner_id = $1`
		args = append(args, *practitionerID)
	}
	query += ` GROUP BY recipient, success`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := emptyStats()
	for rows.Next() {
		var recipient Recipient
		var success bool
		var n int
		if err := rows.Scan(&recipient, &success, &n); err != nil {
			return nil, err
		}
		stats.add(recipient, success, n)
	}
	return stats, rows.Err()
}
