package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/internal/platform/db"
	"github.com/odonto/odonto/pkg/civil"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const apptCols = `id, patient_id, practitioner_id, to_char(appt_date, 'YYYY-MM-DD'),
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), duration_minutes,
	consult_type, status, reason, notes, cancellation_reason, active,
	rescheduled_from, superseded_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date, start, end string
	if err := row.Scan(&a.ID, &a.PatientID, &a.PractitionerID, &date, &start, &end, &a.DurationMinutes,
		&a.ConsultType, &a.Status, &a.Reason, &a.Notes, &a.CancellationReason, &a.Active,
		&a.RescheduledFrom, &a.SupersededBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.Date, err = civil.ParseDate(date); err != nil {
		return nil, err
	}
	if a.StartTime, err = civil.ParseTimeOfDay(start); err != nil {
		return nil, err
	}
	if a.EndTime, err = civil.ParseTimeOfDay(end); err != nil {
		return nil, err
	}
	return &a, nil
}

// WithPractitionerLock serializes writes with a transaction-scoped advisory
// lock keyed by practitioner.
func (r *repoPG) WithPractitionerLock(ctx context.Context, practitionerID uuid.UUID, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		if err := db.AdvisoryLock(ctx, "appointment:"+practitionerID.String()); err != nil {
			return err
		}
		return fn(ctx)
	})
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, patient_id, practitioner_id, appt_date, start_time, end_time,
			duration_minutes, consult_type, status, reason, notes, cancellation_reason, active,
			rescheduled_from, superseded_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4::date,$5::time,$6::time,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		a.ID, a.PatientID, a.PractitionerID, a.Date.String(), a.StartTime.String(), a.EndTime.String(),
		a.DurationMinutes, a.ConsultType, a.Status, a.Reason, a.Notes, a.CancellationReason, a.Active,
		a.RescheduledFrom, a.SupersededBy, a.CreatedAt, a.UpdatedAt)
	if db.IsExclusionViolation(err) {
		return &apperr.ConflictError{}
	}
	return err
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET appt_date=$2::date, start_time=$3::time, end_time=$4::time,
			duration_minutes=$5, consult_type=$6, status=$7, reason=$8, notes=$9,
			cancellation_reason=$10, active=$11, rescheduled_from=$12, superseded_by=$13, updated_at=$14
		WHERE id = $1`,
		a.ID, a.Date.String(), a.StartTime.String(), a.EndTime.String(), a.DurationMinutes,
		a.ConsultType, a.Status, a.Reason, a.Notes, a.CancellationReason, a.Active,
		a.RescheduledFrom, a.SupersededBy, a.UpdatedAt)
	if db.IsExclusionViolation(err) {
		return &apperr.ConflictError{}
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &apperr.NotFoundError{Resource: "appointment", ID: a.ID.String()}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
	if db.IsNotFound(err) {
		return nil, &apperr.NotFoundError{Resource: "appointment", ID: id.String()}
	}
	return a, err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &apperr.NotFoundError{Resource: "appointment", ID: id.String()}
	}
	return nil
}

func (r *repoPG) ListOccupying(ctx context.Context, practitionerID uuid.UUID, d civil.Date) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE practitioner_id = $1 AND appt_date = $2::date AND active AND status <> 'CANCELLED'
		ORDER BY start_time`, practitionerID, d.String())
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	add := func(clause string, v interface{}) {
		where += fmt.Sprintf(clause, idx)
		args = append(args, v)
		idx++
	}

	if !f.IncludeInactive {
		where += ` AND active`
	}
	if f.PractitionerID != nil {
		add(` AND practitioner_id = $%d`, *f.PractitionerID)
	}
	if f.PatientID != nil {
		add(` AND patient_id = $%d`, *f.PatientID)
	}
	if f.Status != nil {
		add(` AND status = $%d`, string(*f.Status))
	}
	if f.From != nil {
		add(` AND appt_date >= $%d::date`, f.From.String())
	}
	if f.To != nil {
		add(` AND appt_date <= $%d::date`, f.To.String())
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + ` FROM appointment` + where + ` ORDER BY appt_date, start_time, created_at`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows)
	return items, total, err
}

func collect(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
