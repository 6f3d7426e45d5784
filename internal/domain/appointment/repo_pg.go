package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opdflow/opdflow/internal/platform/apperr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const apptCols = `id, appointment_number, patient_id, doctor_id, type, consultation_type,
	date, start_time, end_time, status, priority, reason, notes, diagnosis, prescription,
	cancelled_by, cancelled_at, cancel_reason, rescheduled_from, reschedule_count,
	created_at, updated_at`

func (r *repoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.AppointmentNumber, &a.PatientID, &a.DoctorID, &a.Type, &a.ConsultationType,
		&a.Date, &a.StartTime, &a.EndTime, &a.Status, &a.Priority, &a.Reason, &a.Notes, &a.Diagnosis, &a.Prescription,
		&a.CancelledBy, &a.CancelledAt, &a.CancelReason, &a.RescheduledFrom, &a.RescheduleCount,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("appointment", a.ID.String())
	}
	return &a, err
}

const apptInsert = `
	INSERT INTO appointments (id, appointment_number, patient_id, doctor_id, type, consultation_type,
		date, start_time, end_time, status, priority, reason, rescheduled_from, reschedule_count)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	RETURNING created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, apptInsert,
		a.ID, a.AppointmentNumber, a.PatientID, a.DoctorID, a.Type, a.ConsultationType,
		a.Date, a.StartTime, a.EndTime, a.Status, a.Priority, a.Reason, a.RescheduledFrom, a.RescheduleCount).
		Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppt(r.pool.QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

const apptUpdate = `
	UPDATE appointments SET doctor_id=$2, date=$3, start_time=$4, end_time=$5, status=$6,
		priority=$7, reason=$8, notes=$9, diagnosis=$10, prescription=$11,
		cancelled_by=$12, cancelled_at=$13, cancel_reason=$14, reschedule_count=$15, updated_at=NOW()
	WHERE id = $1`

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.pool.Exec(ctx, apptUpdate,
		a.ID, a.DoctorID, a.Date, a.StartTime, a.EndTime, a.Status,
		a.Priority, a.Reason, a.Notes, a.Diagnosis, a.Prescription,
		a.CancelledBy, a.CancelledAt, a.CancelReason, a.RescheduleCount)
	return err
}

func (r *repoPG) Reschedule(ctx context.Context, original, successor *Appointment, log *StatusLog) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if successor.ID == uuid.Nil {
		successor.ID = uuid.New()
	}
	if err := tx.QueryRow(ctx, apptInsert,
		successor.ID, successor.AppointmentNumber, successor.PatientID, successor.DoctorID,
		successor.Type, successor.ConsultationType, successor.Date, successor.StartTime,
		successor.EndTime, successor.Status, successor.Priority, successor.Reason,
		successor.RescheduledFrom, successor.RescheduleCount).
		Scan(&successor.CreatedAt, &successor.UpdatedAt); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, apptUpdate,
		original.ID, original.DoctorID, original.Date, original.StartTime, original.EndTime,
		original.Status, original.Priority, original.Reason, original.Notes, original.Diagnosis,
		original.Prescription, original.CancelledBy, original.CancelledAt, original.CancelReason,
		original.RescheduleCount); err != nil {
		return err
	}
	log.ID = uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO appointment_status_log (id, appointment_id, from_status, to_status, changed_by, reason)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		log.ID, log.AppointmentID, log.FromStatus, log.ToStatus, log.ChangedBy, log.Reason); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+apptCols+` FROM appointments WHERE patient_id = $1 ORDER BY date DESC, start_time DESC NULLS LAST LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+apptCols+` FROM appointments WHERE doctor_id = $1 ORDER BY date DESC, start_time DESC NULLS LAST LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + ` FROM appointments WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointments WHERE 1=1`
	var args []interface{}
	idx := 1

	for _, f := range []struct{ param, column string }{
		{"patient_id", "patient_id"},
		{"doctor_id", "doctor_id"},
		{"status", "status"},
		{"type", "type"},
		{"date", "date"},
		{"priority", "priority"},
	} {
		if p, ok := params[f.param]; ok {
			query += fmt.Sprintf(` AND %s = $%d`, f.column, idx)
			countQuery += fmt.Sprintf(` AND %s = $%d`, f.column, idx)
			args = append(args, p)
			idx++
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY date DESC, start_time DESC NULLS LAST LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *repoPG) collect(rows pgx.Rows, total int) ([]*Appointment, int, error) {
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CountActive(ctx context.Context, doctorID uuid.UUID, date, startTime string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND start_time = $3 AND type = $4
		  AND status NOT IN ($5, $6, $7)`,
		doctorID, date, startTime, TypeScheduled,
		StatusCancelled, StatusRescheduled, StatusNoShow).Scan(&count)
	return count, err
}

func (r *repoPG) CountByNumberPrefix(ctx context.Context, prefix string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE appointment_number LIKE $1 || '%'`, prefix).Scan(&count)
	return count, err
}

func (r *repoPG) AddStatusLog(ctx context.Context, log *StatusLog) error {
	log.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_status_log (id, appointment_id, from_status, to_status, changed_by, reason)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		log.ID, log.AppointmentID, log.FromStatus, log.ToStatus, log.ChangedBy, log.Reason)
	return err
}

func (r *repoPG) GetStatusLog(ctx context.Context, appointmentID uuid.UUID) ([]*StatusLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, from_status, to_status, changed_by, reason, created_at
		FROM appointment_status_log WHERE appointment_id = $1 ORDER BY created_at ASC`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*StatusLog
	for rows.Next() {
		var l StatusLog
		if err := rows.Scan(&l.ID, &l.AppointmentID, &l.FromStatus, &l.ToStatus, &l.ChangedBy, &l.Reason, &l.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &l)
	}
	return items, rows.Err()
}

func (r *repoPG) Stats(ctx context.Context, doctorID *uuid.UUID, from, to string) (*Stats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4),
			COUNT(*) FILTER (WHERE status = $5)
		FROM appointments WHERE 1=1`
	args := []interface{}{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}
	idx := 6

	if doctorID != nil {
		query += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, *doctorID)
		idx++
	}
	if from != "" {
		query += fmt.Sprintf(` AND date >= $%d`, idx)
		args = append(args, from)
		idx++
	}
	if to != "" {
		query += fmt.Sprintf(` AND date <= $%d`, idx)
		args = append(args, to)
	}

	var st Stats
	err := r.pool.QueryRow(ctx, query, args...).Scan(&st.Total, &st.Pending, &st.Confirmed, &st.Completed, &st.Cancelled, &st.NoShow)
	return &st, err
}
