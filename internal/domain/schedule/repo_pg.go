package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opdflow/opdflow/internal/platform/apperr"
)

type scheduleRepoPG struct{ pool *pgxpool.Pool }

func NewScheduleRepoPG(pool *pgxpool.Pool) ScheduleRepository { return &scheduleRepoPG{pool: pool} }

const schedCols = `id, doctor_id, day_of_week, start_time, end_time,
	slot_duration_minutes, max_patients, consultation_type, active, created_at, updated_at`

func (r *scheduleRepoPG) scanSchedule(row pgx.Row) (*DoctorSchedule, error) {
	var s DoctorSchedule
	err := row.Scan(&s.ID, &s.DoctorID, &s.DayOfWeek, &s.StartTime, &s.EndTime,
		&s.SlotDurationMinutes, &s.MaxPatients, &s.ConsultationType, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("schedule", s.ID.String())
	}
	return &s, err
}

func (r *scheduleRepoPG) Create(ctx context.Context, s *DoctorSchedule) error {
	s.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctor_schedules (id, doctor_id, day_of_week, start_time, end_time,
			slot_duration_minutes, max_patients, consultation_type, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.DoctorID, s.DayOfWeek, s.StartTime, s.EndTime,
		s.SlotDurationMinutes, s.MaxPatients, s.ConsultationType, s.Active)
	return err
}

func (r *scheduleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DoctorSchedule, error) {
	return r.scanSchedule(r.pool.QueryRow(ctx, `SELECT `+schedCols+` FROM doctor_schedules WHERE id = $1`, id))
}

func (r *scheduleRepoPG) Update(ctx context.Context, s *DoctorSchedule) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE doctor_schedules SET day_of_week=$2, start_time=$3, end_time=$4,
			slot_duration_minutes=$5, max_patients=$6, consultation_type=$7, active=$8, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.DayOfWeek, s.StartTime, s.EndTime,
		s.SlotDurationMinutes, s.MaxPatients, s.ConsultationType, s.Active)
	return err
}

func (r *scheduleRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM doctor_schedules WHERE id = $1`, id)
	return err
}

func (r *scheduleRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DoctorSchedule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+schedCols+` FROM doctor_schedules WHERE doctor_id = $1 ORDER BY day_of_week, start_time`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DoctorSchedule
	for rows.Next() {
		s, err := r.scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *scheduleRepoPG) ListByDoctorDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) ([]*DoctorSchedule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+schedCols+` FROM doctor_schedules WHERE doctor_id = $1 AND day_of_week = $2 AND active = TRUE ORDER BY start_time`, doctorID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DoctorSchedule
	for rows.Next() {
		s, err := r.scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *scheduleRepoPG) List(ctx context.Context, limit, offset int) ([]*DoctorSchedule, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM doctor_schedules`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+schedCols+` FROM doctor_schedules ORDER BY doctor_id, day_of_week, start_time LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DoctorSchedule
	for rows.Next() {
		s, err := r.scanSchedule(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *scheduleRepoPG) ExistsForDoctor(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM doctor_schedules WHERE doctor_id = $1)`, doctorID).Scan(&exists)
	return exists, err
}

type leaveRepoPG struct{ pool *pgxpool.Pool }

func NewLeaveRepoPG(pool *pgxpool.Pool) LeaveRepository { return &leaveRepoPG{pool: pool} }

const leaveCols = `id, doctor_id, date, leave_type, half_day, period, reason, created_at`

func (r *leaveRepoPG) scanLeave(row pgx.Row) (*DoctorLeave, error) {
	var l DoctorLeave
	err := row.Scan(&l.ID, &l.DoctorID, &l.Date, &l.LeaveType, &l.HalfDay, &l.Period, &l.Reason, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("leave", l.ID.String())
	}
	return &l, err
}

func (r *leaveRepoPG) Create(ctx context.Context, l *DoctorLeave) error {
	l.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctor_leaves (id, doctor_id, date, leave_type, half_day, period, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		l.ID, l.DoctorID, l.Date, l.LeaveType, l.HalfDay, l.Period, l.Reason)
	return err
}

func (r *leaveRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DoctorLeave, error) {
	return r.scanLeave(r.pool.QueryRow(ctx, `SELECT `+leaveCols+` FROM doctor_leaves WHERE id = $1`, id))
}

func (r *leaveRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM doctor_leaves WHERE id = $1`, id)
	return err
}

func (r *leaveRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*DoctorLeave, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM doctor_leaves WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+leaveCols+` FROM doctor_leaves WHERE doctor_id = $1 ORDER BY date DESC LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DoctorLeave
	for rows.Next() {
		l, err := r.scanLeave(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}

func (r *leaveRepoPG) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]*DoctorLeave, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+leaveCols+` FROM doctor_leaves WHERE doctor_id = $1 AND date = $2`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DoctorLeave
	for rows.Next() {
		l, err := r.scanLeave(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}
