package walkin

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opdflow/opdflow/internal/platform/apperr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const queueCols = `id, appointment_id, patient_id, doctor_id, date, queue_number, status,
	priority, chief_complaint, check_in_at, called_at, consultation_start_at, consultation_end_at,
	created_at, updated_at`

// serviceOrder ranks emergency ahead of urgent ahead of routine, FIFO
// within a tier. Queue numbers are deliberately not part of the ordering.
const serviceOrder = `ORDER BY CASE priority
		WHEN 'emergency' THEN 2
		WHEN 'urgent' THEN 1
		ELSE 0
	END DESC, check_in_at ASC`

func (r *repoPG) scanEntry(row pgx.Row) (*QueueEntry, error) {
	var q QueueEntry
	err := row.Scan(&q.ID, &q.AppointmentID, &q.PatientID, &q.DoctorID, &q.Date, &q.QueueNumber, &q.Status,
		&q.Priority, &q.ChiefComplaint, &q.CheckInAt, &q.CalledAt, &q.ConsultationStartAt, &q.ConsultationEndAt,
		&q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("queue entry", q.ID.String())
	}
	return &q, err
}

func (r *repoPG) Create(ctx context.Context, q *QueueEntry) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO queue_entries (id, appointment_id, patient_id, doctor_id, date, queue_number,
			status, priority, chief_complaint, check_in_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		q.ID, q.AppointmentID, q.PatientID, q.DoctorID, q.Date, q.QueueNumber,
		q.Status, q.Priority, q.ChiefComplaint, q.CheckInAt).Scan(&q.CreatedAt, &q.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*QueueEntry, error) {
	return r.scanEntry(r.pool.QueryRow(ctx, `SELECT `+queueCols+` FROM queue_entries WHERE id = $1`, id))
}

func (r *repoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*QueueEntry, error) {
	return r.scanEntry(r.pool.QueryRow(ctx, `SELECT `+queueCols+` FROM queue_entries WHERE appointment_id = $1 ORDER BY created_at DESC LIMIT 1`, appointmentID))
}

func (r *repoPG) Update(ctx context.Context, q *QueueEntry) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE queue_entries SET status=$2, called_at=$3, consultation_start_at=$4,
			consultation_end_at=$5, updated_at=NOW()
		WHERE id = $1`,
		q.ID, q.Status, q.CalledAt, q.ConsultationStartAt, q.ConsultationEndAt)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM queue_entries WHERE id = $1`, id)
	return err
}

func (r *repoPG) MaxQueueNumber(ctx context.Context, doctorID *uuid.UUID, date string) (int, error) {
	var max int
	var err error
	if doctorID == nil {
		err = r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(queue_number), 0) FROM queue_entries WHERE doctor_id IS NULL AND date = $1`, date).Scan(&max)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(queue_number), 0) FROM queue_entries WHERE doctor_id = $1 AND date = $2`, doctorID, date).Scan(&max)
	}
	return max, err
}

func (r *repoPG) ListByDoctorDate(ctx context.Context, doctorID *uuid.UUID, date string) ([]*QueueEntry, error) {
	var rows pgx.Rows
	var err error
	if doctorID == nil {
		rows, err = r.pool.Query(ctx, `SELECT `+queueCols+` FROM queue_entries WHERE doctor_id IS NULL AND date = $1 `+serviceOrder, date)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+queueCols+` FROM queue_entries WHERE doctor_id = $1 AND date = $2 `+serviceOrder, doctorID, date)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) ListByDate(ctx context.Context, date string) ([]*QueueEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+queueCols+` FROM queue_entries WHERE date = $1 `+serviceOrder, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) collect(rows pgx.Rows) ([]*QueueEntry, error) {
	var items []*QueueEntry
	for rows.Next() {
		q, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, q)
	}
	return items, rows.Err()
}

func (r *repoPG) WaitingCounts(ctx context.Context, date string) (map[uuid.UUID]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doctor_id, COUNT(*) FROM queue_entries
		WHERE date = $1 AND status = $2 AND doctor_id IS NOT NULL
		GROUP BY doctor_id`, date, StatusWaiting)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
