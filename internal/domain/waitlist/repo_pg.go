package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opdflow/opdflow/internal/platform/apperr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const entryCols = `id, patient_id, doctor_id, preferred_date, preferred_time,
	status, priority, reason, expires_at, created_at, updated_at`

func (r *repoPG) scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.PatientID, &e.DoctorID, &e.PreferredDate, &e.PreferredTime,
		&e.Status, &e.Priority, &e.Reason, &e.ExpiresAt, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("waitlist entry", e.ID.String())
	}
	return &e, err
}

// Create writes the server-assigned timestamps back onto the entry; the
// position computation tie-breaks on created_at, so the caller must see the
// value the database stored.
func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO waitlist_entries (id, patient_id, doctor_id, preferred_date, preferred_time,
			status, priority, reason, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		e.ID, e.PatientID, e.DoctorID, e.PreferredDate, e.PreferredTime,
		e.Status, e.Priority, e.Reason, e.ExpiresAt).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return r.scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryCols+` FROM waitlist_entries WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, e *Entry) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE waitlist_entries SET status=$2, priority=$3, preferred_date=$4, preferred_time=$5,
			expires_at=$6, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.Status, e.Priority, e.PreferredDate, e.PreferredTime, e.ExpiresAt)
	return err
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error) {
	query := `SELECT ` + entryCols + ` FROM waitlist_entries WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM waitlist_entries WHERE 1=1`
	var args []interface{}
	idx := 1

	for _, f := range []struct{ param, column string }{
		{"doctor_id", "doctor_id"},
		{"patient_id", "patient_id"},
		{"status", "status"},
		{"preferred_date", "preferred_date"},
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

	query += fmt.Sprintf(` ORDER BY priority DESC, created_at ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

// CountAhead ranks by priority, then created_at, then id so two entries
// inserted in the same clock tick still get distinct, stable positions.
func (r *repoPG) CountAhead(ctx context.Context, e *Entry) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM waitlist_entries
		WHERE doctor_id = $1 AND status = $2 AND id <> $3
		  AND (priority > $4
		       OR (priority = $4 AND created_at < $5)
		       OR (priority = $4 AND created_at = $5 AND id < $3))`,
		e.DoctorID, StatusWaiting, e.ID, e.Priority, e.CreatedAt).Scan(&count)
	return count, err
}

func (r *repoPG) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE waitlist_entries SET status = $1, updated_at = NOW()
		WHERE status = $2 AND expires_at IS NOT NULL AND expires_at < $3`,
		StatusExpired, StatusWaiting, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
