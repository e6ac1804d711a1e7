package followup

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ db queryable }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{db: pool}
}

const fuCols = `id, scan_id, patient_id, type, status, scheduled_for, created_at`

func scanFU(row pgx.Row) (*FollowUp, error) {
	var f FollowUp
	err := row.Scan(&f.ID, &f.ScanID, &f.PatientID, &f.Type, &f.Status, &f.ScheduledFor, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repoPG) Create(ctx context.Context, f *FollowUp) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO follow_ups (id, scan_id, patient_id, type, status, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.ScanID, f.PatientID, f.Type, f.Status, f.ScheduledFor)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*FollowUp, error) {
	return scanFU(r.db.QueryRow(ctx, `SELECT `+fuCols+` FROM follow_ups WHERE id = $1`, id))
}

func (r *repoPG) ListByScan(ctx context.Context, scanID uuid.UUID) ([]*FollowUp, error) {
	rows, err := r.db.Query(ctx, `SELECT `+fuCols+` FROM follow_ups WHERE scan_id = $1 ORDER BY scheduled_for`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFU(rows)
}

func (r *repoPG) ListDue(ctx context.Context, now time.Time, limit int) ([]*FollowUp, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+fuCols+` FROM follow_ups
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for
		LIMIT $3`,
		StatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFU(rows)
}

// ClaimTransition relies on the conditional UPDATE to serialize
// concurrent runners; only one of them sees a row change.
func (r *repoPG) ClaimTransition(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE follow_ups SET status = $3 WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func collectFU(rows pgx.Rows) ([]*FollowUp, error) {
	var items []*FollowUp
	for rows.Next() {
		f, err := scanFU(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
