package scan

import (
	"context"
	"errors"
	"fmt"

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

const scanCols = `id, patient_id, doctor_id, image_url, heatmap_url, modality,
	symptoms, original_filename, status, priority,
	ai_diagnosis, ai_confidence, ai_uncertainty, triage_score, expert_used,
	doctor_notes, uploaded_at, reviewed_at`

func scanRow(row pgx.Row) (*Scan, error) {
	var s Scan
	err := row.Scan(&s.ID, &s.PatientID, &s.DoctorID, &s.ImageURL, &s.HeatmapURL, &s.Modality,
		&s.Symptoms, &s.OriginalFilename, &s.Status, &s.Priority,
		&s.AIDiagnosis, &s.AIConfidence, &s.AIUncertainty, &s.TriageScore, &s.ExpertUsed,
		&s.DoctorNotes, &s.UploadedAt, &s.ReviewedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) Create(ctx context.Context, s *Scan) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO scans (id, patient_id, doctor_id, image_url, heatmap_url, modality,
			symptoms, original_filename, status, priority,
			ai_diagnosis, ai_confidence, ai_uncertainty, triage_score, expert_used, doctor_notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		s.ID, s.PatientID, s.DoctorID, s.ImageURL, s.HeatmapURL, s.Modality,
		s.Symptoms, s.OriginalFilename, s.Status, s.Priority,
		s.AIDiagnosis, s.AIConfidence, s.AIUncertainty, s.TriageScore, s.ExpertUsed, s.DoctorNotes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Scan, error) {
	return scanRow(r.db.QueryRow(ctx, `SELECT `+scanCols+` FROM scans WHERE id = $1`, id))
}

func (r *repoPG) ApplyTransition(ctx context.Context, id uuid.UUID, patch *TransitionPatch) error {
	set := ""
	args := []interface{}{id}
	add := func(col string, v interface{}) {
		args = append(args, v)
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, len(args))
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.DoctorID != nil {
		add("doctor_id", *patch.DoctorID)
	}
	if patch.DoctorNotes != nil {
		add("doctor_notes", *patch.DoctorNotes)
	}
	if patch.AIDiagnosis != nil {
		add("ai_diagnosis", *patch.AIDiagnosis)
	}
	if patch.AIConfidence != nil {
		add("ai_confidence", *patch.AIConfidence)
	}
	if patch.AIUncertainty != nil {
		add("ai_uncertainty", *patch.AIUncertainty)
	}
	if patch.TriageScore != nil {
		add("triage_score", *patch.TriageScore)
	}
	if patch.HeatmapURL != nil {
		add("heatmap_url", *patch.HeatmapURL)
	}
	if patch.ExpertUsed != nil {
		add("expert_used", *patch.ExpertUsed)
	}
	if patch.StampsReview() {
		if set != "" {
			set += ", "
		}
		set += "reviewed_at = NOW()"
	}
	if set == "" {
		return nil
	}

	tag, err := r.db.Exec(ctx, `UPDATE scans SET `+set+` WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Scan, int, error) {
	where := ""
	args := []interface{}{}
	and := func(cond string, v interface{}) {
		args = append(args, v)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(cond, len(args))
	}
	if filter.PatientID != uuid.Nil {
		and("patient_id = $%d", filter.PatientID)
	}
	if filter.Status != "" {
		and("status = $%d", filter.Status)
	}
	if filter.Priority != "" {
		and("priority = $%d", filter.Priority)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM scans`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.db.Query(ctx,
		`SELECT `+scanCols+` FROM scans`+where+
			fmt.Sprintf(` ORDER BY uploaded_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Scan
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
