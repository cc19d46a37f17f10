package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/xavierca1/course-funnel/internal/entity"
)

// lib/pq errorCodeNames
const (
	notNullViolation = "23502"
	checkViolation   = "23514"
	stringTooLong    = "22001"
)

const leadColumns = `id, name, email, phone, course, city, college, university,
	payment_status, email_sent, created_at, updated_at`

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

// Upsert relies on the unique index on email so two concurrent first
// submissions resolve to one insert and one update.
func (r *LeadRepository) Upsert(ctx context.Context, lead *entity.Lead) (bool, error) {
	query := `
		INSERT INTO leads (id, name, email, phone, course, city, college, university,
			payment_status, email_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', FALSE, NOW(), NOW())
		ON CONFLICT (email)
		DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			course = EXCLUDED.course,
			city = COALESCE(EXCLUDED.city, leads.city),
			college = COALESCE(EXCLUDED.college, leads.college),
			university = COALESCE(EXCLUDED.university, leads.university),
			payment_status = 'pending',
			updated_at = NOW()
		RETURNING ` + leadColumns + `, (xmax = 0) AS inserted
	`

	var inserted bool
	row := r.DB.QueryRowContext(ctx, query,
		lead.ID,
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.Course,
		nullString(lead.City),
		nullString(lead.College),
		nullString(lead.University),
	)
	if err := scanLead(row, lead, &inserted); err != nil {
		return false, mapError("upsert lead", err)
	}

	return inserted, nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *LeadRepository) FindByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE email = $1`
	return r.findOne(ctx, query, entity.NormalizeEmail(email))
}

func (r *LeadRepository) findOne(ctx context.Context, query string, arg string) (*entity.Lead, error) {
	lead := &entity.Lead{}
	if err := scanLead(r.DB.QueryRowContext(ctx, query, arg), lead); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrLeadNotFound
		}
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return lead, nil
}

func (r *LeadRepository) ListRecent(ctx context.Context, limit int) ([]*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC LIMIT $1`

	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]*entity.Lead, 0, limit)
	for rows.Next() {
		lead := &entity.Lead{}
		if err := scanLead(rows, lead); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

func (r *LeadRepository) MarkEmailSent(ctx context.Context, id string) error {
	query := `UPDATE leads SET email_sent = TRUE, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, "mark email sent", query, id)
}

func (r *LeadRepository) UpdatePaymentStatus(ctx context.Context, id string, status entity.PaymentStatus) error {
	query := `UPDATE leads SET payment_status = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, "update payment status", query, id, string(status))
}

func (r *LeadRepository) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(s scanner, lead *entity.Lead, extra ...any) error {
	var city, college, university sql.NullString
	var status string

	dest := []any{
		&lead.ID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Course,
		&city,
		&college,
		&university,
		&status,
		&lead.EmailSent,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	lead.City = city.String
	lead.College = college.String
	lead.University = university.String
	lead.PaymentStatus = entity.PaymentStatus(status)
	return nil
}

// mapError turns schema violations into entity.ErrValidation so the HTTP
// layer can answer 400 instead of 500.
func mapError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case notNullViolation, checkViolation, stringTooLong:
			return fmt.Errorf("%w: %s", entity.ErrValidation, pqErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
