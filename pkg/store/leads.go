package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
)

var purchaseLeadColumns = []string{"id", "email", "first_name", "product_type", "status", "created_at"}

// CreatePurchaseLead records a checkout start
func (s *Store) CreatePurchaseLead(ctx context.Context, l *models.PurchaseLead) error {
	q := s.builder().Insert(purchaseLeadsTable).Columns(purchaseLeadColumns...).
		Values(l.ID, l.Email, l.FirstName, l.ProductType, l.Status, utc(l.CreatedAt))
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to create purchase lead: %w", err)
	}
	return nil
}

// LeadsCreatedBetween returns leads created in [from, to), oldest first
func (s *Store) LeadsCreatedBetween(ctx context.Context, from, to time.Time) ([]models.PurchaseLead, error) {
	b := s.builder()
	sel := b.Select(purchaseLeadColumns...).
		From(b.Table(purchaseLeadsTable)).
		Where(sql.And(
			sql.GTE("created_at", utc(from)),
			sql.LT("created_at", utc(to)),
		)).
		OrderBy("created_at", "id")

	var leads []models.PurchaseLead
	if err := s.selectAll(ctx, &leads, sel); err != nil {
		return nil, fmt.Errorf("failed to load purchase leads: %w", err)
	}
	return leads, nil
}

// CreateEnrollment records an enrollment
func (s *Store) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	q := s.builder().Insert(enrollmentsTable).Columns("id", "email", "status", "created_at").
		Values(e.ID, e.Email, e.Status, utc(e.CreatedAt))
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

// HasActiveEnrollment reports whether the email already has an active enrollment.
// Emails match case-insensitively.
func (s *Store) HasActiveEnrollment(ctx context.Context, email string) (bool, error) {
	b := s.builder()
	ok, err := s.exists(ctx, b.Select("id").From(b.Table(enrollmentsTable)).Where(sql.And(
		sql.EqualFold("email", email),
		sql.EQ("status", models.EnrollmentStatusActive),
	)))
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return ok, nil
}
