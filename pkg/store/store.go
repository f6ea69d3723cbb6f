// Package store persists affiliate, payout and lead records. Queries are
// built with ent's dialect-aware SQL builder and scanned with sqlx.
package store

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"
	"github.com/jordanlanch/homeschoolhub/pkg/database"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// Table names
const (
	membershipLevelsTable = "membership_levels"
	affiliatesTable       = "affiliates"
	clicksTable           = "affiliate_clicks"
	conversionsTable      = "affiliate_conversions"
	postbacksTable        = "network_postbacks"
	programConfigTable    = "affiliate_program_config"
	purchaseLeadsTable    = "purchase_leads"
	enrollmentsTable      = "enrollments"
	emailJobsTable        = "email_jobs"
)

// Store provides typed access to the relational schema
type Store struct {
	db      *sqlx.DB
	dialect string
}

// New creates a store on top of a database client
func New(client *database.Client) *Store {
	return &Store{db: client.DB, dialect: client.Dialect}
}

func (s *Store) builder() *sql.DialectBuilder {
	return sql.Dialect(s.dialect)
}

func (s *Store) get(ctx context.Context, dest any, q sql.Querier) error {
	query, args := q.Query()
	if err := s.db.GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) selectAll(ctx context.Context, dest any, q sql.Querier) error {
	query, args := q.Query()
	return s.db.SelectContext(ctx, dest, query, args...)
}

func (s *Store) exec(ctx context.Context, q sql.Querier) (int64, error) {
	query, args := q.Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed reading affected rows: %w", err)
	}
	return n, nil
}

func (s *Store) exists(ctx context.Context, sel *sql.Selector) (bool, error) {
	var id string
	err := s.get(ctx, &id, sel.Limit(1))
	switch {
	case errors.Is(err, ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// utc normalizes timestamps before they are bound as query arguments.
// SQLite compares them as text.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
