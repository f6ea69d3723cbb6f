package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
)

var postbackColumns = []string{"id", "conversion_id", "network_name", "sub_id", "postback_url", "status", "created_at"}

// InsertNetworkPostback queues a postback row. A conversion has at most one;
// a second insert for the same conversion is ignored.
func (s *Store) InsertNetworkPostback(ctx context.Context, p *models.NetworkPostback) error {
	q := s.builder().Insert(postbacksTable).Columns(postbackColumns...).Values(
		p.ID, p.ConversionID, p.NetworkName, p.SubID, p.PostbackURL, string(p.Status), utc(p.CreatedAt),
	).OnConflict(sql.ConflictColumns("conversion_id"), sql.DoNothing())

	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to insert network postback: %w", err)
	}
	return nil
}

// PostbacksByConversion lists the postbacks queued for a conversion
func (s *Store) PostbacksByConversion(ctx context.Context, conversionID string) ([]models.NetworkPostback, error) {
	b := s.builder()
	sel := b.Select(postbackColumns...).From(b.Table(postbacksTable)).Where(sql.EQ("conversion_id", conversionID))

	var postbacks []models.NetworkPostback
	if err := s.selectAll(ctx, &postbacks, sel); err != nil {
		return nil, fmt.Errorf("failed to load network postbacks: %w", err)
	}
	return postbacks, nil
}
