// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"entgo.io/ent/dialect"
	"github.com/jordanlanch/homeschoolhub/pkg/database"
	_ "github.com/mattn/go-sqlite3"
)

// Open returns a migrated database private to the calling test.
// After migrating, the pool is pinned to one connection so every query
// sees the same in-memory database and writes never contend.
func Open(t *testing.T) *database.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name)

	db, err := sql.Open(dialect.SQLite, dsn)
	if err != nil {
		t.Fatalf("failed opening sqlite: %v", err)
	}

	client := database.Wrap(db, dialect.SQLite)
	if err := client.Migrate(context.Background()); err != nil {
		db.Close()
		t.Fatalf("failed migrating sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)

	t.Cleanup(func() { client.Close() })
	return client
}
