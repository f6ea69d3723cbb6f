package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"
	"github.com/jordanlanch/homeschoolhub/pkg/database/migrate"
	_ "github.com/lib/pq"
)

// Client holds the database handle together with the SQL dialect used to build queries
type Client struct {
	DB      *sqlx.DB
	Dialect string
}

// PoolConfig holds connection pool configuration
type PoolConfig struct {
	MaxOpenConns    int           // Maximum number of open connections
	MaxIdleConns    int           // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum amount of time a connection may be reused
	ConnMaxIdleTime time.Duration // Maximum amount of time a connection may be idle
}

// SSLConfig holds SSL/TLS configuration for database connections
type SSLConfig struct {
	Mode         string // disable, require, verify-ca, verify-full
	CertPath     string // Path to client certificate
	KeyPath      string // Path to client key
	RootCertPath string // Path to root CA certificate
}

// DefaultPoolConfig returns sensible defaults for connection pooling
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// BuildConnectionString builds a PostgreSQL connection string with SSL parameters
func BuildConnectionString(baseURL string, sslCfg *SSLConfig) (string, error) {
	if sslCfg == nil {
		return baseURL, nil
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}

	query := parsedURL.Query()

	// Set SSL mode (overrides any existing sslmode in URL)
	if sslCfg.Mode != "" {
		query.Set("sslmode", sslCfg.Mode)
	}
	if sslCfg.CertPath != "" {
		query.Set("sslcert", sslCfg.CertPath)
	}
	if sslCfg.KeyPath != "" {
		query.Set("sslkey", sslCfg.KeyPath)
	}
	if sslCfg.RootCertPath != "" {
		query.Set("sslrootcert", sslCfg.RootCertPath)
	}

	parsedURL.RawQuery = query.Encode()

	return parsedURL.String(), nil
}

// NewClient creates a Postgres client with default pooling and applies migrations
func NewClient(ctx context.Context, databaseURL string, sslCfg *SSLConfig) (*Client, error) {
	return NewClientWithPoolAndSSL(ctx, databaseURL, DefaultPoolConfig(), sslCfg)
}

// NewClientWithPoolAndSSL creates a Postgres client with custom pool and SSL configuration
func NewClientWithPoolAndSSL(ctx context.Context, databaseURL string, poolCfg PoolConfig, sslCfg *SSLConfig) (*Client, error) {
	connStr, err := BuildConnectionString(databaseURL, sslCfg)
	if err != nil {
		return nil, fmt.Errorf("failed building connection string: %w", err)
	}

	if sslCfg != nil && sslCfg.Mode != "" && sslCfg.Mode != "disable" {
		log.Printf("🔒 Database SSL enabled (mode: %s)", sslCfg.Mode)
		if sslCfg.CertPath != "" {
			log.Printf("   Client certificate: %s", sslCfg.CertPath)
		}
		if sslCfg.RootCertPath != "" {
			log.Printf("   Root CA certificate: %s", sslCfg.RootCertPath)
		}
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed opening connection to postgres: %w", err)
	}

	db.SetMaxOpenConns(poolCfg.MaxOpenConns)
	db.SetMaxIdleConns(poolCfg.MaxIdleConns)
	db.SetConnMaxLifetime(poolCfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(poolCfg.ConnMaxIdleTime)

	log.Printf("✅ Database connection pool configured (max_open: %d, max_idle: %d, max_lifetime: %s, max_idle_time: %s)",
		poolCfg.MaxOpenConns, poolCfg.MaxIdleConns, poolCfg.ConnMaxLifetime, poolCfg.ConnMaxIdleTime)

	client := Wrap(db, dialect.Postgres)
	if err := client.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Println("✅ Database connected and migrations applied")

	return client, nil
}

// Wrap builds a Client around an already opened *sql.DB.
// The dialect must be one of entgo.io/ent/dialect's names.
func Wrap(db *sql.DB, dialectName string) *Client {
	return &Client{
		DB:      sqlx.NewDb(db, dialectName),
		Dialect: dialectName,
	}
}

// Migrate creates or updates every table
func (c *Client) Migrate(ctx context.Context) error {
	drv := entsql.OpenDB(c.Dialect, c.DB.DB)
	if err := migrate.Create(ctx, drv); err != nil {
		return fmt.Errorf("failed creating schema resources: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.DB.Close()
}

// Ping checks if the database is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}
