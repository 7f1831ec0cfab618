package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool for account operations.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a DB handle.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgx pool.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// HashPassword returns the stored form of a password: uppercase hex SHA-256(password + salt).
func HashPassword(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// SHA256Hasher adapts HashPassword to login.PasswordHasher.
type SHA256Hasher struct{}

// Hash implements login.PasswordHasher.
func (SHA256Hasher) Hash(password, salt string) string {
	return HashPassword(password, salt)
}
