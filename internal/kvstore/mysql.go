package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/go-sql-driver/mysql"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS kv_items (
	k VARCHAR(255) PRIMARY KEY,
	v LONGTEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
`

// MySQLBackend stores keys in a MariaDB/MySQL table.
type MySQLBackend struct {
	DB *sql.DB
}

// OpenMySQL opens the database, checks the connection and ensures the table exists.
func OpenMySQL(ctx context.Context, dsn string) (*MySQLBackend, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 接続テスト
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	b, err := NewMySQLBackend(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Println("✅ Database connection established")
	return b, nil
}

// NewMySQLBackend wraps an existing connection and ensures the table exists.
func NewMySQLBackend(ctx context.Context, db *sql.DB) (*MySQLBackend, error) {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create kv_items table: %w", err)
	}
	return &MySQLBackend{DB: db}, nil
}

func (m *MySQLBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := m.DB.QueryRowContext(ctx, "SELECT v FROM kv_items WHERE k = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (m *MySQLBackend) Set(ctx context.Context, key, value string) error {
	_, err := m.DB.ExecContext(ctx,
		"INSERT INTO kv_items (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)",
		key, value)
	return err
}

func (m *MySQLBackend) Close() error {
	return m.DB.Close()
}
