// internal/store/store.go

// Package store persists evidence metadata to PostgreSQL so audits can query
// what was captured, when, and for which request. The index is optional; runs
// without a database URL write files and sidecars only.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/veritas9k/consnap-cli/internal/capture"
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS evidence_artifacts (
	id           BIGSERIAL PRIMARY KEY,
	file_path    TEXT NOT NULL,
	service      TEXT NOT NULL,
	resource     TEXT NOT NULL,
	region       TEXT NOT NULL,
	tab          TEXT NOT NULL DEFAULT '',
	rfi_code     TEXT NOT NULL DEFAULT '',
	filter_desc  TEXT NOT NULL DEFAULT '',
	nav_tier     TEXT NOT NULL DEFAULT '',
	page_index   INT NOT NULL DEFAULT 1,
	page_count   INT NOT NULL DEFAULT 1,
	captured_at  TIMESTAMPTZ NOT NULL
)`

// Store is the PostgreSQL evidence index.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New verifies the connection and ensures the schema exists.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to ensure evidence schema: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

var artifactColumns = []string{
	"file_path", "service", "resource", "region", "tab",
	"rfi_code", "filter_desc", "nav_tier", "page_index", "page_count", "captured_at",
}

// IndexArtifacts records a capture's artifacts in one transaction.
func (s *Store) IndexArtifacts(ctx context.Context, artifacts []*capture.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	rows := make([][]interface{}, len(artifacts))
	for i, a := range artifacts {
		rows[i] = []interface{}{
			a.FilePath, a.Service, a.Resource, a.Region, a.Tab,
			a.RFICode, a.Filter, a.NavTier, a.PageIndex, a.PageCount,
			a.CapturedAt.UTC(),
		}
	}

	copyCount, err := tx.CopyFrom(ctx,
		pgx.Identifier{"evidence_artifacts"},
		artifactColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy evidence rows: %w", err)
	}
	if int(copyCount) != len(artifacts) {
		return fmt.Errorf("mismatch in indexed artifact count: expected %d, got %d", len(artifacts), copyCount)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Artifacts indexed.", zap.Int("count", len(artifacts)))
	return nil
}

// QueryByRFI lists artifacts captured for an audit request code, newest first.
func (s *Store) QueryByRFI(ctx context.Context, rfiCode string) ([]*capture.Artifact, error) {
	sql := `SELECT ` + strings.Join(artifactColumns, ", ") + `
		FROM evidence_artifacts WHERE rfi_code = $1 ORDER BY captured_at DESC`
	rows, err := s.pool.Query(ctx, sql, rfiCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence index: %w", err)
	}
	defer rows.Close()

	var out []*capture.Artifact
	for rows.Next() {
		var a capture.Artifact
		var capturedAt time.Time
		if err := rows.Scan(&a.FilePath, &a.Service, &a.Resource, &a.Region, &a.Tab,
			&a.RFICode, &a.Filter, &a.NavTier, &a.PageIndex, &a.PageCount, &capturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evidence row: %w", err)
		}
		a.CapturedAt = capturedAt
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading evidence rows: %w", err)
	}
	return out, nil
}
