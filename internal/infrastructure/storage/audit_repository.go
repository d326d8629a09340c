package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"TaskIntake/internal/domain"
	"TaskIntake/internal/ports"
)

const auditTable = "audit_logs"

// AuditRepository persists audit records into a relational store.
type AuditRepository struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
}

var (
	_ ports.AuditLog    = (*AuditRepository)(nil)
	_ ports.AuditReader = (*AuditRepository)(nil)
)

// NewAuditRepository wires a sql.DB implementation for the given dialect.
func NewAuditRepository(db *sql.DB, dialect Dialect) *AuditRepository {
	return &AuditRepository{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(dialect.placeholder),
	}
}

// EnsureSchema creates the audit table when it is missing. Existing data is untouched.
func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("%w: database is not configured", domain.ErrPersistence)
	}

	if _, err := r.db.ExecContext(ctx, r.dialect.auditDDL); err != nil {
		return fmt.Errorf("%w: create %s: %w", domain.ErrPersistence, auditTable, err)
	}
	return nil
}

// Append inserts entry and returns it with the id assigned by the store.
func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditRecord, error) {
	if r.db == nil {
		return domain.AuditRecord{}, fmt.Errorf("%w: database is not configured", domain.ErrPersistence)
	}

	query, args, err := r.insertSQL(entry)
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return domain.AuditRecord{}, fmt.Errorf("%w: insert audit record: %w", domain.ErrPersistence, err)
	}

	return domain.AuditRecord{
		ID:     id,
		Source: entry.Source,
		Input:  entry.Input,
		Action: entry.Action,
	}, nil
}

func (r *AuditRepository) insertSQL(entry domain.AuditEntry) (string, []interface{}, error) {
	return r.builder.
		Insert(auditTable).
		Columns("source", "input", "action").
		Values(entry.Source, entry.Input, entry.Action).
		Suffix("RETURNING id").
		ToSql()
}

// Count returns the number of audit records.
func (r *AuditRepository) Count(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("%w: database is not configured", domain.ErrPersistence)
	}

	query, args, err := r.builder.Select("COUNT(*)").From(auditTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count audit records: %w", domain.ErrPersistence, err)
	}
	return count, nil
}

// Recent returns up to limit records, newest first.
func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	if r.db == nil {
		return nil, fmt.Errorf("%w: database is not configured", domain.ErrPersistence)
	}
	if limit <= 0 {
		return nil, nil
	}

	query, args, err := r.builder.
		Select("id", "source", "input", "action").
		From(auditTable).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query recent: %w", domain.ErrPersistence, err)
	}

	var records []domain.AuditRecord
	for rows.Next() {
		var (
			rec                   domain.AuditRecord
			source, input, action sql.NullString
		)
		if err := rows.Scan(&rec.ID, &source, &input, &action); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Source, rec.Input, rec.Action = source.String, input.String, action.String
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return records, nil
}
