package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oemportal/audittrail/internal/domain"
)

// appendLockKey is the advisory lock key serializing chain appends.
// Holding it for the duration of the insert transaction guarantees the
// record at sequence N links to the hash of the actual record N-1.
const appendLockKey = 0x41554449 // "AUDI"

const auditColumns = `id, sequence_number, action, entity_type, entity_id, user_id,
	old_values, new_values, category, severity, previous_hash, record_hash,
	hashed_at, created_at`

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Append assigns the next sequence number and chain hashes inside a
// transaction holding the append advisory lock, then inserts the
// record. The unique index on sequence_number backstops the lock.
func (r *AuditRepo) Append(ctx context.Context, record *domain.AuditRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("auditRepo.Append: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
		return fmt.Errorf("auditRepo.Append: advisory lock: %w", err)
	}

	var (
		lastSeq  int64
		lastHash string
	)
	err = tx.QueryRow(ctx,
		`SELECT sequence_number, record_hash FROM audit_records
		 ORDER BY sequence_number DESC LIMIT 1`,
	).Scan(&lastSeq, &lastHash)
	switch {
	case err == nil:
		record.SequenceNumber = lastSeq + 1
		record.PreviousHash = lastHash
	case errors.Is(err, pgx.ErrNoRows):
		record.SequenceNumber = 1
		record.PreviousHash = domain.GenesisHash
	default:
		return fmt.Errorf("auditRepo.Append: read tail: %w", err)
	}

	hash, err := domain.ComputeRecordHash(record)
	if err != nil {
		return fmt.Errorf("auditRepo.Append: %w", err)
	}
	record.RecordHash = hash

	_, err = tx.Exec(ctx,
		`INSERT INTO audit_records (`+auditColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		record.ID, record.SequenceNumber, record.Action, record.EntityType,
		record.EntityID, record.UserID, textOrNil(record.OldValues),
		textOrNil(record.NewValues), record.Category, record.Severity,
		record.PreviousHash, record.RecordHash, record.HashedAt, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("auditRepo.Append: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("auditRepo.Append: commit: %w", err)
	}

	return nil
}

func (r *AuditRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+auditColumns+` FROM audit_records WHERE id = $1`, id)

	rec, err := scanAuditRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auditRepo.GetByID: %w", err)
	}
	return rec, nil
}

func (r *AuditRepo) ListRange(ctx context.Context, startSeq, endSeq int64) ([]*domain.AuditRecord, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_records
		 WHERE sequence_number >= $1`
	args := []any{startSeq}
	if endSeq > 0 {
		query += ` AND sequence_number <= $2`
		args = append(args, endSeq)
	}
	query += ` ORDER BY sequence_number ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListRange: %w", err)
	}
	defer rows.Close()

	return scanAuditRecords(rows, "auditRepo.ListRange")
}

func (r *AuditRepo) LastBefore(ctx context.Context, seq int64) (*domain.AuditRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+auditColumns+` FROM audit_records
		 WHERE sequence_number < $1
		 ORDER BY sequence_number DESC LIMIT 1`, seq)

	rec, err := scanAuditRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auditRepo.LastBefore: %w", err)
	}
	return rec, nil
}

func (r *AuditRepo) Latest(ctx context.Context) (*domain.AuditRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+auditColumns+` FROM audit_records
		 ORDER BY sequence_number DESC LIMIT 1`)

	rec, err := scanAuditRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auditRepo.Latest: %w", err)
	}
	return rec, nil
}

func (r *AuditRepo) FirstSequenceAfter(ctx context.Context, cutoff time.Time) (int64, error) {
	var seq int64
	err := r.pool.QueryRow(ctx,
		`SELECT sequence_number FROM audit_records
		 WHERE created_at >= $1
		 ORDER BY sequence_number ASC LIMIT 1`, cutoff).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("auditRepo.FirstSequenceAfter: %w", err)
	}
	return seq, nil
}

func (r *AuditRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("auditRepo.Count: %w", err)
	}
	return count, nil
}

func (r *AuditRepo) List(ctx context.Context, filter domain.RecordFilter) ([]*domain.AuditRecord, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_records WHERE 1=1`
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.EntityType != "" {
		query += ` AND entity_type = ` + arg(filter.EntityType)
	}
	if filter.EntityID != "" {
		query += ` AND entity_id = ` + arg(filter.EntityID)
	}
	if filter.UserID != nil {
		query += ` AND user_id = ` + arg(*filter.UserID)
	}
	if filter.Action != "" {
		query += ` AND action = ` + arg(filter.Action)
	}
	if filter.Category != "" {
		query += ` AND category = ` + arg(filter.Category)
	}
	if filter.Severity != "" {
		query += ` AND severity = ` + arg(filter.Severity)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ` + arg(*filter.Since)
	}
	if filter.Until != nil {
		query += ` AND created_at <= ` + arg(*filter.Until)
	}

	query += ` ORDER BY sequence_number DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.List: %w", err)
	}
	defer rows.Close()

	return scanAuditRecords(rows, "auditRepo.List")
}

func textOrNil(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

func scanAuditRecord(row pgx.Row) (*domain.AuditRecord, error) {
	var (
		rec       domain.AuditRecord
		oldValues *string
		newValues *string
	)
	err := row.Scan(
		&rec.ID, &rec.SequenceNumber, &rec.Action, &rec.EntityType, &rec.EntityID,
		&rec.UserID, &oldValues, &newValues, &rec.Category, &rec.Severity,
		&rec.PreviousHash, &rec.RecordHash, &rec.HashedAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if oldValues != nil {
		rec.OldValues = json.RawMessage(*oldValues)
	}
	if newValues != nil {
		rec.NewValues = json.RawMessage(*newValues)
	}
	return &rec, nil
}

func scanAuditRecords(rows pgx.Rows, caller string) ([]*domain.AuditRecord, error) {
	var records []*domain.AuditRecord
	for rows.Next() {
		rec, err := scanAuditRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return records, nil
}
