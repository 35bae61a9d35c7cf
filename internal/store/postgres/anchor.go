package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oemportal/audittrail/internal/domain"
)

type AnchorRepo struct {
	pool *pgxpool.Pool
}

func NewAnchorRepo(pool *pgxpool.Pool) *AnchorRepo {
	return &AnchorRepo{pool: pool}
}

func (r *AnchorRepo) Create(ctx context.Context, anchor *domain.ChainAnchor) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_anchors (id, sequence_number, record_hash, signature, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		anchor.ID, anchor.SequenceNumber, anchor.RecordHash, anchor.Signature, anchor.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("anchorRepo.Create: %w", err)
	}

	return nil
}

func (r *AnchorRepo) ListRange(ctx context.Context, startSeq, endSeq int64) ([]*domain.ChainAnchor, error) {
	query := `SELECT id, sequence_number, record_hash, signature, created_at
		 FROM audit_anchors WHERE sequence_number >= $1`
	args := []any{startSeq}
	if endSeq > 0 {
		query += ` AND sequence_number <= $2`
		args = append(args, endSeq)
	}
	query += ` ORDER BY sequence_number ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("anchorRepo.ListRange: %w", err)
	}
	defer rows.Close()

	var anchors []*domain.ChainAnchor
	for rows.Next() {
		var a domain.ChainAnchor
		if err := rows.Scan(&a.ID, &a.SequenceNumber, &a.RecordHash, &a.Signature, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("anchorRepo.ListRange: scan: %w", err)
		}
		anchors = append(anchors, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("anchorRepo.ListRange: rows: %w", err)
	}

	return anchors, nil
}

func (r *AnchorRepo) Latest(ctx context.Context) (*domain.ChainAnchor, error) {
	var a domain.ChainAnchor
	err := r.pool.QueryRow(ctx,
		`SELECT id, sequence_number, record_hash, signature, created_at
		 FROM audit_anchors ORDER BY sequence_number DESC LIMIT 1`,
	).Scan(&a.ID, &a.SequenceNumber, &a.RecordHash, &a.Signature, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("anchorRepo.Latest: %w", err)
	}

	return &a, nil
}
