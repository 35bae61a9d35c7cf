// Package memory provides mutex-serialized in-memory implementations of
// the audit repositories, used by unit tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oemportal/audittrail/internal/domain"
)

// AuditRepo is an in-memory domain.AuditRepository. The mutex serializes
// Append, giving the same sequence-assignment guarantee the postgres
// store gets from its advisory lock.
type AuditRepo struct {
	mu      sync.Mutex
	records []*domain.AuditRecord
}

func NewAuditRepo() *AuditRepo {
	return &AuditRepo{}
}

func (r *AuditRepo) Append(_ context.Context, record *domain.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.SequenceNumber = int64(len(r.records)) + 1
	record.PreviousHash = domain.GenesisHash
	if n := len(r.records); n > 0 {
		record.PreviousHash = r.records[n-1].RecordHash
	}

	hash, err := domain.ComputeRecordHash(record)
	if err != nil {
		return err
	}
	record.RecordHash = hash

	stored := *record
	r.records = append(r.records, &stored)
	return nil
}

func (r *AuditRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AuditRepo) ListRange(_ context.Context, startSeq, endSeq int64) ([]*domain.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.AuditRecord
	for _, rec := range r.records {
		if rec.SequenceNumber < startSeq {
			continue
		}
		if endSeq > 0 && rec.SequenceNumber > endSeq {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, nil
}

func (r *AuditRepo) LastBefore(_ context.Context, seq int64) (*domain.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *domain.AuditRecord
	for _, rec := range r.records {
		if rec.SequenceNumber >= seq {
			continue
		}
		if best == nil || rec.SequenceNumber > best.SequenceNumber {
			best = rec
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *AuditRepo) Latest(_ context.Context) (*domain.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) == 0 {
		return nil, domain.ErrNotFound
	}
	cp := *r.records[len(r.records)-1]
	return &cp, nil
}

func (r *AuditRepo) FirstSequenceAfter(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if !rec.CreatedAt.Before(cutoff) {
			return rec.SequenceNumber, nil
		}
	}
	return 0, domain.ErrNotFound
}

func (r *AuditRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return int64(len(r.records)), nil
}

func (r *AuditRepo) List(_ context.Context, filter domain.RecordFilter) ([]*domain.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.AuditRecord
	for _, rec := range r.records {
		if !matches(rec, filter) {
			continue
		}
		cp := *rec
		matched = append(matched, &cp)
	}

	// Newest first, like the reporting queries.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SequenceNumber > matched[j].SequenceNumber
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func matches(rec *domain.AuditRecord, f domain.RecordFilter) bool {
	if f.EntityType != "" && rec.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && rec.EntityID != f.EntityID {
		return false
	}
	if f.UserID != nil && (rec.UserID == nil || *rec.UserID != *f.UserID) {
		return false
	}
	if f.Action != "" && rec.Action != f.Action {
		return false
	}
	if f.Category != "" && rec.Category != f.Category {
		return false
	}
	if f.Severity != "" && rec.Severity != f.Severity {
		return false
	}
	if f.Since != nil && rec.CreatedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && rec.CreatedAt.After(*f.Until) {
		return false
	}
	return true
}

// Tamper mutates the stored record at the given sequence number without
// touching its hash, simulating direct modification of the backing
// store. Test use only.
func (r *AuditRepo) Tamper(seq int64, mutate func(*domain.AuditRecord)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.SequenceNumber == seq {
			mutate(rec)
			return true
		}
	}
	return false
}

// AnchorRepo is an in-memory domain.AnchorRepository.
type AnchorRepo struct {
	mu      sync.Mutex
	anchors []*domain.ChainAnchor
}

func NewAnchorRepo() *AnchorRepo {
	return &AnchorRepo{}
}

func (r *AnchorRepo) Create(_ context.Context, anchor *domain.ChainAnchor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *anchor
	r.anchors = append(r.anchors, &cp)
	return nil
}

func (r *AnchorRepo) ListRange(_ context.Context, startSeq, endSeq int64) ([]*domain.ChainAnchor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.ChainAnchor
	for _, a := range r.anchors {
		if a.SequenceNumber < startSeq {
			continue
		}
		if endSeq > 0 && a.SequenceNumber > endSeq {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, nil
}

func (r *AnchorRepo) Latest(_ context.Context) (*domain.ChainAnchor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.anchors) == 0 {
		return nil, domain.ErrNotFound
	}
	latest := r.anchors[0]
	for _, a := range r.anchors[1:] {
		if a.SequenceNumber > latest.SequenceNumber {
			latest = a
		}
	}
	cp := *latest
	return &cp, nil
}
