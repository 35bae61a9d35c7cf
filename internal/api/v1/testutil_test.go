package v1_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oemportal/audittrail/internal/audit"
	"github.com/oemportal/audittrail/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	records domain.AuditRepository
	anchors domain.AnchorRepository
}

func (m *mockDataStore) Records() domain.AuditRepository  { return m.records }
func (m *mockDataStore) Anchors() domain.AnchorRepository { return m.anchors }

// ---------------------------------------------------------------------------
// Mock AuditRepository
// ---------------------------------------------------------------------------

type mockAuditRepo struct {
	appendFunc             func(ctx context.Context, record *domain.AuditRecord) error
	getByIDFunc            func(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error)
	listRangeFunc          func(ctx context.Context, startSeq, endSeq int64) ([]*domain.AuditRecord, error)
	lastBeforeFunc         func(ctx context.Context, seq int64) (*domain.AuditRecord, error)
	latestFunc             func(ctx context.Context) (*domain.AuditRecord, error)
	firstSequenceAfterFunc func(ctx context.Context, cutoff time.Time) (int64, error)
	countFunc              func(ctx context.Context) (int64, error)
	listFunc               func(ctx context.Context, filter domain.RecordFilter) ([]*domain.AuditRecord, error)
}

func (m *mockAuditRepo) Append(ctx context.Context, record *domain.AuditRecord) error {
	return m.appendFunc(ctx, record)
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockAuditRepo) ListRange(ctx context.Context, startSeq, endSeq int64) ([]*domain.AuditRecord, error) {
	return m.listRangeFunc(ctx, startSeq, endSeq)
}

func (m *mockAuditRepo) LastBefore(ctx context.Context, seq int64) (*domain.AuditRecord, error) {
	return m.lastBeforeFunc(ctx, seq)
}

func (m *mockAuditRepo) Latest(ctx context.Context) (*domain.AuditRecord, error) {
	return m.latestFunc(ctx)
}

func (m *mockAuditRepo) FirstSequenceAfter(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.firstSequenceAfterFunc(ctx, cutoff)
}

func (m *mockAuditRepo) Count(ctx context.Context) (int64, error) {
	return m.countFunc(ctx)
}

func (m *mockAuditRepo) List(ctx context.Context, filter domain.RecordFilter) ([]*domain.AuditRecord, error) {
	return m.listFunc(ctx, filter)
}

// ---------------------------------------------------------------------------
// Mock ChainWriter / ChainVerifier
// ---------------------------------------------------------------------------

type mockWriter struct {
	logFunc func(ctx context.Context, params audit.LogParams) (*domain.AuditRecord, error)
}

func (m *mockWriter) Log(ctx context.Context, params audit.LogParams) (*domain.AuditRecord, error) {
	return m.logFunc(ctx, params)
}

type mockVerifier struct {
	verifyChainFunc  func(ctx context.Context, startSeq, endSeq int64) (*domain.VerificationResult, error)
	verifyRecentFunc func(ctx context.Context, hoursBack int) (*domain.VerificationResult, error)
	chainStatusFunc  func(ctx context.Context) (*domain.ChainStatus, error)
}

func (m *mockVerifier) VerifyChain(ctx context.Context, startSeq, endSeq int64) (*domain.VerificationResult, error) {
	return m.verifyChainFunc(ctx, startSeq, endSeq)
}

func (m *mockVerifier) VerifyRecent(ctx context.Context, hoursBack int) (*domain.VerificationResult, error) {
	return m.verifyRecentFunc(ctx, hoursBack)
}

func (m *mockVerifier) ChainStatus(ctx context.Context) (*domain.ChainStatus, error) {
	return m.chainStatusFunc(ctx)
}

// sampleRecord builds a plausible persisted record for handler tests.
func sampleRecord(seq int64, action string) *domain.AuditRecord {
	now := time.Now().UTC()
	return &domain.AuditRecord{
		ID:             uuid.New(),
		SequenceNumber: seq,
		Action:         action,
		EntityType:     "application",
		EntityID:       "APP-2026-000123",
		Category:       domain.CategoryApplication,
		Severity:       domain.SeverityInfo,
		PreviousHash:   domain.GenesisHash,
		RecordHash:     "0b5dc64f0ad29a1d11bd4f817c6d42d4c44cbd2b2ddfeb0dbbb6f53708c3ba3f",
		HashedAt:       now.Format(time.RFC3339Nano),
		CreatedAt:      now,
	}
}
