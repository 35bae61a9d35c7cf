package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Category classifies what part of the portal an audit record belongs to.
type Category string

const (
	CategoryGeneral     Category = "GENERAL"
	CategoryAuth        Category = "AUTH"
	CategoryApplication Category = "APPLICATION"
	CategoryDocument    Category = "DOCUMENT"
	CategoryReview      Category = "REVIEW"
	CategoryPayment     Category = "PAYMENT"
	CategoryCertificate Category = "CERTIFICATE"
	CategorySystem      Category = "SYSTEM"
)

// Severity indicates how significant a recorded action is for reporting.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// GenesisHash is the previous-hash sentinel carried by the first record
// in the chain.
const GenesisHash = "GENESIS"

// AuditRecord is one link in the append-only audit chain. Records are
// written exactly once and never updated or deleted; SequenceNumber
// defines chain order and PreviousHash links each record to the one
// before it.
type AuditRecord struct {
	ID             uuid.UUID       `json:"id"`
	SequenceNumber int64           `json:"sequenceNumber"`
	Action         string          `json:"action"`
	EntityType     string          `json:"entityType"`
	EntityID       string          `json:"entityId"`
	UserID         *uuid.UUID      `json:"userId,omitempty"`
	OldValues      json.RawMessage `json:"oldValues,omitempty"`
	NewValues      json.RawMessage `json:"newValues,omitempty"`
	Category       Category        `json:"category"`
	Severity       Severity        `json:"severity"`
	PreviousHash   string          `json:"previousHash"`
	RecordHash     string          `json:"recordHash"`
	// HashedAt is the exact timestamp string that went into RecordHash.
	// Recomputing the hash must reuse it verbatim; CreatedAt is a
	// separate timestamptz and loses sub-microsecond precision.
	HashedAt  string    `json:"hashedAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChainAnchor is a signed checkpoint of the chain tip. Anchors let the
// verifier detect a consistently rewritten chain suffix, which the hash
// links alone cannot (the signature key lives outside the database).
type ChainAnchor struct {
	ID             uuid.UUID `json:"id"`
	SequenceNumber int64     `json:"sequenceNumber"`
	RecordHash     string    `json:"recordHash"`
	Signature      string    `json:"signature"`
	CreatedAt      time.Time `json:"createdAt"`
}

// InvalidRecord identifies one record whose recomputed hash did not
// match the stored one.
type InvalidRecord struct {
	ID             uuid.UUID `json:"id"`
	SequenceNumber int64     `json:"sequenceNumber"`
	ExpectedHash   string    `json:"expectedHash"`
	ActualHash     string    `json:"actualHash"`
}

// VerificationResult is the outcome of one verification run. It is not
// persisted; the verifier keeps the most recent one in memory for the
// status query.
type VerificationResult struct {
	Valid          bool            `json:"valid"`
	CheckedCount   int             `json:"checkedCount"`
	FirstSequence  *int64          `json:"firstSequence"`
	LastSequence   *int64          `json:"lastSequence"`
	InvalidRecords []InvalidRecord `json:"invalidRecords"`
	BrokenLinks    []int64         `json:"brokenLinks,omitempty"`
	AnchorFailures []int64         `json:"anchorFailures,omitempty"`
	VerifiedAt     time.Time       `json:"verifiedAt"`
}

// ChainStatus summarizes the chain and the most recent verification run
// on this instance.
type ChainStatus struct {
	TotalRecords           int64               `json:"totalRecords"`
	LatestSequence         int64               `json:"latestSequence"`
	LastVerifiedAt         *time.Time          `json:"lastVerifiedAt"`
	LastVerificationResult *VerificationResult `json:"lastVerificationResult"`
}

// RecordFilter narrows reporting queries over the audit log.
// Zero values mean "no filter".
type RecordFilter struct {
	EntityType string
	EntityID   string
	UserID     *uuid.UUID
	Action     string
	Category   Category
	Severity   Severity
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

// AuditRepository stores chain records. Append must assign sequence
// numbers atomically: no two records may share a sequence number, and
// the record at sequence N must link to the hash of whichever record
// actually holds sequence N-1.
type AuditRepository interface {
	// Append fills in SequenceNumber, PreviousHash and RecordHash on the
	// given record and persists it as the new chain tip.
	Append(ctx context.Context, record *AuditRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*AuditRecord, error)
	// ListRange returns records with startSeq <= SequenceNumber <= endSeq
	// in ascending sequence order. endSeq <= 0 means "to latest".
	ListRange(ctx context.Context, startSeq, endSeq int64) ([]*AuditRecord, error)
	// LastBefore returns the record with the highest sequence number
	// strictly below seq, or ErrNotFound.
	LastBefore(ctx context.Context, seq int64) (*AuditRecord, error)
	// Latest returns the chain tip, or ErrNotFound on an empty chain.
	Latest(ctx context.Context) (*AuditRecord, error)
	// FirstSequenceAfter returns the lowest sequence number of any record
	// created at or after cutoff, or ErrNotFound.
	FirstSequenceAfter(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, filter RecordFilter) ([]*AuditRecord, error)
}

// AnchorRepository stores signed chain checkpoints.
type AnchorRepository interface {
	Create(ctx context.Context, anchor *ChainAnchor) error
	// ListRange returns anchors whose sequence number falls in
	// [startSeq, endSeq], ascending. endSeq <= 0 means "to latest".
	ListRange(ctx context.Context, startSeq, endSeq int64) ([]*ChainAnchor, error)
	Latest(ctx context.Context) (*ChainAnchor, error)
}
