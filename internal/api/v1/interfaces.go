package v1

import (
	"context"

	"github.com/oemportal/audittrail/internal/audit"
	"github.com/oemportal/audittrail/internal/domain"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Records() domain.AuditRepository
	Anchors() domain.AnchorRepository
}

// ChainWriter abstracts the chain writer for handler testing.
// *audit.Writer satisfies this interface.
type ChainWriter interface {
	Log(ctx context.Context, params audit.LogParams) (*domain.AuditRecord, error)
}

// ChainVerifier abstracts the chain verifier for handler testing.
// *audit.Verifier satisfies this interface.
type ChainVerifier interface {
	VerifyChain(ctx context.Context, startSeq, endSeq int64) (*domain.VerificationResult, error)
	VerifyRecent(ctx context.Context, hoursBack int) (*domain.VerificationResult, error)
	ChainStatus(ctx context.Context) (*domain.ChainStatus, error)
}
