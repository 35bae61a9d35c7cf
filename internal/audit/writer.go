// Package audit implements the hash-chained audit trail: the writer
// appends records as links of a tamper-evident chain, the verifier
// recomputes hashes over a sequence range to detect modification, and
// the anchorer periodically signs the chain tip as an independent
// checkpoint.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/oemportal/audittrail/internal/domain"
)

// Redis channels the audit service publishes on. Events carry every
// appended record; alerts carry failed verification runs. Downstream
// notification delivery subscribes to these, nothing more.
const (
	EventsChannel = "audit:events"
	AlertsChannel = "audit:alerts"
)

// Bus publishes audit events to interested consumers. Publishing is
// best-effort; the chain itself is the source of truth.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// LogParams describes one fact to record. Action and EntityType are
// required; everything else is optional.
type LogParams struct {
	Action     string
	EntityType string
	EntityID   string
	UserID     *uuid.UUID
	OldValues  json.RawMessage
	NewValues  json.RawMessage
	Category   domain.Category
	Severity   domain.Severity
}

// Writer appends records to the audit chain.
type Writer struct {
	repo domain.AuditRepository
	bus  Bus // may be nil
}

func NewWriter(repo domain.AuditRepository, bus Bus) *Writer {
	return &Writer{repo: repo, bus: bus}
}

// Log validates and persists one audit record as the next link in the
// chain, returning the persisted record. A persistence failure is
// returned unmodified; no partial record is left behind. Callers
// auditing an operation that itself failed put the failure into
// NewValues; Log does not distinguish.
func (w *Writer) Log(ctx context.Context, params LogParams) (*domain.AuditRecord, error) {
	if strings.TrimSpace(params.Action) == "" {
		return nil, fmt.Errorf("audit.Writer.Log: action: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(params.EntityType) == "" {
		return nil, fmt.Errorf("audit.Writer.Log: entityType: %w", domain.ErrInvalidInput)
	}

	oldValues, err := domain.CanonicalJSON(params.OldValues)
	if err != nil {
		return nil, fmt.Errorf("audit.Writer.Log: oldValues: %w", err)
	}
	newValues, err := domain.CanonicalJSON(params.NewValues)
	if err != nil {
		return nil, fmt.Errorf("audit.Writer.Log: newValues: %w", err)
	}

	category := params.Category
	if category == "" {
		category = domain.CategoryGeneral
	}
	severity := params.Severity
	if severity == "" {
		severity = domain.SeverityInfo
	}

	now := time.Now().UTC()
	record := &domain.AuditRecord{
		ID:         uuid.New(),
		Action:     params.Action,
		EntityType: params.EntityType,
		EntityID:   params.EntityID,
		UserID:     params.UserID,
		OldValues:  oldValues,
		NewValues:  newValues,
		Category:   category,
		Severity:   severity,
		HashedAt:   now.Format(time.RFC3339Nano),
		CreatedAt:  now,
	}

	// The repository assigns SequenceNumber, PreviousHash and RecordHash
	// inside its atomic append.
	if err := w.repo.Append(ctx, record); err != nil {
		return nil, err
	}

	w.publishEvent(ctx, record)

	return record, nil
}

// publishEvent pushes the record onto the event channel. Failures are
// logged, never propagated: the record is already durable.
func (w *Writer) publishEvent(ctx context.Context, record *domain.AuditRecord) {
	if w.bus == nil {
		return
	}

	payload, err := json.Marshal(record)
	if err != nil {
		log.Error().Err(err).Str("record_id", record.ID.String()).Msg("marshal audit event")
		return
	}

	if err := w.bus.Publish(ctx, EventsChannel, payload); err != nil {
		log.Warn().Err(err).
			Int64("sequence", record.SequenceNumber).
			Msg("publish audit event")
	}
}
