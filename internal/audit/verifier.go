package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/oemportal/audittrail/internal/domain"
)

// Verifier walks chain records in sequence order, recomputes their
// hashes and reports mismatches. It keeps the most recent completed
// run in memory for the status query; that cache is per-instance and
// resets on restart.
type Verifier struct {
	repo      domain.AuditRepository
	anchors   domain.AnchorRepository // may be nil
	anchorKey []byte
	writer    *Writer // may be nil
	bus       Bus     // may be nil

	mu      sync.Mutex
	lastRun *domain.VerificationResult
}

func NewVerifier(repo domain.AuditRepository, anchors domain.AnchorRepository, anchorKey []byte, writer *Writer, bus Bus) *Verifier {
	return &Verifier{
		repo:      repo,
		anchors:   anchors,
		anchorKey: anchorKey,
		writer:    writer,
		bus:       bus,
	}
}

// VerifyChain checks the chain over [startSeq, endSeq]. startSeq <= 0
// means from genesis, endSeq <= 0 means to latest. Tampered records are
// reported as data in the result; only infrastructure failures return
// an error, and no result is cached for a failed run.
func (v *Verifier) VerifyChain(ctx context.Context, startSeq, endSeq int64) (*domain.VerificationResult, error) {
	if startSeq <= 0 {
		startSeq = 1
	}

	expectedPrev := domain.GenesisHash
	if startSeq > 1 {
		prev, err := v.repo.LastBefore(ctx, startSeq)
		switch {
		case err == nil:
			expectedPrev = prev.RecordHash
		case errors.Is(err, domain.ErrNotFound):
			// No record below startSeq; the chain starts inside the range.
		default:
			return nil, fmt.Errorf("audit.Verifier.VerifyChain: seed previous hash: %w", err)
		}
	}

	records, err := v.repo.ListRange(ctx, startSeq, endSeq)
	if err != nil {
		return nil, fmt.Errorf("audit.Verifier.VerifyChain: list range: %w", err)
	}

	result := &domain.VerificationResult{
		Valid:          true,
		CheckedCount:   len(records),
		InvalidRecords: []domain.InvalidRecord{},
		VerifiedAt:     time.Now().UTC(),
	}

	for _, rec := range records {
		if rec.PreviousHash != expectedPrev {
			// A broken link alone does not fail the run; the hash check
			// below decides whether the record itself was altered.
			log.Warn().
				Int64("sequence", rec.SequenceNumber).
				Str("stored_previous", rec.PreviousHash).
				Str("expected_previous", expectedPrev).
				Msg("audit chain link mismatch")
			result.BrokenLinks = append(result.BrokenLinks, rec.SequenceNumber)
		}

		recomputed := *rec
		recomputed.PreviousHash = expectedPrev
		expectedHash, hashErr := domain.ComputeRecordHash(&recomputed)
		if hashErr != nil {
			return nil, fmt.Errorf("audit.Verifier.VerifyChain: recompute seq %d: %w", rec.SequenceNumber, hashErr)
		}

		if expectedHash != rec.RecordHash {
			result.InvalidRecords = append(result.InvalidRecords, domain.InvalidRecord{
				ID:             rec.ID,
				SequenceNumber: rec.SequenceNumber,
				ExpectedHash:   expectedHash,
				ActualHash:     rec.RecordHash,
			})
		}

		// Carry the stored hash forward so one corrupted record yields
		// one invalid entry instead of cascading over the whole suffix.
		// Anchors cover the rewritten-suffix case this leaves open.
		expectedPrev = rec.RecordHash
	}

	if len(records) > 0 {
		first := records[0].SequenceNumber
		last := records[len(records)-1].SequenceNumber
		result.FirstSequence = &first
		result.LastSequence = &last
	}

	if err := v.checkAnchors(ctx, records, result); err != nil {
		return nil, err
	}

	result.Valid = len(result.InvalidRecords) == 0 && len(result.AnchorFailures) == 0

	v.recordRun(result)
	v.reportRun(result)

	return result, nil
}

// checkAnchors cross-checks every signed checkpoint inside the verified
// range against the stored records.
func (v *Verifier) checkAnchors(ctx context.Context, records []*domain.AuditRecord, result *domain.VerificationResult) error {
	if v.anchors == nil || len(records) == 0 {
		return nil
	}

	first := records[0].SequenceNumber
	last := records[len(records)-1].SequenceNumber

	anchored, err := v.anchors.ListRange(ctx, first, last)
	if err != nil {
		return fmt.Errorf("audit.Verifier.VerifyChain: list anchors: %w", err)
	}
	if len(anchored) == 0 {
		return nil
	}

	bySeq := make(map[int64]*domain.AuditRecord, len(records))
	for _, rec := range records {
		bySeq[rec.SequenceNumber] = rec
	}

	for _, anchor := range anchored {
		rec, ok := bySeq[anchor.SequenceNumber]
		if !ok || rec.RecordHash != anchor.RecordHash || !VerifyAnchorSignature(v.anchorKey, anchor) {
			log.Warn().
				Int64("sequence", anchor.SequenceNumber).
				Msg("audit chain anchor mismatch")
			result.AnchorFailures = append(result.AnchorFailures, anchor.SequenceNumber)
		}
	}

	return nil
}

// VerifyRecent verifies every record created within the past hoursBack
// hours by resolving the cutoff to a starting sequence number.
func (v *Verifier) VerifyRecent(ctx context.Context, hoursBack int) (*domain.VerificationResult, error) {
	if hoursBack <= 0 {
		return nil, fmt.Errorf("audit.Verifier.VerifyRecent: hoursBack %d: %w", hoursBack, domain.ErrInvalidInput)
	}

	cutoff := time.Now().UTC().Add(-time.Duration(hoursBack) * time.Hour)

	startSeq, err := v.repo.FirstSequenceAfter(ctx, cutoff)
	if errors.Is(err, domain.ErrNotFound) {
		// Nothing written since the cutoff: trivially valid.
		result := &domain.VerificationResult{
			Valid:          true,
			InvalidRecords: []domain.InvalidRecord{},
			VerifiedAt:     time.Now().UTC(),
		}
		v.recordRun(result)
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit.Verifier.VerifyRecent: %w", err)
	}

	return v.VerifyChain(ctx, startSeq, 0)
}

// ChainStatus reports chain size and the most recent verification run
// on this instance, if any.
func (v *Verifier) ChainStatus(ctx context.Context) (*domain.ChainStatus, error) {
	total, err := v.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit.Verifier.ChainStatus: count: %w", err)
	}

	var latestSeq int64
	latest, err := v.repo.Latest(ctx)
	switch {
	case err == nil:
		latestSeq = latest.SequenceNumber
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, fmt.Errorf("audit.Verifier.ChainStatus: latest: %w", err)
	}

	status := &domain.ChainStatus{
		TotalRecords:   total,
		LatestSequence: latestSeq,
	}

	v.mu.Lock()
	if v.lastRun != nil {
		run := *v.lastRun
		status.LastVerificationResult = &run
		status.LastVerifiedAt = &run.VerifiedAt
	}
	v.mu.Unlock()

	return status, nil
}

// RunPeriodic verifies the last hoursBack hours on every tick until the
// context is cancelled.
func (v *Verifier) RunPeriodic(ctx context.Context, interval time.Duration, hoursBack int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := v.VerifyRecent(ctx, hoursBack); err != nil {
				log.Error().Err(err).Msg("periodic chain verification failed")
			}
		}
	}
}

func (v *Verifier) recordRun(result *domain.VerificationResult) {
	v.mu.Lock()
	run := *result
	v.lastRun = &run
	v.mu.Unlock()
}

// reportRun writes the run's own audit record and, when the run found
// tampering, raises an alert. Both are side effects of a completed run
// and must not block or fail it.
func (v *Verifier) reportRun(result *domain.VerificationResult) {
	summary, err := json.Marshal(result)
	if err != nil {
		log.Error().Err(err).Msg("marshal verification result")
		return
	}

	if v.writer != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			severity := domain.SeverityInfo
			if !result.Valid {
				severity = domain.SeverityCritical
			}
			if _, logErr := v.writer.Log(ctx, LogParams{
				Action:     "CHAIN_VERIFIED",
				EntityType: "audit_chain",
				NewValues:  summary,
				Category:   domain.CategorySystem,
				Severity:   severity,
			}); logErr != nil {
				log.Warn().Err(logErr).Msg("record verification run")
			}
		}()
	}

	if !result.Valid && v.bus != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if pubErr := v.bus.Publish(ctx, AlertsChannel, summary); pubErr != nil {
				log.Warn().Err(pubErr).Msg("publish integrity alert")
			}
		}()
	}
}
