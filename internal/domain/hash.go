package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashInput is the canonical preimage of a record hash. Field order is
// fixed by the struct; encoding/json emits struct fields in declaration
// order, so the serialization is deterministic.
type hashInput struct {
	Action       string          `json:"action"`
	EntityID     string          `json:"entityId"`
	EntityType   string          `json:"entityType"`
	UserID       string          `json:"userId"`
	OldValues    json.RawMessage `json:"oldValues"`
	NewValues    json.RawMessage `json:"newValues"`
	PreviousHash string          `json:"previousHash"`
	Timestamp    string          `json:"timestamp"`
}

// ComputeRecordHash returns the SHA-256 hex digest of the record's
// canonical serialization. PreviousHash and HashedAt must already be
// set; the same inputs always reproduce the same digest.
func ComputeRecordHash(r *AuditRecord) (string, error) {
	userID := ""
	if r.UserID != nil {
		userID = r.UserID.String()
	}

	in := hashInput{
		Action:       r.Action,
		EntityID:     r.EntityID,
		EntityType:   r.EntityType,
		UserID:       userID,
		OldValues:    normalizeRaw(r.OldValues),
		NewValues:    normalizeRaw(r.NewValues),
		PreviousHash: r.PreviousHash,
		Timestamp:    r.HashedAt,
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("domain.ComputeRecordHash: marshal: %w", err)
	}

	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalJSON re-encodes raw JSON into a canonical compact form with
// object keys sorted, so that the stored bytes and the hash preimage
// cannot drift apart. Returns nil for empty input.
func CanonicalJSON(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("domain.CanonicalJSON: %w", err)
	}

	// encoding/json sorts map keys and emits compact output.
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("domain.CanonicalJSON: %w", err)
	}

	return out, nil
}

// normalizeRaw maps an absent snapshot to JSON null so the preimage is
// identical whether the field was nil or never set.
func normalizeRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
