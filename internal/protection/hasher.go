package protection

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/audit-trail-api/internal/models"
)

// IntegrityHasher computes tamper-evidence hashes over the identity fields of
// an event. The hash deliberately excludes mutable fields (retention,
// metadata) so archival moves do not invalidate it.
type IntegrityHasher struct {
	algorithm string
}

// NewIntegrityHasher builds a hasher; unknown algorithms fall back to sha256.
func NewIntegrityHasher(algorithm string) *IntegrityHasher {
	switch algorithm {
	case "sha256", "sha512":
	default:
		algorithm = "sha256"
	}
	return &IntegrityHasher{algorithm: algorithm}
}

type hashEnvelope struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actorId"`
	Action    string `json:"action"`
	Resource  string `json:"resource"`
	Status    string `json:"status"`
}

// Hash returns the hex digest of the canonical identity serialization.
func (h *IntegrityHasher) Hash(event *models.AuditEvent) (string, error) {
	canonical, err := json.Marshal(hashEnvelope{
		ID:        event.ID,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		ActorID:   event.ActorID,
		Action:    event.Action,
		Resource:  event.Resource,
		Status:    event.Status,
	})
	if err != nil {
		return "", fmt.Errorf("serialize event for hashing: %w", err)
	}

	switch h.algorithm {
	case "sha512":
		sum := sha512.Sum512(canonical)
		return hex.EncodeToString(sum[:]), nil
	default:
		sum := sha256.Sum256(canonical)
		return hex.EncodeToString(sum[:]), nil
	}
}

// Verify recomputes the hash and compares it to the stored one.
func (h *IntegrityHasher) Verify(event *models.AuditEvent) (bool, error) {
	if event.IntegrityHash == nil {
		return false, nil
	}
	digest, err := h.Hash(event)
	if err != nil {
		return false, err
	}
	return digest == *event.IntegrityHash, nil
}
