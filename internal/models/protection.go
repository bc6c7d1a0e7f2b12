package models

import "time"

// PseudonymizationMethod identifies how a pseudonym was derived.
type PseudonymizationMethod string

const (
	MethodDeterministicHash PseudonymizationMethod = "DETERMINISTIC_HASH"
)

// PseudonymizationMapping links an original sensitive value to its
// deterministic pseudonym. The pseudonym is the unique key. A mapping past
// its expiry, or flagged non-reversible, must never resolve back to the
// original value.
type PseudonymizationMapping struct {
	Pseudonym     string                 `db:"pseudonym" json:"pseudonym"`
	OriginalValue string                 `db:"original_value" json:"-"`
	FieldName     string                 `db:"field_name" json:"fieldName"`
	Method        PseudonymizationMethod `db:"method" json:"method"`
	CreatedAt     time.Time              `db:"created_at" json:"createdAt"`
	ExpiresAt     time.Time              `db:"expires_at" json:"expiresAt"`
	Reversible    bool                   `db:"reversible" json:"reversible"`
}

// Expired reports whether the mapping may no longer be reversed due to age.
func (m *PseudonymizationMapping) Expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && now.After(m.ExpiresAt)
}
