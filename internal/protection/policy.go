package protection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/audit-trail-api/internal/models"
	"github.com/noah-isme/audit-trail-api/pkg/config"
	"github.com/noah-isme/audit-trail-api/pkg/errors"
)

const pseudonymLength = 16

// Field names pseudonymized outside of metadata.
const (
	FieldActorID   = "actor_id"
	FieldIPAddress = "ip_address"
	FieldSessionID = "session_id"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`)
	phonePattern = regexp.MustCompile(`\+\d[\d\s\-()]{7,}\d`)
)

// MappingStore persists pseudonym mappings. Save must be idempotent for an
// existing pseudonym since derivation is deterministic.
type MappingStore interface {
	Save(ctx context.Context, mapping *models.PseudonymizationMapping) error
	FindByPseudonym(ctx context.Context, pseudonym string) (*models.PseudonymizationMapping, error)
}

// Policy decides which event fields carry personal data and replaces them
// with deterministic pseudonyms.
type Policy struct {
	enabled    bool
	app        string
	salt       string
	mappingTTL time.Duration
	always     map[string]struct{}
	never      map[string]struct{}
	keywords   []string
	store      MappingStore
	log        *zap.Logger
	now        func() time.Time
}

// NewPolicy builds a policy from configuration.
func NewPolicy(cfg config.ProtectionConfig, store MappingStore, log *zap.Logger) *Policy {
	p := &Policy{
		enabled:    cfg.Enabled,
		app:        cfg.ApplicationName,
		salt:       cfg.Salt,
		mappingTTL: cfg.MappingTTL,
		always:     make(map[string]struct{}, len(cfg.AlwaysFields)),
		never:      make(map[string]struct{}, len(cfg.NeverFields)),
		keywords:   make([]string, 0, len(cfg.SensitiveKeywords)),
		store:      store,
		log:        log,
		now:        time.Now,
	}
	for _, field := range cfg.AlwaysFields {
		p.always[strings.ToLower(field)] = struct{}{}
	}
	for _, field := range cfg.NeverFields {
		p.never[strings.ToLower(field)] = struct{}{}
	}
	for _, keyword := range cfg.SensitiveKeywords {
		p.keywords = append(p.keywords, strings.ToLower(keyword))
	}
	return p
}

// Pseudonym derives the deterministic pseudonym for a field value. Same
// salt, field, application and value always yield the same pseudonym.
func (p *Policy) Pseudonym(field, value string) string {
	sum := sha256.Sum256([]byte(p.salt + field + p.app + value))
	return hex.EncodeToString(sum[:])[:pseudonymLength]
}

// ShouldProtect reports whether a field/value pair carries personal data.
// The never-list wins over every other rule.
func (p *Policy) ShouldProtect(field, value string) bool {
	name := strings.ToLower(field)
	if _, skip := p.never[name]; skip {
		return false
	}
	if _, hit := p.always[name]; hit {
		return true
	}
	for _, keyword := range p.keywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return sensitiveValue(value)
}

func sensitiveValue(value string) bool {
	if value == "" {
		return false
	}
	return emailPattern.MatchString(value) ||
		ssnPattern.MatchString(value) ||
		cardPattern.MatchString(value) ||
		phonePattern.MatchString(value)
}

// ProtectEvent returns a protected copy of the event. The input is never
// mutated. Disabled policies pass events through unchanged.
func (p *Policy) ProtectEvent(ctx context.Context, event *models.AuditEvent) (*models.AuditEvent, error) {
	if !p.enabled {
		return event, nil
	}

	clone := event.Clone()
	protected := false

	if p.ShouldProtect(FieldActorID, clone.ActorID) {
		pseudonym, err := p.pseudonymize(ctx, FieldActorID, clone.ActorID)
		if err != nil {
			return nil, err
		}
		clone.ActorID = pseudonym
		protected = true
	}
	if clone.IPAddress != "" && p.ShouldProtect(FieldIPAddress, clone.IPAddress) {
		pseudonym, err := p.pseudonymize(ctx, FieldIPAddress, clone.IPAddress)
		if err != nil {
			return nil, err
		}
		clone.IPAddress = pseudonym
		protected = true
	}

	for key, value := range clone.Metadata {
		if !p.ShouldProtect(key, value) {
			continue
		}
		pseudonym, err := p.pseudonymize(ctx, key, value)
		if err != nil {
			return nil, err
		}
		clone.Metadata[key] = pseudonym
		protected = true
	}

	if protected {
		clone.Sensitive = true
	}
	return clone, nil
}

func (p *Policy) pseudonymize(ctx context.Context, field, value string) (string, error) {
	pseudonym := p.Pseudonym(field, value)
	now := p.now().UTC()
	mapping := &models.PseudonymizationMapping{
		Pseudonym:     pseudonym,
		OriginalValue: value,
		FieldName:     field,
		Method:        models.MethodDeterministicHash,
		CreatedAt:     now,
		ExpiresAt:     now.Add(p.mappingTTL),
		Reversible:    true,
	}
	if err := p.store.Save(ctx, mapping); err != nil {
		return "", err
	}
	return pseudonym, nil
}

// Reveal resolves a pseudonym back to its original value. Missing, expired
// and non-reversible mappings all surface as the same not-found error so
// callers cannot distinguish expiry from absence.
func (p *Policy) Reveal(ctx context.Context, pseudonym string) (string, error) {
	mapping, err := p.store.FindByPseudonym(ctx, pseudonym)
	if err != nil {
		return "", err
	}
	if mapping == nil || !mapping.Reversible || mapping.Expired(p.now().UTC()) {
		if mapping != nil {
			p.log.Debug("pseudonym mapping not reversible", zap.String("pseudonym", pseudonym))
		}
		return "", errors.ErrMappingExpired
	}
	return mapping.OriginalValue, nil
}
