package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers screening activity that must be reproducible
	// for regulators: who searched what, and what the sources returned.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers credential rejections, quota breaches and
	// credential lifecycle changes.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers operator actions with no regulatory weight.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// Raw credentials never appear in events; Subject is the credential owner's
// display name.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	Subject   string
	Reason    string

	// Screening enrichment
	Query             string
	TotalHits         int
	FailedSources     []string
	ChallengedSources []string

	// Request enrichment
	RequestID   string
	ClientIP    string
	ClientAgent string
}

type AuditEvent string

const (
	EventScreeningPerformed   AuditEvent = "screening_performed"
	EventRateLimitExceeded    AuditEvent = "rate_limit_exceeded"
	EventAuthRejected         AuditEvent = "auth_rejected"
	EventCredentialRegistered AuditEvent = "credential_registered"
	EventCredentialRevoked    AuditEvent = "credential_revoked"
	EventRateLimitReset       AuditEvent = "rate_limit_reset"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventScreeningPerformed: CategoryCompliance,

	EventRateLimitExceeded:    CategorySecurity,
	EventAuthRejected:         CategorySecurity,
	EventCredentialRegistered: CategorySecurity,
	EventCredentialRevoked:    CategorySecurity,

	EventRateLimitReset: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Normalize fills Category and Timestamp when the emitter left them empty.
func (e Event) Normalize(now time.Time) Event {
	if e.Category == "" {
		e.Category = AuditEvent(e.Action).Category()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e
}
