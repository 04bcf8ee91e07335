// Package audit captures structured audit events for registry mutations.
//
// Emission is fail-open: a mutation that committed is never rolled back or
// failed because its audit event could not be recorded. Events flow through
// a buffered channel into a worker that persists them and optionally fans
// out to Kafka.
package audit

import (
	"time"

	"github.com/google/uuid"

	"certledger/pkg/domain"
)

// Action identifies the mutation that produced an event.
type Action string

const (
	ActionInstitutionRegistered  Action = "institution_registered"
	ActionInstitutionDeactivated Action = "institution_deactivated"
	ActionCertificateIssued      Action = "certificate_issued"
	ActionCertificateRevoked     Action = "certificate_revoked"
)

// EntityKind distinguishes which record family an event refers to.
type EntityKind string

const (
	EntityInstitution EntityKind = "institution"
	EntityCertificate EntityKind = "certificate"
)

// Event is emitted from the engine after a mutation commits. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Action     Action         `json:"action"`
	Actor      domain.Address `json:"actor"`
	EntityKind EntityKind     `json:"entity_kind"`
	EntityID   uint64         `json:"entity_id"`
	RequestID  string         `json:"request_id,omitempty"`
	ClientIP   string         `json:"client_ip,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
