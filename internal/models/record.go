// Package models defines the logical Record persisted by the data-access
// layer and the typed payloads carried inside it.
package models

import "time"

// Kind classifies a record's payload.
type Kind string

const (
	KindSession  Kind = "session"
	KindSegment  Kind = "segment"
	KindSummary  Kind = "summary"
	KindArtifact Kind = "artifact"
)

// Record is the logical unit of user data. The same shape flows through both
// store adapters; only the Payload body differs between plaintext (local) and
// sealed (remote) form.
type Record struct {
	// ID is stable and globally unique across stores. Migration never
	// changes it.
	ID string

	// OwnerID identifies the user who created the record. Empty for
	// offline-only records; set during migration on login.
	OwnerID string

	// Kind classifies the payload.
	Kind Kind

	// Payload is the structured content envelope.
	Payload Envelope

	// UpdatedAt is the logical timestamp used for last-writer-wins
	// conflict resolution, in UTC.
	UpdatedAt time.Time

	// Encrypted is true only while the payload body is sealed for the
	// remote store.
	Encrypted bool
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	OwnerID string
	Kind    Kind
	Since   time.Time
	Until   time.Time
	Limit   int
	Offset  int
}
