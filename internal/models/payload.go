package models

import (
	"encoding/json"
	"time"
)

// Envelope carries a record payload split into a queryable part and a
// sensitive part. Title stays plaintext everywhere so the remote store can
// filter without decryption; Body is the part the encryption boundary seals.
type Envelope struct {
	Kind  Kind            `json:"kind"`
	Title string          `json:"title"`
	Body  json.RawMessage `json:"body,omitempty"`

	// CipherBody and Nonce replace Body while the envelope is sealed for
	// the remote store.
	CipherBody []byte `json:"cipher_body,omitempty"`
	Nonce      []byte `json:"nonce,omitempty"`
}

// Sealed reports whether the envelope currently carries ciphertext instead
// of a plaintext body.
func (e Envelope) Sealed() bool {
	return len(e.CipherBody) > 0
}

// Wrap builds an Envelope around a typed payload body.
func Wrap[T TypedPayload](title string, v T) (Envelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: v.GetKind(), Title: title, Body: b}, nil
}

// Unwrap decodes the plaintext body into its kind-specific type.
// Unknown kinds decode into a generic map.
func (e Envelope) Unwrap() (any, error) {
	switch e.Kind {
	case KindSession:
		var v CaptureSession
		return v, json.Unmarshal(e.Body, &v)
	case KindSegment:
		var v TranscriptSegment
		return v, json.Unmarshal(e.Body, &v)
	case KindSummary:
		var v Summary
		return v, json.Unmarshal(e.Body, &v)
	case KindArtifact:
		var v Artifact
		return v, json.Unmarshal(e.Body, &v)
	default:
		var m map[string]any
		if err := json.Unmarshal(e.Body, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
}

// TypedPayload is implemented by all kind-specific payload bodies.
type TypedPayload interface {
	GetKind() Kind
}

// CaptureSession describes one recording session of the capture pipeline.
type CaptureSession struct {
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	App       string    `json:"app"`
	Display   string    `json:"display"`
}

func (x CaptureSession) GetKind() Kind { return KindSession }

// TranscriptSegment is a slice of recognized speech/screen text.
type TranscriptSegment struct {
	SessionID string `json:"session_id"`
	Speaker   string `json:"speaker,omitempty"`
	Text      string `json:"text"`
	StartMs   int64  `json:"start_ms"`
	EndMs     int64  `json:"end_ms"`
}

func (x TranscriptSegment) GetKind() Kind { return KindSegment }

// Summary is an AI-derived summary of a session.
type Summary struct {
	SessionID string `json:"session_id"`
	Model     string `json:"model,omitempty"`
	Text      string `json:"text"`
}

func (x Summary) GetKind() Kind { return KindSummary }

// Artifact references a captured binary (frame grab, audio chunk). Large
// artifacts are offloaded to blob storage in cloud mode; StorageKey points
// at the uploaded object, Inline carries small payloads directly.
type Artifact struct {
	SessionID  string `json:"session_id"`
	MediaType  string `json:"media_type"`
	StorageKey string `json:"storage_key,omitempty"`
	Inline     []byte `json:"inline,omitempty"`
}

func (x Artifact) GetKind() Kind { return KindArtifact }
