// Package seal is the encryption boundary between the logical Record and the
// remote store's wire form. Encode seals the sensitive envelope body under a
// per-owner key; Decode reverses it. The local path never passes through
// here, so local records stay byte-identical to the logical form.
package seal

import (
	"encoding/json"
	"fmt"

	"github.com/recallhq/recall/internal/cryptox"
	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store"
)

// KeyProvider resolves the per-owner encryption key for the current session.
// Key material lives in the session context only and is never persisted in a
// record.
type KeyProvider interface {
	OwnerKey(ownerID string) ([]byte, error)
}

// Sealer transforms records crossing into and out of the remote store.
type Sealer struct {
	keys KeyProvider
}

// New returns a Sealer drawing keys from the given provider.
func New(keys KeyProvider) *Sealer {
	return &Sealer{keys: keys}
}

// Encode returns a copy of rec with the envelope body encrypted for rec's
// owner. Title, kind, and timestamps pass through in plaintext so the remote
// store can filter without decryption.
func (s *Sealer) Encode(rec *models.Record) (*models.Record, error) {
	if rec.Encrypted {
		return rec, nil
	}

	key, err := s.keys.OwnerKey(rec.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("owner key: %w", store.ErrDecryption)
	}

	cipherBody, nonce, err := cryptox.Encrypt(rec.Payload.Body, key)
	if err != nil {
		return nil, fmt.Errorf("seal body: %w", err)
	}

	out := *rec
	out.Payload.Body = nil
	out.Payload.CipherBody = cipherBody
	out.Payload.Nonce = nonce
	out.Encrypted = true
	return &out, nil
}

// Decode returns a copy of rec with the envelope body decrypted. A missing
// or mismatched key fails with store.ErrDecryption; the condition is fatal
// for this single operation only.
func (s *Sealer) Decode(rec *models.Record) (*models.Record, error) {
	if !rec.Encrypted {
		return rec, nil
	}

	key, err := s.keys.OwnerKey(rec.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("owner key: %w", store.ErrDecryption)
	}

	var body json.RawMessage
	if err := cryptox.Decrypt(rec.Payload.CipherBody, rec.Payload.Nonce, key, &body); err != nil {
		return nil, fmt.Errorf("unseal body: %w", store.ErrDecryption)
	}

	out := *rec
	out.Payload.Body = body
	out.Payload.CipherBody = nil
	out.Payload.Nonce = nil
	out.Encrypted = false
	return &out, nil
}
