package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/recallhq/recall/internal/cryptox"
	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store/remote"
)

// offloadArtifact replaces an oversized inline payload with a storage key
// after sealing the bytes under the owner key and uploading them. Small
// payloads stay inline; the envelope seal covers them.
func (r *Repo) offloadArtifact(ctx context.Context, rec *models.Record) error {
	var a models.Artifact
	if err := json.Unmarshal(rec.Payload.Body, &a); err != nil {
		return fmt.Errorf("decode artifact body: %w", err)
	}

	if a.StorageKey != "" || len(a.Inline) <= remote.InlineBlobLimit {
		return nil
	}

	key, err := r.sess.OwnerKey(rec.OwnerID)
	if err != nil {
		return fmt.Errorf("owner key: %w", err)
	}

	storageKey := remote.NewStorageKey(rec.OwnerID)
	if err := r.blobs.Put(ctx, storageKey, sealBlob(a.Inline, key)); err != nil {
		return fmt.Errorf("offload artifact: %w", err)
	}

	a.Inline = nil
	a.StorageKey = storageKey

	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode artifact body: %w", err)
	}
	rec.Payload.Body = body
	return nil
}

// sealBlob encrypts raw bytes and prepends the nonce so the blob is
// self-contained.
func sealBlob(data []byte, key []byte) []byte {
	ciphertext, nonce, err := cryptox.Encrypt(data, key)
	if err != nil {
		// AES key sizes are validated at session setup; encryption of
		// in-memory bytes cannot fail afterwards
		panic(err)
	}
	return append(nonce, ciphertext...)
}

// unsealBlob reverses sealBlob.
func unsealBlob(sealed []byte, key []byte) ([]byte, error) {
	if len(sealed) < cryptox.NonceSize {
		return nil, fmt.Errorf("sealed blob too short")
	}
	var data []byte
	if err := cryptox.Decrypt(sealed[cryptox.NonceSize:], sealed[:cryptox.NonceSize], key, &data); err != nil {
		return nil, err
	}
	return data, nil
}
