// Package session owns the ephemeral per-session state: who the user is,
// whether they are authenticated, and whether the managed store is
// reachable. The mode selector derives the authoritative adapter from this
// context; nothing else may mutate it.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/recallhq/recall/internal/cryptox"
	"github.com/recallhq/recall/internal/store"
	"github.com/recallhq/recall/internal/store/local"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Context is the ephemeral session state. The zero value is the anonymous,
// offline session created at process start.
type Context struct {
	// OwnerID identifies the authenticated user; empty means anonymous.
	OwnerID string

	// Authenticated is true between a successful login and logout.
	Authenticated bool

	// Online reports reachability of the managed store.
	Online bool
}

// Manager holds the current session context and the master key derived at
// login. It is created anonymous at process start and reset on every
// login/logout transition; the key never leaves the process.
type Manager struct {
	mu        sync.Mutex
	ctx       Context
	masterKey []byte
	meta      *local.Meta
}

// NewManager returns an anonymous Manager using meta for cached auth data.
func NewManager(meta *local.Meta) *Manager {
	return &Manager{meta: meta}
}

// Current returns a copy of the session context.
func (m *Manager) Current() Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx
}

// Login derives the master key from the passphrase and verifies it against
// the locally cached verifier. The first login on a machine enrolls the
// user: a fresh salt and owner id are generated and cached. Authentication
// against the cloud happens out of process; this layer only consumes the
// resulting signal.
func (m *Manager) Login(ctx context.Context, username string, password []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	savedUser, err := m.meta.Get(ctx, local.MetaUsername)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return m.enroll(ctx, username, password)
	case err != nil:
		return fmt.Errorf("loading auth metadata: %w", err)
	}

	if string(savedUser) != username {
		return ErrUnauthorized
	}

	salt, err := m.meta.Get(ctx, local.MetaSalt)
	if err != nil {
		return fmt.Errorf("loading salt: %w", err)
	}
	verifier, err := m.meta.Get(ctx, local.MetaVerifier)
	if err != nil {
		return fmt.Errorf("loading verifier: %w", err)
	}
	ownerID, err := m.meta.Get(ctx, local.MetaOwnerID)
	if err != nil {
		return fmt.Errorf("loading owner id: %w", err)
	}

	candidate := cryptox.DeriveMasterKey(password, salt)
	if subtle.ConstantTimeCompare(verifier, cryptox.MakeVerifier(candidate)) == 0 {
		cryptox.WipeBytes(candidate)
		return ErrUnauthorized
	}

	m.masterKey = candidate
	m.ctx.OwnerID = string(ownerID)
	m.ctx.Authenticated = true
	return nil
}

// enroll caches salt, verifier and a fresh owner id for a first-time login.
// Must be called with mu held.
func (m *Manager) enroll(ctx context.Context, username string, password []byte) error {
	salt := cryptox.GenerateRandBytes(16)
	key := cryptox.DeriveMasterKey(password, salt)
	ownerID := uuid.NewString()

	pairs := map[string][]byte{
		local.MetaUsername: []byte(username),
		local.MetaSalt:     salt,
		local.MetaVerifier: cryptox.MakeVerifier(key),
		local.MetaOwnerID:  []byte(ownerID),
	}
	for name, value := range pairs {
		if err := m.meta.Set(ctx, name, value); err != nil {
			cryptox.WipeBytes(key)
			return fmt.Errorf("saving auth metadata: %w", err)
		}
	}

	m.masterKey = key
	m.ctx.OwnerID = ownerID
	m.ctx.Authenticated = true
	return nil
}

// Logout wipes the master key and resets the context to anonymous. Local
// caches of the last-known state stay on disk, read-only.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cryptox.WipeBytes(m.masterKey)
	m.masterKey = nil
	m.ctx = Context{Online: m.ctx.Online}
}

// SetOnline flips the connectivity flag and reports whether it changed.
func (m *Manager) SetOnline(online bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx.Online == online {
		return false
	}
	m.ctx.Online = online
	return true
}

// OwnerKey returns the per-owner encryption key for the current session.
// Fails when no session key is present or the owner does not match the
// authenticated user; the caller surfaces this as a decryption error.
func (m *Manager) OwnerKey(ownerID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.masterKey == nil {
		return nil, ErrNotAuthenticated
	}
	if ownerID != m.ctx.OwnerID {
		return nil, fmt.Errorf("owner %s: %w", ownerID, ErrUnauthorized)
	}
	return cryptox.DeriveOwnerKey(m.masterKey, ownerID)
}
