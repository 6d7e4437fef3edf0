// Package identity resolves the signed-in user for the submission and
// listing paths. The provider is an explicit constructor argument of
// everything that needs an email, never an ambient lookup.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/billed-fr/billed-server/internal/domain/entity"
)

// ErrNotAuthenticated is returned when no user entry is present.
var ErrNotAuthenticated = errors.New("no authenticated user")

// Provider resolves the current user.
type Provider interface {
	Current() (entity.User, error)
}

// KV is a minimal key-value accessor, the shape the session layer
// exposes (the "user" entry holds a JSON document).
type KV interface {
	GetItem(key string) (string, bool)
}

// userKey is the session entry holding the signed-in user document.
const userKey = "user"

// KVProvider reads the user from a key-value session accessor.
type KVProvider struct {
	kv KV
}

// NewKVProvider creates a provider over a session key-value accessor.
func NewKVProvider(kv KV) *KVProvider {
	return &KVProvider{kv: kv}
}

// Current parses the "user" entry as {type, email} JSON.
func (p *KVProvider) Current() (entity.User, error) {
	raw, ok := p.kv.GetItem(userKey)
	if !ok || raw == "" {
		return entity.User{}, ErrNotAuthenticated
	}

	var user entity.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return entity.User{}, fmt.Errorf("failed to parse user entry: %w", err)
	}
	return user, nil
}

// Static is a provider pinned to one user, used for per-session
// controllers once the request identity is known.
type Static struct {
	User entity.User
}

// Current returns the pinned user.
func (s Static) Current() (entity.User, error) {
	if s.User.Email == "" {
		return entity.User{}, ErrNotAuthenticated
	}
	return s.User, nil
}
