package identity

import (
	"testing"

	"github.com/billed-fr/billed-server/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapKV map[string]string

func (m mapKV) GetItem(key string) (string, bool) {
	value, ok := m[key]
	return value, ok
}

func TestKVProviderParsesUserEntry(t *testing.T) {
	provider := NewKVProvider(mapKV{"user": `{"type":"Employee","email":"employee@test.tld"}`})

	user, err := provider.Current()
	require.NoError(t, err)
	assert.Equal(t, "Employee", user.Type)
	assert.Equal(t, "employee@test.tld", user.Email)
}

func TestKVProviderMissingEntry(t *testing.T) {
	provider := NewKVProvider(mapKV{})

	_, err := provider.Current()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestKVProviderMalformedEntry(t *testing.T) {
	provider := NewKVProvider(mapKV{"user": "not json"})

	_, err := provider.Current()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAuthenticated)
}

func TestStaticProvider(t *testing.T) {
	user, err := Static{User: entity.User{Type: "Employee", Email: "e@t"}}.Current()
	require.NoError(t, err)
	assert.Equal(t, "e@t", user.Email)

	_, err = Static{}.Current()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
