package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zaziork/photocat-client/internal/models"
)

func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{"exp": time.Now().Add(expiresIn).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestGateTransitions(t *testing.T) {
	g := NewGate(nil, zap.NewNop())

	var events []bool
	g.OnChange(func(authenticated bool) { events = append(events, authenticated) })

	assert.False(t, g.Authenticated())
	_, ok := g.Credential()
	assert.False(t, ok)

	g.SetCredential(models.Credential{Token: "tok-1", Username: "ops"})
	assert.True(t, g.Authenticated())

	// Replacing an existing credential is not a transition.
	g.SetCredential(models.Credential{Token: "tok-2", Username: "ops"})
	assert.Equal(t, []bool{true}, events)

	cred, ok := g.Credential()
	require.True(t, ok)
	assert.Equal(t, "tok-2", cred.Token)

	g.ClearCredential()
	assert.False(t, g.Authenticated())
	// Clearing twice fires once.
	g.ClearCredential()
	assert.Equal(t, []bool{true, false}, events)
}

func TestGatePersistsThroughStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	store, err := OpenCredentialStore(path)
	require.NoError(t, err)
	defer store.Close()

	g := NewGate(store, zap.NewNop())
	g.SetCredential(models.Credential{Token: signedToken(t, time.Hour), Username: "ops"})
	g.SetCSRFToken("csrf-1")

	// A second gate over the same store restores the session.
	g2 := NewGate(store, zap.NewNop())
	var restored bool
	g2.OnChange(func(authenticated bool) { restored = authenticated })
	require.NoError(t, g2.Restore())

	assert.True(t, restored)
	cred, ok := g2.Credential()
	require.True(t, ok)
	assert.Equal(t, "ops", cred.Username)
	assert.Equal(t, "csrf-1", cred.CSRFToken)
}

func TestRestoreDiscardsExpiredToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	store, err := OpenCredentialStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(models.Credential{Token: signedToken(t, -time.Hour), Username: "ops"}))

	g := NewGate(store, zap.NewNop())
	require.NoError(t, g.Restore())
	assert.False(t, g.Authenticated(), "an expired token must not open the gate")

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok, "the expired credential is wiped from disk")
}

func TestRestoreKeepsOpaqueToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	store, err := OpenCredentialStore(path)
	require.NoError(t, err)
	defer store.Close()

	// DRF-style random hex tokens are not JWTs; only the server can judge
	// their validity.
	require.NoError(t, store.Save(models.Credential{Token: "9f2c1a77d0e4", Username: "ops"}))

	g := NewGate(store, zap.NewNop())
	require.NoError(t, g.Restore())
	assert.True(t, g.Authenticated())
}

func TestRestoreWithoutStore(t *testing.T) {
	g := NewGate(nil, zap.NewNop())
	require.NoError(t, g.Restore())
	assert.False(t, g.Authenticated())
}

func TestSetCSRFTokenWithoutCredential(t *testing.T) {
	g := NewGate(nil, zap.NewNop())
	g.SetCSRFToken("orphan")
	_, ok := g.Credential()
	assert.False(t, ok)
}

func TestCSRFTokenHeldUntilCredentialArrives(t *testing.T) {
	g := NewGate(nil, zap.NewNop())

	// The cookie lands during the login exchange, before the token does.
	g.SetCSRFToken("login-cookie")

	g.SetCredential(models.Credential{Token: "tok-1", Username: "ops"})
	cred, ok := g.Credential()
	require.True(t, ok)
	assert.Equal(t, "login-cookie", cred.CSRFToken)

	// The cookie does not outlive the session it was issued for.
	g.ClearCredential()
	g.SetCredential(models.Credential{Token: "tok-2", Username: "ops"})
	cred, _ = g.Credential()
	assert.Empty(t, cred.CSRFToken)
}

func TestTokenExpired(t *testing.T) {
	assert.True(t, tokenExpired(signedToken(t, -time.Minute)))
	assert.False(t, tokenExpired(signedToken(t, time.Minute)))
	assert.False(t, tokenExpired("not-a-jwt"), "opaque tokens are assumed live")

	// A JWT with no exp claim never expires locally.
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops"}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.False(t, tokenExpired(noExp))
}
