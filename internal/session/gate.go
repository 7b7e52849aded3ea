package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/zaziork/photocat-client/internal/models"
)

// Gate tracks whether a credential token is held. Every data-fetching
// operation checks the gate rather than inferring auth from data presence.
// A false-to-true transition fires the registered callback exactly once per
// transition; the engine uses it for the initial record fetch.
type Gate struct {
	mu   sync.Mutex
	cred *models.Credential
	// csrf holds the latest csrftoken cookie value. The API sets the cookie
	// on the login response itself, before a credential is installed, so it
	// cannot live only on the credential.
	csrf     string
	store    *CredentialStore
	onChange func(authenticated bool)
	logger   *zap.Logger
}

// NewGate builds a Gate. store may be nil to disable persistence.
func NewGate(store *CredentialStore, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{store: store, logger: logger}
}

// OnChange registers the authentication transition callback. It is invoked
// outside the gate's lock, with true only on unauthenticated->authenticated.
func (g *Gate) OnChange(fn func(authenticated bool)) {
	g.mu.Lock()
	g.onChange = fn
	g.mu.Unlock()
}

// Restore loads a persisted credential, discarding tokens whose JWT expiry
// has passed. Missing store or missing row leaves the gate unauthenticated.
func (g *Gate) Restore() error {
	if g.store == nil {
		return nil
	}
	cred, ok, err := g.store.Load()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if tokenExpired(cred.Token) {
		g.logger.Info("discarding expired session token", zap.String("username", cred.Username))
		return g.store.Clear()
	}
	g.SetCredential(cred)
	return nil
}

// Authenticated reports whether a credential is currently held.
func (g *Gate) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cred != nil
}

// Credential returns the held credential. Implements the API client's
// credential source.
func (g *Gate) Credential() (models.Credential, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cred == nil {
		return models.Credential{}, false
	}
	return *g.cred, true
}

// SetCredential installs a credential, persisting it and firing the change
// callback on a false-to-true transition.
func (g *Gate) SetCredential(cred models.Credential) {
	g.mu.Lock()
	was := g.cred != nil
	if cred.CSRFToken == "" {
		cred.CSRFToken = g.csrf
	} else {
		g.csrf = cred.CSRFToken
	}
	copied := cred
	g.cred = &copied
	fn := g.onChange
	g.mu.Unlock()

	g.persist(cred)
	if !was && fn != nil {
		fn(true)
	}
}

// ClearCredential drops the credential and wipes persistence. Fires the
// change callback with false on a true-to-false transition.
func (g *Gate) ClearCredential() {
	g.mu.Lock()
	was := g.cred != nil
	g.cred = nil
	g.csrf = ""
	fn := g.onChange
	g.mu.Unlock()

	if g.store != nil {
		if err := g.store.Clear(); err != nil {
			g.logger.Warn("failed to clear persisted credential", zap.Error(err))
		}
	}
	if was && fn != nil {
		fn(false)
	}
}

// SetCSRFToken records the csrftoken cookie value. The cookie may arrive
// before the credential does (it is set on the login response), so it is held
// here and copied onto the credential when that is installed. Implements the
// API client's CSRF sink.
func (g *Gate) SetCSRFToken(token string) {
	g.mu.Lock()
	g.csrf = token
	if g.cred == nil || g.cred.CSRFToken == token {
		g.mu.Unlock()
		return
	}
	g.cred.CSRFToken = token
	cred := *g.cred
	g.mu.Unlock()

	g.persist(cred)
}

func (g *Gate) persist(cred models.Credential) {
	if g.store == nil {
		return
	}
	if err := g.store.Save(cred); err != nil {
		g.logger.Warn("failed to persist credential", zap.Error(err))
	}
}

// tokenExpired inspects a token that happens to be a JWT for a past exp
// claim. Opaque (non-JWT) tokens are assumed live; the API is the authority
// and will reject them if not.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
