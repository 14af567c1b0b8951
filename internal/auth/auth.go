// package auth handles the Spotify login and keeps the stored token fresh.
//
// Login uses the authorization code flow with PKCE as a public client, so no client secret is configured.
// Tokens are persisted through a [TokenStore]; refreshed tokens are written back as soon as the
// oauth2 transport obtains them.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/services"
	"github.com/desertthunder/hitqr/internal/shared"
)

// errStorage marks token store failures.
var errStorage = errors.New("credential storage")

// Provider is the credential provider key for Spotify tokens.
const Provider = "spotify"

// Scopes requested at login.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"user-modify-playback-state",
	"user-read-playback-state",
	"playlist-read-private",
}

// TokenStore persists credentials. Implemented by [repositories.CredentialRepository].
type TokenStore interface {
	GetByProvider(provider string) (*models.Credential, error)
	Save(c *models.Credential) error
	DeleteAll() error
}

// Authenticator runs the login flow and hands out valid tokens.
type Authenticator struct {
	config *oauth2.Config
	store  TokenStore
	logger *log.Logger
	// mu serializes store access so concurrent requests refresh an expired token once.
	mu sync.Mutex
}

// NewAuthenticator creates an [Authenticator] for the configured Spotify app.
func NewAuthenticator(cfg shared.SpotifyConfig, store TokenStore, logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Authenticator{
		config: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   services.SpotifyAuthURL,
				TokenURL:  services.SpotifyTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:  store,
		logger: logger,
	}
}

// Config returns the underlying oauth2 configuration.
func (a *Authenticator) Config() *oauth2.Config {
	return a.config
}

// Begin starts a login. It returns the URL to open, the PKCE verifier and the state value, both of which must be
// kept until the redirect comes back.
func (a *Authenticator) Begin() (authURL, verifier, state string, err error) {
	state, err = randomState()
	if err != nil {
		return "", "", "", err
	}
	verifier = oauth2.GenerateVerifier()
	authURL = a.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	return authURL, verifier, state, nil
}

// Complete exchanges an authorization code using the verifier from [Authenticator.Begin] and stores the token.
func (a *Authenticator) Complete(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange failed: %w", shared.ErrAuthFailed, err)
	}

	if err := a.persist(token); err != nil {
		return nil, err
	}

	a.logger.Info("login complete", "expiry", token.Expiry)
	return token, nil
}

// ValidToken returns a usable token, refreshing and storing it when expired.
//
// It returns nil, nil when nothing is stored or the refresh fails, meaning the user has to log in again.
// Only storage failures are returned as errors.
func (a *Authenticator) ValidToken(ctx context.Context) (*oauth2.Token, error) {
	token, err := a.token(ctx)
	if err == nil {
		return token, nil
	}
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return nil, nil
	}
	if errors.Is(err, errStorage) {
		return nil, err
	}

	a.logger.Warn("token refresh failed", "error", err)
	return nil, nil
}

// TokenSource returns a source that refreshes the stored token as needed and writes refreshed tokens back.
//
// Tokens from the source fail with [shared.ErrNotAuthenticated] when nothing is stored.
func (a *Authenticator) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &storedTokenSource{ctx: ctx, auth: a}
}

// Client returns an HTTP client that authorizes requests with [Authenticator.TokenSource].
func (a *Authenticator) Client(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, a.TokenSource(ctx))
}

// Clear removes every stored credential. Safe to call when already logged out.
func (a *Authenticator) Clear(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.DeleteAll(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

func (a *Authenticator) load() (*oauth2.Token, error) {
	c, err := a.store.GetByProvider(Provider)
	if errors.Is(err, shared.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load credentials: %w", errStorage, err)
	}
	return tokenFromCredential(c), nil
}

func (a *Authenticator) persist(token *oauth2.Token) error {
	if err := a.store.Save(credentialFromToken(token)); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func tokenFromCredential(c *models.Credential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

func credentialFromToken(token *oauth2.Token) *models.Credential {
	c := models.NewCredential(Provider, token.AccessToken, token.RefreshToken, token.TokenType, token.Expiry)
	if scope, ok := token.Extra("scope").(string); ok {
		c.Scope = scope
	}
	return c
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
