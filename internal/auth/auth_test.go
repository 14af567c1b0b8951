package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/repositories"
	"github.com/desertthunder/hitqr/internal/shared"
)

// tokenServer fakes the Spotify accounts token endpoint.
type tokenServer struct {
	mu        sync.Mutex
	verifiers []string
	refreshes int
}

func (s *tokenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.Form.Get("grant_type") {
	case "authorization_code":
		s.verifiers = append(s.verifiers, r.Form.Get("code_verifier"))
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access1", "refresh_token": "refresh1", "token_type": "Bearer",
			"expires_in": 3600, "scope": "user-read-private",
		})
	case "refresh_token":
		s.refreshes++
		if r.Form.Get("refresh_token") != "refresh1" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access2", "token_type": "Bearer", "expires_in": 3600,
		})
	default:
		http.Error(w, "unsupported grant", http.StatusBadRequest)
	}
}

func setupAuthenticator(t *testing.T) (*Authenticator, *repositories.CredentialRepository, *tokenServer) {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ts := &tokenServer{}
	server := httptest.NewServer(ts)
	t.Cleanup(server.Close)

	store := repositories.NewCredentialRepository(db)
	a := NewAuthenticator(shared.SpotifyConfig{ClientID: "client", RedirectURI: "http://127.0.0.1:3000/callback"}, store, nil)
	a.config.Endpoint.TokenURL = server.URL + "/api/token"
	return a, store, ts
}

func saveToken(t *testing.T, store *repositories.CredentialRepository, access, refresh string, expiry time.Time) {
	t.Helper()
	if err := store.Save(models.NewCredential(Provider, access, refresh, "Bearer", expiry)); err != nil {
		t.Fatalf("failed to save token: %v", err)
	}
}

func TestAuthenticator(t *testing.T) {
	ctx := context.Background()

	t.Run("Begin", func(t *testing.T) {
		a, _, _ := setupAuthenticator(t)

		authURL, verifier, state, err := a.Begin()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if verifier == "" || state == "" {
			t.Fatal("expected verifier and state")
		}

		u, err := url.Parse(authURL)
		if err != nil {
			t.Fatalf("invalid auth url: %v", err)
		}
		q := u.Query()
		if q.Get("client_id") != "client" || q.Get("state") != state {
			t.Errorf("unexpected query: %v", q)
		}
		if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
			t.Errorf("expected PKCE challenge, got %v", q)
		}
		if q.Get("code_challenge") == verifier {
			t.Error("challenge must not be the raw verifier")
		}
		if !strings.Contains(q.Get("scope"), "user-modify-playback-state") {
			t.Errorf("expected playback scope, got %q", q.Get("scope"))
		}

		_, _, state2, _ := a.Begin()
		if state2 == state {
			t.Error("state should differ between logins")
		}
	})

	t.Run("Complete", func(t *testing.T) {
		a, store, ts := setupAuthenticator(t)

		token, err := a.Complete(ctx, "good-code", "my-verifier")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token.AccessToken != "access1" {
			t.Errorf("unexpected token %q", token.AccessToken)
		}
		if len(ts.verifiers) != 1 || ts.verifiers[0] != "my-verifier" {
			t.Errorf("expected verifier to be sent, got %v", ts.verifiers)
		}

		stored, err := store.GetByProvider(Provider)
		if err != nil {
			t.Fatalf("expected stored credential: %v", err)
		}
		if stored.RefreshToken != "refresh1" || stored.Scope != "user-read-private" {
			t.Errorf("unexpected stored credential: %+v", stored)
		}
	})

	t.Run("Complete Bad Code", func(t *testing.T) {
		a, store, _ := setupAuthenticator(t)

		_, err := a.Complete(ctx, "bad-code", "v")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if _, err := store.GetByProvider(Provider); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Error("nothing should be stored after a failed exchange")
		}
	})

	t.Run("ValidToken", func(t *testing.T) {
		t.Run("Nothing Stored", func(t *testing.T) {
			a, _, _ := setupAuthenticator(t)
			token, err := a.ValidToken(ctx)
			if err != nil || token != nil {
				t.Errorf("expected nil, nil; got %v, %v", token, err)
			}
		})

		t.Run("Still Valid", func(t *testing.T) {
			a, store, ts := setupAuthenticator(t)
			saveToken(t, store, "access1", "refresh1", time.Now().Add(time.Hour))

			token, err := a.ValidToken(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token.AccessToken != "access1" {
				t.Errorf("expected stored token, got %q", token.AccessToken)
			}
			if ts.refreshes != 0 {
				t.Errorf("expected no refresh, got %d", ts.refreshes)
			}
		})

		t.Run("Expired Is Refreshed And Stored", func(t *testing.T) {
			a, store, ts := setupAuthenticator(t)
			saveToken(t, store, "access1", "refresh1", time.Now().Add(-time.Hour))

			token, err := a.ValidToken(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token == nil || token.AccessToken != "access2" {
				t.Fatalf("expected refreshed token, got %v", token)
			}

			stored, err := store.GetByProvider(Provider)
			if err != nil {
				t.Fatalf("failed to load stored token: %v", err)
			}
			if stored.AccessToken != "access2" || stored.RefreshToken != "refresh1" {
				t.Errorf("expected refreshed token to be stored, got %+v", stored)
			}

			if _, err := a.ValidToken(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ts.refreshes != 1 {
				t.Errorf("expected a single refresh, got %d", ts.refreshes)
			}
		})

		t.Run("Refresh Failure", func(t *testing.T) {
			a, store, _ := setupAuthenticator(t)
			saveToken(t, store, "access1", "revoked", time.Now().Add(-time.Hour))

			token, err := a.ValidToken(ctx)
			if err != nil || token != nil {
				t.Errorf("expected nil, nil; got %v, %v", token, err)
			}
		})
	})

	t.Run("Client", func(t *testing.T) {
		a, store, _ := setupAuthenticator(t)
		saveToken(t, store, "access1", "refresh1", time.Now().Add(time.Hour))

		var got string
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
		}))
		defer api.Close()

		resp, err := a.Client(ctx).Get(api.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()

		if got != "Bearer access1" {
			t.Errorf("expected bearer token, got %q", got)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		a, store, _ := setupAuthenticator(t)
		saveToken(t, store, "access1", "refresh1", time.Now().Add(time.Hour))
		source := a.TokenSource(ctx)

		for i := range 2 {
			if err := a.Clear(ctx); err != nil {
				t.Fatalf("Clear call %d failed: %v", i+1, err)
			}
		}

		if _, err := source.Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated after clear, got %v", err)
		}
	})
}

func TestRefreshableTokenSource(t *testing.T) {
	t.Run("calls callback when token changes", func(t *testing.T) {
		var captured []string
		mockSource := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}
		source := &refreshableTokenSource{
			source:   mockSource,
			callback: func(token *oauth2.Token) { captured = append(captured, token.AccessToken) },
		}

		source.Token()
		source.Token()
		mockSource.token = &oauth2.Token{AccessToken: "token2"}
		token, err := source.Token()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(captured) != 2 || captured[0] != "token1" || captured[1] != "token2" {
			t.Errorf("expected callbacks for token1 and token2, got %v", captured)
		}
		if token.AccessToken != "token2" {
			t.Errorf("expected new token, got %s", token.AccessToken)
		}
	})

	t.Run("skips callback for the seeded token", func(t *testing.T) {
		called := false
		source := &refreshableTokenSource{
			source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "same"}},
			last:     "same",
			callback: func(*oauth2.Token) { called = true },
		}

		if _, err := source.Token(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if called {
			t.Error("callback should not run for an unchanged token")
		}
	})

	t.Run("handles nil callback gracefully", func(t *testing.T) {
		source := &refreshableTokenSource{source: &mockTokenSource{token: &oauth2.Token{AccessToken: "t"}}}
		token, err := source.Token()
		if err != nil || token.AccessToken != "t" {
			t.Errorf("unexpected result %v, %v", token, err)
		}
	})

	t.Run("propagates source errors", func(t *testing.T) {
		source := &refreshableTokenSource{
			source:   &mockTokenSource{err: errors.New("token source error")},
			callback: func(*oauth2.Token) { t.Error("callback should not be called on error") },
		}

		token, err := source.Token()
		if err == nil || !strings.Contains(err.Error(), "token source error") {
			t.Errorf("expected source error, got %v", err)
		}
		if token != nil {
			t.Error("expected nil token on error")
		}
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
