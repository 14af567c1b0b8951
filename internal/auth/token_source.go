package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/desertthunder/hitqr/internal/shared"
)

// refreshableTokenSource wraps a source and calls callback whenever the access token changes.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (s *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.source.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := token.AccessToken != s.last
	s.last = token.AccessToken
	s.mu.Unlock()

	if changed && s.callback != nil {
		s.callback(token)
	}
	return token, nil
}

// storedTokenSource reads the token from the store on every call, so a login after the client was built is
// picked up and a logout stops handing out tokens.
type storedTokenSource struct {
	ctx  context.Context
	auth *Authenticator
}

func (s *storedTokenSource) Token() (*oauth2.Token, error) {
	return s.auth.token(s.ctx)
}

// token returns the stored token, refreshing it through a [refreshableTokenSource] that writes the new token back.
func (a *Authenticator) token(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	stored, err := a.load()
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: no stored token", shared.ErrNotAuthenticated)
	}
	if stored.Valid() {
		return stored, nil
	}

	source := &refreshableTokenSource{
		source: a.config.TokenSource(ctx, stored),
		last:   stored.AccessToken,
		callback: func(t *oauth2.Token) {
			if err := a.persist(t); err != nil {
				a.logger.Error("failed to store refreshed token", "error", err)
			}
		},
	}
	return source.Token()
}
