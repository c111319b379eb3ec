package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunescope/internal/shared"
	"golang.org/x/oauth2"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	// ScopeReadonly is the only scope this application requests.
	ScopeReadonly = "https://www.googleapis.com/auth/youtube.readonly"

	// ExpiryMargin is the safety window before token expiry. A token inside
	// the margin is refreshed before it is handed out.
	ExpiryMargin = 60 * time.Second
)

// TokenState classifies a stored token relative to the expiry margin.
type TokenState int

const (
	StateValid TokenState = iota
	StateNeedsRefresh
	StateExpired
)

// Session owns the OAuth token lifecycle. All token access goes through
// [Session.Token]; refresh is a mutually exclusive critical section so
// concurrent callers share one refresh result instead of racing the provider.
type Session struct {
	config *oauth2.Config
	store  *TokenStore
	logger *log.Logger

	mu    sync.Mutex
	token *oauth2.Token
	now   func() time.Time
}

// NewSession creates a session from the installed-app client descriptor.
func NewSession(cfg shared.GoogleConfig, store *TokenStore, logger *log.Logger) (*Session, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: google client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:8484/callback"
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{ScopeReadonly},
		Endpoint: oauth2.Endpoint{
			AuthURL:  googleAuthURL,
			TokenURL: googleTokenURL,
		},
	}

	return &Session{
		config: config,
		store:  store,
		logger: logger,
		now:    time.Now,
	}, nil
}

// classify reports where the token sits relative to the expiry margin.
func classify(token *oauth2.Token, now time.Time) TokenState {
	if token.Expiry.IsZero() || now.Before(token.Expiry.Add(-ExpiryMargin)) {
		return StateValid
	}
	if now.Before(token.Expiry) {
		return StateNeedsRefresh
	}
	return StateExpired
}

// Token returns a token that is valid for at least [ExpiryMargin].
//
// Fails with [shared.ErrAuthRequired] when no credential has ever been
// stored, and with [shared.ErrAuthExpired] when the stored credential cannot
// be refreshed. Exactly one refresh runs at a time; waiters receive the
// refreshed token rather than triggering their own network calls.
func (s *Session) Token(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil {
		token, err := s.store.Load()
		if err != nil {
			return nil, err
		}
		if token == nil {
			return nil, fmt.Errorf("%w: run `tunescope auth login`", shared.ErrAuthRequired)
		}
		s.token = token
	}

	switch classify(s.token, s.now()) {
	case StateValid:
		return cloneToken(s.token), nil
	case StateNeedsRefresh, StateExpired:
		return s.refreshLocked(ctx)
	}

	return cloneToken(s.token), nil
}

// refreshLocked attempts a single refresh. Callers must hold s.mu.
func (s *Session) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	if s.token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token stored", shared.ErrAuthExpired)
	}

	s.logger.Debug("refreshing access token", "expiry", s.token.Expiry)

	// oauth2's token source reuses a token it still considers live, and its
	// internal expiry delta is shorter than [ExpiryMargin]. Seed it with an
	// invalidated copy so a refresh request always goes out.
	seed := *s.token
	seed.AccessToken = ""

	refreshed, err := s.config.TokenSource(ctx, &seed).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", shared.ErrAuthExpired, shared.ErrRefreshFailed, err)
	}

	// The provider may omit the refresh token on renewal; keep the old one.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = s.token.RefreshToken
	}
	s.token = refreshed

	if err := s.store.Save(refreshed); err != nil {
		s.logger.Warn("failed to persist refreshed token", "err", err)
	}

	return cloneToken(s.token), nil
}

// AuthURL returns the consent URL for the given state token.
func (s *Session) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Authenticated reports whether a credential exists in the store, and whether
// it is currently inside its validity window.
func (s *Session) Authenticated() (exists, valid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := s.token
	if token == nil {
		loaded, err := s.store.Load()
		if err != nil || loaded == nil {
			return false, false
		}
		token = loaded
	}

	return true, classify(token, s.now()) == StateValid
}

// Login runs the interactive installed-app flow: opens the consent URL in the
// user's browser, captures the redirect on a loopback listener, exchanges the
// authorization code, and persists the resulting token.
//
// This is the one unbounded-wait point in the application; callers bound it
// with ctx.
func (s *Session) Login(ctx context.Context) (*oauth2.Token, error) {
	redirect, err := url.Parse(s.config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redirect_uri: %v", shared.ErrInvalidConfig, err)
	}

	state := shared.GenerateState()
	handler := NewCallbackHandler(s.config, state)

	mux := http.NewServeMux()
	mux.Handle(redirect.Path, handler)
	server := &http.Server{Handler: mux}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to bind callback listener on %s: %w", redirect.Host, err)
	}

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Warn("callback server stopped", "err", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	authURL := s.AuthURL(state)
	s.logger.Info("opening browser for consent", "url", authURL)
	if err := shared.OpenBrowser(authURL); err != nil {
		s.logger.Warn("could not open browser, visit the URL manually", "err", err)
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: consent flow cancelled: %v", shared.ErrAuthRequired, ctx.Err())
	case result := <-handler.Result():
		if result.Error() != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthRequired, result.Error())
		}

		s.mu.Lock()
		s.token = result.Token
		s.mu.Unlock()

		if err := s.store.Save(result.Token); err != nil {
			return nil, err
		}

		s.logger.Info("authentication successful", "expiry", result.Token.Expiry)
		return result.Token, nil
	}
}

func cloneToken(t *oauth2.Token) *oauth2.Token {
	copied := *t
	return &copied
}
