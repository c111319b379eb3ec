package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/tunescope/internal/shared"
	"golang.org/x/oauth2"
)

func newTestSession(t *testing.T) (*Session, *TokenStore) {
	t.Helper()

	store := NewTokenStore(filepath.Join(t.TempDir(), "token.json"), []string{ScopeReadonly})
	session, err := NewSession(shared.GoogleConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
	}, store, shared.NewLogger(nil))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	return session, store
}

// newRefreshServer stands in for the provider's token endpoint.
func newRefreshServer(t *testing.T, session *Session, handler http.HandlerFunc) *atomic.Int64 {
	t.Helper()

	var refreshes atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	session.config.Endpoint.TokenURL = server.URL

	return &refreshes
}

func TestNewSession(t *testing.T) {
	t.Run("With Valid Credentials", func(t *testing.T) {
		session, _ := newTestSession(t)
		if session.config.Scopes[0] != ScopeReadonly {
			t.Errorf("expected readonly scope, got %v", session.config.Scopes)
		}
	})

	t.Run("Missing Client ID", func(t *testing.T) {
		store := NewTokenStore(filepath.Join(t.TempDir(), "token.json"), nil)
		_, err := NewSession(shared.GoogleConfig{ClientSecret: "secret"}, store, shared.NewLogger(nil))
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Missing Client Secret", func(t *testing.T) {
		store := NewTokenStore(filepath.Join(t.TempDir(), "token.json"), nil)
		_, err := NewSession(shared.GoogleConfig{ClientID: "id"}, store, shared.NewLogger(nil))
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Default Redirect URI", func(t *testing.T) {
		session, _ := newTestSession(t)
		if session.config.RedirectURL != "http://127.0.0.1:8484/callback" {
			t.Errorf("unexpected redirect URL %s", session.config.RedirectURL)
		}
	})
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Valid Outside Margin", func(t *testing.T) {
		token := &oauth2.Token{Expiry: now.Add(time.Hour)}
		if classify(token, now) != StateValid {
			t.Error("expected a token an hour from expiry to be valid")
		}
	})

	t.Run("Needs Refresh Inside Margin", func(t *testing.T) {
		token := &oauth2.Token{Expiry: now.Add(30 * time.Second)}
		if classify(token, now) != StateNeedsRefresh {
			t.Error("expected a token 30s from expiry to need refresh")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		token := &oauth2.Token{Expiry: now.Add(-time.Minute)}
		if classify(token, now) != StateExpired {
			t.Error("expected a past-expiry token to be expired")
		}
	})

	t.Run("Zero Expiry Never Refreshes", func(t *testing.T) {
		if classify(&oauth2.Token{}, now) != StateValid {
			t.Error("expected a token without expiry to be treated as valid")
		}
	})
}

func TestSessionToken(t *testing.T) {
	t.Run("No Stored Credential", func(t *testing.T) {
		session, _ := newTestSession(t)

		_, err := session.Token(context.Background())
		if !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
	})

	t.Run("Valid Token Served Without Refresh", func(t *testing.T) {
		session, store := newTestSession(t)
		refreshes := newRefreshServer(t, session, func(w http.ResponseWriter, r *http.Request) {})

		saved := &oauth2.Token{
			AccessToken:  "live-token",
			RefreshToken: "refresh-token",
			Expiry:       time.Now().Add(time.Hour),
		}
		if err := store.Save(saved); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		token, err := session.Token(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "live-token" {
			t.Errorf("expected stored token, got %s", token.AccessToken)
		}
		if refreshes.Load() != 0 {
			t.Errorf("expected no refresh for a valid token, got %d", refreshes.Load())
		}
	})

	t.Run("Refreshes Inside Expiry Margin", func(t *testing.T) {
		session, store := newTestSession(t)
		refreshes := newRefreshServer(t, session, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			// The provider omits the refresh token on renewal.
			fmt.Fprint(w, `{"access_token":"renewed-token","token_type":"Bearer","expires_in":3600}`)
		})

		// 30s to expiry: inside our margin, but a window where oauth2's own
		// reuse logic would still consider the token live.
		if err := store.Save(&oauth2.Token{
			AccessToken:  "stale-token",
			RefreshToken: "refresh-token",
			Expiry:       time.Now().Add(30 * time.Second),
		}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		token, err := session.Token(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "renewed-token" {
			t.Errorf("expected refreshed token, got %s", token.AccessToken)
		}
		if token.RefreshToken != "refresh-token" {
			t.Errorf("expected the old refresh token to be kept, got %s", token.RefreshToken)
		}
		if refreshes.Load() != 1 {
			t.Errorf("expected exactly one refresh, got %d", refreshes.Load())
		}

		// The renewed credential is persisted for the next invocation.
		persisted, err := store.Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if persisted.AccessToken != "renewed-token" {
			t.Errorf("expected renewed token on disk, got %s", persisted.AccessToken)
		}
	})

	t.Run("Expired Without Refresh Token", func(t *testing.T) {
		session, store := newTestSession(t)

		if err := store.Save(&oauth2.Token{
			AccessToken: "stale-token",
			Expiry:      time.Now().Add(-time.Hour),
		}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, err := session.Token(context.Background())
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Errorf("expected ErrAuthExpired, got %v", err)
		}
	})

	t.Run("Provider Rejects Refresh", func(t *testing.T) {
		session, store := newTestSession(t)
		newRefreshServer(t, session, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
		})

		if err := store.Save(&oauth2.Token{
			AccessToken:  "stale-token",
			RefreshToken: "revoked",
			Expiry:       time.Now().Add(-time.Hour),
		}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, err := session.Token(context.Background())
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Errorf("expected ErrAuthExpired, got %v", err)
		}
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("Concurrent Callers Share One Refresh", func(t *testing.T) {
		session, store := newTestSession(t)
		refreshes := newRefreshServer(t, session, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"renewed-token","token_type":"Bearer","expires_in":3600}`)
		})

		if err := store.Save(&oauth2.Token{
			AccessToken:  "stale-token",
			RefreshToken: "refresh-token",
			Expiry:       time.Now().Add(30 * time.Second),
		}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var wg sync.WaitGroup
		errs := make([]error, 10)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = session.Token(context.Background())
			}()
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
		if refreshes.Load() != 1 {
			t.Errorf("expected one shared refresh, got %d", refreshes.Load())
		}
	})
}

func TestSessionAuthenticated(t *testing.T) {
	t.Run("No Credential", func(t *testing.T) {
		session, _ := newTestSession(t)
		if exists, _ := session.Authenticated(); exists {
			t.Error("expected no credential to exist")
		}
	})

	t.Run("Valid Credential", func(t *testing.T) {
		session, store := newTestSession(t)
		store.Save(&oauth2.Token{AccessToken: "x", Expiry: time.Now().Add(time.Hour)})

		exists, valid := session.Authenticated()
		if !exists || !valid {
			t.Errorf("expected a valid credential, got exists=%v valid=%v", exists, valid)
		}
	})

	t.Run("Stale Credential", func(t *testing.T) {
		session, store := newTestSession(t)
		store.Save(&oauth2.Token{AccessToken: "x", Expiry: time.Now().Add(-time.Hour)})

		exists, valid := session.Authenticated()
		if !exists {
			t.Error("expected the credential to exist")
		}
		if valid {
			t.Error("expected the credential to be stale")
		}
	})
}
