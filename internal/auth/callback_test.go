package auth

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func newCallbackConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}
}

func TestCallbackHandler(t *testing.T) {
	t.Run("Successful Exchange", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"granted","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`)
		}))
		defer tokenServer.Close()

		handler := NewCallbackHandler(newCallbackConfig(tokenServer.URL), "expected-state")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=expected-state&code=auth-code", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "tunescope is connected") {
			t.Error("expected a success page for the browser")
		}

		result := <-handler.Result()
		if result.Error() != nil {
			t.Fatalf("expected no error, got %v", result.Error())
		}
		if result.Token.AccessToken != "granted" {
			t.Errorf("expected exchanged token, got %s", result.Token.AccessToken)
		}
	})

	t.Run("State Mismatch", func(t *testing.T) {
		handler := NewCallbackHandler(newCallbackConfig("http://unused"), "expected-state")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=forged&code=auth-code", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected a state validation error")
		}
	})

	t.Run("User Denied Consent", func(t *testing.T) {
		handler := NewCallbackHandler(newCallbackConfig("http://unused"), "expected-state")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=expected-state&error=access_denied", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected an authorization error")
		}
		if !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected the provider's error code in the message, got %v", result.Error())
		}
	})

	t.Run("Second Hit Rejected", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"granted","token_type":"Bearer","expires_in":3600}`)
		}))
		defer tokenServer.Close()

		handler := NewCallbackHandler(newCallbackConfig(tokenServer.URL), "expected-state")

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?state=expected-state&code=one", nil))

		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?state=expected-state&code=two", nil))

		if second.Code != http.StatusBadRequest {
			t.Errorf("expected replayed callback to be rejected, got %d", second.Code)
		}
	})
}
