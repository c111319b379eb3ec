// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// StaticTokenSource returns a fixed token, far from expiry, for exercising
// the gateway without a live session.
type StaticTokenSource struct {
	AccessToken string
	Err         error
}

func (s *StaticTokenSource) Token(ctx context.Context) (*oauth2.Token, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	token := s.AccessToken
	if token == "" {
		token = "test-token"
	}
	return &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}, nil
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
