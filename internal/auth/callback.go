package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"
)

// CallbackResult is the outcome of one consent flow: an exchanged token or
// the error that ended it.
type CallbackResult struct {
	Token *oauth2.Token
	err   error
}

func (r *CallbackResult) Error() error {
	return r.err
}

// CallbackHandler captures the provider's redirect during the installed-app
// flow. It accepts exactly one callback; replays get a 400 so a stray browser
// refresh cannot re-run the code exchange.
type CallbackHandler struct {
	config     *oauth2.Config
	state      string
	resultChan chan CallbackResult
	once       sync.Once
	handled    atomic.Bool
}

// NewCallbackHandler creates a handler bound to config and the flow's CSRF
// state token.
func NewCallbackHandler(config *oauth2.Config, state string) *CallbackHandler {
	return &CallbackHandler{
		config:     config,
		state:      state,
		resultChan: make(chan CallbackResult, 1),
	}
}

// successPage is shown in the user's browser once the exchange completes; the
// session itself reports progress on the terminal.
const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>tunescope</title>
    <style>
        body { font-family: ui-monospace, SFMono-Regular, Menlo, monospace;
               background: #1a1b26; color: #c0caf5;
               display: grid; place-items: center; height: 100vh; margin: 0; }
        main { text-align: center; }
        h1 { color: #9ece6a; font-size: 1.4rem; margin-bottom: 0.5rem; }
        p { color: #565f89; margin: 0; }
    </style>
</head>
<body>
    <main>
        <h1>tunescope is connected</h1>
        <p>Close this tab and head back to the terminal.</p>
    </main>
</body>
</html>
`

// ServeHTTP validates the redirect, exchanges the authorization code, and
// delivers the result to the waiting [Session.Login].
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.handled.CompareAndSwap(false, true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()

	if query.Get("state") != h.state {
		h.fail(w, http.StatusBadRequest, "Invalid state parameter",
			fmt.Errorf("state mismatch on callback"))
		return
	}

	code := query.Get("code")
	if code == "" {
		h.fail(w, http.StatusBadRequest, "Authorization failed",
			fmt.Errorf("authorization failed: %s - %s", query.Get("error"), query.Get("error_description")))
		return
	}

	token, err := h.config.Exchange(context.Background(), code)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Token exchange failed",
			fmt.Errorf("token exchange failed: %w", err))
		return
	}

	h.Send(CallbackResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

func (h *CallbackHandler) fail(w http.ResponseWriter, status int, page string, err error) {
	h.Send(CallbackResult{err: err})
	http.Error(w, page, status)
}

// Send delivers the flow result. Only the first call counts; the channel is
// closed after it.
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel [Session.Login] waits on. It receives exactly
// one result.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}
