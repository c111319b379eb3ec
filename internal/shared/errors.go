package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthRequired  = fmt.Errorf("authentication required")
	ErrAuthExpired   = fmt.Errorf("authentication expired")
	ErrRefreshFailed = fmt.Errorf("token refresh failed")

	// Quota and transport errors
	ErrQuotaExceeded     = fmt.Errorf("daily quota exceeded")
	ErrTransientNetwork  = fmt.Errorf("transient network failure")
	ErrMalformedResponse = fmt.Errorf("malformed API response")

	// Resource errors
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrVideoNotFound    = fmt.Errorf("video not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
