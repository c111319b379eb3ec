// package gateway is the single choke point for outbound YouTube Data API
// calls. Every request passes, in order, through the response cache, the
// daily quota ledger, and an authenticated fetch with retry and backoff.
// Concurrent requests for the same fingerprint collapse into one network
// call, and list endpoints are stitched page by page.
package gateway
