// package services exposes typed, read-only YouTube Music library operations
// on top of the gateway: playlist listings, playlist items, batched video
// metadata, and music search.
package services
