// package auth owns the installed-app OAuth lifecycle for the YouTube Data
// API: interactive consent with a local redirect capture, token persistence,
// and silent refresh behind a single mutually-exclusive critical section.
package auth
