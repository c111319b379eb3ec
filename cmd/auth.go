package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
)

// AuthLogin runs the interactive installed-app consent flow and persists the
// resulting token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}

	timeout := time.Duration(cmd.Int("timeout")) * time.Second
	loginCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.logger.Info("starting OAuth consent flow", "timeout", timeout)

	token, err := r.session.Login(loginCtx)
	if err != nil {
		return err
	}

	r.writePlain("✓ Authentication successful\n")
	return r.writePlain("Token valid until %s\n", token.Expiry.Format(time.RFC1123))
}

// AuthStatus reports whether a credential is stored and currently valid.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}

	exists, valid := r.session.Authenticated()
	switch {
	case !exists:
		return r.writePlain("✗ No stored credential; run `tunescope auth login`\n")
	case !valid:
		return r.writePlain("△ Credential stored but stale; it will be refreshed on next use\n")
	default:
		return r.writePlain("✓ Authenticated\n")
	}
}
