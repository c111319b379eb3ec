package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// QuotaStatus shows how much of today's API budget has been consumed.
func (r *Runner) QuotaStatus(ctx context.Context, cmd *cli.Command) error {
	status, err := r.ledger.Status()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlain("Quota for %s (UTC)\n", status.Day)
	r.writePlain("  used:      %d\n", status.Used)
	r.writePlain("  remaining: %d\n", status.Remaining)
	return r.writePlain("  budget:    %d\n", status.Budget)
}

// CachePurge deletes cached API responses.
func (r *Runner) CachePurge(ctx context.Context, cmd *cli.Command) error {
	removed, err := r.cache.Purge(cmd.Bool("all"))
	if err != nil {
		return err
	}

	if cmd.Bool("all") {
		return r.writePlain("✓ Removed all %d cached responses\n", removed)
	}
	return r.writePlain("✓ Removed %d expired cached responses\n", removed)
}
