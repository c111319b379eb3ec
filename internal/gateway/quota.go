package gateway

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/tunescope/internal/shared"
)

// DefaultDailyBudget is the provider's free daily allowance in cost units.
const DefaultDailyBudget = 10000

// DefaultCosts is the provider cost table keyed by endpoint identity.
// Overridable through [quota.costs] in the config file.
var DefaultCosts = map[string]int{
	"playlists.list":     1,
	"playlistItems.list": 1,
	"videos.list":        1,
	"search.list":        100,
}

// Ledger tracks attempted cost units against a fixed daily budget.
//
// Rows are keyed by UTC day, so the budget resets lazily: the first
// reservation after a day boundary starts from a fresh row. Reservations are
// optimistic; the provider bills an attempted call whether or not the caller
// keeps the result, so nothing is ever refunded.
type Ledger struct {
	db     *sql.DB
	budget int
	costs  map[string]int

	mu  sync.Mutex
	now func() time.Time
}

// LedgerStatus is a point-in-time snapshot of the ledger.
type LedgerStatus struct {
	Day       string `json:"day"`
	Budget    int    `json:"budget"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS quota_ledger (
	day  TEXT PRIMARY KEY,
	used INTEGER NOT NULL DEFAULT 0 CHECK (used >= 0)
);`

// NewLedger creates a ledger backed by db. A zero or negative budget falls
// back to [DefaultDailyBudget]; a nil cost table falls back to [DefaultCosts].
func NewLedger(db *sql.DB, budget int, costs map[string]int) (*Ledger, error) {
	if budget <= 0 {
		budget = DefaultDailyBudget
	}
	if len(costs) == 0 {
		costs = DefaultCosts
	}

	if _, err := db.Exec(ledgerSchema); err != nil {
		return nil, fmt.Errorf("failed to create quota ledger table: %w", err)
	}

	return &Ledger{db: db, budget: budget, costs: costs, now: time.Now}, nil
}

// Cost looks up the configured cost for an endpoint. Unknown endpoints are an
// error; costs are never guessed.
func (l *Ledger) Cost(endpoint string) (int, error) {
	cost, ok := l.costs[endpoint]
	if !ok {
		return 0, fmt.Errorf("%w: no quota cost configured for endpoint %q", shared.ErrInvalidConfig, endpoint)
	}
	return cost, nil
}

// Reserve decrements the remaining budget by the endpoint's cost.
//
// Fails with [shared.ErrQuotaExceeded], without mutating the ledger, when the
// reservation would exceed the daily budget.
func (l *Ledger) Reserve(endpoint string) error {
	cost, err := l.Cost(endpoint)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	day := l.day()

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback()

	used, err := usedForDay(tx, day)
	if err != nil {
		return err
	}

	if used+cost > l.budget {
		return fmt.Errorf("%w: %d units used of %d, call costs %d", shared.ErrQuotaExceeded, used, l.budget, cost)
	}

	if _, err := tx.Exec(
		`INSERT INTO quota_ledger (day, used) VALUES (?, ?)
		 ON CONFLICT(day) DO UPDATE SET used = used + excluded.used`,
		day, cost,
	); err != nil {
		return fmt.Errorf("failed to record reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	return nil
}

// Status reports the current UTC day's consumption.
func (l *Ledger) Status() (LedgerStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := l.day()

	var used int
	err := l.db.QueryRow(`SELECT used FROM quota_ledger WHERE day = ?`, day).Scan(&used)
	if err != nil && err != sql.ErrNoRows {
		return LedgerStatus{}, fmt.Errorf("failed to read ledger: %w", err)
	}

	return LedgerStatus{
		Day:       day,
		Budget:    l.budget,
		Used:      used,
		Remaining: l.budget - used,
	}, nil
}

// day returns the ledger key for the current UTC day.
func (l *Ledger) day() string {
	return l.now().UTC().Format("2006-01-02")
}

func usedForDay(tx *sql.Tx, day string) (int, error) {
	var used int
	err := tx.QueryRow(`SELECT used FROM quota_ledger WHERE day = ?`, day).Scan(&used)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read ledger: %w", err)
	}
	return used, nil
}
