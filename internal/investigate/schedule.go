package investigate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docal-console/internal/types"
)

// CooldownPeriod is how long a pending schedule record gates a caller.
const CooldownPeriod = 24 * time.Hour

// helperCanPost is shown when the cooldown has lapsed but the stale record
// has not been cleared server-side yet.
const helperCanPost = "you can post now"

// ScheduleFetcher retrieves a caller's pending schedule rows.
type ScheduleFetcher interface {
	FetchSchedule(ctx context.Context, caller string) ([]types.ScheduleRecord, error)
}

// GateStatus is the externally visible state of the schedule gate.
type GateStatus struct {
	// Open reports whether new submissions are currently allowed.
	Open bool `json:"open"`
	// Known is false until the first successful fetch.
	Known bool `json:"known"`
	// Remaining is the cooldown left on a closed gate; never negative.
	Remaining time.Duration `json:"remaining"`
	// Helper is the human-readable cooldown text.
	Helper string `json:"helper,omitempty"`
	// Record is the outstanding schedule entry when the gate is closed.
	Record *types.ScheduleRecord `json:"record,omitempty"`
}

// Gate decides whether a caller may submit new investigation work. The gate
// never reopens on its own: a closed gate stays closed until Refresh
// re-fetches an empty schedule, even after the cooldown lapses.
type Gate struct {
	fetcher ScheduleFetcher
	caller  string
	now     func() time.Time

	mu     sync.Mutex
	known  bool
	open   bool
	record *types.ScheduleRecord
}

// NewGate creates a gate for the given caller. Until the first refresh the
// gate reports closed.
func NewGate(fetcher ScheduleFetcher, caller string) *Gate {
	return &Gate{
		fetcher: fetcher,
		caller:  caller,
		now:     time.Now,
	}
}

// SetClock overrides the gate's clock. Used in tests.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// Refresh re-fetches the caller's schedule and recomputes the gate state.
// On fetch failure the previous state is kept.
func (g *Gate) Refresh(ctx context.Context) (GateStatus, error) {
	rows, err := g.fetcher.FetchSchedule(ctx, g.caller)
	if err != nil {
		return g.Status(), fmt.Errorf("fetch schedule: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.known = true
	if len(rows) == 0 || rows[0].IsEmpty() {
		g.open = true
		g.record = nil
	} else {
		record := rows[0]
		record.Caller = g.caller
		g.open = false
		g.record = &record
	}
	return g.statusLocked(), nil
}

// MaySubmit reports whether the gate currently allows submissions.
func (g *Gate) MaySubmit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.known && g.open
}

// ForceClosed closes the gate locally without a fetch. Used when the proxy
// reports a firewall: scheduling becomes required until a refresh proves
// otherwise.
func (g *Gate) ForceClosed() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.known = true
	g.open = false
}

// Status returns the current gate state, with the remaining cooldown
// recomputed against the gate's clock.
func (g *Gate) Status() GateStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusLocked()
}

func (g *Gate) statusLocked() GateStatus {
	status := GateStatus{
		Open:   g.open,
		Known:  g.known,
		Record: g.record,
	}
	if g.open || !g.known {
		return status
	}

	if g.record != nil && !g.record.Timestamp.IsZero() {
		remaining := CooldownPeriod - g.now().Sub(g.record.Timestamp.Time)
		if remaining <= 0 {
			// Stale record: the cooldown has lapsed but the gate stays
			// closed until an explicit refresh clears it.
			status.Remaining = 0
			status.Helper = helperCanPost
		} else {
			status.Remaining = remaining
			status.Helper = fmt.Sprintf("you can post again in %s", remaining.Round(time.Minute))
		}
	}
	return status
}
