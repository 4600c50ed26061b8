package investigate

import (
	"sync"

	"github.com/docal-console/internal/types"
)

// Roster is the in-memory set of subjects currently on the dashboard. It is
// replaced wholesale on refresh and mutated optimistically when a stage
// completes; it is not otherwise reconciled with the proxy.
type Roster struct {
	mu       sync.RWMutex
	order    []string
	subjects map[string]types.Subject
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{
		subjects: make(map[string]types.Subject),
	}
}

// Replace swaps in a freshly fetched subject set.
func (r *Roster) Replace(subjects []types.Subject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = r.order[:0]
	r.subjects = make(map[string]types.Subject, len(subjects))
	for _, s := range subjects {
		if _, seen := r.subjects[s.Username]; !seen {
			r.order = append(r.order, s.Username)
		}
		r.subjects[s.Username] = s
	}
}

// Get returns the subject by username.
func (r *Roster) Get(username string) (types.Subject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subjects[username]
	return s, ok
}

// List returns all subjects in fetch order.
func (r *Roster) List() []types.Subject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Subject, 0, len(r.order))
	for _, username := range r.order {
		out = append(out, r.subjects[username])
	}
	return out
}

// Len returns the number of tracked subjects.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subjects)
}

// Advance increments the subject's investigate level by exactly one,
// clamped at the stage count. The level never decreases. Unknown subjects
// are created at level one so a submission for a not-yet-listed account
// still records progress.
func (r *Roster) Advance(username string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subjects[username]
	if !ok {
		s = types.Subject{Username: username}
		r.order = append(r.order, username)
	}
	if s.Investigate < types.StageCount {
		s.Investigate++
	}
	r.subjects[username] = s
	return s.Investigate
}

// Level returns the subject's current investigate level, zero if unknown.
func (r *Roster) Level(username string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subjects[username].Investigate
}
