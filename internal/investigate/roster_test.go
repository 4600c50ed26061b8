package investigate

import (
	"fmt"
	"testing"

	"github.com/docal-console/internal/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterReplaceAndList(t *testing.T) {
	r := NewRoster()
	r.Replace([]types.Subject{
		{Username: "alice", Investigate: 2},
		{Username: "bob"},
	})

	assert.Equal(t, 2, r.Len())

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].Username)
	assert.Equal(t, "bob", list[1].Username)

	s, ok := r.Get("alice")
	require.True(t, ok)
	assert.Equal(t, 2, s.Investigate)

	_, ok = r.Get("carol")
	assert.False(t, ok)
}

func TestRosterAdvance(t *testing.T) {
	r := NewRoster()
	r.Replace([]types.Subject{{Username: "alice", Investigate: 1}})

	assert.Equal(t, 2, r.Advance("alice"))
	assert.Equal(t, 2, r.Level("alice"))
}

func TestRosterAdvanceClamps(t *testing.T) {
	r := NewRoster()
	r.Replace([]types.Subject{{Username: "alice", Investigate: types.StageCount}})

	assert.Equal(t, types.StageCount, r.Advance("alice"))
	assert.Equal(t, types.StageCount, r.Level("alice"))
}

func TestRosterAdvanceUnknownSubject(t *testing.T) {
	r := NewRoster()

	// A submission for an unlisted account creates it at level one.
	assert.Equal(t, 1, r.Advance("newcomer"))
	s, ok := r.Get("newcomer")
	require.True(t, ok)
	assert.Equal(t, 1, s.Investigate)
	assert.Equal(t, 1, r.Len())
}

// Levels only move up, one step at a time, and never past the stage count.
func TestRosterLevelProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("advance is monotonic and clamped", prop.ForAll(
		func(start int, steps uint8) bool {
			r := NewRoster()
			r.Replace([]types.Subject{{Username: "s", Investigate: start}})

			prev := start
			for i := 0; i < int(steps); i++ {
				level := r.Advance("s")
				if level < prev || level > types.StageCount || level-prev > 1 {
					return false
				}
				prev = level
			}
			return true
		},
		gen.IntRange(0, types.StageCount),
		gen.UInt8(),
	))

	properties.Property("level survives replace round trip", prop.ForAll(
		func(n uint8) bool {
			subjects := make([]types.Subject, 0, n)
			for i := 0; i < int(n); i++ {
				subjects = append(subjects, types.Subject{
					Username:    fmt.Sprintf("user%d", i),
					Investigate: i % (types.StageCount + 1),
				})
			}
			r := NewRoster()
			r.Replace(subjects)
			for _, s := range subjects {
				if r.Level(s.Username) != s.Investigate {
					return false
				}
			}
			return true
		},
		gen.UInt8(),
	))

	properties.TestingRun(t)
}
