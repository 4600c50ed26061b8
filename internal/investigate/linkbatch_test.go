package investigate

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLink(t *testing.T) {
	tests := []struct {
		link  string
		valid bool
	}{
		{"https://x.com/alice/status/12345", true},
		{"https://twitter.com/alice/status/12345", true},
		{"https://twitter.com/a_b_c/status/1", true},
		{"https://example.com/foo", false},
		{"http://x.com/alice/status/12345", false},
		{"https://x.com/alice/status/", false},
		{"https://x.com/alice/status/12a45", false},
		{"https://x.com/toolongusername1234/status/1", false},
		{"https://x.com/alice/likes/12345", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateLink(tt.link))
		})
	}
}

func TestValidateUsername(t *testing.T) {
	assert.True(t, ValidateUsername("alice"))
	assert.True(t, ValidateUsername("@alice"))
	assert.True(t, ValidateUsername("a_1"))
	assert.False(t, ValidateUsername(""))
	assert.False(t, ValidateUsername("has space"))
	assert.False(t, ValidateUsername("sixteencharacter"))
}

func TestEvidenceID(t *testing.T) {
	assert.Equal(t, "12345", EvidenceID("https://twitter.com/abc/status/12345"))
	assert.Equal(t, "9", EvidenceID("https://x.com/abc/status/9"))
}

func TestLinkBatchAppend(t *testing.T) {
	b := NewLinkBatch()

	// Input without the delimiter is staged, not committed.
	require.NoError(t, b.Append("https://x.com/alice/status/1"))
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, "https://x.com/alice/status/1", b.Pending())

	// The delimiter commits the link and clears the staging area.
	require.NoError(t, b.Append("https://x.com/alice/status/1,"))
	assert.Equal(t, 1, b.Len())
	assert.Empty(t, b.Pending())
	assert.Equal(t, []string{"https://x.com/alice/status/1"}, b.Links())
}

func TestLinkBatchAppendInvalid(t *testing.T) {
	b := NewLinkBatch()

	err := b.Append("https://example.com/foo,")
	assert.ErrorIs(t, err, ErrInvalidLink)
	assert.Equal(t, 0, b.Len())
	// The rejected candidate stays staged for correction.
	assert.Equal(t, "https://example.com/foo", b.Pending())
}

func TestLinkBatchAppendDuplicate(t *testing.T) {
	b := NewLinkBatch()
	require.NoError(t, b.Append("https://x.com/alice/status/1,"))

	err := b.Append("https://x.com/alice/status/1,")
	assert.ErrorIs(t, err, ErrDuplicateLink)
	assert.Equal(t, 1, b.Len())
	assert.Empty(t, b.Pending())
}

func TestLinkBatchAppendFull(t *testing.T) {
	b := NewLinkBatch()
	for i := 0; i < MaxBatchLinks; i++ {
		require.NoError(t, b.Append(fmt.Sprintf("https://x.com/alice/status/%d,", i)))
	}
	require.Equal(t, MaxBatchLinks, b.Len())

	err := b.Append("https://x.com/alice/status/99,")
	assert.ErrorIs(t, err, ErrBatchFull)
	assert.Equal(t, MaxBatchLinks, b.Len())
	assert.Equal(t, "https://x.com/alice/status/99", b.Pending())
}

func TestLinkBatchRemove(t *testing.T) {
	b := NewLinkBatch()
	require.NoError(t, b.Append("https://x.com/alice/status/1,"))
	require.NoError(t, b.Append("https://x.com/alice/status/2,"))

	b.Remove("https://x.com/alice/status/1")
	assert.Equal(t, []string{"https://x.com/alice/status/2"}, b.Links())

	// Removing an absent link is a no-op.
	b.Remove("https://x.com/alice/status/1")
	assert.Equal(t, 1, b.Len())
}

func TestLinkBatchFinalize(t *testing.T) {
	b := NewLinkBatch()
	require.NoError(t, b.Append("https://x.com/alice/status/1,"))
	// Trailing input without a delimiter is flushed on submit.
	require.NoError(t, b.Append("https://x.com/alice/status/2"))

	links, err := b.FinalizeForSubmit()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://x.com/alice/status/1",
		"https://x.com/alice/status/2",
	}, links)
	assert.Equal(t, []string{"1", "2"}, b.EvidenceIDs())
}

func TestLinkBatchFinalizeEmpty(t *testing.T) {
	b := NewLinkBatch()
	_, err := b.FinalizeForSubmit()
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestLinkBatchFinalizeInvalidPending(t *testing.T) {
	b := NewLinkBatch()
	require.NoError(t, b.Append("not a link"))

	_, err := b.FinalizeForSubmit()
	assert.ErrorIs(t, err, ErrInvalidLink)
}

// The batch never exceeds its bound and never stores duplicates, whatever
// sequence of appends it sees.
func TestLinkBatchProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	statusID := gen.UInt64().Map(func(id uint64) string {
		return fmt.Sprintf("https://x.com/subject/status/%d", id)
	})

	properties.Property("batch size is bounded", prop.ForAll(
		func(ids []uint64) bool {
			b := NewLinkBatch()
			for _, id := range ids {
				_ = b.Append(fmt.Sprintf("https://x.com/subject/status/%d,", id))
			}
			return b.Len() <= MaxBatchLinks
		},
		gen.SliceOf(gen.UInt64()),
	))

	properties.Property("accepted links are unique", prop.ForAll(
		func(links []string) bool {
			b := NewLinkBatch()
			for _, link := range links {
				_ = b.Append(link + ",")
			}
			seen := make(map[string]bool)
			for _, link := range b.Links() {
				if seen[link] {
					return false
				}
				seen[link] = true
			}
			return true
		},
		gen.SliceOf(statusID),
	))

	properties.TestingRun(t)
}
