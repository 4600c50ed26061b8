package investigate

import (
	"errors"
	"regexp"
	"strings"
)

// MaxBatchLinks bounds how many evidence links one submission may carry.
const MaxBatchLinks = 5

// batchDelimiter terminates one link in free-text entry.
const batchDelimiter = ","

var (
	// ErrBatchFull rejects appends past the batch bound.
	ErrBatchFull = errors.New("maximum of 5 links allowed")
	// ErrInvalidLink rejects candidates that do not look like a post link.
	ErrInvalidLink = errors.New("please enter a valid tweet link")
	// ErrDuplicateLink rejects exact duplicates.
	ErrDuplicateLink = errors.New("tweet already added")
	// ErrEmptyBatch rejects submission of an empty batch.
	ErrEmptyBatch = errors.New("please enter at least one tweet")
)

var (
	linkPattern     = regexp.MustCompile(`^https://(x|twitter)\.com/[A-Za-z0-9_]{1,15}/status/\d+$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
)

// ValidateLink reports whether the candidate matches the platform post URL
// shape.
func ValidateLink(link string) bool {
	return linkPattern.MatchString(link)
}

// ValidateUsername reports whether the candidate is a plausible platform
// handle (1-15 alphanumeric/underscore characters).
func ValidateUsername(username string) bool {
	return usernamePattern.MatchString(strings.TrimPrefix(username, "@"))
}

// EvidenceID reduces an accepted link to its short evidence id: the final
// path segment, i.e. the numeric status id.
func EvidenceID(link string) string {
	if idx := strings.LastIndex(link, "/"); idx >= 0 {
		return link[idx+1:]
	}
	return link
}

// LinkBatch accumulates a validated, bounded batch of evidence links from
// incremental free-text entry. It is not safe for concurrent use; each
// submission form owns one collector.
type LinkBatch struct {
	links []string
	input string
}

// NewLinkBatch creates an empty collector.
func NewLinkBatch() *LinkBatch {
	return &LinkBatch{}
}

// Append consumes one edit of the input text. Text not yet terminated by the
// delimiter is staged without mutating the batch. Delimiter-terminated text
// is stripped, trimmed, and validated into the batch; on rejection the batch
// is unchanged and the candidate stays staged for correction.
func (b *LinkBatch) Append(raw string) error {
	if !strings.HasSuffix(raw, batchDelimiter) {
		b.input = raw
		return nil
	}

	candidate := strings.TrimSpace(strings.TrimSuffix(raw, batchDelimiter))

	if len(b.links) >= MaxBatchLinks {
		b.input = candidate
		return ErrBatchFull
	}
	if !ValidateLink(candidate) {
		b.input = candidate
		return ErrInvalidLink
	}
	if b.contains(candidate) {
		b.input = ""
		return ErrDuplicateLink
	}

	b.links = append(b.links, candidate)
	b.input = ""
	return nil
}

// Remove deletes the exact entry from the batch. Idempotent if absent.
func (b *LinkBatch) Remove(link string) {
	for i, l := range b.links {
		if l == link {
			b.links = append(b.links[:i], b.links[i+1:]...)
			return
		}
	}
}

// FinalizeForSubmit flushes any staged input into the batch and returns the
// collected links. An invalid trailing input or an empty batch fails the
// submission.
func (b *LinkBatch) FinalizeForSubmit() ([]string, error) {
	if pending := strings.TrimSpace(b.input); pending != "" {
		if !ValidateLink(pending) {
			return nil, ErrInvalidLink
		}
		if len(b.links) >= MaxBatchLinks {
			return nil, ErrBatchFull
		}
		if !b.contains(pending) {
			b.links = append(b.links, pending)
		}
		b.input = ""
	}

	if len(b.links) == 0 {
		return nil, ErrEmptyBatch
	}
	return b.Links(), nil
}

// Links returns a copy of the current batch in insertion order.
func (b *LinkBatch) Links() []string {
	out := make([]string, len(b.links))
	copy(out, b.links)
	return out
}

// EvidenceIDs returns the short evidence ids for the current batch.
func (b *LinkBatch) EvidenceIDs() []string {
	ids := make([]string, 0, len(b.links))
	for _, link := range b.links {
		ids = append(ids, EvidenceID(link))
	}
	return ids
}

// Pending returns the staged, not-yet-delimited input text.
func (b *LinkBatch) Pending() string {
	return b.input
}

// Len returns the number of accepted links.
func (b *LinkBatch) Len() int {
	return len(b.links)
}

func (b *LinkBatch) contains(link string) bool {
	for _, l := range b.links {
		if l == link {
			return true
		}
	}
	return false
}
