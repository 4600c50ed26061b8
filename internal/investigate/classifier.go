// Package investigate implements the staged investigation pipeline: the
// submission controller, the link batch collector, the schedule gate, and
// the decoder for the proxy's free-text results.
package investigate

import (
	"regexp"
	"strconv"
	"strings"
)

// ResultClass is the decoded category of a proxy process result. The proxy
// answers with free text; the decoder maps it onto this tagged set so the
// fragile substring matching lives in exactly one place.
type ResultClass int

const (
	// ResultTweetsExist - the submitted tweets are already in the database.
	ResultTweetsExist ResultClass = iota
	// ResultUserIndexed - the subject itself was indexed previously.
	ResultUserIndexed
	// ResultNoTweets - indexing succeeded but found no content.
	ResultNoTweets
	// ResultUsernameMismatch - evidence does not belong to the subject.
	ResultUsernameMismatch
	// ResultBadArguments - the proxy rejected the request shape.
	ResultBadArguments
	// ResultFirewalled - upstream rate limit or login firewall; future
	// submissions must go through the schedule.
	ResultFirewalled
	// ResultFetchFailed - the proxy could not fetch the evidence.
	ResultFetchFailed
	// ResultProcessed - processing finished with an embedded count.
	ResultProcessed
	// ResultSaved - tweets were stored, with an embedded success fraction.
	ResultSaved
	// ResultGenericSuccess - no known phrase matched; treated as success.
	ResultGenericSuccess
)

// String returns a stable name for the class, used in logs and metrics.
func (c ResultClass) String() string {
	switch c {
	case ResultTweetsExist:
		return "tweets_exist"
	case ResultUserIndexed:
		return "user_indexed"
	case ResultNoTweets:
		return "no_tweets"
	case ResultUsernameMismatch:
		return "username_mismatch"
	case ResultBadArguments:
		return "bad_arguments"
	case ResultFirewalled:
		return "firewalled"
	case ResultFetchFailed:
		return "fetch_failed"
	case ResultProcessed:
		return "processed"
	case ResultSaved:
		return "saved"
	default:
		return "generic_success"
	}
}

// Classification is the decoded result plus any counts embedded in the text.
type Classification struct {
	Class ResultClass
	// Processed is the processed_tweets count for ResultProcessed.
	Processed int
	// Successes/Total is the saved fraction for ResultSaved.
	Successes int
	Total     int
}

var (
	processedPattern = regexp.MustCompile(`processed_tweets:\s*(\d+)`)
	fractionPattern  = regexp.MustCompile(`\((\d+)/(\d+)\)`)
)

// ClassifyResult decodes a proxy result string. Matching is ordered and
// first-match-wins; the order is part of the proxy contract and must not be
// rearranged.
func ClassifyResult(result string) Classification {
	switch {
	case strings.Contains(result, "Tweets already exist"):
		return Classification{Class: ResultTweetsExist}
	case strings.Contains(result, "has already been indexed"):
		return Classification{Class: ResultUserIndexed}
	case strings.Contains(result, "No tweets found"):
		return Classification{Class: ResultNoTweets}
	case strings.Contains(result, "Username mismatch"):
		return Classification{Class: ResultUsernameMismatch}
	case strings.Contains(result, "Incorrect number of arguments"):
		return Classification{Class: ResultBadArguments}
	case strings.Contains(result, "DenyLoginSubtask"), strings.Contains(result, "Please try again"):
		return Classification{Class: ResultFirewalled}
	case strings.Contains(result, "Failed to fetch tweets"):
		return Classification{Class: ResultFetchFailed}
	case strings.Contains(result, "Processing complete"):
		c := Classification{Class: ResultProcessed}
		if m := processedPattern.FindStringSubmatch(result); m != nil {
			c.Processed, _ = strconv.Atoi(m[1])
		}
		return c
	case strings.Contains(result, "tweets saved to"):
		c := Classification{Class: ResultSaved}
		if m := fractionPattern.FindStringSubmatch(result); m != nil {
			c.Successes, _ = strconv.Atoi(m[1])
			c.Total, _ = strconv.Atoi(m[2])
		}
		return c
	default:
		return Classification{Class: ResultGenericSuccess}
	}
}

// Advances reports whether this classification completes a pipeline stage
// and should bump the subject's investigate level.
func (c Classification) Advances() bool {
	switch c.Class {
	case ResultProcessed:
		return c.Processed > 0
	case ResultSaved, ResultGenericSuccess:
		return true
	default:
		return false
	}
}
