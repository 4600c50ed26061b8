// Package types defines the shared domain types for the investigation console.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TrustLevel is the ordered risk classification assigned to a subject.
// The proxy stores it as an integer code 0-5.
type TrustLevel int

const (
	TrustUnknown TrustLevel = iota
	TrustSafe
	TrustLow
	TrustMedium
	TrustHigh
	TrustScam
)

// String returns the display label for a trust level.
func (t TrustLevel) String() string {
	switch t {
	case TrustSafe:
		return "Safe"
	case TrustLow:
		return "Low"
	case TrustMedium:
		return "Medium"
	case TrustHigh:
		return "High"
	case TrustScam:
		return "Scam"
	default:
		return "Unknown"
	}
}

// MarshalJSON serializes a trust level as its display label.
func (t TrustLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Stage identifies one step of the investigation pipeline.
type Stage string

const (
	StageScrape        Stage = "scrape"
	StageIndex         Stage = "index"
	StageContextualise Stage = "contextualise"
	StageClassify      Stage = "classify"
	StageExtract       Stage = "extract"
	StageEvaluate      Stage = "evaluate"
)

// StageCount is the number of pipeline stages a subject can complete.
// The investigate level is clamped at this value.
const StageCount = 5

// stageFuncs maps pipeline stages to the backend function identifiers
// expected by the proxy's process endpoint.
var stageFuncs = map[Stage]string{
	StageScrape:        "scraper",
	StageIndex:         "indexer",
	StageContextualise: "context",
	StageClassify:      "classifier",
	StageExtract:       "extractor",
	StageEvaluate:      "evaluator",
}

// BackendFunc returns the proxy function identifier for a stage.
func (s Stage) BackendFunc() (string, bool) {
	fn, ok := stageFuncs[s]
	return fn, ok
}

// IsValid reports whether the stage is one of the enumerated pipeline stages.
func (s Stage) IsValid() bool {
	_, ok := stageFuncs[s]
	return ok
}

// Subject is a tracked social-media account under investigation.
type Subject struct {
	Username    string     `json:"username"`
	TweetCount  int        `json:"tweet_count"`
	Score       int        `json:"score"`
	Trust       TrustLevel `json:"trust"`
	Investigate int        `json:"investigate"`
	Contexts    []string   `json:"contexts,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// SubjectRow is a raw subject record as returned by the proxy's db endpoint.
type SubjectRow struct {
	Username    string   `json:"username"`
	TweetCount  int      `json:"tweet_count"`
	Score       int      `json:"score"`
	Trust       int      `json:"trust"`
	Investigate int      `json:"investigate"`
	Contexts    []string `json:"contexts"`
	Timestamp   FlexTime `json:"timestamp"`
}

// Sanitise converts raw proxy rows into subjects, mapping the integer trust
// code onto the trust enumeration. Codes outside 0-5 collapse to Unknown.
func Sanitise(rows []SubjectRow) []Subject {
	subjects := make([]Subject, 0, len(rows))
	for _, row := range rows {
		trust := TrustUnknown
		if row.Trust >= int(TrustUnknown) && row.Trust <= int(TrustScam) {
			trust = TrustLevel(row.Trust)
		}
		subject := Subject{
			Username:    row.Username,
			TweetCount:  row.TweetCount,
			Score:       row.Score,
			Trust:       trust,
			Investigate: row.Investigate,
			Contexts:    row.Contexts,
		}
		if !row.Timestamp.IsZero() {
			ts := row.Timestamp.Time
			subject.Timestamp = &ts
		}
		subjects = append(subjects, subject)
	}
	return subjects
}

// ScheduleSentinelUsername marks the canonical empty schedule record.
const ScheduleSentinelUsername = "@"

// ScheduleRecord is a caller's outstanding rate-limited submission.
type ScheduleRecord struct {
	Username    string   `json:"username"`
	TweetIDs    []string `json:"tweet_ids"`
	Contexts    []string `json:"contexts"`
	Caller      string   `json:"caller"`
	Transaction string   `json:"transaction"`
	Timestamp   FlexTime `json:"timestamp"`
}

// IsEmpty reports whether the record is the canonical empty/default record,
// i.e. it does not gate the caller.
func (r ScheduleRecord) IsEmpty() bool {
	if len(r.TweetIDs) > 0 {
		return false
	}
	return r.Username == ScheduleSentinelUsername || r.Username == ""
}

// Envelope is the proxy's response wrapper. Every endpoint returns
// {"status": <code>, "result": <payload>}.
type Envelope struct {
	Status int             `json:"status"`
	Result json.RawMessage `json:"result"`
}

// Table is the columns/rows shape returned by the proxy's query endpoints.
type Table struct {
	Columns []string        `json:"columns"`
	Rows    json.RawMessage `json:"rows"`
}

// ProcessResult is the free-text outcome of the proxy's process endpoint.
type ProcessResult struct {
	Result string `json:"result"`
}

// ProcessRequest is the body of a process submission.
type ProcessRequest struct {
	Func        string `json:"func"`
	User        string `json:"user"`
	Data        string `json:"data"`
	Ctxs        string `json:"ctxs"`
	Caller      string `json:"caller"`
	Transaction string `json:"transaction"`
}

// ScheduleRequest is the body of a schedule lookup.
type ScheduleRequest struct {
	Query string `json:"query"`
}

// ServiceError represents a structured error surfaced by the console API.
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FlexTime wraps time.Time with tolerant JSON decoding. The proxy emits
// timestamps either as unix seconds or as RFC3339-ish strings depending on
// the table, so both are accepted.
type FlexTime struct {
	time.Time
}

var flexTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON accepts unix seconds, layout strings, or null.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.Unix(secs, 0).UTC()
		return nil
	}
	if fsecs, err := strconv.ParseFloat(s, 64); err == nil {
		t.Time = time.Unix(int64(fsecs), 0).UTC()
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", s, err)
	}
	for _, layout := range flexTimeLayouts {
		if ts, err := time.Parse(layout, str); err == nil {
			t.Time = ts
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp format: %q", str)
}

// MarshalJSON emits RFC3339, or null for the zero time.
func (t FlexTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}
