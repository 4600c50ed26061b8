// Package notify defines the user-facing notification capability. The
// investigation controller reports every outcome through this interface;
// it is the console's replacement for the dashboard's toast channel.
package notify

import (
	"sync"

	"github.com/docal-console/internal/logging"
)

// Severity classifies a notification.
type Severity string

const (
	SeverityDefault Severity = "default"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notifier delivers user-facing notices. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Default(message string)
	Info(message string)
	Success(message string)
	Error(message string)
}

// LogNotifier writes notifications through the structured logger.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithField("channel", "notice")}
}

func (n *LogNotifier) Default(message string) {
	n.logger.WithField("severity", SeverityDefault).Info(message)
}

func (n *LogNotifier) Info(message string) {
	n.logger.WithField("severity", SeverityInfo).Info(message)
}

func (n *LogNotifier) Success(message string) {
	n.logger.WithField("severity", SeveritySuccess).Info(message)
}

func (n *LogNotifier) Error(message string) {
	n.logger.WithField("severity", SeverityError).Error(message)
}

// Notice is one recorded notification.
type Notice struct {
	Severity Severity
	Message  string
}

// Recorder captures notifications for inspection. Used in tests and to
// surface the latest notice in API responses.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(severity Severity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Severity: severity, Message: message})
}

func (r *Recorder) Default(message string) { r.record(SeverityDefault, message) }
func (r *Recorder) Info(message string)    { r.record(SeverityInfo, message) }
func (r *Recorder) Success(message string) { r.record(SeveritySuccess, message) }
func (r *Recorder) Error(message string)   { r.record(SeverityError, message) }

// Notices returns a copy of all recorded notices in order.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Last returns the most recent notice, if any.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Reset discards all recorded notices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Default(message string) {
	for _, n := range m {
		n.Default(message)
	}
}

func (m Multi) Info(message string) {
	for _, n := range m {
		n.Info(message)
	}
}

func (m Multi) Success(message string) {
	for _, n := range m {
		n.Success(message)
	}
}

func (m Multi) Error(message string) {
	for _, n := range m {
		n.Error(message)
	}
}
