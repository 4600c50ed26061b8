package investigate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/docal-console/internal/logging"
	"github.com/docal-console/internal/notify"
	"github.com/docal-console/internal/types"
	"github.com/docal-console/internal/wallet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SignChallengeTemplate is the literal challenge signed before every
// submission. The proxy verifies the signature against the caller address,
// so the wording must match exactly.
const SignChallengeTemplate = "Requesting signature to index with account %s"

// defaultFirewallDelay is how long after a firewalled result the schedule
// gate is forced closed.
const defaultFirewallDelay = 3 * time.Second

// emptyMarker stands in for an empty data or contexts list on the wire.
const emptyMarker = ","

var (
	// ErrAuthRequired - no connected wallet; no network call was made.
	ErrAuthRequired = errors.New("wallet connection required")
	// ErrNotImplemented - the stage is not wired end-to-end yet.
	ErrNotImplemented = errors.New("stage not implemented")
	// ErrUnknownStage - the stage is not one of the enumerated names.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrEmptySubject - the subject identifier is missing.
	ErrEmptySubject = errors.New("subject is required")
	// ErrSubmissionInFlight - an overlapping submission for the same
	// subject was rejected locally.
	ErrSubmissionInFlight = errors.New("submission already in flight")
)

var submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "console_submissions_total",
	Help: "Investigation submissions by stage and decoded result class.",
}, []string{"stage", "class"})

// Gateway is the slice of the proxy client the controller depends on.
type Gateway interface {
	Process(ctx context.Context, req types.ProcessRequest) (string, error)
}

// SubmitInput describes one staged submission.
type SubmitInput struct {
	// Subject is the username under investigation.
	Subject string
	// Stage is the pipeline stage to invoke.
	Stage types.Stage
	// Evidence holds the evidence ids (tweet ids), may be empty.
	Evidence []string
	// Classes holds taxonomy labels to attach, may be empty.
	Classes []string
}

// Outcome is the user-visible result of a submission.
type Outcome struct {
	Severity notify.Severity `json:"severity"`
	Message  string          `json:"message"`
	// Class is the decoded result class name.
	Class string `json:"class"`
	// Investigate is the subject's level after applying the result.
	Investigate int `json:"investigate"`
}

// Controller drives subjects through the staged investigation pipeline. It
// owns per-subject progress, acquires the wallet signature, relays the
// submission to the proxy, and applies the decoded result.
type Controller struct {
	gateway  Gateway
	signer   wallet.Signer
	notifier notify.Notifier
	roster   *Roster
	logger   *logging.Logger

	// onFirewall is invoked (after firewallDelay) when the proxy reports
	// a firewall, to force the schedule gate closed.
	onFirewall    func()
	firewallDelay time.Duration

	enabled map[types.Stage]bool

	mu       sync.Mutex
	inflight map[string]bool
}

// ControllerConfig wires a controller.
type ControllerConfig struct {
	Gateway  Gateway
	Signer   wallet.Signer // may be nil: submissions fail with ErrAuthRequired
	Notifier notify.Notifier
	Roster   *Roster
	Logger   *logging.Logger
	// OnFirewall is called when a firewalled result requires the schedule
	// gate to close. Optional.
	OnFirewall func()
	// FirewallDelay overrides the delay before OnFirewall fires. Zero
	// means the default; negative means immediate.
	FirewallDelay time.Duration
}

// NewController creates a controller. Only the scrape and index stages are
// live; the remaining stages fail fast with a not-implemented notice.
func NewController(cfg ControllerConfig) *Controller {
	delay := cfg.FirewallDelay
	if delay == 0 {
		delay = defaultFirewallDelay
	} else if delay < 0 {
		delay = 0
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	roster := cfg.Roster
	if roster == nil {
		roster = NewRoster()
	}
	return &Controller{
		gateway:       cfg.Gateway,
		signer:        cfg.Signer,
		notifier:      cfg.Notifier,
		roster:        roster,
		logger:        logger.WithField("component", "investigate"),
		onFirewall:    cfg.OnFirewall,
		firewallDelay: delay,
		enabled: map[types.Stage]bool{
			types.StageScrape: true,
			types.StageIndex:  true,
		},
		inflight: make(map[string]bool),
	}
}

// Roster returns the controller's subject roster.
func (c *Controller) Roster() *Roster {
	return c.roster
}

// Submit runs one staged submission end to end: local validation, auth
// check, challenge signature, one proxy call, result decoding, progress
// update, and notification. Every outcome is reported through the notifier;
// the returned Outcome mirrors the notice for API callers.
func (c *Controller) Submit(ctx context.Context, in SubmitInput) (*Outcome, error) {
	if strings.TrimSpace(in.Subject) == "" {
		c.notifier.Error("Subject is required")
		return nil, ErrEmptySubject
	}
	if !in.Stage.IsValid() {
		c.notifier.Error(fmt.Sprintf("Unknown stage %q", in.Stage))
		return nil, ErrUnknownStage
	}
	if !c.enabled[in.Stage] {
		c.notifier.Default("Not yet implemented")
		return nil, ErrNotImplemented
	}

	caller := ""
	if c.signer != nil {
		caller = c.signer.Address()
	}
	if caller == "" {
		c.notifier.Error("Please connect your wallet")
		return nil, ErrAuthRequired
	}

	if !c.acquire(in.Subject) {
		c.notifier.Error("A submission for this subject is already in progress")
		return nil, ErrSubmissionInFlight
	}
	defer c.release(in.Subject)

	challenge := fmt.Sprintf(SignChallengeTemplate, caller)
	signature, err := c.signer.SignMessage([]byte(challenge))
	if err != nil {
		c.notifier.Error("Signature request declined")
		return nil, fmt.Errorf("sign challenge: %w", err)
	}

	req := types.ProcessRequest{
		User:        in.Subject,
		Data:        joinOrMarker(in.Evidence),
		Ctxs:        joinOrMarker(in.Classes),
		Caller:      caller,
		Transaction: base64.StdEncoding.EncodeToString(signature),
	}
	req.Func, _ = in.Stage.BackendFunc()

	result, err := c.gateway.Process(ctx, req)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"subject": in.Subject,
			"stage":   string(in.Stage),
			"error":   err.Error(),
		}).Error("Proxy call failed")
		c.notifier.Error("Error processing tweets")
		return nil, err
	}

	classification := ClassifyResult(result)
	submissionsTotal.WithLabelValues(string(in.Stage), classification.Class.String()).Inc()

	outcome := c.apply(in, classification)
	c.logger.WithFields(map[string]interface{}{
		"subject":     in.Subject,
		"stage":       string(in.Stage),
		"class":       outcome.Class,
		"investigate": outcome.Investigate,
	}).Debug("Submission applied")
	return outcome, nil
}

// apply translates a classification into a notification, a possible level
// bump, and the firewall signal.
func (c *Controller) apply(in SubmitInput, classification Classification) *Outcome {
	outcome := &Outcome{
		Class:       classification.Class.String(),
		Investigate: c.roster.Level(in.Subject),
	}

	switch classification.Class {
	case ResultTweetsExist:
		outcome.Severity = notify.SeverityInfo
		outcome.Message = "Tweets already indexed in database"
	case ResultUserIndexed:
		outcome.Severity = notify.SeverityDefault
		outcome.Message = "User already indexed in database"
	case ResultNoTweets:
		outcome.Severity = notify.SeverityInfo
		outcome.Message = "No tweets found. User indexed"
	case ResultUsernameMismatch:
		outcome.Severity = notify.SeverityError
		outcome.Message = "Username mismatch"
	case ResultBadArguments:
		outcome.Severity = notify.SeverityError
		outcome.Message = "Internal server error"
	case ResultFirewalled:
		outcome.Severity = notify.SeverityError
		outcome.Message = "Twitter firewalled. Try again later!"
		c.signalFirewall()
	case ResultFetchFailed:
		outcome.Severity = notify.SeverityError
		outcome.Message = "Failed to fetch tweets"
	case ResultProcessed:
		if classification.Processed > 0 {
			outcome.Severity = notify.SeveritySuccess
			outcome.Message = "Some tweets contextualised successfully"
			outcome.Investigate = c.roster.Advance(in.Subject)
		} else {
			outcome.Severity = notify.SeverityError
			outcome.Message = "Internal server error. No tweets processed"
		}
	case ResultSaved:
		outcome.Severity = notify.SeveritySuccess
		if classification.Successes == classification.Total {
			outcome.Message = "All tweets indexed successfully"
		} else {
			outcome.Message = "Some tweets indexed successfully. Duplicates ignored."
		}
		outcome.Investigate = c.roster.Advance(in.Subject)
	default:
		outcome.Severity = notify.SeveritySuccess
		if len(in.Classes) > 0 {
			outcome.Message = "Blames added successfully"
		} else {
			outcome.Message = "Tweets indexed successfully"
		}
		outcome.Investigate = c.roster.Advance(in.Subject)
	}

	c.notify(outcome)
	return outcome
}

func (c *Controller) notify(outcome *Outcome) {
	switch outcome.Severity {
	case notify.SeverityInfo:
		c.notifier.Info(outcome.Message)
	case notify.SeveritySuccess:
		c.notifier.Success(outcome.Message)
	case notify.SeverityError:
		c.notifier.Error(outcome.Message)
	default:
		c.notifier.Default(outcome.Message)
	}
}

func (c *Controller) signalFirewall() {
	if c.onFirewall == nil {
		return
	}
	if c.firewallDelay <= 0 {
		c.onFirewall()
		return
	}
	time.AfterFunc(c.firewallDelay, c.onFirewall)
}

func (c *Controller) acquire(subject string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[subject] {
		return false
	}
	c.inflight[subject] = true
	return true
}

func (c *Controller) release(subject string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, subject)
}

// joinOrMarker comma-joins values, or returns the empty-marker comma the
// proxy expects for an absent list.
func joinOrMarker(values []string) string {
	if len(values) == 0 {
		return emptyMarker
	}
	return strings.Join(values, ",")
}
