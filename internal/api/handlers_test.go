package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docal-console/internal/config"
	"github.com/docal-console/internal/investigate"
	"github.com/docal-console/internal/notify"
	"github.com/docal-console/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	result string
	err    error
	calls  int
}

func (g *fakeGateway) Process(ctx context.Context, req types.ProcessRequest) (string, error) {
	g.calls++
	return g.result, g.err
}

type fakeSigner struct {
	address string
}

func (s *fakeSigner) Address() string { return s.address }

func (s *fakeSigner) SignMessage(message []byte) ([]byte, error) {
	return []byte("sig"), nil
}

type fakeScheduleFetcher struct {
	rows []types.ScheduleRecord
	err  error
}

func (f *fakeScheduleFetcher) FetchSchedule(ctx context.Context, caller string) ([]types.ScheduleRecord, error) {
	return f.rows, f.err
}

type fakeSubjectFetcher struct {
	rows []types.SubjectRow
	err  error
}

func (f *fakeSubjectFetcher) FetchSubjects(ctx context.Context) ([]types.SubjectRow, error) {
	return f.rows, f.err
}

type fakeBalanceFetcher struct {
	lamports uint64
	err      error
}

func (f *fakeBalanceFetcher) GetBalance(ctx context.Context, address string) (uint64, error) {
	return f.lamports, f.err
}

type testServerOptions struct {
	gateway  *fakeGateway
	signer   *fakeSigner
	schedule *fakeScheduleFetcher
	subjects *fakeSubjectFetcher
	balances BalanceFetcher
	openGate bool
}

func newTestServer(t *testing.T, opts testServerOptions) *Server {
	t.Helper()

	if opts.gateway == nil {
		opts.gateway = &fakeGateway{result: "ok"}
	}
	if opts.schedule == nil {
		opts.schedule = &fakeScheduleFetcher{}
	}
	if opts.subjects == nil {
		opts.subjects = &fakeSubjectFetcher{}
	}

	caller := ""
	cfg := investigate.ControllerConfig{
		Gateway:       opts.gateway,
		Notifier:      notify.NewRecorder(),
		FirewallDelay: -1,
	}
	if opts.signer != nil {
		caller = opts.signer.address
		cfg.Signer = opts.signer
	}
	controller := investigate.NewController(cfg)

	gate := investigate.NewGate(opts.schedule, caller)
	if opts.openGate {
		_, err := gate.Refresh(context.Background())
		require.NoError(t, err)
	}

	return NewServer(&config.ServerConfig{
		Host:              "127.0.0.1",
		Port:              "0",
		RequestsPerSecond: 1000,
	}, ServerDeps{
		Controller: controller,
		Gate:       gate,
		Subjects:   opts.subjects,
		Balances:   opts.balances,
		Caller:     caller,
	})
}

func doRequest(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, testServerOptions{})
	w := doRequest(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListSubjects(t *testing.T) {
	server := newTestServer(t, testServerOptions{
		subjects: &fakeSubjectFetcher{rows: []types.SubjectRow{
			{Username: "alice", Trust: 5, Investigate: 2},
			{Username: "bob", Trust: 99},
		}},
	})

	w := doRequest(t, server, http.MethodGet, "/api/subjects", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var subjects []types.Subject
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &subjects))
	require.Len(t, subjects, 2)
	assert.Equal(t, "alice", subjects[0].Username)
	assert.Equal(t, types.TrustScam, subjects[0].Trust)
	// Out-of-range trust codes collapse to Unknown.
	assert.Equal(t, types.TrustUnknown, subjects[1].Trust)
}

func TestListSubjectsProxyError(t *testing.T) {
	server := newTestServer(t, testServerOptions{
		subjects: &fakeSubjectFetcher{err: errors.New("proxy down")},
	})

	w := doRequest(t, server, http.MethodGet, "/api/subjects", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestListSubjectsServesRoster(t *testing.T) {
	fetcher := &fakeSubjectFetcher{rows: []types.SubjectRow{{Username: "alice"}}}
	server := newTestServer(t, testServerOptions{subjects: fetcher})

	w := doRequest(t, server, http.MethodGet, "/api/subjects", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Second load is served from the roster; the proxy is not consulted.
	fetcher.err = errors.New("proxy down")
	w = doRequest(t, server, http.MethodGet, "/api/subjects", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// An explicit refresh bypasses the roster.
	w = doRequest(t, server, http.MethodGet, "/api/subjects?refresh=true", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestInvestigateInvalidJSON(t *testing.T) {
	server := newTestServer(t, testServerOptions{openGate: true})

	req := httptest.NewRequest(http.MethodPost, "/api/subjects/alice/investigate",
		bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvestigateMissingStage(t *testing.T) {
	server := newTestServer(t, testServerOptions{openGate: true})

	w := doRequest(t, server, http.MethodPost, "/api/subjects/alice/investigate",
		map[string]interface{}{"links": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvestigateInvalidLink(t *testing.T) {
	server := newTestServer(t, testServerOptions{openGate: true})

	w := doRequest(t, server, http.MethodPost, "/api/subjects/alice/investigate",
		map[string]interface{}{
			"stage": "scrape",
			"links": []string{"https://example.com/foo"},
		})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "valid tweet link")
}

func TestInvestigateUnknownClass(t *testing.T) {
	server := newTestServer(t, testServerOptions{openGate: true})

	w := doRequest(t, server, http.MethodPost, "/api/subjects/alice/investigate",
		map[string]interface{}{
			"stage":   "scrape",
			"classes": []string{"Not a real class"},
		})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvestigateGateClosed(t *testing.T) {
	server := newTestServer(t, testServerOptions{
		signer:   &fakeSigner{address: "caller-addr"},
		openGate: false,
	})

	w := doRequest(t, server, http.MethodPost, "/api/subjects/alice/investigate",
		map[string]interface{}{"stage": "scrape"})
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Contains(t, w.Body.String(), "SCHEDULE_LOCKED")
}

func TestInvestigateRequiresWallet(t *testing.T) {
	gateway := &fakeGateway{result: "ok"}
	server := newTestServer(t, testServerOptions{
		gateway:  gateway,
		openGate: true,
	})

	w := doRequest(t, server, http.MethodPost, "/api/subjects/alice/investigate",
		map[string]interface{}{"stage": "scrape"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, gateway.calls)
}

func TestInvestigateNotImplementedStage(t *testing.T) {
	server := newTestServer(t, testServerOptions{
		signer:   &fakeSigner{address: "caller-addr"},
		openGate: true,
	})

	w := doRequest(t, server, http.MethodPost, "/api/subjects/alice/investigate",
		map[string]interface{}{"stage": "classify"})
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestInvestigateSuccess(t *testing.T) {
	gateway := &fakeGateway{result: "5 tweets saved to db (5/5)"}
	server := newTestServer(t, testServerOptions{
		gateway:  gateway,
		signer:   &fakeSigner{address: "caller-addr"},
		openGate: true,
	})

	w := doRequest(t, server, http.MethodPost, "/api/subjects/alice/investigate",
		map[string]interface{}{
			"stage": "scrape",
			"links": []string{"https://x.com/alice/status/123"},
		})
	require.Equal(t, http.StatusOK, w.Code)

	var outcome investigate.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, notify.SeveritySuccess, outcome.Severity)
	assert.Equal(t, "All tweets indexed successfully", outcome.Message)
	assert.Equal(t, 1, outcome.Investigate)
	assert.Equal(t, 1, gateway.calls)
}

func TestScheduleRequiresWallet(t *testing.T) {
	server := newTestServer(t, testServerOptions{})

	w := doRequest(t, server, http.MethodGet, "/api/schedule", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestScheduleRefreshes(t *testing.T) {
	server := newTestServer(t, testServerOptions{
		signer:   &fakeSigner{address: "caller-addr"},
		schedule: &fakeScheduleFetcher{},
	})

	w := doRequest(t, server, http.MethodGet, "/api/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status investigate.GateStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Open)
	assert.True(t, status.Known)
}

func TestSchedulePendingRecord(t *testing.T) {
	server := newTestServer(t, testServerOptions{
		signer: &fakeSigner{address: "caller-addr"},
		schedule: &fakeScheduleFetcher{
			rows: []types.ScheduleRecord{{Username: "alice", TweetIDs: []string{"1"}}},
		},
	})

	w := doRequest(t, server, http.MethodGet, "/api/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status investigate.GateStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.Open)
	require.NotNil(t, status.Record)
	assert.Equal(t, "caller-addr", status.Record.Caller)
}

func TestAccountRequiresWallet(t *testing.T) {
	server := newTestServer(t, testServerOptions{})

	w := doRequest(t, server, http.MethodGet, "/api/account", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccount(t *testing.T) {
	server := newTestServer(t, testServerOptions{
		signer:   &fakeSigner{address: "caller-addr"},
		balances: &fakeBalanceFetcher{lamports: 1_500_000_000},
	})

	w := doRequest(t, server, http.MethodGet, "/api/account", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp accountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "caller-addr", resp.Address)
	require.NotNil(t, resp.Lamports)
	assert.Equal(t, uint64(1_500_000_000), *resp.Lamports)
}

func TestAccountBalanceFailureIsSoft(t *testing.T) {
	server := newTestServer(t, testServerOptions{
		signer:   &fakeSigner{address: "caller-addr"},
		balances: &fakeBalanceFetcher{err: errors.New("rpc down")},
	})

	w := doRequest(t, server, http.MethodGet, "/api/account", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp accountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Lamports)
}

func TestClassifiers(t *testing.T) {
	server := newTestServer(t, testServerOptions{})

	w := doRequest(t, server, http.MethodGet, "/api/classifiers", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var labels []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &labels))
	assert.Equal(t, types.ScamClassifiers, labels)
}
