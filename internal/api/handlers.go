package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/docal-console/internal/investigate"
	"github.com/docal-console/internal/logging"
	"github.com/docal-console/internal/notify"
	"github.com/docal-console/internal/proxy"
	"github.com/docal-console/internal/storage"
	"github.com/docal-console/internal/types"
	"github.com/gorilla/mux"
)

// platform is the only subject listing currently served.
const platform = "twitter"

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListSubjects handles GET /api/subjects. Serves the in-memory roster
// when populated, then the cache, then the proxy; ?refresh=true forces a
// proxy fetch.
func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	refresh := r.URL.Query().Get("refresh") == "true"
	roster := s.controller.Roster()

	if !refresh {
		if roster.Len() > 0 {
			respondJSON(w, http.StatusOK, roster.List())
			return
		}
		if cached, err := s.cache.LoadSubjects(ctx, platform); err == nil {
			roster.Replace(cached)
			respondJSON(w, http.StatusOK, cached)
			return
		} else if !errors.Is(err, storage.ErrCacheMiss) {
			logger.WithError(err).Warn("Subject cache read failed")
		}
	}

	rows, err := s.subjects.FetchSubjects(ctx)
	if err != nil {
		logger.WithError(err).Error("Subject fetch failed")
		respondError(w, http.StatusBadGateway, ErrCodeProxyError, "Error fetching database", nil)
		return
	}

	subjects := types.Sanitise(rows)
	roster.Replace(subjects)
	if err := s.cache.StoreSubjects(ctx, platform, subjects); err != nil {
		logger.WithError(err).Warn("Subject cache write failed")
	}
	respondJSON(w, http.StatusOK, subjects)
}

// investigateRequest is the body of POST /api/subjects/{username}/investigate.
type investigateRequest struct {
	Stage   string   `json:"stage"`
	Links   []string `json:"links"`
	Classes []string `json:"classes"`
}

// handleInvestigate validates the link batch and the taxonomy labels,
// enforces the schedule gate, and relays the submission to the controller.
func (s *Server) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := mux.Vars(r)["username"]

	var req investigateRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Stage == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Stage is required", nil)
		return
	}

	batch := investigate.NewLinkBatch()
	for _, link := range req.Links {
		if err := batch.Append(link + ","); err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error(),
				map[string]interface{}{"link": link})
			return
		}
	}
	for _, label := range req.Classes {
		if !types.IsKnownClassifier(label) {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Unknown blame class",
				map[string]interface{}{"class": label})
			return
		}
	}

	if !s.gate.MaySubmit() {
		respondError(w, http.StatusLocked, ErrCodeScheduleLocked,
			"Scheduled submission pending. Refresh the schedule to check the cooldown.",
			map[string]interface{}{"schedule": s.gate.Status()})
		return
	}

	outcome, err := s.controller.Submit(ctx, investigate.SubmitInput{
		Subject:  username,
		Stage:    types.Stage(req.Stage),
		Evidence: batch.EvidenceIDs(),
		Classes:  req.Classes,
	})
	if err != nil {
		s.respondSubmitError(w, err)
		return
	}

	// Server-side state changed; the next listing must not serve the
	// stale cached table.
	if outcome.Severity == notify.SeveritySuccess {
		if err := s.cache.InvalidateSubjects(ctx, platform); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Subject cache invalidation failed")
		}
	}
	respondJSON(w, http.StatusOK, outcome)
}

// respondSubmitError maps controller errors onto HTTP statuses.
func (s *Server) respondSubmitError(w http.ResponseWriter, err error) {
	var transportErr *proxy.TransportError
	switch {
	case errors.Is(err, investigate.ErrAuthRequired):
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Please connect your wallet", nil)
	case errors.Is(err, investigate.ErrNotImplemented):
		respondError(w, http.StatusNotImplemented, ErrCodeNotImplemented, "Not yet implemented", nil)
	case errors.Is(err, investigate.ErrUnknownStage), errors.Is(err, investigate.ErrEmptySubject):
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error(), nil)
	case errors.Is(err, investigate.ErrSubmissionInFlight):
		respondError(w, http.StatusConflict, ErrCodeBusy, "A submission for this subject is already in progress", nil)
	case errors.As(err, &transportErr):
		respondError(w, http.StatusBadGateway, ErrCodeProxyError, "Error processing tweets", nil)
	default:
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Error processing tweets", nil)
	}
}

// handleSchedule handles GET /api/schedule. Always re-fetches: the gate
// only reopens through an explicit refresh.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.caller == "" {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Please connect your wallet", nil)
		return
	}

	status, err := s.gate.Refresh(ctx)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Error("Schedule fetch failed")
		respondError(w, http.StatusBadGateway, ErrCodeProxyError, "Error fetching database", nil)
		return
	}

	var rows []types.ScheduleRecord
	if status.Record != nil {
		rows = []types.ScheduleRecord{*status.Record}
	}
	if err := s.cache.StoreSchedule(ctx, s.caller, rows); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Schedule cache write failed")
	}
	respondJSON(w, http.StatusOK, status)
}

// accountResponse is the account panel payload.
type accountResponse struct {
	Address  string                 `json:"address"`
	Lamports *uint64                `json:"lamports,omitempty"`
	Schedule investigate.GateStatus `json:"schedule"`
}

// handleAccount handles GET /api/account.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.caller == "" {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Please connect your wallet", nil)
		return
	}

	resp := accountResponse{
		Address:  s.caller,
		Schedule: s.gate.Status(),
	}
	if s.balances != nil {
		if lamports, err := s.balances.GetBalance(ctx, s.caller); err == nil {
			resp.Lamports = &lamports
		} else {
			logging.FromContext(ctx).WithError(err).Warn("Balance lookup failed")
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleClassifiers handles GET /api/classifiers - the blame taxonomy the
// submission form offers.
func (s *Server) handleClassifiers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, types.ScamClassifiers)
}
