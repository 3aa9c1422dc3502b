package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	leadclaimengine "leadhub/contexts/lead-distribution/lead-claim-engine"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	httptransport "leadhub/contexts/lead-distribution/lead-claim-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "leadhub/internal/platform/httpserver/docs"
)

const (
	platformModule   = "internal/platform/httpserver"
	maxBodyBytes     = 1 << 20
	readHeaderBudget = 5 * time.Second
	shutdownBudget   = 10 * time.Second
)

// ReadinessCheck reports whether backing stores are reachable.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	addr      string
	leads     leadclaimengine.Module
	metrics   http.Handler
	readiness ReadinessCheck
}

func New(
	leads leadclaimengine.Module,
	metrics http.Handler,
	readiness ReadinessCheck,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		leads:     leads,
		metrics:   metrics,
		readiness: readiness,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the routed mux for in-process callers.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: readHeaderBudget,
	}
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", platformModule,
		"layer", "platform",
		"addr", s.addr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownBudget)
		defer cancel()
		s.logger.Info("http server stopping",
			"event", "http_server_stopping",
			"module", platformModule,
			"layer", "platform",
		)
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)

	s.mux.HandleFunc("GET /v1/tenant/leads", s.handleListTenantLeads)
	s.mux.HandleFunc("POST /v1/tenant/leads/{lead_id}/claim", s.handleClaimLead)
	s.mux.HandleFunc("POST /v1/tenant/leads/{lead_id}/release", s.handleReleaseClaim)
	s.mux.HandleFunc("GET /v1/tenant/settings", s.handleGetTenantSettings)
	s.mux.HandleFunc("PATCH /v1/tenant/settings", s.handlePatchTenantSettings)
	s.mux.HandleFunc("GET /v1/tenant/claims", s.handleListTenantClaims)
	s.mux.HandleFunc("POST /v1/leads/{lead_id}/recalculate", s.handleRecalculateScore)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.readiness != nil {
		if err := s.readiness(r.Context()); err != nil {
			writeLeadError(w, http.StatusServiceUnavailable, "not_ready", err.Error(), false)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListTenantLeads(w http.ResponseWriter, r *http.Request) {
	identity, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	req := httptransport.ListTenantLeadsRequest{
		Cursor:           query.Get("cursor"),
		VisibilityStatus: query.Get("visibility_status"),
	}
	if limitRaw := query.Get("limit"); limitRaw != "" {
		limit, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeLeadError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer", false)
			return
		}
		req.Limit = limit
	}
	if minRaw := query.Get("min_fit_score"); minRaw != "" {
		minFit, err := strconv.Atoi(minRaw)
		if err != nil {
			writeLeadError(w, http.StatusBadRequest, "invalid_min_fit_score", "min_fit_score must be an integer", false)
			return
		}
		req.MinFitScore = &minFit
	}

	resp, err := s.leads.Handler.ListTenantLeadsHandler(r.Context(), identity, req)
	if err != nil {
		writeLeadDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaimLead(w http.ResponseWriter, r *http.Request) {
	identity, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	var req httptransport.ClaimLeadRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	resp, err := s.leads.Handler.ClaimLeadHandler(
		r.Context(),
		identity,
		r.PathValue("lead_id"),
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeLeadDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleReleaseClaim(w http.ResponseWriter, r *http.Request) {
	identity, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	var req httptransport.ReleaseClaimRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	resp, err := s.leads.Handler.ReleaseClaimHandler(r.Context(), identity, r.PathValue("lead_id"), req)
	if err != nil {
		writeLeadDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecalculateScore(w http.ResponseWriter, r *http.Request) {
	identity, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	resp, err := s.leads.Handler.RecalculateScoreHandler(r.Context(), identity, r.PathValue("lead_id"))
	if err != nil {
		writeLeadDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTenantSettings(w http.ResponseWriter, r *http.Request) {
	identity, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	resp, err := s.leads.Handler.GetTenantSettingsHandler(r.Context(), identity)
	if err != nil {
		writeLeadDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePatchTenantSettings(w http.ResponseWriter, r *http.Request) {
	identity, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	var req httptransport.PatchTenantSettingsRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLeadError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", false)
		return
	}

	resp, err := s.leads.Handler.PatchTenantSettingsHandler(r.Context(), identity, req)
	if err != nil {
		writeLeadDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTenantClaims(w http.ResponseWriter, r *http.Request) {
	identity, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeLeadError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer", false)
			return
		}
		limit = parsed
	}

	resp, err := s.leads.Handler.ListTenantClaimsHandler(r.Context(), identity, limit)
	if err != nil {
		writeLeadDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func resolveIdentity(w http.ResponseWriter, r *http.Request) (httptransport.Identity, bool) {
	tenantID := strings.TrimSpace(r.Header.Get("X-Tenant-Id"))
	if tenantID == "" {
		writeLeadError(w, http.StatusUnauthorized, "missing_tenant", "X-Tenant-Id header is required", false)
		return httptransport.Identity{}, false
	}
	return httptransport.Identity{
		TenantID: tenantID,
		Role:     strings.TrimSpace(r.Header.Get("X-User-Role")),
		UserID:   strings.TrimSpace(r.Header.Get("X-User-Id")),
	}, true
}

// decodeOptionalBody accepts an empty body as the zero request.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		writeLeadError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", false)
		return false
	}
	return true
}

func writeLeadDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrInvalidClaimRequest),
		errors.Is(err, domainerrors.ErrInvalidLead):
		writeLeadError(w, http.StatusBadRequest, "invalid_request", err.Error(), false)
	case errors.Is(err, domainerrors.ErrInvalidListFilter),
		errors.Is(err, domainerrors.ErrInvalidCursor):
		writeLeadError(w, http.StatusBadRequest, "invalid_list_filter", err.Error(), false)
	case errors.Is(err, domainerrors.ErrInvalidSettings):
		writeLeadError(w, http.StatusBadRequest, "invalid_settings", err.Error(), false)
	case errors.Is(err, domainerrors.ErrForbidden):
		writeLeadError(w, http.StatusForbidden, "forbidden", err.Error(), false)
	case errors.Is(err, domainerrors.ErrLeadNotFound):
		writeLeadError(w, http.StatusNotFound, "lead_not_found", err.Error(), false)
	case errors.Is(err, domainerrors.ErrTenantSettingsNotFound):
		writeLeadError(w, http.StatusNotFound, "tenant_settings_not_found", err.Error(), false)
	case errors.Is(err, domainerrors.ErrClaimNotFound):
		writeLeadError(w, http.StatusNotFound, "claim_not_found", err.Error(), false)
	case errors.Is(err, domainerrors.ErrClaimConflict):
		writeLeadError(w, http.StatusConflict, "lead_already_claimed", err.Error(), true)
	case errors.Is(err, domainerrors.ErrIdempotencyKeyConflict):
		writeLeadError(w, http.StatusConflict, "idempotency_conflict", err.Error(), false)
	case errors.Is(err, domainerrors.ErrNotEligible):
		writeLeadError(w, http.StatusUnprocessableEntity, "not_eligible", err.Error(), false)
	case errors.Is(err, domainerrors.ErrInvalidLockMode):
		writeLeadError(w, http.StatusUnprocessableEntity, "invalid_lock_mode", err.Error(), false)
	default:
		writeLeadError(w, http.StatusInternalServerError, "internal_error", "internal server error", false)
	}
}

func writeLeadError(w http.ResponseWriter, status int, code string, message string, retryable bool) {
	writeJSON(w, status, httptransport.ErrorResponse{
		Code:      code,
		Message:   message,
		Retryable: retryable,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
