package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	httpmiddleware "github.com/ghostboard/ghostboard/internal/http"
	"github.com/ghostboard/ghostboard/internal/identity"
	"github.com/ghostboard/ghostboard/internal/logger"
	"github.com/ghostboard/ghostboard/internal/ratelimit"
	"github.com/ghostboard/ghostboard/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Server wires the ingestion pipeline to its HTTP surface.
type Server struct {
	service     *ReportService
	companies   store.CompanyStore
	reports     store.ReportStore
	hasher      *identity.Hasher
	readLimiter *ratelimit.Limiter
}

// NewServer creates a new server over the given service and stores.
func NewServer(service *ReportService, companies store.CompanyStore, reports store.ReportStore, hasher *identity.Hasher, readLimiter *ratelimit.Limiter) *Server {
	return &Server{
		service:     service,
		companies:   companies,
		reports:     reports,
		hasher:      hasher,
		readLimiter: readLimiter,
	}
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("POST /api/reports", s.submitReport)

	// Read endpoints are public and cheap to scrape, so they sit behind the
	// best-effort limiter. The write path above never does.
	readLimit := s.readLimiter.Middleware("reports-read", s.hasher)
	mux.Handle("GET /api/companies/{id}/reports", readLimit(http.HandlerFunc(s.listCompanyReports)))

	return logger.Requests(log)(httpmiddleware.ClientIPMiddleware()(mux))
}

type submitReportRequest struct {
	CompanyName string `json:"company_name"`
	Country     string `json:"country"`
	Stage       string `json:"stage"`
	Level       string `json:"level"`
	Category    string `json:"category"`
	Detail      string `json:"detail"`
	ElapsedDays *int   `json:"elapsed_days"`
}

type submitReportResponse struct {
	ReportID  string `json:"report_id"`
	CompanyID string `json:"company_id"`
	Status    string `json:"status"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) submitReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if req.Stage == "" || req.Level == "" || req.Category == "" || req.Detail == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "stage, level, category, and detail are required"})
		return
	}

	report, err := s.service.Submit(ctx, httpmiddleware.ClientIPFromContext(ctx), SubmitInput{
		CompanyName: req.CompanyName,
		Country:     req.Country,
		Stage:       req.Stage,
		Level:       req.Level,
		Category:    req.Category,
		Detail:      req.Detail,
		ElapsedDays: req.ElapsedDays,
	})
	if err != nil {
		s.writeSubmitError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, submitReportResponse{
		ReportID:  report.ID.String(),
		CompanyID: report.CompanyID.String(),
		Status:    report.Status,
	})
}

// writeSubmitError maps pipeline errors to response classes. Quota
// rejections are expected traffic and logged at debug; internal faults are
// logged at error and rendered without detail.
func (s *Server) writeSubmitError(ctx context.Context, w http.ResponseWriter, err error) {
	log := zerolog.Ctx(ctx)

	switch {
	case errors.Is(err, identity.ErrMissingIdentity):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "submitter identity could not be determined"})

	case errors.Is(err, store.ErrInvalidCompanyName):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "company name is required"})

	default:
		if qe, ok := store.AsQuotaError(err); ok {
			log.Debug().Str("reason", string(qe.Reason)).Msg("Submission rejected by quota")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: qe.Message, Reason: string(qe.Reason)})
			return
		}

		log.Error().Err(err).Msg("Submission failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

type reportResponse struct {
	ID          string `json:"id"`
	Stage       string `json:"stage"`
	Level       string `json:"level"`
	Category    string `json:"category"`
	Detail      string `json:"detail"`
	ElapsedDays *int   `json:"elapsed_days,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func (s *Server) listCompanyReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companyID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid company id"})
		return
	}

	if _, err := s.companies.Get(ctx, companyID); err != nil {
		if errors.Is(err, store.ErrCompanyNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "company not found"})
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to load company")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	reports, err := s.reports.ListByCompany(ctx, companyID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to list reports")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	out := make([]reportResponse, 0, len(reports))
	for _, report := range reports {
		out = append(out, reportResponse{
			ID:          report.ID.String(),
			Stage:       report.Stage,
			Level:       report.Level,
			Category:    report.Category,
			Detail:      report.Detail,
			ElapsedDays: report.ElapsedDays,
			Status:      report.Status,
			CreatedAt:   report.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"reports": out})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
