package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ghostboard/ghostboard/internal/identity"
	"github.com/ghostboard/ghostboard/internal/ratelimit"
	"github.com/ghostboard/ghostboard/internal/store/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, dailyMax, companyMax int) (http.Handler, *memory.CompanyStore, *ratelimit.Limiter) {
	t.Helper()

	hasher, err := identity.NewHasher([]byte("test-salt-key-minimum-32-bytes-long!"))
	require.NoError(t, err)

	companies := memory.NewCompanyStore()
	quotas := memory.NewQuotaStore(dailyMax, companyMax)
	reports := memory.NewReportStore()
	service := NewReportService(hasher, companies, quotas, reports)

	limiter := ratelimit.New(100, 100)
	t.Cleanup(limiter.Stop)

	srv := NewServer(service, companies, reports, hasher, limiter)
	return srv.Handler(zerolog.Nop()), companies, limiter
}

func postReport(t *testing.T, handler http.Handler, addr string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewReader(payload))
	if addr != "" {
		req.Header.Set("X-Forwarded-For", addr)
	} else {
		req.RemoteAddr = ""
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func validBody(detail string) map[string]any {
	return map[string]any{
		"company_name": "Acme Corp",
		"country":      "US",
		"stage":        "onsite",
		"level":        "senior",
		"category":     "engineering",
		"detail":       detail,
	}
}

func TestServer_SubmitReport(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		handler, _, _ := newTestServer(t, 5, 5)

		rec := postReport(t, handler, "203.0.113.7", validBody("backend engineer"))
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEmpty(t, resp["report_id"])
		require.NotEmpty(t, resp["company_id"])
		require.Equal(t, "pending", resp["status"])
	})

	t.Run("quota rejection carries reason", func(t *testing.T) {
		handler, _, _ := newTestServer(t, 1, 5)

		rec := postReport(t, handler, "203.0.113.7", validBody("backend engineer"))
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = postReport(t, handler, "203.0.113.7", validBody("frontend engineer"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "daily_limit_exceeded", resp["reason"])
		require.Equal(t, "You have reached the daily report limit.", resp["error"])
	})

	t.Run("duplicate position rejection", func(t *testing.T) {
		handler, _, _ := newTestServer(t, 5, 5)

		rec := postReport(t, handler, "203.0.113.7", validBody("backend engineer"))
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = postReport(t, handler, "203.0.113.7", validBody("Backend  Engineer"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "duplicate_position", resp["reason"])
	})

	t.Run("missing identity", func(t *testing.T) {
		handler, _, _ := newTestServer(t, 5, 5)

		rec := postReport(t, handler, "", validBody("backend engineer"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		handler, _, _ := newTestServer(t, 5, 5)

		body := validBody("backend engineer")
		delete(body, "stage")
		rec := postReport(t, handler, "203.0.113.7", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty company name", func(t *testing.T) {
		handler, _, _ := newTestServer(t, 5, 5)

		body := validBody("backend engineer")
		body["company_name"] = "   "
		rec := postReport(t, handler, "203.0.113.7", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_ListCompanyReports(t *testing.T) {
	handler, companies, _ := newTestServer(t, 5, 5)

	rec := postReport(t, handler, "203.0.113.7", validBody("backend engineer"))
	require.Equal(t, http.StatusCreated, rec.Code)

	company, err := companies.Resolve(context.Background(), "Acme Corp", "US")
	require.NoError(t, err)

	t.Run("lists reports", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/companies/"+company.ID.String()+"/reports", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Reports []map[string]any `json:"reports"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Reports, 1)
		require.Equal(t, "backend engineer", resp.Reports[0]["detail"])
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/companies/not-a-uuid/reports", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown company", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/companies/00000000-0000-0000-0000-000000000001/reports", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_ReadLimiter(t *testing.T) {
	hasher, err := identity.NewHasher([]byte("test-salt-key-minimum-32-bytes-long!"))
	require.NoError(t, err)

	companies := memory.NewCompanyStore()
	quotas := memory.NewQuotaStore(5, 5)
	reports := memory.NewReportStore()
	service := NewReportService(hasher, companies, quotas, reports)

	// One request per key, no refill worth mentioning within the test.
	limiter := ratelimit.New(0.001, 1)
	t.Cleanup(limiter.Stop)

	handler := NewServer(service, companies, reports, hasher, limiter).Handler(zerolog.Nop())

	company, err := companies.Resolve(context.Background(), "Acme Corp", "US")
	require.NoError(t, err)
	url := "/api/companies/" + company.ID.String() + "/reports"

	get := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("X-Forwarded-For", addr)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, get("203.0.113.7"))
	require.Equal(t, http.StatusTooManyRequests, get("203.0.113.7"))

	// Another client is unaffected.
	require.Equal(t, http.StatusOK, get("203.0.113.8"))

	// The write path is not limited.
	rec := postReport(t, handler, "203.0.113.7", validBody("backend engineer"))
	require.Equal(t, http.StatusCreated, rec.Code)
}
