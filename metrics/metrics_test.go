package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/NandaniSingh69/PharmaTrack/alternatives"
)

func TestRecorder(t *testing.T) {
	var rec Recorder

	ingredient := alternatives.TierIngredient.String()
	global := alternatives.TierGlobal.String()

	beforeCandidates := testutil.ToFloat64(TierCandidatesTotal.WithLabelValues(ingredient))
	beforeFailures := testutil.ToFloat64(TierFailuresTotal.WithLabelValues(global))
	beforeDuplicates := testutil.ToFloat64(DuplicatesRemovedTotal)

	rec.CandidatesRetrieved(alternatives.TierIngredient, 7)
	rec.TierFailed(alternatives.TierGlobal)
	rec.DuplicatesRemoved(2)
	rec.AlternativesReturned(5)

	if got := testutil.ToFloat64(TierCandidatesTotal.WithLabelValues(ingredient)) - beforeCandidates; got != 7 {
		t.Errorf("Expected 7 candidates recorded, got %v", got)
	}
	if got := testutil.ToFloat64(TierFailuresTotal.WithLabelValues(global)) - beforeFailures; got != 1 {
		t.Errorf("Expected 1 failure recorded, got %v", got)
	}
	if got := testutil.ToFloat64(DuplicatesRemovedTotal) - beforeDuplicates; got != 2 {
		t.Errorf("Expected 2 duplicates recorded, got %v", got)
	}
	if n := testutil.CollectAndCount(AlternativesReturned); n != 1 {
		t.Errorf("Expected the results histogram to be collected, got %d series", n)
	}
}

func TestRecordCatalogRefresh(t *testing.T) {
	at := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	RecordCatalogRefresh(1234, at)

	if got := testutil.ToFloat64(CatalogMedicines); got != 1234 {
		t.Errorf("Expected 1234 medicines, got %v", got)
	}
	if got := testutil.ToFloat64(CatalogLastRefresh); got != float64(at.Unix()) {
		t.Errorf("Expected refresh timestamp %d, got %v", at.Unix(), got)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/v1/medicines/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.WriteHeader(http.StatusInternalServerError)
	})
	r.Get("/v1/interactions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})

	notFound := HTTPRequestTotals.WithLabelValues(http.MethodGet, "/v1/medicines/{id}", "404")
	ok := HTTPRequestTotals.WithLabelValues(http.MethodGet, "/v1/interactions", "200")
	unmatched := HTTPRequestTotals.WithLabelValues(http.MethodGet, unmatchedRoute, "404")

	beforeNotFound := testutil.ToFloat64(notFound)
	beforeOK := testutil.ToFloat64(ok)
	beforeUnmatched := testutil.ToFloat64(unmatched)

	for _, path := range []string{"/v1/medicines/a", "/v1/medicines/b", "/v1/interactions", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(notFound) - beforeNotFound; got != 2 {
		t.Errorf("Expected 2 requests labelled with the route pattern and first status, got %v", got)
	}
	if got := testutil.ToFloat64(ok) - beforeOK; got != 1 {
		t.Errorf("Expected 1 ok request, got %v", got)
	}
	if got := testutil.ToFloat64(unmatched) - beforeUnmatched; got != 1 {
		t.Errorf("Expected 1 unmatched request, got %v", got)
	}
	if got := testutil.ToFloat64(HTTPRequestInFlight); got != 0 {
		t.Errorf("Expected no in-flight requests, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	Recorder{}.CandidatesRetrieved(alternatives.TierCategory, 1)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"alternatives_tier_candidates_total", "http_request_in_flight", "catalog_medicines"} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected %s in exposition", name)
		}
	}
}
