package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NandaniSingh69/PharmaTrack/alternatives"
	"github.com/NandaniSingh69/PharmaTrack/data"
	"github.com/NandaniSingh69/PharmaTrack/health"
	"github.com/NandaniSingh69/PharmaTrack/interfaces"
	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
	"github.com/NandaniSingh69/PharmaTrack/validation"
)

// ============================================================================
// TEST DATA
// ============================================================================

func testMedicines() []entities.Medicine {
	return []entities.Medicine{
		{
			ID: "crocin", Name: "Crocin 500", Composition: "Paracetamol (500mg)",
			Ingredients: []string{"Paracetamol"}, Manufacturer: "GSK", Price: 30,
			Category: entities.CategoryAnalgesics, SideEffects: "Nausea, Rash",
			DrugInteractions: `{"drug":["Warfarin","Alcohol"],"brand":[],"effect":["MAJOR"]}`,
		},
		{
			ID: "dolo", Name: "Dolo 650", Composition: "Paracetamol (650mg)",
			Ingredients: []string{"Paracetamol"}, Manufacturer: "Micro Labs", Price: 25,
			Category:         entities.CategoryAnalgesics,
			DrugInteractions: `{"drug":["warfarin"],"brand":[],"effect":["MAJOR"]}`,
		},
		{
			ID: "combiflam", Name: "Combiflam", Composition: "Ibuprofen (400mg) + Paracetamol (325mg)",
			Ingredients: []string{"Ibuprofen", "Paracetamol"}, Manufacturer: "Sanofi", Price: 45,
			Category: entities.CategoryAnalgesics,
		},
		{
			ID: "augmentin", Name: "Augmentin 625 Duo", Composition: "Amoxycillin (500mg) + Clavulanic Acid (125mg)",
			Ingredients: []string{"Amoxycillin", "Clavulanic Acid"}, Manufacturer: "GSK", Price: 220,
			Category: entities.CategoryAntibiotics, PrescriptionRequired: true,
		},
		{
			ID: "shelcal", Name: "Shelcal 500", Composition: "Calcium (500mg) + Vitamin D3",
			Ingredients: []string{"Calcium", "Vitamin D3"}, Manufacturer: "Torrent", Price: 110,
			Category: entities.CategorySupplements,
		},
	}
}

// ============================================================================
// TEST DOUBLES
// ============================================================================

// failingStore answers every query with err
type failingStore struct {
	err error
}

func (s failingStore) FindByID(ctx context.Context, id string) (*entities.Medicine, error) {
	return nil, s.err
}

func (s failingStore) FindMany(ctx context.Context, filter interfaces.Filter, limit int) ([]entities.Medicine, error) {
	return nil, s.err
}

func (s failingStore) RandomSample(ctx context.Context, filter interfaces.Filter, size int) ([]entities.Medicine, error) {
	return nil, s.err
}

func (s failingStore) Search(ctx context.Context, query interfaces.SearchQuery) ([]entities.Medicine, error) {
	return nil, s.err
}

// stubRecommender records the last request and answers with a fixed outcome
type stubRecommender struct {
	resp *alternatives.Response
	err  error
	last alternatives.Request
}

func (s *stubRecommender) Recommend(ctx context.Context, req alternatives.Request) (*alternatives.Response, error) {
	s.last = req
	return s.resp, s.err
}

// stubHealth returns a fixed health status
type stubHealth struct {
	status string
	code   int
}

func (s stubHealth) HealthCheck() (string, map[string]any, int) {
	return s.status, map[string]any{"medicines": 5}, s.code
}

func (s stubHealth) CalculateNextUpdate() time.Time {
	return time.Time{}
}

// ============================================================================
// HELPERS
// ============================================================================

// newTestHandler wires a handler over an in-memory catalog and a real engine
func newTestHandler(t testing.TB) *HTTPHandler {
	t.Helper()

	store := data.NewDataContainer()
	if err := store.ReplaceAll(context.Background(), testMedicines(), nil); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	engine, err := alternatives.NewEngine(store, alternatives.WithWorkers(2))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return NewHTTPHandler(store, engine, validation.NewDataValidator(), health.NewHealthChecker(store, []string{"06:00", "18:00"}))
}

// newRouter mounts the handler routes the way the server does
func newRouter(h *HTTPHandler) http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func serve(t testing.TB, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func decode[T any](t testing.TB, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode body %q: %v", rr.Body.String(), err)
	}
	return out
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

var errBackend = errors.New("database is locked")
