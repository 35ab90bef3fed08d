package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NandaniSingh69/PharmaTrack/alternatives"
	"github.com/NandaniSingh69/PharmaTrack/interfaces"
	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100

	noSharedInteractionsMessage = "No shared interaction alerts found in our dataset, but this is not a medical guarantee. Always consult a healthcare professional."
)

// Recommender produces alternatives for a target medicine
type Recommender interface {
	Recommend(ctx context.Context, req alternatives.Request) (*alternatives.Response, error)
}

// HTTPHandler serves the PharmaTrack API with injected dependencies
type HTTPHandler struct {
	store     interfaces.CatalogStore
	engine    Recommender
	validator interfaces.DataValidator
	health    interfaces.HealthChecker
	startTime time.Time
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(store interfaces.CatalogStore, engine Recommender, validator interfaces.DataValidator, health interfaces.HealthChecker) *HTTPHandler {
	return &HTTPHandler{
		store:     store,
		engine:    engine,
		validator: validator,
		health:    health,
		startTime: time.Now(),
	}
}

// Routes registers the API routes on r
func (h *HTTPHandler) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/medicines", h.SearchMedicines)
		r.Get("/medicines/{id}", h.FindMedicineByID)
		r.Get("/medicines/{id}/alternatives", h.FindAlternatives)
		r.Get("/interactions", h.CheckInteractions)
	})
	r.Get("/health", h.HealthCheck)
}

// MedicineDetail is a medicine with its side effects and interactions decoded
type MedicineDetail struct {
	entities.Medicine
	SideEffectsList    []string              `json:"sideEffectsList"`
	ParsedInteractions entities.Interactions `json:"parsedInteractions"`
}

// SearchResponse is the body of a medicine search
type SearchResponse struct {
	Count int                 `json:"count"`
	Data  []entities.Medicine `json:"data"`
}

// InteractionMedicine identifies one side of an interaction check
type InteractionMedicine struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// InteractionResponse is the outcome of a pairwise interaction check
type InteractionResponse struct {
	Medicines           []InteractionMedicine `json:"medicines"`
	CommonDrugs         []string              `json:"commonDrugs"`
	PossibleInteraction bool                  `json:"possibleInteraction"`
	Message             string                `json:"message"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// FindMedicineByID returns one medicine by its id
func (h *HTTPHandler) FindMedicineByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.validator.ValidateID(id); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	med, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		respondWithEngineError(w, r, storeError(err))
		return
	}
	if med == nil {
		RespondWithError(w, http.StatusNotFound, "Medicine not found")
		return
	}

	sideEffects := med.SideEffectsList()
	if sideEffects == nil {
		sideEffects = []string{}
	}

	RespondWithJSON(w, http.StatusOK, MedicineDetail{
		Medicine:           *med,
		SideEffectsList:    sideEffects,
		ParsedInteractions: med.Interactions(),
	})
}

// SearchMedicines finds medicines whose name, composition or ingredients contain the search term
func (h *HTTPHandler) SearchMedicines(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	if search == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing search term")
		return
	}

	if err := h.validator.ValidateInput(search); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := interfaces.SearchQuery{Text: search, Limit: defaultSearchLimit}

	if category := categoryParam(r); category != "" {
		parsed, ok := entities.ParseCategory(category)
		if !ok {
			RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Unknown category %q", category))
			return
		}
		query.Category = parsed
	}

	maxPrice, err := floatParam(r, "maxPrice")
	if err == nil && maxPrice != nil && *maxPrice < 0 {
		err = invalidParam("maxPrice", r.URL.Query().Get("maxPrice"), "a non-negative number")
	}
	if err != nil {
		respondWithEngineError(w, r, err)
		return
	}
	query.MaxPrice = maxPrice

	limit, err := intParam(r, "limit")
	if err == nil && limit != nil && *limit < 1 {
		err = invalidParam("limit", r.URL.Query().Get("limit"), "a positive integer")
	}
	if err != nil {
		respondWithEngineError(w, r, err)
		return
	}
	if limit != nil {
		query.Limit = min(*limit, maxSearchLimit)
	}

	results, err := h.store.Search(r.Context(), query)
	if err != nil {
		respondWithEngineError(w, r, storeError(err))
		return
	}
	if results == nil {
		results = []entities.Medicine{}
	}

	// Always return 200 with results array (empty if no matches)
	RespondWithJSON(w, http.StatusOK, SearchResponse{Count: len(results), Data: results})
}

// FindAlternatives ranks alternatives for the medicine in the path
func (h *HTTPHandler) FindAlternatives(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.validator.ValidateID(id); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := alternatives.Request{TargetID: id, Category: categoryParam(r)}

	var err error
	if req.MinScore, err = floatParam(r, "minScore"); err != nil {
		respondWithEngineError(w, r, err)
		return
	}
	if req.MaxResults, err = intParam(r, "maxResults"); err != nil {
		respondWithEngineError(w, r, err)
		return
	}
	if req.MaxPrice, err = floatParam(r, "maxPrice"); err != nil {
		respondWithEngineError(w, r, err)
		return
	}
	if req.ExcludeSameName, err = boolParam(r, "excludeSameName"); err != nil {
		respondWithEngineError(w, r, err)
		return
	}

	resp, err := h.engine.Recommend(r.Context(), req)
	if err != nil {
		respondWithEngineError(w, r, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, resp)
}

// CheckInteractions reports the interaction drugs two medicines have in common
func (h *HTTPHandler) CheckInteractions(w http.ResponseWriter, r *http.Request) {
	idA := strings.TrimSpace(r.URL.Query().Get("a"))
	idB := strings.TrimSpace(r.URL.Query().Get("b"))

	if idA == "" || idB == "" {
		RespondWithError(w, http.StatusBadRequest, "Select exactly two medicines to check interactions")
		return
	}
	if idA == idB {
		RespondWithError(w, http.StatusBadRequest, "Select two different medicines to check interactions")
		return
	}
	for _, id := range []string{idA, idB} {
		if err := h.validator.ValidateID(id); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	pair := make([]*entities.Medicine, 0, 2)
	for _, id := range []string{idA, idB} {
		med, err := h.store.FindByID(r.Context(), id)
		if err != nil {
			respondWithEngineError(w, r, storeError(err))
			return
		}
		if med == nil {
			RespondWithError(w, http.StatusNotFound, fmt.Sprintf("Medicine not found: %s", id))
			return
		}
		pair = append(pair, med)
	}

	common := alternatives.CommonInteractionDrugs(pair[0].Interactions(), pair[1].Interactions())

	response := InteractionResponse{
		Medicines: []InteractionMedicine{
			{ID: pair[0].ID, Name: pair[0].Name},
			{ID: pair[1].ID, Name: pair[1].Name},
		},
		CommonDrugs:         common,
		PossibleInteraction: len(common) > 0,
		Message:             interactionMessage(common),
	}

	RespondWithJSON(w, http.StatusOK, response)
}

// interactionMessage names at most three shared drugs
func interactionMessage(common []string) string {
	if len(common) == 0 {
		return noSharedInteractionsMessage
	}
	shown := common[:min(len(common), 3)]
	return fmt.Sprintf("Possible interaction: both medicines have interaction alerts for %s. Always consult a healthcare professional.",
		strings.Join(shown, ", "))
}

// HealthCheck returns server and catalog health information
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, data, httpStatus := h.health.HealthCheck()
	uptime := time.Since(h.startTime)

	response := HealthResponse{
		Status:        status,
		Uptime:        formatUptimeHuman(uptime),
		UptimeSeconds: uptime.Seconds(),
		Data:          data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	RespondWithJSON(w, httpStatus, response)
}
