package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/NandaniSingh69/PharmaTrack/data"
	"github.com/NandaniSingh69/PharmaTrack/interfaces"
	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
	"github.com/NandaniSingh69/PharmaTrack/metrics"
	"github.com/NandaniSingh69/PharmaTrack/validation"
)

// mockSchedulerCatalog records replacements
type mockSchedulerCatalog struct {
	mu          sync.Mutex
	medicines   []entities.Medicine
	report      *interfaces.DataQualityReport
	lastUpdated time.Time
	updateCount int
	replaceErr  error
	updating    atomic.Bool
}

func (m *mockSchedulerCatalog) ReplaceAll(ctx context.Context, medicines []entities.Medicine, report *interfaces.DataQualityReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.medicines = medicines
	m.report = report
	m.lastUpdated = time.Now()
	m.updateCount++
	return nil
}

func (m *mockSchedulerCatalog) BeginUpdate() bool {
	return m.updating.CompareAndSwap(false, true)
}

func (m *mockSchedulerCatalog) EndUpdate() {
	m.updating.Store(false)
}

func (m *mockSchedulerCatalog) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.medicines)
}

func (m *mockSchedulerCatalog) GetLastUpdated() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpdated
}

func (m *mockSchedulerCatalog) IsUpdating() bool {
	return m.updating.Load()
}

func (m *mockSchedulerCatalog) GetDataQualityReport() *interfaces.DataQualityReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.report
}

// mockSchedulerParser returns a fixed catalog or error
type mockSchedulerParser struct {
	shouldFail bool
	parseCount atomic.Int32
	block      chan struct{}
}

func (m *mockSchedulerParser) ParseAllMedicines(ctx context.Context) ([]entities.Medicine, error) {
	m.parseCount.Add(1)
	if m.block != nil {
		<-m.block
	}
	if m.shouldFail {
		return nil, errors.New("mock parse error")
	}
	return []entities.Medicine{
		{ID: "1", Name: "Crocin", Composition: "Paracetamol (500mg)", Ingredients: []string{"Paracetamol"}, Category: entities.CategoryAnalgesics, Price: 30},
		{ID: "2", Name: "Dolo 650", Composition: "Paracetamol (650mg)", Ingredients: []string{"Paracetamol"}, Category: entities.CategoryAnalgesics},
	}, nil
}

func TestScheduler_SuccessfulUpdate(t *testing.T) {
	catalog := &mockSchedulerCatalog{}
	parser := &mockSchedulerParser{}

	scheduler := NewScheduler(catalog, parser, validation.NewDataValidator(), []string{"06:00", "18:00"})

	if err := scheduler.Start(); err != nil {
		t.Fatalf("Unexpected error during start: %v", err)
	}
	defer scheduler.Stop()

	if catalog.updateCount != 1 {
		t.Errorf("Expected 1 update, got %d", catalog.updateCount)
	}
	if got := parser.parseCount.Load(); got != 1 {
		t.Errorf("Expected 1 parse call, got %d", got)
	}
	if catalog.Count() != 2 {
		t.Errorf("Expected 2 medicines, got %d", catalog.Count())
	}
	if report := catalog.GetDataQualityReport(); report == nil || report.TotalMedicines != 2 || report.MedicinesWithoutPrice != 1 {
		t.Errorf("Expected the data quality report to be stored, got %+v", report)
	}
	if catalog.IsUpdating() {
		t.Error("Update flag should be released after the refresh")
	}
	if got := testutil.ToFloat64(metrics.CatalogMedicines); got != 2 {
		t.Errorf("Expected the catalog gauge to be 2, got %v", got)
	}
	if jobs := scheduler.scheduler.Jobs(); len(jobs) != 1 {
		t.Errorf("Expected 1 scheduled job, got %d", len(jobs))
	}
}

func TestScheduler_ParseFailure(t *testing.T) {
	catalog := &mockSchedulerCatalog{}
	scheduler := NewScheduler(catalog, &mockSchedulerParser{shouldFail: true}, validation.NewDataValidator(), nil)

	err := scheduler.Start()
	if err == nil {
		t.Fatal("Expected an error when the initial load fails on an empty catalog")
	}
	if catalog.updateCount != 0 {
		t.Errorf("Expected no update, got %d", catalog.updateCount)
	}
	if catalog.IsUpdating() {
		t.Error("Update flag should be released after a failed refresh")
	}
}

func TestScheduler_InitialFailureWithExistingCatalog(t *testing.T) {
	catalog := &mockSchedulerCatalog{medicines: make([]entities.Medicine, 3), lastUpdated: time.Now()}
	scheduler := NewScheduler(catalog, &mockSchedulerParser{shouldFail: true}, validation.NewDataValidator(), nil)

	if err := scheduler.Start(); err != nil {
		t.Fatalf("Expected the existing catalog to keep serving, got %v", err)
	}
	scheduler.Stop()

	if catalog.Count() != 3 {
		t.Errorf("Existing catalog should be untouched, got %d medicines", catalog.Count())
	}
}

func TestScheduler_ReplaceFailure(t *testing.T) {
	catalog := &mockSchedulerCatalog{replaceErr: errors.New("disk full")}
	scheduler := NewScheduler(catalog, &mockSchedulerParser{}, validation.NewDataValidator(), nil)

	err := scheduler.Refresh(context.Background())
	if err == nil || !errors.Is(err, catalog.replaceErr) {
		t.Fatalf("Expected the replace error to be wrapped, got %v", err)
	}
}

func TestScheduler_ConcurrentUpdatePrevention(t *testing.T) {
	catalog := &mockSchedulerCatalog{}
	parser := &mockSchedulerParser{block: make(chan struct{})}
	scheduler := NewScheduler(catalog, parser, validation.NewDataValidator(), nil)

	done := make(chan error, 1)
	go func() {
		done <- scheduler.Refresh(context.Background())
	}()

	// Wait for the first refresh to hold the update flag
	deadline := time.Now().Add(2 * time.Second)
	for !catalog.IsUpdating() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := scheduler.Refresh(context.Background()); !errors.Is(err, ErrUpdateInProgress) {
		t.Errorf("Expected ErrUpdateInProgress, got %v", err)
	}

	close(parser.block)
	if err := <-done; err != nil {
		t.Fatalf("First refresh failed: %v", err)
	}

	if got := parser.parseCount.Load(); got != 1 {
		t.Errorf("Expected a single parse, got %d", got)
	}
	if catalog.updateCount != 1 {
		t.Errorf("Expected a single update, got %d", catalog.updateCount)
	}
}

func TestScheduler_InvalidRefreshTime(t *testing.T) {
	scheduler := NewScheduler(&mockSchedulerCatalog{}, &mockSchedulerParser{}, validation.NewDataValidator(), []string{"25:99"})

	if err := scheduler.Start(); err == nil {
		scheduler.Stop()
		t.Fatal("Expected an error for an invalid refresh time")
	}
}

func TestScheduler_WithDataContainer(t *testing.T) {
	store := data.NewDataContainer()
	scheduler := NewScheduler(store, &mockSchedulerParser{}, validation.NewDataValidator(), nil)

	if err := scheduler.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	med, err := store.FindByID(context.Background(), "2")
	if err != nil || med == nil || med.Name != "Dolo 650" {
		t.Errorf("Expected the refreshed catalog to be served, got %v, %v", med, err)
	}
}

func TestScheduler_CheckStaleness(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	catalog := &mockSchedulerCatalog{lastUpdated: now.Add(-26 * time.Hour)}
	scheduler := NewScheduler(catalog, &mockSchedulerParser{}, validation.NewDataValidator(), nil)

	if !scheduler.checkStaleness(now) {
		t.Error("Expected a 26 hour old catalog to be reported stale")
	}

	catalog.lastUpdated = now.Add(-time.Hour)
	if scheduler.checkStaleness(now) {
		t.Error("Expected a fresh catalog not to be reported stale")
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	scheduler := NewScheduler(&mockSchedulerCatalog{}, &mockSchedulerParser{}, validation.NewDataValidator(), nil)
	if err := scheduler.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	scheduler.Stop()
	scheduler.Stop()
}
