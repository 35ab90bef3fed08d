// Package scheduler provides automated catalog refresh scheduling and staleness
// monitoring. It runs cron-based imports and swaps the result into the catalog
// store using dependency injection.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/NandaniSingh69/PharmaTrack/interfaces"
	"github.com/NandaniSingh69/PharmaTrack/logging"
	"github.com/NandaniSingh69/PharmaTrack/metrics"
	"github.com/NandaniSingh69/PharmaTrack/validation"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const (
	staleWarningAge = 25 * time.Hour
	monitorInterval = time.Hour
)

// ErrUpdateInProgress is returned by Refresh when another refresh holds the catalog
var ErrUpdateInProgress = errors.New("catalog update already in progress")

// RefreshTarget is the catalog a scheduler keeps up to date
type RefreshTarget interface {
	interfaces.CatalogWriter
	interfaces.CatalogStats
}

// Scheduler handles catalog refreshes and staleness monitoring
type Scheduler struct {
	catalog   RefreshTarget
	parser    interfaces.Parser
	validator interfaces.DataValidator
	refreshAt []string
	scheduler *gocron.Scheduler

	stopOnce sync.Once
	stop     chan struct{}
}

// NewScheduler creates a scheduler refreshing catalog daily at each HH:MM in refreshAt
func NewScheduler(catalog RefreshTarget, parser interfaces.Parser, validator interfaces.DataValidator, refreshAt []string) *Scheduler {
	return &Scheduler{
		catalog:   catalog,
		parser:    parser,
		validator: validator,
		refreshAt: refreshAt,
		scheduler: gocron.NewScheduler(time.Local),
		stop:      make(chan struct{}),
	}
}

// Start performs the initial load, schedules the daily refreshes and starts
// staleness monitoring. A failed initial load is fatal only when the catalog is empty.
func (s *Scheduler) Start() error {
	if err := s.Refresh(context.Background()); err != nil {
		if s.catalog.Count() == 0 {
			logging.Error("Failed to perform initial catalog load", "error", err)
			return fmt.Errorf("initial catalog load failed: %w", err)
		}
		logging.Warn("Initial catalog refresh failed, serving the existing catalog", "error", err, "medicines", s.catalog.Count())
	}

	if len(s.refreshAt) > 0 {
		_, err := s.scheduler.Every(1).Days().At(strings.Join(s.refreshAt, ";")).Do(func() {
			if err := s.Refresh(context.Background()); err != nil && !errors.Is(err, ErrUpdateInProgress) {
				logging.Error("Failed to refresh catalog", "error", err)
			}
		})
		if err != nil {
			logging.Error("Failed to schedule catalog refreshes", "error", err)
			return fmt.Errorf("failed to schedule catalog refreshes: %w", err)
		}
	}

	s.scheduler.StartAsync()
	go s.monitorStaleness()

	return nil
}

// Stop stops the scheduler and the staleness monitor
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.scheduler.Stop()
		close(s.stop)
	})
}

// Refresh imports the catalog source and atomically replaces the catalog
func (s *Scheduler) Refresh(ctx context.Context) error {
	// Prevent concurrent updates
	if !s.catalog.BeginUpdate() {
		logging.Info("Update already in progress, skipping...")
		return ErrUpdateInProgress
	}
	defer s.catalog.EndUpdate()

	logging.Info(fmt.Sprintf("Starting catalog update at: %s", time.Now().Format(time.RFC3339)))
	start := time.Now()

	medicines, err := s.parser.ParseAllMedicines(ctx)
	if err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}

	report := s.validator.ReportDataQuality(medicines)
	validation.LogReport(report)

	if err := s.catalog.ReplaceAll(ctx, medicines, report); err != nil {
		return fmt.Errorf("failed to replace catalog: %w", err)
	}

	metrics.RecordCatalogRefresh(len(medicines), time.Now())

	elapsed := time.Since(start)
	logging.Info("Catalog update completed", "duration", elapsed.String(), "medicine_count", len(medicines))

	return nil
}

// monitorStaleness warns when the catalog has not been refreshed for too long
func (s *Scheduler) monitorStaleness() {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.checkStaleness(time.Now())
		}
	}
}

func (s *Scheduler) checkStaleness(now time.Time) bool {
	lastUpdate := s.catalog.GetLastUpdated()
	if now.Sub(lastUpdate) > staleWarningAge {
		logging.Warn("Catalog hasn't been updated in over 25 hours", "last_update", lastUpdate)
		return true
	}
	return false
}
