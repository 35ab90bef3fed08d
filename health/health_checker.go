// Package health reports whether the served catalog is fit to answer requests.
package health

import (
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/NandaniSingh69/PharmaTrack/interfaces"
)

const (
	staleAfter    = 24 * time.Hour
	unhealthyAge  = 48 * time.Hour
	slowUpdateAge = 6 * time.Hour
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	catalog      interfaces.CatalogStats
	refreshTimes []clock
	now          func() time.Time
}

type clock struct {
	hour, minute int
}

// NewHealthChecker creates a health checker over catalog. refreshAt lists the
// daily HH:MM times of the scheduled catalog refresh; invalid entries are ignored.
func NewHealthChecker(catalog interfaces.CatalogStats, refreshAt []string) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		catalog:      catalog,
		refreshTimes: parseClocks(refreshAt),
		now:          time.Now,
	}
}

func parseClocks(times []string) []clock {
	clocks := make([]clock, 0, len(times))
	for _, s := range times {
		t, err := time.Parse("15:04", s)
		if err != nil {
			continue
		}
		clocks = append(clocks, clock{hour: t.Hour(), minute: t.Minute()})
	}
	sort.Slice(clocks, func(i, j int) bool {
		if clocks[i].hour != clocks[j].hour {
			return clocks[i].hour < clocks[j].hour
		}
		return clocks[i].minute < clocks[j].minute
	})
	return clocks
}

// HealthCheck returns the catalog status with its details and HTTP code
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	count := h.catalog.Count()
	lastUpdate := h.catalog.GetLastUpdated()
	isUpdating := h.catalog.IsUpdating()

	dataAge := h.now().Sub(lastUpdate)

	switch {
	case count == 0 || lastUpdate.IsZero():
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > unhealthyAge:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > staleAfter:
		// Stale data still answers alternatives requests
		status = "degraded"
		httpStatus = http.StatusOK

	case isUpdating && dataAge > slowUpdateAge:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"medicines":   count,
		"is_updating": isUpdating,
	}

	if !lastUpdate.IsZero() {
		data["last_update"] = lastUpdate.Format(time.RFC3339)
		data["data_age_hours"] = math.Round(dataAge.Hours()*10) / 10
	}

	if next := h.CalculateNextUpdate(); !next.IsZero() {
		data["next_update"] = next.Format(time.RFC3339)
	}

	if report := h.catalog.GetDataQualityReport(); report != nil {
		data["data_quality"] = map[string]any{
			"duplicate_ids":       len(report.DuplicateIDs),
			"duplicate_products":  report.DuplicateProductKeys,
			"without_ingredients": report.MedicinesWithoutIngredients,
			"without_price":       report.MedicinesWithoutPrice,
			"bad_interactions":    report.MedicinesWithBadInteractions,
		}
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled refresh, or the zero time
// when no refresh is scheduled
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	if len(h.refreshTimes) == 0 {
		return time.Time{}
	}

	now := h.now()
	for _, c := range h.refreshTimes {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), c.hour, c.minute, 0, 0, now.Location())
		if candidate.After(now) {
			return candidate
		}
	}

	first := h.refreshTimes[0]
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), first.hour, first.minute, 0, 0, now.Location())
}
