/*
summary.go - Background dues summary refresher

PURPOSE:
  Periodically recomputes the school-wide dues snapshot (total payable,
  paid, outstanding, defaulter count) and caches it for the dashboard.
  The cache is a pure acceleration layer: every figure it holds can be
  recomputed from the stores at any time, and per-student statements
  never read it.

DESIGN:
  - Runs a background goroutine with configurable refresh interval
  - Refreshes immediately on start, then on every tick
  - A failed refresh keeps the previous snapshot and logs the error

USAGE:
  refresher := NewSummaryRefresher(handler)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - handlers.go: GetDueReport (the uncached per-request computation)
*/
package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

// SummaryRefresher maintains the cached dues snapshot.
type SummaryRefresher struct {
	Handler         *Handler
	RefreshInterval time.Duration
	Enabled         bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	summaryMu sync.RWMutex
	summary   *SummaryDTO
}

// NewSummaryRefresher creates a new refresher.
func NewSummaryRefresher(handler *Handler) *SummaryRefresher {
	return &SummaryRefresher{
		Handler:         handler,
		RefreshInterval: 15 * time.Minute,
		Enabled:         true,
		stop:            make(chan bool),
	}
}

// Start begins the refresher.
func (sr *SummaryRefresher) Start() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if !sr.Enabled {
		log.Println("[Summary] Disabled, not starting")
		return
	}

	sr.ticker = time.NewTicker(sr.RefreshInterval)
	sr.wg.Add(1)

	go sr.run()

	log.Printf("[Summary] Started with refresh interval: %v", sr.RefreshInterval)
}

// Stop stops the refresher.
func (sr *SummaryRefresher) Stop() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if sr.ticker != nil {
		sr.ticker.Stop()
		close(sr.stop)
		sr.wg.Wait()
		log.Println("[Summary] Stopped")
	}
}

func (sr *SummaryRefresher) run() {
	defer sr.wg.Done()

	// Refresh immediately on start
	sr.refresh()

	for {
		select {
		case <-sr.ticker.C:
			sr.refresh()
		case <-sr.stop:
			return
		}
	}
}

func (sr *SummaryRefresher) refresh() {
	ctx := context.Background()

	rows, err := sr.Handler.buildDueReport(ctx)
	if err != nil {
		log.Printf("[Summary] Refresh failed, keeping previous snapshot: %v", err)
		return
	}

	summary := SummaryDTO{
		Students:    len(rows),
		RefreshedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, row := range rows {
		summary.TotalPayable += row.TotalPayable
		summary.TotalPaid += row.TotalPaid
		summary.TotalDiscount += row.TotalDiscount
		summary.TotalDue += row.Due
		if row.Due > 0 {
			summary.Defaulters++
		}
	}

	sr.summaryMu.Lock()
	sr.summary = &summary
	sr.summaryMu.Unlock()

	log.Printf("[Summary] Refreshed: %d students, %d defaulters, %.2f due",
		summary.Students, summary.Defaulters, summary.TotalDue)
}

// GetSummary serves the cached snapshot, computing one on demand if the
// background refresh hasn't run yet.
func (sr *SummaryRefresher) GetSummary(w http.ResponseWriter, r *http.Request) {
	sr.summaryMu.RLock()
	cached := sr.summary
	sr.summaryMu.RUnlock()

	if cached == nil {
		sr.refresh()
		sr.summaryMu.RLock()
		cached = sr.summary
		sr.summaryMu.RUnlock()
		if cached == nil {
			writeError(w, http.StatusInternalServerError, "Failed to compute summary", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, *cached)
}

// RefreshNow triggers an immediate refresh (for admin use).
func (sr *SummaryRefresher) RefreshNow(w http.ResponseWriter, r *http.Request) {
	sr.refresh()
	sr.GetSummary(w, r)
}
