// Package collect defines the contract between external per-source
// collectors and the core, and runs one collection cycle.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harbibet/harbi/internal/pkg/models"
)

// Collector produces one source's event list for a cycle. Implementations
// own all fetch, retry and timeout policy; whatever happens internally
// must reduce to a terminal SourceStatus — the core never waits on a
// collector beyond the cycle barrier.
type Collector interface {
	Source() models.SourceID
	Collect(ctx context.Context) ([]models.SourceEvent, models.SourceStatus)
}

// RunCycle runs every collector in parallel and blocks until all of them
// finished or failed: the synchronization barrier between "collect" and
// "correlate". An errored source contributes zero events.
func RunCycle(ctx context.Context, collectors []Collector) (map[models.SourceID][]models.SourceEvent, map[models.SourceID]models.SourceStatus) {
	events := make(map[models.SourceID][]models.SourceEvent, len(collectors))
	statuses := make(map[models.SourceID]models.SourceStatus, len(collectors))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, c := range collectors {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			evs, st := safeCollect(ctx, c)
			if st.State == models.SourceError {
				slog.Error("Collector failed", "source", c.Source(), "kind", st.Kind, "error", st.Message)
				evs = nil
			}
			mu.Lock()
			events[c.Source()] = evs
			statuses[c.Source()] = st
			mu.Unlock()
		}()
	}
	wg.Wait()
	return events, statuses
}

// safeCollect keeps a panicking collector from taking the cycle down; a
// panic reduces to an error status like any other collector failure.
func safeCollect(ctx context.Context, c Collector) (evs []models.SourceEvent, st models.SourceStatus) {
	defer func() {
		if r := recover(); r != nil {
			evs = nil
			st = models.StatusError(models.ErrorParse, fmt.Sprintf("collector panic: %v", r))
		}
	}()
	return c.Collect(ctx)
}

// Static is a fixed-result collector, used in tests and for sources whose
// feed is assembled elsewhere in-process.
type Static struct {
	ID     models.SourceID
	Events []models.SourceEvent
	Status models.SourceStatus
}

func (s Static) Source() models.SourceID { return s.ID }

func (s Static) Collect(ctx context.Context) ([]models.SourceEvent, models.SourceStatus) {
	st := s.Status
	if st.State == "" {
		st = models.StatusOK()
	}
	return s.Events, st
}
