package collect

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harbibet/harbi/internal/pkg/models"
)

// FileCollector reads the pipe-delimited event files external fetchers
// drop for each source, plus the JSON status sidecar they write:
//
//	Team 1: X | Team 2: Y | Team 1 Win: 2.05 | Draw: 3.1 | Team 2 Win: 3.4 | Link: URL
//
// Two-way sources omit the Draw field. The file format belongs to the
// fetcher collaborators; this is just their in-process adapter.
type FileCollector struct {
	ID         models.SourceID
	EventsPath string
	StatusPath string // optional sidecar; absent means status unknown
	Model      models.PriceModel
}

func (f FileCollector) Source() models.SourceID { return f.ID }

// Collect parses the drop files. A missing events file is a collector
// failure for the cycle; malformed lines are skipped, not fatal.
func (f FileCollector) Collect(ctx context.Context) ([]models.SourceEvent, models.SourceStatus) {
	if st, terminal := f.readStatus(); terminal {
		return nil, st
	}

	file, err := os.Open(f.EventsPath)
	if err != nil {
		kind := models.ErrorParse
		if errors.Is(err, fs.ErrNotExist) {
			kind = models.ErrorEmpty
		}
		return nil, models.StatusError(kind, fmt.Sprintf("events file: %v", err))
	}
	defer file.Close()

	observed := time.Now().UTC()
	var events []models.SourceEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, models.StatusError(models.ErrorTimeout, err.Error())
		}
		ev, ok := f.parseLine(scanner.Text(), observed)
		if ok {
			events = append(events, ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, models.StatusError(models.ErrorParse, err.Error())
	}
	if len(events) == 0 {
		return nil, models.StatusError(models.ErrorEmpty, "no parsable events")
	}
	return events, models.StatusOK()
}

// statusSidecar mirrors the fetchers' error JSON.
type statusSidecar struct {
	Site         string `json:"site"`
	Error        bool   `json:"error"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
}

// readStatus reads the sidecar. Returns terminal=true when the fetcher
// reported a failed cycle. No sidecar at all means "unknown", which is
// treated as ok downstream.
func (f FileCollector) readStatus() (models.SourceStatus, bool) {
	if f.StatusPath == "" {
		return models.SourceStatus{State: models.SourceUnknown}, false
	}
	data, err := os.ReadFile(f.StatusPath)
	if err != nil {
		return models.SourceStatus{State: models.SourceUnknown}, false
	}
	var sc statusSidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return models.SourceStatus{State: models.SourceUnknown}, false
	}
	if !sc.Error {
		return models.StatusOK(), false
	}
	return models.StatusError(classifyError(sc.ErrorType), sc.ErrorMessage), true
}

// classifyError reduces the fetchers' free-form error types to the core
// taxonomy.
func classifyError(errorType string) models.ErrorKind {
	t := strings.ToLower(errorType)
	switch {
	case strings.HasPrefix(t, "http"):
		return models.ErrorHTTP
	case strings.Contains(t, "timeout"):
		return models.ErrorTimeout
	case strings.Contains(t, "connection"), strings.Contains(t, "ssl"), strings.Contains(t, "proxy"):
		return models.ErrorNetwork
	case strings.Contains(t, "geoblock"), strings.Contains(t, "vpn"), strings.Contains(t, "cloudflare"):
		return models.ErrorGeoblock
	case strings.Contains(t, "empty"), strings.Contains(t, "noevents"):
		return models.ErrorEmpty
	default:
		return models.ErrorParse
	}
}

func (f FileCollector) parseLine(line string, observed time.Time) (models.SourceEvent, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return models.SourceEvent{}, false
	}
	parts := strings.Split(line, "|")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		// Each field is "Label: value"; the link value may itself contain
		// colons, so split once.
		kv := strings.SplitN(p, ":", 2)
		if len(kv) != 2 {
			return models.SourceEvent{}, false
		}
		fields = append(fields, strings.TrimSpace(kv[1]))
	}

	threeWay := len(f.Model.Outcomes()) == 3
	want := 5
	if threeWay {
		want = 6
	}
	if len(fields) < want {
		return models.SourceEvent{}, false
	}

	ev := models.SourceEvent{
		Source:     f.ID,
		Home:       models.TeamRef{Raw: fields[0]},
		Away:       models.TeamRef{Raw: fields[1]},
		Prices:     models.Prices{Kind: f.Model, Odds: map[models.Outcome]decimal.Decimal{}},
		Link:       fields[want-1],
		ObservedAt: observed,
	}
	if ev.Home.Raw == "" || ev.Away.Raw == "" {
		return models.SourceEvent{}, false
	}

	outcomes := f.Model.Outcomes()
	for i, o := range outcomes {
		raw := fields[2+i]
		if raw == "" || raw == "N/A" {
			// An N/A on any outcome invalidates the quote set.
			return models.SourceEvent{}, false
		}
		v, err := decimal.NewFromString(raw)
		if err != nil || !v.IsPositive() {
			return models.SourceEvent{}, false
		}
		ev.Prices.Odds[o] = v
	}
	return ev, true
}
