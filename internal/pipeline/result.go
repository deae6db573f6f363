package pipeline

import (
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

// Outcome classifies how a single item (row, file, record) was handled.
type Outcome string

const (
	Processed Outcome = observability.OutcomeProcessed
	Skipped   Outcome = observability.OutcomeSkipped // idempotent no-op, output already present
	Failed    Outcome = observability.OutcomeFailed  // logged and skipped
)

// Stage names, also used as metric labels.
const (
	StageEncode        = "encode"
	StageDownload      = "download"
	StageParse         = "parse"
	StageEnrich        = "enrich"
	StageFilterRegions = "filter-regions"
	StageCoords        = "coords"
	StageUnify         = "unify"
)

// kindUnclassified labels errors that carry no domain.ErrorKind, such as
// filesystem errors.
const kindUnclassified domain.ErrorKind = "io"

// ItemResult is the outcome of one unit of work.
type ItemResult struct {
	Item    string
	Outcome Outcome
	Kind    domain.ErrorKind
	Err     error
}

// resultFor classifies err: nil is Processed, KindAlreadyExists is Skipped,
// anything else is Failed with its kind.
func resultFor(item string, err error) ItemResult {
	if err == nil {
		return ItemResult{Item: item, Outcome: Processed}
	}
	kind, ok := domain.KindOf(err)
	if !ok {
		kind = kindUnclassified
	}
	if kind == domain.KindAlreadyExists {
		return ItemResult{Item: item, Outcome: Skipped, Kind: kind, Err: err}
	}
	return ItemResult{Item: item, Outcome: Failed, Kind: kind, Err: err}
}

// Summary aggregates the item results of one stage pass.
type Summary struct {
	RunID      string                   `json:"run_id"`
	Stage      string                   `json:"stage"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Processed  int                      `json:"processed"`
	Skipped    int                      `json:"skipped"`
	Failed     int                      `json:"failed"`
	ByKind     map[domain.ErrorKind]int `json:"by_kind"`
	Published  int                      `json:"published,omitempty"`
}

// Total is the number of items the stage attempted.
func (s Summary) Total() int { return s.Processed + s.Skipped + s.Failed }

// Report is the outcome of a full run: one Summary per stage, in order.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Stages     []Summary `json:"stages"`
	Err        string    `json:"error,omitempty"`
}

// tracker accumulates item results for one stage, logging and counting each.
type tracker struct {
	summary Summary
	start   time.Time
	p       *Pipeline
}

func (p *Pipeline) track(runID, stage string) *tracker {
	now := p.clock.Now()
	return &tracker{
		summary: Summary{
			RunID:     runID,
			Stage:     stage,
			StartedAt: now,
			ByKind:    map[domain.ErrorKind]int{},
		},
		start: now,
		p:     p,
	}
}

func (t *tracker) record(res ItemResult) {
	stage := t.summary.Stage
	t.p.metrics.ItemsProcessed.WithLabelValues(stage, string(res.Outcome)).Inc()

	switch res.Outcome {
	case Processed:
		t.summary.Processed++
		t.p.logger.Debug("item processed", "stage", stage, "item", res.Item)
		return
	case Skipped:
		t.summary.Skipped++
		t.p.logger.Info("item skipped", "stage", stage, "item", res.Item, "reason", res.Err)
	default:
		t.summary.Failed++
		t.p.logger.Warn("item failed, skipping", "stage", stage, "item", res.Item, "kind", res.Kind, "error", res.Err)
	}
	t.summary.ByKind[res.Kind]++
	t.p.metrics.ItemErrors.WithLabelValues(stage, string(res.Kind)).Inc()
}

func (t *tracker) add(item string, err error) {
	t.record(resultFor(item, err))
}

func (t *tracker) finish() Summary {
	t.summary.FinishedAt = t.p.clock.Now()
	t.p.metrics.StageDuration.WithLabelValues(t.summary.Stage).Observe(t.summary.FinishedAt.Sub(t.start).Seconds())
	t.p.logger.Info("stage complete",
		"stage", t.summary.Stage,
		"run_id", t.summary.RunID,
		"processed", t.summary.Processed,
		"skipped", t.summary.Skipped,
		"failed", t.summary.Failed,
	)
	return t.summary
}

// logAttrs flattens a Summary for the final run log line.
func (s Summary) logAttrs() slog.Attr {
	return slog.Group(s.Stage,
		slog.Int("processed", s.Processed),
		slog.Int("skipped", s.Skipped),
		slog.Int("failed", s.Failed),
	)
}

var errNotReady = errors.New("pipeline has not completed a run yet")
