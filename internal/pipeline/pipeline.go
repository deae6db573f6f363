package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

// Fetcher retrieves remote artifacts and stores them under the given directory.
// Implementations return a domain.KindAlreadyExists error when the output is
// already present.
type Fetcher interface {
	DownloadBulletin(ctx context.Context, year, id, dir string) (string, error)
	FetchRegional(ctx context.Context, pageURL, dir string) (domain.RegionalRecord, error)
	DetailURL(encoded string) string
}

// Publisher forwards unified records to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, records []domain.UnifiedRecord) error
}

// Dirs are the directories each stage reads from and writes to.
type Dirs struct {
	Input    string // CSV indices
	Bulletin string // raw Big5 bulletins
	Parsed   string
	Enriched string
	Regional string
	Unified  string
}

// DirsFromConfig copies the stage directories out of cfg.
func DirsFromConfig(cfg *config.Config) Dirs {
	return Dirs{
		Input:    cfg.InputDir,
		Bulletin: cfg.BulletinDir,
		Parsed:   cfg.ParsedDir,
		Enriched: cfg.EnrichedDir,
		Regional: cfg.RegionalDir,
		Unified:  cfg.UnifiedDir,
	}
}

// Pipeline runs the file-to-file ETL stages. Items are processed one at a
// time; a failing item is logged, counted and skipped.
type Pipeline struct {
	dirs          Dirs
	downloadPause time.Duration
	fetcher       Fetcher
	publisher     Publisher // optional
	clock         clockwork.Clock
	logger        *slog.Logger
	metrics       *observability.Metrics

	ready atomic.Bool
	mu    sync.Mutex
	last  *Report
}

// New creates a Pipeline. publisher may be nil to disable publishing.
func New(dirs Dirs, downloadPause time.Duration, fetcher Fetcher, publisher Publisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		dirs:          dirs,
		downloadPause: downloadPause,
		fetcher:       fetcher,
		publisher:     publisher,
		clock:         clock,
		logger:        logger,
		metrics:       metrics,
	}
}

// CheckReadiness returns nil once a full run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errNotReady
	}
	return nil
}

// LastReport returns the most recent full-run report, if any.
func (p *Pipeline) LastReport() (Report, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Report{}, false
	}
	return *p.last, true
}

// Run executes download, parse, enrich, filter-regions and unify in order.
// A cancelled context stops the run between items; the report then holds the
// stages that ran and the context error is returned.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	rep := Report{RunID: NewRunID(), StartedAt: p.clock.Now()}
	p.logger.Info("pipeline run started", "run_id", rep.RunID)

	stages := []func(context.Context, string) Summary{
		p.downloadStage,
		p.parseStage,
		p.enrichStage,
		p.filterRegionsStage,
		p.unifyStage,
	}
	var err error
	for _, stage := range stages {
		rep.Stages = append(rep.Stages, stage(ctx, rep.RunID))
		if err = ctx.Err(); err != nil {
			rep.Err = err.Error()
			break
		}
	}
	rep.FinishedAt = p.clock.Now()

	attrs := make([]any, 0, len(rep.Stages)+2)
	attrs = append(attrs, "run_id", rep.RunID)
	for _, s := range rep.Stages {
		attrs = append(attrs, s.logAttrs())
	}
	if err != nil {
		p.logger.Warn("pipeline run interrupted", append(attrs, "error", err)...)
	} else {
		p.logger.Info("pipeline run complete", attrs...)
		p.metrics.RunsCompleted.Inc()
		p.ready.Store(true)
	}

	p.mu.Lock()
	p.last = &rep
	p.mu.Unlock()
	return rep, err
}

// Per-stage entry points for individual commands. Each gets its own run ID.

func (p *Pipeline) Download(ctx context.Context) Summary { return p.downloadStage(ctx, NewRunID()) }
func (p *Pipeline) Parse(ctx context.Context) Summary    { return p.parseStage(ctx, NewRunID()) }
func (p *Pipeline) Enrich(ctx context.Context) Summary   { return p.enrichStage(ctx, NewRunID()) }
func (p *Pipeline) Unify(ctx context.Context) Summary    { return p.unifyStage(ctx, NewRunID()) }

func (p *Pipeline) FilterRegions(ctx context.Context) Summary {
	return p.filterRegionsStage(ctx, NewRunID())
}

// NewRunID returns a random identifier correlating the log lines of one run.
func NewRunID() string { return uuid.NewString() }

// pause blocks for the configured download pause or until ctx is done.
func (p *Pipeline) pause(ctx context.Context) {
	if p.downloadPause <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-p.clock.After(p.downloadPause):
	}
}
