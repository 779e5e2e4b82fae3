// Package pipeline runs a reconciliation end to end: load master data,
// resolve the input sheet, flag duplicates, partition and report.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ppiankov/bufilter/internal/cache"
	"github.com/ppiankov/bufilter/internal/dedupe"
	"github.com/ppiankov/bufilter/internal/logging"
	"github.com/ppiankov/bufilter/internal/match"
	"github.com/ppiankov/bufilter/internal/model"
	"github.com/ppiankov/bufilter/internal/partition"
	"github.com/ppiankov/bufilter/internal/table"
	"github.com/ppiankov/bufilter/internal/worker"
)

// Pipeline orchestrates the complete reconciliation
type Pipeline struct {
	config   *model.Config
	logger   zerolog.Logger
	store    cache.Cache
	renderer *Renderer

	progressInterval time.Duration
	now              func() time.Time
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, logger zerolog.Logger) *Pipeline {
	var store cache.Cache = cache.Nop{}
	if cfg.Cache.Enabled {
		store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	return &Pipeline{
		config:           cfg,
		logger:           logger,
		store:            store,
		renderer:         NewRenderer(cfg.Output, cfg.Input.Extra),
		progressInterval: time.Second,
		now:              time.Now,
	}
}

// Renderer returns the renderer configured for this pipeline
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Run produces the partitioned report. Only I/O can fail; resolution,
// classification and partitioning always succeed once the data is loaded.
func (p *Pipeline) Run(ctx context.Context) (*model.Report, error) {
	cfg := p.config
	runID := uuid.NewString()
	logger := p.logger.With().Str("run_id", runID).Logger()
	ctx = logging.WithLogger(ctx, logger)

	// 1. Master data and index
	loader := table.NewMasterLoader(cfg.Master.Columns)
	loader.Cache = cache.NewTableCache(p.store)
	if cfg.Concurrency.Workers > 0 {
		loader.Workers = cfg.Concurrency.Workers
	}

	tables, err := loader.Load(ctx, cfg.Master.Dir)
	if err != nil {
		return nil, fmt.Errorf("load master data: %w", err)
	}

	index := match.BuildIndex(tables)
	logger.Info().
		Int("files", len(tables)).
		Int("records", index.Len()).
		Int("emails", index.Emails()).
		Int("names", index.Names()).
		Msg("master index built")
	if index.Collisions() > 0 {
		logger.Warn().
			Int("collisions", index.Collisions()).
			Msg("master data has repeated emails or names; the last file in name order wins")
	}

	// 2. Input
	input, err := table.LoadInput(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}
	for _, col := range input.Missing {
		logger.Warn().Str("column", col).Msg("input column not found, values treated as missing")
	}
	logger.Info().Str("file", cfg.Input.Path).Int("records", len(input.Records)).Msg("input loaded")

	// 3. Resolve
	resolver := match.NewResolver(index).WithObserver(func(c match.NameCorrection) {
		logger.Debug().
			Int("row", c.Row).
			Str("email", c.Email.String()).
			Str("input_name", c.InputName.String()).
			Str("master_name", c.MasterName.String()).
			Msg("name corrected")
	})
	progress := worker.NewProgress(len(input.Records), p.progressInterval, logger)
	resolved, err := worker.NewBatchResolver(resolver, cfg.Concurrency.Workers, progress).Resolve(ctx, input.Records)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	logger.Info().Int("resolved", progress.Done()).Msg("records resolved")

	// 4. Flag duplicates over the whole set, then partition
	dedupe.Classify(resolved)
	groups := partition.Partition(resolved, cfg.Output.InvalidLabel)
	for _, g := range groups {
		ev := logger.Info().Str("group", g.Label).Int("records", len(g.Records))
		if g.Removed > 0 {
			ev = ev.Int("deduplicated", g.Removed)
		}
		ev.Msg("group ready")
	}

	summary := model.Summarize(resolved, groups)
	summary.MasterRecords = index.Len()
	summary.MasterCollisions = index.Collisions()

	return &model.Report{
		RunID:          runID,
		InputPath:      cfg.Input.Path,
		MasterDir:      cfg.Master.Dir,
		GeneratedAt:    p.now().UTC(),
		Groups:         groups,
		Summary:        summary,
		MissingColumns: input.Missing,
	}, nil
}

// OutputPath returns where a report in the configured format is written.
// Without an explicit path it is filtered-<input stem> with the format's
// extension; the csv format writes a directory.
func OutputPath(cfg *model.Config) string {
	if cfg.Output.Path != "" {
		return cfg.Output.Path
	}

	base := filepath.Base(cfg.Input.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := "filtered-" + stem

	switch cfg.Output.Format {
	case model.FormatCSV:
		return name
	case model.FormatSQLite:
		return name + ".db"
	case "":
		return name + "." + model.FormatXLSX
	default:
		return name + "." + cfg.Output.Format
	}
}
