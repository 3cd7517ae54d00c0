// Package pipeline runs the medallion stages in order and records each run
// and stage in the run store.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/medallion-cli/internal/bronze"
	"github.com/sells-group/medallion-cli/internal/config"
	"github.com/sells-group/medallion-cli/internal/dashboard"
	"github.com/sells-group/medallion-cli/internal/gold"
	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/model"
	"github.com/sells-group/medallion-cli/internal/silver"
	"github.com/sells-group/medallion-cli/internal/store"
)

// Stage identifies one step of the pipeline. Stages run in ascending order.
type Stage int

const (
	StageIngest Stage = iota + 1
	StageTransform
	StageAggregate
	StageVisualize
)

// Phase names as recorded in the run store.
const (
	PhaseIngest    = "1_ingest"
	PhaseTransform = "2_transform"
	PhaseAggregate = "3_aggregate"
	PhaseVisualize = "4_visualize"
)

// Name returns the phase name of s.
func (s Stage) Name() string {
	switch s {
	case StageIngest:
		return PhaseIngest
	case StageTransform:
		return PhaseTransform
	case StageAggregate:
		return PhaseAggregate
	case StageVisualize:
		return PhaseVisualize
	default:
		return "unknown"
	}
}

// Options selects which stages a run executes. A zero From or To means the
// first or last stage.
type Options struct {
	From Stage
	To   Stage
	// Generate writes a synthetic raw drop before ingesting.
	Generate bool
}

func (o Options) bounds() (Stage, Stage, error) {
	from, to := o.From, o.To
	if from == 0 {
		from = StageIngest
	}
	if to == 0 {
		to = StageVisualize
	}
	if from < StageIngest || to > StageVisualize || from > to {
		return 0, 0, eris.Errorf("pipeline: invalid stage range %d..%d", from, to)
	}
	if o.Generate && from != StageIngest {
		return 0, 0, eris.New("pipeline: generate requires the ingest stage")
	}
	return from, to, nil
}

// Result carries the typed output of every stage that ran.
type Result struct {
	RunID     string
	Generated *bronze.GenerateResult
	Batch     *bronze.Batch
	Silver    *silver.Result
	Gold      *gold.Result
	Dashboard *dashboard.Summary
	Phases    []model.PhaseResult
}

// Pipeline wires the stages to one lake and one run store.
type Pipeline struct {
	cfg      *config.Config
	lake     *lake.Lake
	store    store.Store
	mappings *bronze.Mappings
	renderer *dashboard.Renderer
}

// New creates a Pipeline. Raw schema mappings are loaded from
// cfg.Lake.Mappings when set.
func New(cfg *config.Config, l *lake.Lake, st store.Store) (*Pipeline, error) {
	mappings := bronze.DefaultMappings()
	if cfg.Lake.Mappings != "" {
		m, err := bronze.LoadMappings(cfg.Lake.Mappings)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: load mappings")
		}
		mappings = m
	}
	renderer, err := dashboard.New(cfg.Dashboard)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: init renderer")
	}
	return &Pipeline{cfg: cfg, lake: l, store: st, mappings: mappings, renderer: renderer}, nil
}

// Run executes the selected stages. Any stage error aborts the run; the run
// record is then marked failed with the error.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	from, to, err := opts.bounds()
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("lake", p.lake.Root()))
	log.Info("pipeline: starting", zap.String("from", from.Name()), zap.String("to", to.Name()))

	run, err := p.store.CreateRun(ctx, p.lake.Root())
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	result := &Result{RunID: run.ID}
	log = log.With(zap.String("run_id", run.ID))

	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	trackPhase := func(name string, fn func() (*model.PhaseResult, error)) error {
		phase, phaseErr := p.store.CreatePhase(ctx, run.ID, name)
		if phaseErr != nil {
			log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(phaseErr))
		}

		start := time.Now()
		phaseResult, fnErr := fn()
		duration := time.Since(start).Milliseconds()

		if phaseResult == nil {
			phaseResult = &model.PhaseResult{}
		}
		phaseResult.Name = name
		phaseResult.Duration = duration

		switch {
		case fnErr != nil:
			phaseResult.Status = model.PhaseStatusFailed
			phaseResult.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		case phaseResult.Status == model.PhaseStatusSkipped:
			log.Info("pipeline: phase skipped", zap.String("phase", name))
		default:
			phaseResult.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
			)
		}

		if phase != nil {
			if err := p.store.CompletePhase(ctx, phase.ID, phaseResult); err != nil {
				log.Warn("pipeline: failed to complete phase", zap.String("phase", name), zap.Error(err))
			}
		}
		result.Phases = append(result.Phases, *phaseResult)
		return fnErr
	}

	finish := func(runErr error) {
		runResult := &model.RunResult{Phases: result.Phases}
		if result.Gold != nil {
			runResult.Products = len(result.Gold.Products)
			stats := result.Gold.Stats
			runResult.Stats = &stats
		}
		if runErr != nil {
			runResult.Error = runErr.Error()
		}
		if saveErr := p.store.UpdateRunResult(ctx, run.ID, runResult); saveErr != nil {
			log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
		}
	}

	stages := []struct {
		stage  Stage
		status model.RunStatus
		fn     func() (*model.PhaseResult, error)
	}{
		{StageIngest, model.RunStatusIngesting, func() (*model.PhaseResult, error) { return p.ingest(ctx, opts.Generate, result) }},
		{StageTransform, model.RunStatusCleaning, func() (*model.PhaseResult, error) { return p.transform(ctx, result) }},
		{StageAggregate, model.RunStatusAggregating, func() (*model.PhaseResult, error) { return p.aggregate(ctx, result) }},
		{StageVisualize, model.RunStatusRendering, func() (*model.PhaseResult, error) { return p.visualize(ctx, result) }},
	}

	for _, s := range stages {
		if s.stage < from || s.stage > to {
			continue
		}
		if err := ctx.Err(); err != nil {
			finish(err)
			return result, eris.Wrap(err, "pipeline: cancelled")
		}
		setStatus(s.status)
		if err := trackPhase(s.stage.Name(), s.fn); err != nil {
			finish(err)
			return result, eris.Wrapf(err, "pipeline: %s", s.stage.Name())
		}
	}

	finish(nil)
	log.Info("pipeline: complete", zap.Int("phases", len(result.Phases)))
	return result, nil
}
