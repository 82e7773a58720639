package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"NetRisk/internal/domain/models"
	drepo "NetRisk/internal/domain/repository"
	dsvc "NetRisk/internal/domain/service"
	"NetRisk/internal/engine"
	svcmetrics "NetRisk/internal/service/metrics"
	applogger "NetRisk/pkg/logger"
	xutil "NetRisk/pkg/util"
)

// ErrDataUnavailable marks a failed fetch from the score source; the tick is
// aborted and the previously published result stays authoritative.
var ErrDataUnavailable = errors.New("score source unavailable")

// EngineParams bundles the numeric knobs of the per-horizon pipeline.
type EngineParams struct {
	Horizons           int
	NettingMaxCycles   int
	CentralityTol      float64
	CentralityMaxIters int
	SeedHubThreshold   float64
	StabilityThreshold float64
	ContagionMaxPasses int
	HighRiskThreshold  float64
}

// Orchestrator drives the netting/scoring/contagion/buffer pipeline once per
// recomputation tick and publishes the assembled ForecastResult atomically.
type Orchestrator struct {
	source  dsvc.ScoreSource
	store   *ResultStore
	archive drepo.SnapshotArchive
	metrics drepo.Metrics
	logger  *applogger.Logger

	params  EngineParams
	netting *engine.NettingEngine
	scorer  *engine.CentralityScorer
	sim     *engine.ContagionSimulator
	buffers *engine.RiskBufferCalculator
}

func NewOrchestrator(
	source dsvc.ScoreSource,
	store *ResultStore,
	archive drepo.SnapshotArchive,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	params EngineParams,
) *Orchestrator {
	if params.Horizons <= 0 {
		params.Horizons = 5
	}
	return &Orchestrator{
		source:  source,
		store:   store,
		archive: archive,
		metrics: metrics,
		logger:  logger,
		params:  params,
		netting: engine.NewNettingEngine(params.NettingMaxCycles),
		scorer:  engine.NewCentralityScorer(params.CentralityTol, params.CentralityMaxIters),
		sim:     engine.NewContagionSimulator(params.SeedHubThreshold, params.StabilityThreshold, params.ContagionMaxPasses),
		buffers: engine.NewRiskBufferCalculator(params.HighRiskThreshold),
	}
}

// Store exposes the result store for read-side consumers.
func (o *Orchestrator) Store() *ResultStore { return o.store }

// RunTick executes Fetch → Compute → Publish. Horizons are computed in
// parallel; a horizon failing validation is skipped, a failed fetch aborts
// the whole tick.
func (o *Orchestrator) RunTick(ctx context.Context) error {
	start := time.Now()

	input, err := o.source.Fetch(ctx, o.params.Horizons)
	if err != nil {
		o.metrics.RecordError("fetch")
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	type computed struct {
		idx  int
		snap models.HorizonSnapshot
		err  error
	}
	results := make([]computed, len(input.Horizons))

	var wg sync.WaitGroup
	for idx := range input.Horizons {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			snap, err := o.computeHorizon(idx, input.Tickers, &input.Horizons[idx])
			results[idx] = computed{idx: idx, snap: snap, err: err}
		}(idx)
	}
	wg.Wait()

	snaps := make([]models.HorizonSnapshot, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			o.metrics.RecordError("horizon")
			o.logger.Error("horizon computation failed",
				applogger.Int("horizon", r.idx),
				applogger.Error(r.err),
			)
			continue
		}
		snaps = append(snaps, r.snap)
		o.metrics.RecordHorizon(r.snap.Horizon, r.snap.Stability, r.snap.NetLoad, r.snap.PayloadReduction)
	}
	if len(snaps) == 0 {
		o.metrics.RecordError("compute")
		return fmt.Errorf("no horizon computed successfully")
	}

	result := &models.ForecastResult{
		Horizons: snaps,
		Metadata: models.DataMeta{
			Tickers:     input.Tickers,
			NumBanks:    len(input.Tickers),
			TotalDays:   input.TotalDays,
			DateRange:   input.DateRange,
			LastUpdated: xutil.Timestamp(),
			ModelType:   input.ModelType,
		},
	}
	version := o.store.Publish(result)
	o.metrics.RecordLatency("tick", time.Since(start).Seconds())

	if o.archive != nil {
		// history is best effort; a down archive must not block publishing
		actx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.archive.StoreRun(actx, time.Now().UTC(), snaps); err != nil {
			o.metrics.RecordError("archive")
			o.logger.Warn("snapshot archive write failed", applogger.Error(err))
		}
	}

	o.logger.Info("forecast published",
		applogger.Int("horizons", len(snaps)),
		applogger.Uint64("version", version),
		applogger.Duration("took_ms", time.Since(start)),
	)
	return nil
}

// computeHorizon runs validation, netting, scoring, contagion and buffer
// sizing for a single horizon. Buffer sizing runs concurrently with the
// centrality→contagion chain; both depend only on the residual graph.
func (o *Orchestrator) computeHorizon(idx int, tickers []string, in *models.HorizonInput) (models.HorizonSnapshot, error) {
	n := len(tickers)
	if len(in.PredictedScores) != n || len(in.RiskFactors) != n {
		return models.HorizonSnapshot{}, fmt.Errorf("horizon %d: score vectors sized %d/%d, want %d",
			idx, len(in.PredictedScores), len(in.RiskFactors), n)
	}

	gross, err := engine.NewGraph(in.Obligations)
	if err != nil {
		return models.HorizonSnapshot{}, err
	}
	if gross.Size() != n {
		return models.HorizonSnapshot{}, fmt.Errorf("horizon %d: matrix sized %d, want %d", idx, gross.Size(), n)
	}

	nettingStart := time.Now()
	residual := o.netting.Net(gross)
	svcmetrics.ObserveStage("netting", time.Since(nettingStart).Seconds())

	var bufs engine.Buffers
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		bufs = o.buffers.Compute(residual, in.RiskFactors)
	}()

	centralityStart := time.Now()
	hubScores, converged := o.scorer.Scores(residual)
	svcmetrics.ObserveStage("centrality", time.Since(centralityStart).Seconds())
	if !converged {
		o.metrics.RecordConvergenceMiss("centrality")
		o.logger.Warn("centrality hit iteration cap", applogger.Int("horizon", idx))
	}
	contagionStart := time.Now()
	contagion := o.sim.Run(residual, hubScores, in.RiskFactors)
	svcmetrics.ObserveStage("contagion", time.Since(contagionStart).Seconds())
	if !contagion.Converged {
		o.metrics.RecordConvergenceMiss("contagion")
		o.logger.Warn("contagion hit pass cap", applogger.Int("horizon", idx))
	}
	wg.Wait()

	rawLoad := gross.RawLoad()
	netLoad := residual.RawLoad()

	reduction := func(load float64) float64 {
		if rawLoad == 0 {
			return 0
		}
		return (rawLoad - load) / rawLoad * 100
	}

	banks := make([]models.BankResult, n)
	for i := 0; i < n; i++ {
		banks[i] = models.BankResult{
			Name:           tickers[i],
			PredictedScore: in.PredictedScores[i],
			HubScore:       hubScores[i],
			RiskFactor:     in.RiskFactors[i],
		}
	}

	return models.HorizonSnapshot{
		Horizon:                      idx,
		Banks:                        banks,
		EdgesBefore:                  edgeList(tickers, gross, residual, false),
		EdgesAfter:                   edgeList(tickers, gross, residual, true),
		Stability:                    contagion.Stability,
		IsStable:                     contagion.IsStable,
		PayloadReduction:             reduction(netLoad),
		RawLoad:                      rawLoad,
		NetLoad:                      netLoad,
		RiskBuffer:                   bufs.RiskBuffer,
		RiskAdjustedNetLoad:          netLoad + bufs.RiskBuffer,
		RiskAdjustedPayloadReduction: reduction(netLoad + bufs.RiskBuffer),
		WorstCaseBuffer:              bufs.WorstCaseBuffer,
		WorstCaseNetLoad:             netLoad + bufs.WorstCaseBuffer,
		WorstCasePayloadReduction:    reduction(netLoad + bufs.WorstCaseBuffer),
		ObligationsBefore:            gross.Matrix(),
		ObligationsAfter:             residual.Matrix(),
	}, nil
}

// edgeList builds the sparse edge view. The "after" list keeps only edges
// with positive residual weight; the "before" list keeps every gross edge.
func edgeList(tickers []string, gross, residual *engine.ObligationGraph, after bool) []models.EdgeResult {
	n := gross.Size()
	edges := make([]models.EdgeResult, 0, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			wb := gross.Weight(i, j)
			wa := residual.Weight(i, j)
			keep := wb > 0
			if after {
				keep = wa > 0
			}
			if keep {
				edges = append(edges, models.EdgeResult{
					Source:       tickers[i],
					Target:       tickers[j],
					WeightBefore: wb,
					WeightAfter:  wa,
				})
			}
		}
	}
	return edges
}
