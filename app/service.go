// Package app wires the planning core to its stores, sinks and forwarders.
// The CLI and the background jobs go through Service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/blockplan/config"
	"github.com/kilianp07/blockplan/core/calendar"
	"github.com/kilianp07/blockplan/core/combination"
	"github.com/kilianp07/blockplan/core/events"
	coremetrics "github.com/kilianp07/blockplan/core/metrics"
	"github.com/kilianp07/blockplan/core/model"
	"github.com/kilianp07/blockplan/core/monitoring"
	"github.com/kilianp07/blockplan/core/optimizer"
	"github.com/kilianp07/blockplan/core/recalc"
	"github.com/kilianp07/blockplan/core/store"
	"github.com/kilianp07/blockplan/core/travel"
	"github.com/kilianp07/blockplan/infra/ical"
	"github.com/kilianp07/blockplan/infra/logger"
	"github.com/kilianp07/blockplan/infra/metrics"
	inframon "github.com/kilianp07/blockplan/infra/monitoring"
	"github.com/kilianp07/blockplan/internal/eventbus"
	"github.com/kilianp07/blockplan/jobs/refresh"

	// Registered modules.
	_ "github.com/kilianp07/blockplan/infra/classifier"
	_ "github.com/kilianp07/blockplan/infra/distance"
	_ "github.com/kilianp07/blockplan/infra/kafka"
	_ "github.com/kilianp07/blockplan/infra/mqtt"
	_ "github.com/kilianp07/blockplan/infra/store"
)

// ErrNoDate is returned when a day operation has no date.
var ErrNoDate = errors.New("app: input has no date")

// Service orchestrates the planning components.
type Service struct {
	cfg       *config.Config
	Searcher  *combination.Searcher
	Optimizer *optimizer.Optimizer
	Travel    *travel.Engine
	Recalc    *recalc.Recalculator
	Store     store.Store
	Refresh   *refresh.Job

	sink       coremetrics.MetricsSink
	bus        *eventbus.Bus
	publishers []events.Publisher
	log        logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logg := logger.New("service")
	if cfg.Logging.Level != "" {
		logger.SetLevel(cfg.Logging.Level)
	}

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	monitoring.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	classifier, err := optimizer.NewClassifier(cfg.Optimizer.Classifier, cfg.Optimizer.ClassifierConf)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("classifier: %w", err)
	}
	provider, err := travel.NewProvider(cfg.Travel.Provider, cfg.Travel.ProviderConf)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("distance provider: %w", err)
	}

	svc := &Service{cfg: cfg, Store: st, sink: sink, bus: eventbus.New(), log: logg}
	for _, fc := range cfg.Events.Forwarders {
		pub, err := events.NewPublisher(fc)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("event forwarder %s: %w", fc.Type, err)
		}
		svc.publishers = append(svc.publishers, pub)
	}

	svc.Searcher = combination.NewSearcher(cfg.Search, logger.New("search"), sink, svc.bus)
	svc.Optimizer = optimizer.New(cfg.Optimizer, classifier, logger.New("optimizer"), sink, svc.bus)
	svc.Travel = travel.NewEngine(cfg.Travel, travel.NewCache(cfg.Travel.Cache), provider, logger.New("travel"), sink, svc.bus)
	svc.Recalc = recalc.New(cfg.Recalc, svc.Travel, logger.New("recalc"), sink, svc.bus)
	svc.Refresh = refresh.New(cfg.Jobs.Refresh, st, svc.Recalc, logger.New("refresh"))
	return svc, nil
}

// Bus exposes the event bus, mostly for tests and embedding.
func (s *Service) Bus() eventbus.EventBus { return s.bus }

func (s *Service) filter(blocks []model.TimeBlock) []model.TimeBlock {
	valid, rejected := model.FilterValid(blocks)
	for _, r := range rejected {
		s.log.Warnf("dropping invalid block: %v", r.Err)
	}
	return valid
}

func (s *Service) mode(in Input) model.TravelMode {
	if in.Mode != "" {
		return in.Mode
	}
	return s.cfg.Recalc.DefaultMode
}

// Search enumerates non-overlapping combinations and stores the result.
func (s *Service) Search(ctx context.Context, in Input) (combination.Result, error) {
	res := s.Searcher.Search(ctx, s.filter(in.Pool), in.MaxResults)
	rec := store.CombinationRecord{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Combinations: res.Combinations,
		Iterations:   res.Iterations,
		Stop:         string(res.Stop),
	}
	if err := s.Store.SaveCombinations(ctx, rec); err != nil {
		return res, fmt.Errorf("save combinations: %w", err)
	}
	return res, nil
}

// Optimize runs the category optimizer and stores the plan.
func (s *Service) Optimize(ctx context.Context, in Input) (optimizer.Outcome, error) {
	out, err := s.Optimizer.Optimize(ctx, in.Pool, in.Groups, in.Pinned)
	if err != nil {
		return out, err
	}
	for _, r := range out.Rejected {
		s.log.Warnf("dropping invalid block: %v", r.Err)
	}
	rec := store.PlanRecord{
		RunID:     out.RunID,
		CreatedAt: time.Now().UTC(),
		Selected:  out.Selected,
		Removed:   out.Removed,
		Stats: map[string]int{
			"pool_size":       out.Stats.PoolSize,
			"pinned":          out.Stats.Pinned,
			"removed_by_pins": out.Stats.RemovedByPins,
			"selected":        out.Stats.Selected,
			"backfilled":      out.Stats.Backfilled,
		},
	}
	if err := s.Store.SavePlan(ctx, rec); err != nil {
		return out, fmt.Errorf("save plan: %w", err)
	}
	return out, nil
}

// dayBlocks returns the blocks of in.Date: the pool when it is non-empty,
// otherwise the latest stored plan.
func (s *Service) dayBlocks(ctx context.Context, in Input) ([]model.TimeBlock, error) {
	pool := in.Pool
	if len(pool) == 0 {
		plan, err := s.Store.LatestPlan(ctx)
		if err != nil {
			return nil, fmt.Errorf("no pool and no stored plan: %w", err)
		}
		pool = plan.Selected
	}
	return calendar.BlocksOn(s.filter(pool), in.Date), nil
}

// Recalculate simulates travel for in.Date and stores the adjusted day.
func (s *Service) Recalculate(ctx context.Context, in Input) (recalc.DaySimulation, error) {
	if in.Date.IsZero() {
		return recalc.DaySimulation{}, ErrNoDate
	}
	blocks, err := s.dayBlocks(ctx, in)
	if err != nil {
		return recalc.DaySimulation{}, err
	}
	mode := s.mode(in)
	sim := s.Recalc.RecalculateDay(ctx, in.Date, blocks, in.Base, mode)
	rec := store.DayRecord{Date: sim.Date, Mode: mode, Base: in.Base, Blocks: sim.Blocks(), UpdatedAt: time.Now().UTC()}
	if err := s.Store.SaveDay(ctx, rec); err != nil {
		return sim, fmt.Errorf("save day: %w", err)
	}
	return sim, nil
}

// ValidatePlacement checks candidate against the stored day of in.Date, or
// against the day built from the input when nothing is stored.
func (s *Service) ValidatePlacement(ctx context.Context, in Input, candidate model.TimeBlock) (recalc.Validation, error) {
	if in.Date.IsZero() {
		return recalc.Validation{}, ErrNoDate
	}
	mode, base := s.mode(in), in.Base
	var day []model.TimeBlock
	rec, err := s.Store.LoadDay(ctx, in.Date)
	switch {
	case err == nil:
		day, mode = rec.Blocks, rec.Mode
		if base == nil {
			base = rec.Base
		}
	case errors.Is(err, store.ErrNotFound):
		if day, err = s.dayBlocks(ctx, in); err != nil {
			return recalc.Validation{}, err
		}
	default:
		return recalc.Validation{}, err
	}
	return s.Recalc.ValidatePlacement(ctx, in.Date, day, candidate, base, mode)
}

// EditOp names a structural edit of a day.
type EditOp string

const (
	EditInsert EditOp = "insert"
	EditSwap   EditOp = "swap"
	EditDelete EditOp = "delete"
)

// DayEdit describes one structural edit. Insert uses Block; Swap uses I and
// J; Delete uses I. Indices refer to the simulation order of the day.
type DayEdit struct {
	Op    EditOp
	Block model.TimeBlock
	I, J  int
}

// EditDay applies edit to the stored day of in.Date, or to the day built from
// the input when nothing is stored, and saves the re-simulated result.
func (s *Service) EditDay(ctx context.Context, in Input, edit DayEdit) (recalc.DaySimulation, error) {
	if in.Date.IsZero() {
		return recalc.DaySimulation{}, ErrNoDate
	}
	mode, base := s.mode(in), in.Base
	var blocks []model.TimeBlock
	rec, err := s.Store.LoadDay(ctx, in.Date)
	switch {
	case err == nil:
		blocks, mode = rec.Blocks, rec.Mode
		if base == nil {
			base = rec.Base
		}
	case errors.Is(err, store.ErrNotFound):
		if blocks, err = s.dayBlocks(ctx, in); err != nil {
			return recalc.DaySimulation{}, err
		}
	default:
		return recalc.DaySimulation{}, err
	}

	sim := s.Recalc.RecalculateDay(ctx, in.Date, blocks, base, mode)
	switch edit.Op {
	case EditInsert:
		sim, err = s.Recalc.Insert(ctx, sim, edit.Block)
	case EditSwap:
		sim, err = s.Recalc.Swap(ctx, sim, edit.I, edit.J)
	case EditDelete:
		sim, err = s.Recalc.Delete(ctx, sim, edit.I)
	default:
		err = fmt.Errorf("unknown edit %q", edit.Op)
	}
	if err != nil {
		return sim, err
	}
	day := store.DayRecord{Date: sim.Date, Mode: sim.Mode, Base: sim.Base, Blocks: sim.Blocks(), UpdatedAt: time.Now().UTC()}
	if err := s.Store.SaveDay(ctx, day); err != nil {
		return sim, fmt.Errorf("save day: %w", err)
	}
	return sim, nil
}

// Export writes the latest stored plan as iCalendar.
func (s *Service) Export(ctx context.Context, w io.Writer, opts ical.Options) error {
	plan, err := s.Store.LatestPlan(ctx)
	if err != nil {
		return fmt.Errorf("latest plan: %w", err)
	}
	if opts.ProdID == "" {
		opts.ProdID = "-//blockplan//plan " + plan.RunID + "//EN"
	}
	return ical.Export(w, plan.Selected, opts)
}

// Run starts forwarders, the metrics endpoint and the refresh job, then
// blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	var done []<-chan struct{}
	for _, pub := range s.publishers {
		done = append(done, events.Forward(ctx, s.bus, pub, logger.New("forwarder")))
	}
	done = append(done, metrics.StartEventCollector(ctx, s.bus, s.sink))
	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		go func() {
			defer monitoring.Recover()
			if err := metrics.StartPromServer(ctx, ":"+port); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.Jobs.Refresh.Enabled {
		if err := s.Refresh.Start(ctx); err != nil {
			return err
		}
		defer s.Refresh.Stop()
	}
	s.log.Infof("service running")
	<-ctx.Done()
	for _, d := range done {
		<-d
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	s.bus.Close()
	for _, p := range s.publishers {
		errs = append(errs, p.Close())
	}
	if c, ok := s.sink.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.Store.Close())
	monitoring.Flush(2 * time.Second)
	return errors.Join(errs...)
}
