// Package combination enumerates overlap-free subsets of a candidate pool.
//
// The walk is a depth-first extension over increasing pool indexes with
// overlap pruning. It is bounded by an iteration cap and a result cap, so on
// large pools it returns the best combinations found so far rather than a
// proven optimum. Results are always internally consistent (no two members
// overlap) and ranked by size.
package combination

import (
	"context"
	"sort"
	"time"

	"github.com/kilianp07/blockplan/core/events"
	"github.com/kilianp07/blockplan/core/logger"
	"github.com/kilianp07/blockplan/core/metrics"
	"github.com/kilianp07/blockplan/core/model"
	"github.com/kilianp07/blockplan/core/overlap"
	"github.com/kilianp07/blockplan/internal/eventbus"
)

// StopReason tells why a search returned.
type StopReason string

const (
	StopCompleted    StopReason = "completed"
	StopIterationCap StopReason = "iteration_cap"
	StopResultCap    StopReason = "result_cap"
	StopCancelled    StopReason = "cancelled"
)

// Result is the outcome of a search.
type Result struct {
	// Combinations are deduplicated, sorted by descending size and truncated.
	Combinations []model.Combination `json:"combinations"`
	// Found counts the raw maximal combinations recorded before deduplication.
	Found      int        `json:"found"`
	Iterations int        `json:"iterations"`
	Stop       StopReason `json:"stop"`
}

// Exhaustive reports whether the whole search space was walked.
func (r Result) Exhaustive() bool { return r.Stop == StopCompleted }

// Searcher runs bounded combination searches.
type Searcher struct {
	cfg     Config
	logger  logger.Logger
	metrics metrics.MetricsSink
	bus     eventbus.EventBus
}

// NewSearcher creates a Searcher. Nil logger, sink and bus are allowed.
func NewSearcher(cfg Config, log logger.Logger, sink metrics.MetricsSink, bus eventbus.EventBus) *Searcher {
	cfg.SetDefaults()
	return &Searcher{cfg: cfg, logger: logger.Nop(log), metrics: metrics.OrNop(sink), bus: bus}
}

// Search returns up to maxResults maximal overlap-free combinations of pool.
// Hitting a cap or a cancelled context is not an error: the partial result is
// returned and Result.Stop says why.
func (s *Searcher) Search(ctx context.Context, pool []model.TimeBlock, maxResults int) Result {
	start := time.Now()
	if maxResults <= 0 {
		maxResults = s.cfg.DefaultMaxResults
	}
	w := &walker{
		ctx:       ctx,
		pool:      pool,
		maxIter:   s.cfg.MaxIterations,
		resultCap: maxResults * s.cfg.ResultFactor,
		stop:      StopCompleted,
	}
	w.walk(nil, 0)

	combos := rank(w.found)
	if len(combos) > maxResults {
		combos = combos[:maxResults]
	}
	res := Result{Combinations: combos, Found: len(w.found), Iterations: w.iterations, Stop: w.stop}

	if !res.Exhaustive() {
		s.logger.Debugw("combination search stopped early", map[string]any{
			"stop": string(res.Stop), "iterations": res.Iterations, "found": res.Found, "pool": len(pool),
		})
	}
	if err := s.metrics.RecordSearch(metrics.SearchRecord{
		PoolSize:   len(pool),
		Found:      res.Found,
		Returned:   len(res.Combinations),
		Iterations: res.Iterations,
		Stop:       string(res.Stop),
		Elapsed:    time.Since(start),
		Time:       start,
	}); err != nil {
		s.logger.Errorf("search metrics error: %v", err)
	}
	eventbus.PublishTo(s.bus, events.SearchEvent{
		PoolSize:   len(pool),
		Returned:   len(res.Combinations),
		Iterations: res.Iterations,
		Stop:       string(res.Stop),
	})
	return res
}

type walker struct {
	ctx        context.Context
	pool       []model.TimeBlock
	maxIter    int
	resultCap  int
	iterations int
	found      []model.Combination
	stop       StopReason
}

// walk extends current with candidates from index start onward. It returns
// false once the search must stop.
func (w *walker) walk(current []int, start int) bool {
	if w.iterations >= w.maxIter {
		w.stop = StopIterationCap
		return false
	}
	w.iterations++
	if w.ctx.Err() != nil {
		w.stop = StopCancelled
		return false
	}
	if len(current) > 0 && w.maximal(current) {
		w.record(current)
		if w.resultCap > 0 && len(w.found) >= w.resultCap {
			w.stop = StopResultCap
			return false
		}
	}
	for i := start; i < len(w.pool); i++ {
		if w.conflicts(i, current) {
			continue
		}
		next := append(current[:len(current):len(current)], i)
		if !w.walk(next, i+1) {
			return false
		}
	}
	return true
}

func (w *walker) conflicts(i int, current []int) bool {
	for _, j := range current {
		if overlap.Overlaps(w.pool[i], w.pool[j]) {
			return true
		}
	}
	return false
}

// maximal reports whether no other pool member can join current.
func (w *walker) maximal(current []int) bool {
	in := make(map[int]struct{}, len(current))
	for _, i := range current {
		in[i] = struct{}{}
	}
	for i := range w.pool {
		if _, ok := in[i]; ok {
			continue
		}
		if !w.conflicts(i, current) {
			return false
		}
	}
	return true
}

func (w *walker) record(current []int) {
	blocks := make([]model.TimeBlock, len(current))
	for k, i := range current {
		blocks[k] = w.pool[i]
	}
	w.found = append(w.found, model.Combination{Blocks: blocks})
}

// rank deduplicates by signature and orders by descending size, then earliest
// start, then signature for a stable output.
func rank(found []model.Combination) []model.Combination {
	seen := make(map[string]struct{}, len(found))
	type keyed struct {
		c   model.Combination
		sig string
	}
	var uniq []keyed
	for _, c := range found {
		sig := c.Signature()
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		uniq = append(uniq, keyed{c: c, sig: sig})
	}
	sort.SliceStable(uniq, func(i, j int) bool {
		a, b := uniq[i], uniq[j]
		if a.c.Len() != b.c.Len() {
			return a.c.Len() > b.c.Len()
		}
		if as, bs := a.c.EarliestStart(), b.c.EarliestStart(); as != bs {
			return as < bs
		}
		return a.sig < b.sig
	})
	out := make([]model.Combination, len(uniq))
	for i, k := range uniq {
		out[i] = k.c
	}
	return out
}
