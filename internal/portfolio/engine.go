package portfolio

import (
	"context"
	"log"
	"sync"
	"time"

	"portfolio-riskv1/internal/model"
)

// Engine owns the refresh cycle: it holds the raw rows, rebuilds the whole
// position → group → summary graph on every refresh, and publishes the result
// as one immutable snapshot. Readers either see the previous complete snapshot
// or the new complete snapshot — never a mix.
type Engine struct {
	builder *Builder

	mu      sync.RWMutex
	rows    []model.RawRow
	summary *model.PortfolioSummary
	groups  []model.PortfolioGroup

	// OnRefresh is an optional metrics hook invoked after every refresh
	// attempt with the wall-clock duration and outcome.
	OnRefresh func(d time.Duration, err error)
}

// NewEngine creates an Engine around the given builder.
func NewEngine(builder *Builder) *Engine {
	return &Engine{builder: builder}
}

// LoadRows replaces the engine's raw holdings rows. The next Refresh picks
// them up; the current snapshot is untouched until then.
func (e *Engine) LoadRows(rows []model.RawRow) {
	e.mu.Lock()
	e.rows = rows
	e.mu.Unlock()
	log.Printf("[engine] loaded %d holdings rows", len(rows))
}

// Refresh recomputes everything from scratch: reprice every position, rebuild
// every group, produce a new summary. On any error the previous snapshot
// stays published unchanged — there is no partial, best-effort summary.
func (e *Engine) Refresh(ctx context.Context) (*model.PortfolioSummary, error) {
	start := time.Now()

	e.mu.RLock()
	rows := e.rows
	e.mu.RUnlock()

	res, err := e.builder.Build(ctx, rows)
	if err != nil {
		e.hook(time.Since(start), err)
		return nil, err
	}

	groups := AggregateAll(Group(res.Stocks, res.Options))
	summary := Summarize(groups, res.CashLike, e.builder.now())

	e.mu.Lock()
	e.summary = &summary
	e.groups = groups
	e.mu.Unlock()

	d := time.Since(start)
	e.hook(d, nil)
	log.Printf("[engine] refresh complete: %d groups, net=%.2f, beta=%.3f (%v)",
		len(groups), summary.NetMarketExposure, summary.PortfolioBeta, d.Round(time.Millisecond))
	return &summary, nil
}

// Snapshot returns the latest published summary and groups. ok is false until
// the first successful refresh. The returned values are never mutated by the
// engine; downstream consumers can read freely.
func (e *Engine) Snapshot() (*model.PortfolioSummary, []model.PortfolioGroup, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.summary == nil {
		return nil, nil, false
	}
	return e.summary, e.groups, true
}

func (e *Engine) hook(d time.Duration, err error) {
	if e.OnRefresh != nil {
		e.OnRefresh(d, err)
	}
}
