package highlight

import (
	"context"
	"sync"
	"time"

	"github.com/redline-labs/clausemark/internal/config"
	"github.com/redline-labs/clausemark/internal/models"
	"go.uber.org/zap"
)

// Coordinator runs clause highlighting attempts against a Surface. Each
// clause selection moves through debounce-pending, searching, verifying, and
// finally found or not-found; selecting a different clause while an attempt
// is pending supersedes it. Only the most recently selected clause may update
// the stored result (generation acts as a stale-callback guard), so late
// results from an earlier attempt are discarded without explicit cancellation.
type Coordinator struct {
	surface    Surface
	inspector  Inspector
	sched      Scheduler
	logger     *zap.Logger
	cfg        *config.HighlightConfig
	viewMode   ViewMode
	strategies []Strategy

	mu           sync.Mutex
	generation   uint64
	clauseID     string
	pending      Timer
	highlighting bool
	result       *models.HighlightResult
	matchIndex   int // 0-based
	totalMatches int
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets a logger for diagnostic output.
func WithCoordinatorLogger(l *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// WithScheduler overrides the timer scheduler. Tests inject a fake to drive
// the state machine without real timers.
func WithScheduler(s Scheduler) CoordinatorOption {
	return func(c *Coordinator) { c.sched = s }
}

// WithStrategies replaces the default strategy list.
func WithStrategies(strategies []Strategy) CoordinatorOption {
	return func(c *Coordinator) { c.strategies = strategies }
}

// NewCoordinator creates a coordinator over the given surface and inspector.
func NewCoordinator(surface Surface, inspector Inspector, cfg *config.HighlightConfig, mode ViewMode, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		surface:    surface,
		inspector:  inspector,
		sched:      NewScheduler(),
		cfg:        cfg,
		viewMode:   mode,
		strategies: DefaultStrategies(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) profile() config.TimingProfile {
	if c.viewMode == ViewContinuousScroll {
		return c.cfg.ContinuousScroll
	}
	return c.cfg.SinglePage
}

// ExecuteHighlighting starts a highlighting attempt for clause after the
// debounce delay. Passing nil clears the current selection and all highlights.
// Re-selecting the same clause id before the timer fires restarts the pending
// timer; selecting a different clause cancels it.
func (c *Coordinator) ExecuteHighlighting(clause *models.Clause) {
	if clause == nil {
		c.toIdle()
		return
	}
	c.armDebounce(clause)
}

// toIdle cancels any pending attempt and clears stored state and highlights.
func (c *Coordinator) toIdle() {
	c.mu.Lock()
	c.generation++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.clauseID = ""
	c.highlighting = false
	c.result = nil
	c.matchIndex = 0
	c.totalMatches = 0
	c.mu.Unlock()
	c.surface.ClearHighlights()
}

// armDebounce restarts the debounce timer for clause. The generation bump
// invalidates any in-flight attempt's late results.
func (c *Coordinator) armDebounce(clause *models.Clause) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.pending.Stop()
	}
	c.generation++
	gen := c.generation
	c.clauseID = clause.ID
	c.highlighting = true
	c.pending = c.sched.AfterFunc(c.cfg.Debounce(), func() {
		c.runAttempt(gen, clause)
	})
}

// runAttempt is the searching/verifying phase: clear old highlights, try each
// strategy in order, verify against the live view, and commit the outcome.
// Internal panics downgrade to an error result; nothing propagates.
func (c *Coordinator) runAttempt(gen uint64, clause *models.Clause) {
	defer func() {
		if r := recover(); r != nil {
			if c.logger != nil {
				c.logger.Error("highlight attempt panicked", zap.String("clause_id", clause.ID), zap.Any("panic", r))
			}
			c.commit(gen, &models.HighlightResult{
				ClauseID: clause.ID,
				Found:    false,
				Strategy: models.StrategyError,
			}, 0)
		}
	}()

	if c.stale(gen) {
		return
	}
	ctx := context.Background()
	c.surface.ClearHighlights()
	rendered := c.inspector.ExtractVisibleText()

	for _, strategy := range c.strategies {
		terms := strategy.Derive(clause.Text, rendered)
		if len(terms) == 0 {
			continue
		}
		if _, err := c.surface.Search(ctx, terms); err != nil {
			if c.logger != nil {
				c.logger.Debug("search failed, trying next strategy",
					zap.String("strategy", strategy.Name), zap.Error(err))
			}
			continue
		}
		count := c.verify(ctx)
		if count == 0 {
			continue
		}
		if c.commit(gen, &models.HighlightResult{
			ClauseID:   clause.ID,
			Found:      true,
			Strategy:   strategy.Name,
			Terms:      terms,
			MatchCount: count,
		}, count) {
			c.jumpToFirst(ctx, gen)
		}
		return
	}

	c.commit(gen, &models.HighlightResult{
		ClauseID: clause.ID,
		Found:    false,
		Strategy: models.StrategyNone,
	}, 0)
}

// verify waits for the view to settle and inspects the live output for
// highlight elements. Zero elements triggers one recheck with the longer
// retry delay before the caller falls through to the next strategy.
func (c *Coordinator) verify(ctx context.Context) int {
	p := c.profile()
	c.sched.Sleep(ctx, p.InitialDelay())
	if n := c.inspector.CountHighlightElements(); n > 0 {
		return n
	}
	c.sched.Sleep(ctx, p.RetryDelay())
	return c.inspector.CountHighlightElements()
}

// jumpToFirst positions the view at the first match after a short settle
// delay, falling back to the directional primitive if the indexed jump fails.
func (c *Coordinator) jumpToFirst(ctx context.Context, gen uint64) {
	c.sched.Sleep(ctx, c.profile().JumpDelay())
	if c.stale(gen) {
		return
	}
	if err := c.surface.JumpToMatch(1); err != nil {
		if c.logger != nil {
			c.logger.Debug("jump to first match failed, falling back", zap.Error(err))
		}
		if err := c.surface.JumpToNextMatch(); err != nil && c.logger != nil {
			c.logger.Debug("fallback jump failed", zap.Error(err))
		}
	}
}

// commit stores the terminal result for this attempt. Last write wins: a
// result from a superseded generation is dropped. Reports whether the result
// was accepted.
func (c *Coordinator) commit(gen uint64, result *models.HighlightResult, total int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	result.CompletedAt = time.Now()
	c.result = result
	c.totalMatches = total
	c.matchIndex = 0
	c.highlighting = false
	c.pending = nil
	if c.logger != nil {
		c.logger.Debug("highlight attempt finished",
			zap.String("clause_id", result.ClauseID),
			zap.Bool("found", result.Found),
			zap.String("strategy", result.Strategy),
			zap.Int("matches", result.MatchCount))
	}
	return true
}

func (c *Coordinator) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation
}

// GoToNextMatch advances the current match index, wrapping past the last
// match back to the first, and jumps the view there (1-based index).
func (c *Coordinator) GoToNextMatch() {
	c.mu.Lock()
	if c.totalMatches == 0 {
		c.mu.Unlock()
		return
	}
	c.matchIndex = (c.matchIndex + 1) % c.totalMatches
	idx := c.matchIndex
	c.mu.Unlock()
	c.jump(idx, c.surface.JumpToNextMatch)
}

// GoToPreviousMatch moves the current match index back, wrapping from the
// first match to the last.
func (c *Coordinator) GoToPreviousMatch() {
	c.mu.Lock()
	if c.totalMatches == 0 {
		c.mu.Unlock()
		return
	}
	c.matchIndex = (c.matchIndex - 1 + c.totalMatches) % c.totalMatches
	idx := c.matchIndex
	c.mu.Unlock()
	c.jump(idx, c.surface.JumpToPreviousMatch)
}

func (c *Coordinator) jump(index int, fallback func() error) {
	if err := c.surface.JumpToMatch(index + 1); err != nil {
		if c.logger != nil {
			c.logger.Debug("indexed jump failed, falling back",
				zap.Int("index", index+1), zap.Error(err))
		}
		if err := fallback(); err != nil && c.logger != nil {
			c.logger.Debug("fallback jump failed", zap.Error(err))
		}
	}
}

// ClearCurrentHighlights clears the selection, stored result, and all
// highlights. Equivalent to selecting no clause.
func (c *Coordinator) ClearCurrentHighlights() {
	c.toIdle()
}

// IsHighlighting reports whether an attempt is pending or in flight.
func (c *Coordinator) IsHighlighting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highlighting
}

// Result returns a copy of the most recent terminal result, or nil if no
// attempt has completed since the last clear.
func (c *Coordinator) Result() *models.HighlightResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return nil
	}
	out := *c.result
	return &out
}

// CurrentMatchIndex returns the 0-based index of the current match.
func (c *Coordinator) CurrentMatchIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matchIndex
}

// TotalMatches returns the verified match count of the current result.
func (c *Coordinator) TotalMatches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalMatches
}
