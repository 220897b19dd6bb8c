// Package policy decides when a detected installation problem may interrupt
// the user.
//
// Every condition gets the same two-phase treatment. During the initial phase
// the warning is shown on each launch until the initial budget is used up.
// After that the warning recurs at most once per cooldown window. State is
// kept per condition key in the warning cache, so budgets are independent.
package policy

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"modcheck/internal/logging"
	"modcheck/internal/warncache"
)

// Policy is the throttling configuration shared by all conditions.
type Policy struct {
	InitialWarningCount int
	CooldownDays        int
}

// Default returns the stock policy: three warnings, then one every week.
func Default() Policy {
	return Policy{InitialWarningCount: 3, CooldownDays: 7}
}

// Cooldown returns the minimum time between warnings once throttled.
func (p Policy) Cooldown() time.Duration {
	return time.Duration(p.CooldownDays) * 24 * time.Hour
}

func (p Policy) initial() uint32 {
	if p.InitialWarningCount <= 0 {
		return 0
	}
	return uint32(p.InitialWarningCount)
}

// Phase is the throttling phase of one condition.
type Phase string

const (
	PhaseInitial  Phase = "initial"
	PhaseCooldown Phase = "cooldown"
)

// Reason explains a decision.
type Reason string

const (
	ReasonInitialBudget   Reason = "initial_budget"
	ReasonCooldownElapsed Reason = "cooldown_elapsed"
	ReasonCooldownActive  Reason = "cooldown_active"
)

// Decision is the outcome of consulting the policy for one key.
type Decision struct {
	Key       string
	Warn      bool
	Phase     Phase
	Remaining int
	Reason    Reason

	// NextEligibleAt is when a suppressed warning may be shown again.
	// Zero when Warn is true.
	NextEligibleAt time.Time
}

// Engine applies a Policy to the entries of a warning cache.
type Engine struct {
	cache  *warncache.Cache
	policy Policy
	now    func() time.Time
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger decisions are written to.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.For(logger, logging.CategoryPolicy) }
}

// New creates an engine over cache. The cache must already be reconciled
// with the current environment fingerprint.
func New(cache *warncache.Cache, p Policy, opts ...Option) *Engine {
	e := &Engine{
		cache:  cache,
		policy: p,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy { return e.policy }

// Phase reports which phase key is in. An entry whose count already reached
// the budget without the completion flag (the budget was lowered) is in the
// cooldown phase.
func (e *Engine) Phase(key string) Phase {
	entry, _ := e.cache.Get(key)
	return e.phaseOf(entry)
}

func (e *Engine) phaseOf(entry warncache.Entry) Phase {
	if entry.InitialPhaseComplete || entry.ShownCount >= e.policy.initial() {
		return PhaseCooldown
	}
	return PhaseInitial
}

// Remaining returns how many more times the warning may be shown without
// waiting. In the cooldown phase this is 1 once the window has elapsed.
func (e *Engine) Remaining(key string) int {
	return e.Decide(key).Remaining
}

// ShouldWarn reports whether the warning for key may be shown now.
func (e *Engine) ShouldWarn(key string) bool {
	return e.Remaining(key) > 0
}

// Decide evaluates key and reports why it may or may not be shown.
func (e *Engine) Decide(key string) Decision {
	entry, _ := e.cache.Get(key)
	d := Decision{Key: key, Phase: e.phaseOf(entry)}

	if d.Phase == PhaseInitial {
		d.Remaining = int(e.policy.initial() - entry.ShownCount)
		d.Reason = ReasonInitialBudget
		d.Warn = true
		return d
	}

	if entry.Never() {
		d.Remaining = 1
		d.Reason = ReasonCooldownElapsed
		d.Warn = true
		return d
	}

	next := entry.LastShownAt.Add(e.policy.Cooldown())
	if !e.now().Before(next) {
		d.Remaining = 1
		d.Reason = ReasonCooldownElapsed
		d.Warn = true
		return d
	}

	d.Reason = ReasonCooldownActive
	d.NextEligibleAt = next
	return d
}

// Projected returns the entry key would have after one more display,
// without changing the cache.
func (e *Engine) Projected(key string) warncache.Entry {
	entry, _ := e.cache.Get(key)
	wasInitial := e.phaseOf(entry) == PhaseInitial

	entry.ShownCount++
	entry.LastShownAt = e.now()
	if wasInitial && entry.ShownCount >= e.policy.initial() {
		entry.InitialPhaseComplete = true
	}
	return entry
}

// RecordShown notes that the warning for key was displayed and saves the
// cache. A save failure is logged; the in-memory entry is still updated.
func (e *Engine) RecordShown(key string) warncache.Entry {
	e.cache.Put(key, e.Projected(key))
	e.cache.SaveOrLog()

	entry, _ := e.cache.Get(key)
	e.logger.Debug("Recorded warning display",
		zap.String("key", key),
		zap.Uint32("shown_count", entry.ShownCount),
		zap.Bool("initial_phase_complete", entry.InitialPhaseComplete))
	return entry
}

// Footer returns the text appended to a notification, telling the user how
// often they will see it again. entry is the state after the display, as
// returned by Projected or RecordShown.
func (e *Engine) Footer(d Decision, entry warncache.Entry) string {
	if d.Phase == PhaseInitial && !entry.InitialPhaseComplete {
		left := int(e.policy.initial()) - int(entry.ShownCount)
		if left == 1 {
			return "This warning will be shown on 1 more launch before it is " + e.recurrence() + "."
		}
		return fmt.Sprintf("This warning will be shown on %d more launches before it is %s.", left, e.recurrence())
	}
	if d.Phase == PhaseInitial {
		return "From now on this warning is " + e.recurrence() + "."
	}
	return "This warning is " + e.recurrence() + " until the problem is fixed."
}

func (e *Engine) recurrence() string {
	switch e.policy.CooldownDays {
	case 0:
		return "repeated on every launch"
	case 1:
		return "limited to once a day"
	default:
		return fmt.Sprintf("limited to once every %d days", e.policy.CooldownDays)
	}
}
