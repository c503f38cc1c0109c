// Package fallback decides, once per document, which signal extractors are
// active. The decision is an immutable State value passed through the
// pipeline.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docoutline/internal/semantic"
)

// Tier is a fixed configuration of active extractors.
type Tier int

const (
	TierAuto   Tier = 0 // only meaningful as a force setting
	TierFull   Tier = 1 // semantic + visual + pattern
	TierHybrid Tier = 2 // visual + pattern
	TierBasic  Tier = 3 // pattern, visual as tie-breaker
)

func (t Tier) String() string {
	switch t {
	case TierFull:
		return "full"
	case TierHybrid:
		return "hybrid"
	case TierBasic:
		return "basic"
	default:
		return "auto"
	}
}

// Reasons recorded on a State.
const (
	ReasonModelReady   = "model ready"
	ReasonNoFontInfo   = "font metadata unavailable"
	ReasonForced       = "forced by configuration"
	ReasonNoModel      = "semantic model not configured"
	ReasonRetryCap     = "model retry cap reached"
	ReasonCoolingDown  = "model probe cooling down"
	ReasonProbeFailed  = "model probe failed"
	ReasonBudget       = "document time budget exceeded"
	ReasonSemanticFail = "semantic scoring failed"
)

// State is the per-document tier decision.
type State struct {
	Tier   Tier
	Reason string
}

// SemanticEnabled reports whether the semantic extractor runs.
func (s State) SemanticEnabled() bool { return s.Tier == TierFull }

// VisualPrimary reports whether the visual signal is fused as a primary score
// rather than used as a tie-breaker.
func (s State) VisualPrimary() bool { return s.Tier != TierBasic }

// Demote returns the hybrid tier state for a document whose semantic scoring
// could not complete. Lower tiers are returned unchanged.
func (s State) Demote(reason string) State {
	if s.Tier != TierFull {
		return s
	}
	return State{Tier: TierHybrid, Reason: reason}
}

// Prober checks model health within a bounded time.
type Prober interface {
	Probe(ctx context.Context) error
}

// Controller owns the process-wide probe history. Documents never share a
// State; they only share the failure count that gates re-probing.
type Controller struct {
	prober   Prober
	retryCap int
	force    Tier
	backoff  func(attempt int) time.Duration
	now      func() time.Time
	log      *slog.Logger

	mu       sync.Mutex
	failures int
	retryAt  time.Time
}

// NewController creates a controller. A nil prober means the semantic tier is
// never available.
func NewController(p Prober, retryCap int, force Tier, log *slog.Logger) *Controller {
	if retryCap <= 0 {
		retryCap = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		prober:   p,
		retryCap: retryCap,
		force:    force,
		backoff:  Backoff,
		now:      time.Now,
		log:      log,
	}
}

// Decide picks the tier for one document. fontInfo is false when the run
// source could not supply font sizes for some page.
func (c *Controller) Decide(ctx context.Context, fontInfo bool) State {
	if !fontInfo {
		return State{Tier: TierBasic, Reason: ReasonNoFontInfo}
	}
	if c.force == TierBasic || c.force == TierHybrid {
		return State{Tier: c.force, Reason: ReasonForced}
	}
	if c.prober == nil {
		return State{Tier: TierHybrid, Reason: ReasonNoModel}
	}

	c.mu.Lock()
	switch {
	case c.failures >= c.retryCap:
		c.mu.Unlock()
		return State{Tier: TierHybrid, Reason: ReasonRetryCap}
	case c.now().Before(c.retryAt):
		c.mu.Unlock()
		return State{Tier: TierHybrid, Reason: ReasonCoolingDown}
	}
	c.mu.Unlock()

	if err := c.prober.Probe(ctx); err != nil {
		c.recordFailure(err)
		return State{Tier: TierHybrid, Reason: fmt.Sprintf("%s: %v", ReasonProbeFailed, err)}
	}
	return State{Tier: TierFull, Reason: ReasonModelReady}
}

func (c *Controller) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	// A model that cannot exist in this build or configuration is not retried.
	if errors.Is(err, semantic.ErrModelUnavailable) {
		c.failures = c.retryCap
	}
	c.retryAt = c.now().Add(c.backoff(c.failures - 1))
	c.log.Warn("semantic model probe failed",
		"failures", c.failures,
		"retry_cap", c.retryCap,
		"error", err,
	)
}

// Failures returns the number of failed probes so far.
func (c *Controller) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// ParseTier converts a configuration value into a force setting.
func ParseTier(n int) (Tier, error) {
	if n < 0 || n > 3 {
		return TierAuto, fmt.Errorf("invalid tier %d", n)
	}
	return Tier(n), nil
}
