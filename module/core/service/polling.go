package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nandanugg/gird/module/core/domain"
	"github.com/nandanugg/gird/module/core/internal/repository/provider"
)

const (
	idleMinDistance      = 500
	bootstrapInterval    = 60 * time.Second
	bootstrapMinDistance = 10
	trackingMinDistance  = 20

	// Balanced switches to the precise provider at or below this interval.
	preciseIntervalCutoff = 120 * time.Second

	passiveInterval = 30 * time.Second
)

type intervalTier struct {
	below    float64
	interval time.Duration
}

// Brackets a mode leaves out fall through to the next wider one.
var intervalTiers = map[domain.PollingMode][]intervalTier{
	domain.ModeBatterySaver: {
		{500, 300 * time.Second},
		{math.Inf(1), 900 * time.Second},
	},
	domain.ModeBalanced: {
		{500, 30 * time.Second},
		{2000, 60 * time.Second},
		{10000, 300 * time.Second},
		{math.Inf(1), 600 * time.Second},
	},
	domain.ModeHighPrecision: {
		{500, 15 * time.Second},
		{2000, 30 * time.Second},
		{math.Inf(1), 120 * time.Second},
	},
}

// ComputePlan decides the next sampling request from the mode, the active fences
// and the most recent accepted fix (nil before the first one).
func ComputePlan(mode domain.PollingMode, active []domain.Geofence, fix *domain.Fix) domain.PollingPlan {
	var plan domain.PollingPlan
	switch {
	case len(active) == 0:
		plan.Interval = 600 * time.Second
		if mode == domain.ModeBatterySaver {
			plan.Interval = 900 * time.Second
		}
		plan.MinDistance = idleMinDistance
	case fix == nil:
		plan.Interval = bootstrapInterval
		plan.MinDistance = bootstrapMinDistance
	default:
		plan.Interval = intervalFor(mode, minBoundaryDistance(active, *fix))
		plan.MinDistance = trackingMinDistance
	}
	plan.Tier = tierFor(mode, plan.Interval)
	return plan
}

// minBoundaryDistance is the distance from fix to the nearest active boundary,
// zero when the fix lies inside any fence.
func minBoundaryDistance(active []domain.Geofence, fix domain.Fix) float64 {
	minDist := math.MaxFloat64
	for _, gf := range active {
		d := math.Max(0, Distance(fix.Lat, fix.Lon, gf.Lat, gf.Lon)-gf.Radius)
		if d < minDist {
			minDist = d
		}
	}
	return minDist
}

func intervalFor(mode domain.PollingMode, minDistance float64) time.Duration {
	tiers, ok := intervalTiers[mode]
	if !ok {
		tiers = intervalTiers[domain.ModeBalanced]
	}
	for _, t := range tiers {
		if minDistance < t.below {
			return t.interval
		}
	}
	return tiers[len(tiers)-1].interval
}

func tierFor(mode domain.PollingMode, interval time.Duration) domain.ProviderTier {
	switch mode {
	case domain.ModeBatterySaver:
		return domain.TierCoarse
	case domain.ModeHighPrecision:
		return domain.TierPrecise
	}
	if interval <= preciseIntervalCutoff {
		return domain.TierPrecise
	}
	return domain.TierCoarse
}

// PollingController keeps one variable-rate subscription in line with the current
// plan, next to a passive subscription that lives as long as the controller runs.
type PollingController struct {
	provider provider.PositionProvider
	logger   *zap.Logger

	mu      sync.Mutex
	passive *domain.Subscription
	active  *domain.Subscription
	plan    *domain.PollingPlan

	newID func() string
}

func NewPollingController(p provider.PositionProvider, logger *zap.Logger) *PollingController {
	return &PollingController{
		provider: p,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Start requests the passive subscription. It is never cancelled by Reconfigure.
func (c *PollingController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.passive != nil {
		return nil
	}
	sub := domain.Subscription{
		ID:          "passive-" + c.newID(),
		Tier:        domain.TierPassive,
		MinInterval: passiveInterval,
	}
	if err := c.provider.RequestUpdates(ctx, sub); err != nil {
		return fmt.Errorf("request passive updates: %w", err)
	}
	c.passive = &sub
	return nil
}

// Reconfigure replaces the variable-rate subscription with one matching plan. The
// old subscription is cancelled before the new one is requested. A rejected
// request leaves only the passive subscription running until the next call.
func (c *PollingController) Reconfigure(ctx context.Context, plan domain.PollingPlan) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil && c.plan != nil && *c.plan == plan {
		return nil
	}

	var errs []error
	if c.active != nil {
		if err := c.provider.RemoveUpdates(ctx, c.active.ID); err != nil {
			errs = append(errs, fmt.Errorf("remove updates: %w", err))
		}
		c.active = nil
	}

	sub := domain.Subscription{
		ID:          c.newID(),
		Tier:        plan.Tier,
		MinInterval: plan.Interval,
		MinDistance: plan.MinDistance,
	}
	c.plan = &plan
	if err := c.provider.RequestUpdates(ctx, sub); err != nil {
		errs = append(errs, fmt.Errorf("request updates: %w", err))
		return errors.Join(errs...)
	}
	c.active = &sub

	c.logger.Debug("polling reconfigured",
		zap.Duration("interval", plan.Interval),
		zap.Float64("min_distance_m", plan.MinDistance),
		zap.String("tier", string(plan.Tier)),
	)
	return errors.Join(errs...)
}

// Stop cancels every subscription, passive included.
func (c *PollingController) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, sub := range []*domain.Subscription{c.active, c.passive} {
		if sub == nil {
			continue
		}
		if err := c.provider.RemoveUpdates(ctx, sub.ID); err != nil {
			errs = append(errs, fmt.Errorf("remove updates %s: %w", sub.ID, err))
		}
	}
	c.active, c.passive, c.plan = nil, nil, nil
	return errors.Join(errs...)
}

// Plan returns the last plan handed to Reconfigure.
func (c *PollingController) Plan() (domain.PollingPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.plan == nil {
		return domain.PollingPlan{}, false
	}
	return *c.plan, true
}
