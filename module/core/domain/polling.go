package domain

import (
	"fmt"
	"time"
)

type PollingMode string

const (
	ModeBatterySaver  PollingMode = "Battery Saver"
	ModeBalanced      PollingMode = "Balanced"
	ModeHighPrecision PollingMode = "High Precision"
)

func ParsePollingMode(s string) (PollingMode, error) {
	switch PollingMode(s) {
	case ModeBatterySaver, ModeBalanced, ModeHighPrecision:
		return PollingMode(s), nil
	}
	return "", fmt.Errorf("polling mode %q: %w", s, ErrUnknownPollingMode)
}

type ProviderTier string

const (
	// TierPassive only receives fixes requested by other consumers of the provider.
	TierPassive ProviderTier = "passive"
	TierCoarse  ProviderTier = "coarse"
	TierPrecise ProviderTier = "precise"
)

// PollingPlan is recomputed on every fix and fence-set change; it is never persisted.
type PollingPlan struct {
	Interval    time.Duration
	MinDistance float64
	Tier        ProviderTier
}

// Subscription is a request sent to the positioning provider.
type Subscription struct {
	ID          string
	Tier        ProviderTier
	MinInterval time.Duration
	MinDistance float64
}
