package game

import (
	"fmt"
	"time"
)

// ScoringPolicy maps the time taken (and hints already shown) to points.
// Implementations must be non-increasing in elapsed for a fixed hint count.
type ScoringPolicy interface {
	Points(elapsed time.Duration, hintsShown int) int
}

// Tier awards Points to answers given within the Within offset.
type Tier struct {
	Within time.Duration
	Points int
}

// DefaultTiers are the coarse speed tiers; slower answers get TieredPolicy.Floor.
var DefaultTiers = []Tier{
	{Within: 10 * time.Second, Points: 100},
	{Within: 20 * time.Second, Points: 85},
	{Within: 30 * time.Second, Points: 70},
	{Within: 40 * time.Second, Points: 55},
	{Within: 50 * time.Second, Points: 40},
}

// DefaultFloor is awarded to in-time answers slower than every tier.
const DefaultFloor = 25

// TieredPolicy scores by fixed tiers and ignores hints.
// Tiers must be ordered by Within ascending with non-increasing Points.
type TieredPolicy struct {
	Tiers []Tier
	Floor int
}

func (p TieredPolicy) Points(elapsed time.Duration, _ int) int {
	for _, t := range p.Tiers {
		if elapsed <= t.Within {
			return t.Points
		}
	}
	return p.Floor
}

// HintPenaltyPolicy subtracts Penalty per hint shown from Base, floored at 0.
type HintPenaltyPolicy struct {
	Base    ScoringPolicy
	Penalty int
}

func (p HintPenaltyPolicy) Points(elapsed time.Duration, hintsShown int) int {
	return max(0, p.Base.Points(elapsed, hintsShown)-p.Penalty*hintsShown)
}

// NewPolicy returns the policy registered under name ("tiered" or
// "hint_penalty").
func NewPolicy(name string, hintPenalty int) (ScoringPolicy, error) {
	tiered := TieredPolicy{Tiers: DefaultTiers, Floor: DefaultFloor}
	switch name {
	case "", "tiered":
		return tiered, nil
	case "hint_penalty":
		return HintPenaltyPolicy{Base: tiered, Penalty: hintPenalty}, nil
	default:
		return nil, fmt.Errorf("unknown scoring policy %q", name)
	}
}
