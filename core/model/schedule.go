package model

import "time"

// PriorityTier classifies consumers by size for booking precedence.
type PriorityTier string

const (
	TierNormal   PriorityTier = "normal"
	TierPriority PriorityTier = "priority"
	TierPremium  PriorityTier = "premium"
)

// Schedule binds one consumer to a cluster window.
type Schedule struct {
	ConsumerID   string       `json:"consumer_id"`
	ConsumerName string       `json:"consumer_name"`
	UnitID       string       `json:"unit_id"`
	Region       string       `json:"region"`
	ClusterID    string       `json:"cluster_id"`
	Window       Window       `json:"window"`
	OptimalDate  time.Time    `json:"optimal_date"`
	Magnitude    float64      `json:"magnitude"`
	PriorityTier PriorityTier `json:"priority_tier"`
	PriorityFlag bool         `json:"priority_flag"`
}
