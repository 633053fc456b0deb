package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConsumer is returned when a consumer roster entry is malformed.
var ErrInvalidConsumer = errors.New("invalid consumer")

// ConsumerRecord is a grower linked to a unit. Magnitude is the serviced
// area and drives capacity aggregation.
type ConsumerRecord struct {
	ID        string  `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	UnitID    string  `json:"unit_id" yaml:"unit_id"`
	Magnitude float64 `json:"magnitude" yaml:"magnitude"`
	// TierInput is compared against the tier thresholds. Zero falls back to Magnitude.
	TierInput float64 `json:"tier_input,omitempty" yaml:"tier_input,omitempty"`
}

// TierBasis returns the value used to classify the priority tier.
func (c ConsumerRecord) TierBasis() float64 {
	if c.TierInput != 0 {
		return c.TierInput
	}
	return c.Magnitude
}

// Validate checks the consumer fields.
func (c ConsumerRecord) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidConsumer)
	}
	if c.UnitID == "" {
		return fmt.Errorf("%w %s: missing unit link", ErrInvalidConsumer, c.ID)
	}
	if c.Magnitude < 0 || math.IsNaN(c.Magnitude) || math.IsInf(c.Magnitude, 0) {
		return fmt.Errorf("%w %s: magnitude must be a non-negative number", ErrInvalidConsumer, c.ID)
	}
	return nil
}

// ValidateConsumers checks every consumer and rejects duplicate ids.
func ValidateConsumers(consumers []ConsumerRecord) error {
	seen := make(map[string]struct{}, len(consumers))
	for _, c := range consumers {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, ok := seen[c.ID]; ok {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidConsumer, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}
