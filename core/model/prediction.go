package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidPrediction is returned when a replayed forecast entry is malformed.
var ErrInvalidPrediction = errors.New("invalid prediction")

// PredictionStatus describes how a unit relates to the readiness threshold.
type PredictionStatus string

const (
	// StatusReady means the index is already at or below the threshold.
	StatusReady PredictionStatus = "ready"
	// StatusPredicted means a crossing date was extrapolated.
	StatusPredicted PredictionStatus = "predicted"
	// StatusNotDeclining means the trend never reaches the threshold.
	StatusNotDeclining PredictionStatus = "not_declining"
)

// TrendDirection labels the fitted slope.
type TrendDirection string

const (
	TrendDeclining  TrendDirection = "declining"
	TrendStable     TrendDirection = "stable"
	TrendIncreasing TrendDirection = "increasing"
)

// Prediction is the readiness forecast for one unit.
type Prediction struct {
	UnitID        string         `json:"unit_id"`
	UnitName      string         `json:"unit_name"`
	Region        string         `json:"region"`
	Location      Location       `json:"location"`
	PreferredType MachineType    `json:"preferred_type,omitempty"`
	DeclineRate   float64        `json:"decline_rate"`
	Confidence    float64        `json:"confidence"`
	CurrentValue  float64        `json:"current_value"`
	Trend         TrendDirection `json:"trend"`
	// PredictedDate is set only when Status is StatusPredicted.
	PredictedDate  *time.Time       `json:"predicted_date"`
	DaysUntilEvent *float64         `json:"days_until_event"`
	UrgencyScore   int              `json:"urgency_score"`
	Status         PredictionStatus `json:"status"`
}

// Schedulable reports whether the prediction carries a usable event date.
func (p Prediction) Schedulable() bool {
	return p.PredictedDate != nil && p.Status != StatusNotDeclining
}

// Validate checks the status invariants of a forecast entry.
func (p Prediction) Validate() error {
	if p.UnitID == "" {
		return fmt.Errorf("%w: missing unit id", ErrInvalidPrediction)
	}
	if err := p.Location.Validate(); err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidPrediction, p.UnitID, err)
	}
	if p.UrgencyScore < 1 || p.UrgencyScore > 10 {
		return fmt.Errorf("%w %s: urgency %d outside [1,10]", ErrInvalidPrediction, p.UnitID, p.UrgencyScore)
	}
	switch p.Status {
	case StatusPredicted:
		if p.PredictedDate == nil {
			return fmt.Errorf("%w %s: predicted without a date", ErrInvalidPrediction, p.UnitID)
		}
	case StatusReady, StatusNotDeclining:
		if p.PredictedDate != nil {
			return fmt.Errorf("%w %s: %s with a date", ErrInvalidPrediction, p.UnitID, p.Status)
		}
	default:
		return fmt.Errorf("%w %s: unknown status %q", ErrInvalidPrediction, p.UnitID, p.Status)
	}
	return nil
}

// ValidatePredictions checks every entry and rejects duplicate unit ids.
func ValidatePredictions(preds []Prediction) error {
	seen := make(map[string]struct{}, len(preds))
	for _, p := range preds {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, ok := seen[p.UnitID]; ok {
			return fmt.Errorf("%w: duplicate unit %s", ErrInvalidPrediction, p.UnitID)
		}
		seen[p.UnitID] = struct{}{}
	}
	return nil
}

// SortPredictions orders predictions by urgency descending with the unit id
// as a deterministic tie-break. The slice is sorted in place.
func SortPredictions(preds []Prediction) {
	sort.SliceStable(preds, func(i, j int) bool {
		if preds[i].UrgencyScore != preds[j].UrgencyScore {
			return preds[i].UrgencyScore > preds[j].UrgencyScore
		}
		return preds[i].UnitID < preds[j].UnitID
	})
}

// PredictionIndex maps unit ids to their prediction.
func PredictionIndex(preds []Prediction) map[string]Prediction {
	idx := make(map[string]Prediction, len(preds))
	for _, p := range preds {
		idx[p.UnitID] = p
	}
	return idx
}
