package prediction

import (
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/fieldfleet/core/logger"
	"github.com/kilianp07/fieldfleet/core/model"
)

// maxHorizonDays is the longest extrapolation that still fits a
// time.Duration.
const maxHorizonDays = float64(math.MaxInt64/int64(day)) - 1

// Engine produces ordered predictions for a set of unit series.
type Engine interface {
	// PredictAll returns predictions sorted by urgency and the ids of units
	// skipped for lack of data.
	PredictAll(series []model.UnitSeries, now time.Time) ([]model.Prediction, []string)
}

// Predictor fits per-unit trends and extrapolates the threshold crossing.
type Predictor struct {
	cfg Config
	log logger.Logger
}

// NewPredictor returns a Predictor. Zero config fields take their defaults.
func NewPredictor(cfg Config, log logger.Logger) (*Predictor, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Predictor{cfg: cfg, log: logger.OrNop(log)}, nil
}

// Config returns the effective configuration.
func (p *Predictor) Config() Config { return p.cfg }

// Predict forecasts the readiness of one unit. The boolean is false when the
// series is too short to fit.
func (p *Predictor) Predict(s model.UnitSeries, now time.Time) (model.Prediction, bool) {
	tr, ok := FitTrend(s.Readings, p.cfg.MinDataDays, p.cfg.TrendEpsilon)
	if !ok {
		return model.Prediction{}, false
	}
	pred := model.Prediction{
		UnitID:        s.Unit.ID,
		UnitName:      s.Unit.DisplayName(),
		Region:        s.Unit.Region,
		Location:      s.Unit.Location,
		PreferredType: s.Unit.PreferredType,
		DeclineRate:   tr.Slope,
		Confidence:    tr.Confidence,
		CurrentValue:  tr.Current,
		Trend:         tr.Direction,
	}
	switch {
	case tr.Current <= p.cfg.Threshold:
		zero := 0.0
		pred.Status = model.StatusReady
		pred.DaysUntilEvent = &zero
	case tr.Slope >= 0:
		pred.Status = model.StatusNotDeclining
	case (p.cfg.Threshold-tr.Current)/tr.Slope > maxHorizonDays:
		// too flat to reach the threshold within a representable date
		pred.Status = model.StatusNotDeclining
	default:
		days := (p.cfg.Threshold - tr.Current) / tr.Slope
		if days < 0 {
			days = 0
		}
		date := now.Add(time.Duration(days * float64(day)))
		pred.Status = model.StatusPredicted
		pred.DaysUntilEvent = &days
		pred.PredictedDate = &date
	}
	pred.UrgencyScore = UrgencyScore(tr.Current, tr.Slope, pred.DaysUntilEvent)
	return pred, true
}

// PredictAll predicts every unit, fitting up to Workers series concurrently.
// Units without enough data are dropped and reported in skipped.
func (p *Predictor) PredictAll(series []model.UnitSeries, now time.Time) ([]model.Prediction, []string) {
	results := make([]model.Prediction, len(series))
	found := make([]bool, len(series))

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i := range series {
		g.Go(func() error {
			results[i], found[i] = p.Predict(series[i], now)
			return nil
		})
	}
	_ = g.Wait()

	preds := make([]model.Prediction, 0, len(series))
	var skipped []string
	for i, ok := range found {
		if !ok {
			skipped = append(skipped, series[i].Unit.ID)
			continue
		}
		preds = append(preds, results[i])
	}
	if len(skipped) > 0 {
		p.log.Debugw("units skipped for insufficient data", map[string]any{
			"count":    len(skipped),
			"min_days": p.cfg.MinDataDays,
		})
	}
	model.SortPredictions(preds)
	return preds, skipped
}

// UrgentUnits returns the predictions with an urgency of at least min,
// keeping their order.
func UrgentUnits(preds []model.Prediction, min int) []model.Prediction {
	var out []model.Prediction
	for _, p := range preds {
		if p.UrgencyScore >= min {
			out = append(out, p)
		}
	}
	return out
}
