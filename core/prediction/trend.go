package prediction

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/fieldfleet/core/model"
)

const day = 24 * time.Hour

// Trend is the least-squares fit of index value against day number.
type Trend struct {
	Slope      float64
	Intercept  float64
	Confidence float64
	Direction  model.TrendDirection
	Start      float64
	Current    float64
	Points     int
}

// FitTrend fits value = slope*day + intercept over the readings. Day numbers
// are whole days since the earliest reading. It returns false when there are
// fewer than minPoints readings or all readings fall on the same day.
func FitTrend(readings []model.Reading, minPoints int, epsilon float64) (Trend, bool) {
	if len(readings) < minPoints || len(readings) == 0 {
		return Trend{}, false
	}
	sorted := model.UnitSeries{Readings: readings}.Sorted()
	first := sorted[0].Timestamp
	x := make([]float64, len(sorted))
	y := make([]float64, len(sorted))
	for i, r := range sorted {
		x[i] = math.Floor(float64(r.Timestamp.Sub(first)) / float64(day))
		y[i] = r.Value
	}
	if stat.Variance(x, nil) == 0 {
		return Trend{}, false
	}
	intercept, slope := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(slope) || math.IsNaN(intercept) {
		return Trend{}, false
	}
	conf := 0.0
	if stat.Variance(y, nil) > 0 {
		conf = stat.RSquared(x, y, nil, intercept, slope)
		if math.IsNaN(conf) {
			conf = 0
		}
	}
	return Trend{
		Slope:      slope,
		Intercept:  intercept,
		Confidence: conf,
		Direction:  classify(slope, epsilon),
		Start:      y[0],
		Current:    y[len(y)-1],
		Points:     len(y),
	}, true
}

func classify(slope, epsilon float64) model.TrendDirection {
	switch {
	case slope < 0 && slope <= -epsilon:
		return model.TrendDeclining
	case slope > 0 && slope >= epsilon:
		return model.TrendIncreasing
	default:
		return model.TrendStable
	}
}
