package prediction

import (
	"sort"
	"time"

	"github.com/kilianp07/fieldfleet/core/model"
)

// GroupReadings builds one series per unit in roster order. Readings are
// sorted by timestamp. Units without readings get an empty series; the ids
// of readings referencing unknown units are returned sorted and deduplicated.
func GroupReadings(units []model.Unit, readings []model.Reading) ([]model.UnitSeries, []string) {
	byUnit := make(map[string][]model.Reading, len(units))
	for _, u := range units {
		byUnit[u.ID] = nil
	}
	orphans := make(map[string]struct{})
	for _, r := range readings {
		if _, ok := byUnit[r.UnitID]; !ok {
			orphans[r.UnitID] = struct{}{}
			continue
		}
		byUnit[r.UnitID] = append(byUnit[r.UnitID], r)
	}

	series := make([]model.UnitSeries, 0, len(units))
	for _, u := range units {
		s := model.UnitSeries{Unit: u, Readings: byUnit[u.ID]}
		s.Readings = s.Sorted()
		series = append(series, s)
	}

	var unknown []string
	for id := range orphans {
		unknown = append(unknown, id)
	}
	sort.Strings(unknown)
	return series, unknown
}

// StaticEngine returns a fixed prediction list. It lets callers inject
// precomputed predictions into the pipeline.
type StaticEngine struct {
	Predictions []model.Prediction
}

// PredictAll returns a sorted copy of the configured predictions.
func (e StaticEngine) PredictAll([]model.UnitSeries, time.Time) ([]model.Prediction, []string) {
	out := make([]model.Prediction, len(e.Predictions))
	copy(out, e.Predictions)
	model.SortPredictions(out)
	return out, nil
}
