package prediction

// band maps a value to points when it is at or below limit.
type band struct {
	limit  float64
	points int
}

var (
	proximityBands = []band{{0.35, 4}, {0.45, 3}, {0.55, 2}, {0.65, 1}}
	declineBands   = []band{{-0.02, 3}, {-0.015, 2}, {-0.01, 1}}
	daysBands      = []band{{3, 3}, {7, 2}, {14, 1}}
)

func score(v float64, bands []band) int {
	for _, b := range bands {
		if v <= b.limit {
			return b.points
		}
	}
	return 0
}

// UrgencyScore combines proximity to the threshold, decline steepness and
// time to event into an integer clamped to [1,10]. A nil days value
// contributes nothing.
func UrgencyScore(current, slope float64, days *float64) int {
	s := score(current, proximityBands) + score(slope, declineBands)
	if days != nil {
		s += score(*days, daysBands)
	}
	if s < 1 {
		return 1
	}
	if s > 10 {
		return 10
	}
	return s
}
