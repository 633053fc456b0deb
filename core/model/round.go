package model

import "github.com/shopspring/decimal"

// Round rounds v half away from zero to the given decimal places. Output
// records use it so values are stable across runs and platforms.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
