// Package prediction forecasts when each production unit's vegetation index
// crosses the readiness threshold. A linear trend is fitted per unit, the
// crossing date is extrapolated and an integer urgency score in [1,10] is
// derived for downstream scheduling and machine allocation.
package prediction
