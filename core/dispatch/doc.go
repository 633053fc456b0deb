// Package dispatch matches field machines to predicted demand. Units are
// served in urgency order and each takes the nearest available machine of
// its preferred type. The strategy is greedy and single pass.
package dispatch
