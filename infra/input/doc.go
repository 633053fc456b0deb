// Package input loads the planning inputs from disk: vegetation-index
// readings as CSV and the unit, machine and consumer rosters as YAML or
// JSON. Loaders validate records and wrap failures with the model
// sentinel errors so callers can reject a run before any computation.
package input
