// Package events defines the planning events emitted on the event bus.
//
// Available event types:
//   - StageEvent: a pipeline stage finished
//   - SkipEvent: units a stage left out, grouped by reason
package events
