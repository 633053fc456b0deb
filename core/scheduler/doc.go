// Package scheduler groups predicted readiness events into bounded
// deployment windows and assigns consumers to them. Windows spread machine
// demand over time so that capacity is not exhausted on a single day.
package scheduler
