// Package infra contains technical adapters: file loaders for the planning
// inputs, the zerolog logger and the Prometheus and InfluxDB sinks. These
// packages depend only on the interfaces and records of the core packages.
package infra
