// Package metrics defines the sinks that record planning runs. Every sink
// records predictions; clusters, allocations and stage timings are optional
// capabilities discovered by type assertion. Sinks are built from
// configuration through a registry and combined with NewMultiSink.
package metrics
