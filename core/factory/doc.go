// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Metrics sinks are built this way:
//
//	metrics:
//	  sinks:
//	    - type: influx
//	      conf: {url: "http://localhost:8086", org: farm, bucket: plans, token: secret}
package factory
