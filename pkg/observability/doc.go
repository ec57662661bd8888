/*
Package observability exports engine activity as Prometheus metrics.

Metrics.Hooks returns domain.LifecycleHooks that count node executions,
failures, aborted frames and loops; the compiler side is recorded with
ObserveCompile. Hand the hooks to a runtime host and register the collectors
with any prometheus.Registerer.
*/
package observability
