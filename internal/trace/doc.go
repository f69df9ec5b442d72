// Package trace records what the partitioner does while it runs.
//
// Tracers travel through the pipeline in a context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "partition/solve", 0)
//	defer span.End("")
//
// Implementations:
//
//   - Nop: zero-cost tracer used when tracing is off
//   - StreamTracer: writes each event as it happens (text or ndjson)
//   - RingTracer: keeps the last N events for dumping after a failure
//   - MultiTracer: fans events out to several tracers
//
// Verbosity is selected with a Level. LevelPhase shows driver and pass
// boundaries, LevelDetail adds one span per connected component, LevelDebug
// adds per-declaration events.
package trace
