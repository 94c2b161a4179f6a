// Package trace is the logging backbone of kninja.
//
// Instead of a line logger the generator records structured events: spans
// for the run, its stages, each build description and each translation
// unit whose headers are resolved. Events are cheap to drop, so the
// default tracer is a no-op and everything is opt-in from the command line:
//
//	kninja --trace=- --trace-level=detail
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: events are kept only for the failure dump (ring mode)
//   - LevelPhase: run and stage boundaries
//   - LevelDetail: one span per build description
//   - LevelDebug: one span per compiler invocation
//
// # Storage
//
// A StreamTracer writes every event as it arrives (text or NDJSON),
// a RingTracer keeps the last N events in memory so they can be dumped
// when the run aborts, and MultiTracer combines both.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeStage, "discover", 0)
//	defer span.End("")
package trace
