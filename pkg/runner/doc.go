/*
Package runner drives a runtime host in real time.

It is the bridge between the frame-stepped executor and the outside world:
a fixed-rate loop that ticks the host, stops gracefully on SIGINT/SIGTERM and
optionally feeds external events read as JSON Lines.

# Key Components

  - Runner: The frame loop (rate, fixed step, frame budget, signals).
  - EventReader: Delivers {"event", "entity", "payload"} lines to a ports.EventSink.
  - SignalManager: OS signal handling as a context.

# Usage

	r := runner.NewRunner(
		runner.WithRate(60),
		runner.WithSignals(true),
	)

	frames, err := r.Run(ctx, host)
*/
package runner
