/*
Package weft compiles visual node graphs into dense, index-addressed
definitions and runs them frame by frame.

A graph is authored as nodes, ports and connections (YAML, JSON, HCL or the
pkg/dsl builder). Compilation resolves every node to a runtime type from the
registry, assigns graph-global port indices and data slots, binds variables,
compiles nested sub-graphs and optionally folds constant data sub-graphs. The
result is an immutable domain.GraphDefinition identified by a content hash.

Each entity running a definition owns a graph instance: a flat value array,
per-node state, coroutine queues and loop bookkeeping. A host ticks all
instances in phase order and routes events between them.

# Usage

	eng := weft.New(weft.WithLogger(logger))
	defer eng.Close()

	g, err := authoring.LoadFile("counter.yaml")
	if err != nil {
		return err
	}
	def, _, err := eng.Ensure(ctx, "counter", g)
	if err != nil {
		return err
	}
	eng.Spawn(def)

	frames, err := eng.Run(ctx, runner.WithRate(60), runner.WithSignals(true))

# Persistence

Compiled definitions are stored through ports.DefinitionStore: in memory, as
JSON files, in Redis or in SQLite (pkg/adapters). Ensure only rewrites a stored
definition when its content hash changed, and an optional DistributedLocker
keeps replicas sharing a store from compiling the same key at once.
*/
package weft
