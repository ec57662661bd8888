/*
Package ports defines the driven ports (interfaces) of the weft engine.

These interfaces decouple the compiler and runtime from external
implementations, allowing definitions to be cached in various backends and
graphs to be sourced from files or memory.

# Key Interfaces

  - GraphSource: Loads authoring graphs by name (file directory, memory).
  - Watchable: Notifies about changed graphs for hot reload.
  - DefinitionStore: Persists compiled definitions (memory, file, Redis, SQLite).
  - DistributedLocker: Coordinates recompilation across replicas.
  - GraphCompiler, EventSink: What the transport adapters drive.
*/
package ports
