/*
Package domain contains the compiled graph model shared by the compiler and the executor.

It defines the dense, index-addressed GraphDefinition and the small capability
interfaces runtime nodes implement. The package is free of I/O and persistence
concerns; adapters and the runtime depend on it, never the other way around.

# Key Entities

  - Port handles: InputDataPort, OutputDataPort, InputTriggerPort, OutputTriggerPort
    and their multi-port forms. Each wraps a 1-based graph-global PortIndex; 0 means unconnected.
  - PortInfo: one row per port index describing its owner and what it is wired to.
  - GraphDefinition: the immutable compiled unit consumed by GraphInstance.
  - Capabilities: DataNode, FlowNode, UpdatableNode, StatefulNode, EntryPointNode,
    MultiPortNode and friends, probed by the compiler and the executor.
  - GraphContext: the executor surface a node sees while it runs.
*/
package domain
