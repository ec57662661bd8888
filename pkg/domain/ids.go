package domain

import "strconv"

// NodeID is the 1-based position of a node in a NodeTable. 0 is invalid.
type NodeID uint32

// InvalidNode is the zero NodeID.
const InvalidNode NodeID = 0

// Valid reports whether id refers to a node.
func (id NodeID) Valid() bool { return id != InvalidNode }

func (id NodeID) String() string { return "#" + strconv.FormatUint(uint64(id), 10) }

// PortIndex is the 1-based graph-global index of a sub-port. 0 is the unconnected sentinel.
type PortIndex uint32

// NoPort is the unconnected sentinel.
const NoPort PortIndex = 0

// DataIndex addresses a slot in an instance's value array. Slot 0 is the null slot.
type DataIndex uint32

// NullSlot is the data slot that holds nothing.
const NullSlot DataIndex = 0

// Entity identifies the host object a graph instance runs for.
type Entity uint64

// NoEntity is the global target. Listeners registered under it hear a hook for every entity.
const NoEntity Entity = 0

// CoroutineID tags activations of one independently paced trigger chain. 0 is the main flow.
type CoroutineID uint32

// LoopID identifies an active loop in the process-wide loop stack.
type LoopID int32
