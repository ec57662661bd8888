package domain

// InputDataPort is a node input read through GraphContext.Read.
type InputDataPort struct{ Port PortIndex }

// OutputDataPort is a node output written through GraphContext.Write.
type OutputDataPort struct{ Port PortIndex }

// InputTriggerPort is a control-flow entry into a node.
type InputTriggerPort struct{ Port PortIndex }

// OutputTriggerPort is a control-flow exit fired with GraphContext.Trigger.
type OutputTriggerPort struct{ Port PortIndex }

// Connected reports whether the port was assigned an index.
func (p InputDataPort) Connected() bool { return p.Port != NoPort }

// Connected reports whether the port was assigned an index.
func (p OutputTriggerPort) Connected() bool { return p.Port != NoPort }

// InputDataMultiPort is a contiguous block of Count input data ports starting at Port.
type InputDataMultiPort struct {
	Port  PortIndex
	Count int
}

// SelectPort returns the i-th sub-port.
func (m InputDataMultiPort) SelectPort(i int) InputDataPort {
	checkSub(i, m.Count)
	return InputDataPort{Port: m.Port + PortIndex(i)}
}

// OutputDataMultiPort is a contiguous block of Count output data ports.
type OutputDataMultiPort struct {
	Port  PortIndex
	Count int
}

// SelectPort returns the i-th sub-port.
func (m OutputDataMultiPort) SelectPort(i int) OutputDataPort {
	checkSub(i, m.Count)
	return OutputDataPort{Port: m.Port + PortIndex(i)}
}

// InputTriggerMultiPort is a contiguous block of Count input trigger ports.
type InputTriggerMultiPort struct {
	Port  PortIndex
	Count int
}

// SelectPort returns the i-th sub-port.
func (m InputTriggerMultiPort) SelectPort(i int) InputTriggerPort {
	checkSub(i, m.Count)
	return InputTriggerPort{Port: m.Port + PortIndex(i)}
}

// IndexOf returns the sub-port position of p, or -1 when p is outside the block.
func (m InputTriggerMultiPort) IndexOf(p InputTriggerPort) int {
	if m.Count == 0 || p.Port < m.Port || p.Port >= m.Port+PortIndex(m.Count) {
		return -1
	}
	return int(p.Port - m.Port)
}

// OutputTriggerMultiPort is a contiguous block of Count output trigger ports.
type OutputTriggerMultiPort struct {
	Port  PortIndex
	Count int
}

// SelectPort returns the i-th sub-port.
func (m OutputTriggerMultiPort) SelectPort(i int) OutputTriggerPort {
	checkSub(i, m.Count)
	return OutputTriggerPort{Port: m.Port + PortIndex(i)}
}

func checkSub(i, count int) {
	if i < 0 || i >= count {
		Invariantf("sub-port %d out of range [0,%d)", i, count)
	}
}
