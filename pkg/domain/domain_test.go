package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embedded struct {
	Exit domain.OutputTriggerPort
}

type probe struct {
	Enter  domain.InputTriggerPort
	Items  domain.InputDataMultiPort `port:"Values"`
	Hidden domain.InputDataPort      `port:"-"`
	Out    domain.OutputDataPort
	embedded
	Scale  float32
	Weight value.Value
}

func (p *probe) NewState() any { return &struct{ n int }{} }

type caller struct {
	Enter domain.InputTriggerPort
}

func (c *caller) SubgraphIndex() int { return 0 }

func init() {
	domain.RegisterNodeType("test.Probe", &probe{})
	domain.RegisterNodeType("test.Caller", &caller{})
}

func TestDescribePorts(t *testing.T) {
	fields := domain.DescribePorts(&probe{})
	require.Len(t, fields, 4)

	assert.Equal(t, "Enter", fields[0].Name)
	assert.Equal(t, domain.TriggerInput, fields[0].Kind)

	assert.Equal(t, "Items", fields[1].Name)
	assert.Equal(t, "Values", fields[1].Alias)
	assert.True(t, fields[1].Multi)
	assert.True(t, fields[1].Matches("Values"))
	assert.True(t, fields[1].MatchesFold("items"))

	assert.Equal(t, domain.DataOutput, fields[2].Kind)
	assert.Equal(t, "Exit", fields[3].Name)
	assert.Equal(t, domain.TriggerOutput, fields[3].Kind)
}

func TestPortField_Access(t *testing.T) {
	p := &probe{}
	fields := domain.DescribePorts(p)

	fields[1].SetIndex(p, 4)
	fields[1].SetWidth(p, 3)
	fields[3].SetIndex(p, 9)

	assert.Equal(t, domain.PortIndex(4), p.Items.Port)
	assert.Equal(t, 3, p.Items.Count)
	assert.Equal(t, domain.PortIndex(9), p.Exit.Port)
	assert.Equal(t, 3, fields[1].Width(p))
	assert.Equal(t, 1, fields[0].Width(p))
	assert.Equal(t, domain.InputDataPort{Port: 6}, p.Items.SelectPort(2))

	assert.Panics(t, func() { p.Items.SelectPort(3) })
	assert.Panics(t, func() { fields[0].SetWidth(p, 2) })
}

func TestDescribePorts_RejectsValues(t *testing.T) {
	assert.Panics(t, func() { domain.DescribePorts(probe{}) })
}

func sampleDefinition() *domain.GraphDefinition {
	p := &probe{Scale: 2, Weight: value.FromFloat(0.5)}
	p.Enter.Port = 1
	p.Items = domain.InputDataMultiPort{Port: 2, Count: 1}
	p.Out.Port = 3
	p.Exit.Port = 4
	d := &domain.GraphDefinition{
		Name:      "sample",
		NodeTable: []domain.Node{p},
		PortInfoTable: []domain.PortInfo{
			{},
			{Node: 1, Name: "Enter"},
			{IsData: true, Node: 1, Name: "Values[0]", DataOrTriggerIndex: 2},
			{IsData: true, IsOutput: true, Node: 1, Name: "Out", DataOrTriggerIndex: 2},
			{IsOutput: true, Node: 1, Name: "Exit"},
		},
		DataPortTable:      []domain.PortIndex{0, 0, 3},
		Variables:          []domain.Variable{{Name: "speed", Type: value.Float, BindingID: domain.BindingID("speed", domain.GraphVariable), DataIndex: 1}},
		VariableInitValues: []value.Value{value.FromFloat(3)},
	}
	d.Hash = domain.ComputeHash(d)
	return d
}

func TestComputeHash(t *testing.T) {
	a, b := sampleDefinition(), sampleDefinition()
	assert.Equal(t, a.Hash, b.Hash)

	b.Name = "renamed"
	assert.Equal(t, a.Hash, domain.ComputeHash(b))

	b.NodeTable[0].(*probe).Scale = 3
	assert.NotEqual(t, a.Hash, domain.ComputeHash(b))

	c := sampleDefinition()
	c.PortInfoTable[3].DataOrTriggerIndex = 0
	assert.NotEqual(t, a.Hash, domain.ComputeHash(c))
}

func TestDefinitionCodec_RoundTrip(t *testing.T) {
	d := sampleDefinition()
	d.GraphReferences = []*domain.GraphDefinition{sampleDefinition()}
	d.Hash = domain.ComputeHash(d)

	raw, err := domain.MarshalDefinition(d)
	require.NoError(t, err)

	back, err := domain.UnmarshalDefinition(raw)
	require.NoError(t, err)
	assert.Equal(t, d.Hash, back.Hash)
	assert.Equal(t, d.PortInfoTable, back.PortInfoTable)
	require.Len(t, back.GraphReferences, 1)

	p := back.Node(1).(*probe)
	assert.Equal(t, float32(2), p.Scale)
	assert.Equal(t, domain.PortIndex(4), p.Exit.Port)
	assert.True(t, value.Equals(value.FromFloat(0.5), p.Weight))
}

func TestDefinitionCodec_Errors(t *testing.T) {
	type unregistered struct{}
	d := &domain.GraphDefinition{NodeTable: []domain.Node{&unregistered{}}}
	_, err := domain.MarshalDefinition(d)
	assert.True(t, errors.Is(err, domain.ErrUnknownNodeType))

	_, err = domain.UnmarshalDefinition([]byte(`{"name":"x","nodes":[{"type":"nope","node":{}}]}`))
	assert.True(t, errors.Is(err, domain.ErrUnknownNodeType))

	raw, err := domain.MarshalDefinition(sampleDefinition())
	require.NoError(t, err)
	tampered := []byte(string(raw[:len(raw)-1]) + `,"hash":"0000000000000001"}`)
	_, err = domain.UnmarshalDefinition(tampered)
	assert.ErrorContains(t, err, "corrupt")
}

func TestStateLayout(t *testing.T) {
	d := &domain.GraphDefinition{NodeTable: []domain.Node{&caller{}, &probe{}, &probe{}}}
	l := d.StateLayout()
	assert.Equal(t, []int{-1, 0, 1}, l.State)
	assert.Equal(t, 2, l.StateCount)
	assert.Equal(t, []int{0, -1, -1}, l.Subgraph)
	assert.Same(t, l, d.StateLayout())
}

func TestBindingID(t *testing.T) {
	g := domain.BindingID("hp", domain.GraphVariable)
	f := domain.BindingID("hp", domain.FlowVariable)
	assert.NotEqual(t, g, f)
	assert.Equal(t, g, domain.BindingID("hp", domain.GraphVariable))
	assert.Equal(t, uint64(domain.FlowVariable), f&3)
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnNodeExecute: func(context.Context, *domain.NodeEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{
		OnNodeExecute: func(context.Context, *domain.NodeEvent) { calls = append(calls, "b") },
		OnLoopEnd:     func(context.Context, *domain.LoopEvent) { calls = append(calls, "loop") },
	}
	m := a.Merge(b)
	m.OnNodeExecute(context.Background(), &domain.NodeEvent{})
	m.OnLoopEnd(context.Background(), &domain.LoopEvent{})
	assert.Nil(t, m.OnFrameEnd)
	assert.Equal(t, []string{"a", "b", "loop"}, calls)
}
