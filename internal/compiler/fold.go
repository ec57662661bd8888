package compiler

import (
	"fmt"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
	"github.com/hashicorp/go-multierror"
)

// LiteralFunc builds a constant node for a folded value.
type LiteralFunc func(v value.Value) (domain.Node, error)

// FoldOptions configures Fold.
type FoldOptions struct {
	// AnnotateOnly computes folded values without rewriting the builder.
	AnnotateOnly bool
}

// FoldAnnotation records the value computed for one folded output.
type FoldAnnotation struct {
	Node  string
	Port  string
	Value value.Value
}

// FoldResult reports what Fold did.
type FoldResult struct {
	Folded      int
	Removed     []domain.NodeID
	Annotations []FoldAnnotation
}

type folder struct {
	b        *GraphBuilder
	literal  LiteralFunc
	opts     FoldOptions
	memo     map[domain.NodeID]bool
	visiting map[domain.NodeID]bool
	eval     *DataGraphInstance
}

// Fold replaces every constant-only producer consumed by a non-foldable node with
// a literal node holding its value, then removes the producers nothing else needs.
// A node is foldable when it reports so and all its producers are foldable.
// Evaluation failures leave the affected producer in place and are returned
// together once the pass completes.
func Fold(b *GraphBuilder, literal LiteralFunc, opts FoldOptions) (FoldResult, error) {
	f := &folder{
		b:        b,
		literal:  literal,
		opts:     opts,
		memo:     make(map[domain.NodeID]bool),
		visiting: make(map[domain.NodeID]bool),
		eval:     NewDataGraphInstance(b),
	}
	return f.run()
}

func (f *folder) run() (FoldResult, error) {
	var (
		res      FoldResult
		errs     *multierror.Error
		replaced = make(map[domain.PortIndex]domain.PortIndex)
		doomed   = make(map[domain.NodeID]bool)
		failed   = make(map[domain.PortIndex]bool)
	)
	for _, id := range f.b.NodeIDs() {
		if f.foldable(id) {
			continue
		}
		for _, in := range f.b.PortsOf(id, domain.DataInput) {
			src, ok := f.b.Source(in)
			if !ok || replaced[src] != domain.NoPort || failed[src] {
				continue
			}
			producer, _ := f.b.Mapper().Owner(src)
			if !f.foldable(producer) || f.isLiteral(producer) {
				continue
			}
			v, err := f.eval.Evaluate(src)
			if err != nil {
				failed[src] = true
				errs = multierror.Append(errs, fmt.Errorf("node %s: %w", f.b.Label(producer), err))
				continue
			}
			res.Annotations = append(res.Annotations, FoldAnnotation{
				Node:  f.b.Label(producer),
				Port:  f.b.Mapper().Name(src),
				Value: v,
			})
			res.Folded++
			if f.opts.AnnotateOnly {
				continue
			}
			lit, err := f.literal(v)
			if err != nil {
				failed[src] = true
				errs = multierror.Append(errs, err)
				continue
			}
			cn, ok := lit.(domain.ConstantNode)
			if !ok {
				domain.Invariantf("literal factory returned %T, which is not a constant node", lit)
			}
			f.b.AddNode(lit, f.b.Label(producer)+"."+f.b.Mapper().Name(src), nil)
			replaced[src] = cn.ConstantOutput().Port
			f.doom(producer, doomed)
		}
	}
	if f.opts.AnnotateOnly || len(replaced) == 0 {
		return res, errs.ErrorOrNil()
	}

	f.spare(doomed, replaced)
	f.b.RemapEdges(replaced)
	f.b.DropEdgesOf(doomed)
	for _, id := range f.b.NodeIDs() {
		if doomed[id] {
			f.b.RemoveNode(id)
			res.Removed = append(res.Removed, id)
		}
	}
	return res, errs.ErrorOrNil()
}

// foldable memoizes the foldability of id. Nodes on a cycle are not foldable.
func (f *folder) foldable(id domain.NodeID) bool {
	if v, ok := f.memo[id]; ok {
		return v
	}
	if f.visiting[id] {
		return false
	}
	n, ok := f.b.Node(id)
	if !ok {
		return false
	}
	result := false
	switch node := n.(type) {
	case domain.ConstantNode:
		result = true
	case domain.FoldableNode:
		if node.Foldable() && len(f.b.PortsOf(id, domain.TriggerInput)) == 0 {
			f.visiting[id] = true
			result = true
			for _, in := range f.b.PortsOf(id, domain.DataInput) {
				src, ok := f.b.Source(in)
				if !ok {
					continue
				}
				producer, _ := f.b.Mapper().Owner(src)
				if !f.foldable(producer) {
					result = false
					break
				}
			}
			delete(f.visiting, id)
		}
	}
	f.memo[id] = result
	return result
}

func (f *folder) isLiteral(id domain.NodeID) bool {
	n, _ := f.b.Node(id)
	_, ok := n.(domain.ConstantNode)
	return ok
}

// doom marks id and its producers for removal.
func (f *folder) doom(id domain.NodeID, doomed map[domain.NodeID]bool) {
	if doomed[id] {
		return
	}
	doomed[id] = true
	for _, in := range f.b.PortsOf(id, domain.DataInput) {
		if src, ok := f.b.Source(in); ok {
			producer, _ := f.b.Mapper().Owner(src)
			f.doom(producer, doomed)
		}
	}
}

// spare keeps doomed nodes whose outputs still feed a surviving node through an
// edge that is not being redirected to a literal.
func (f *folder) spare(doomed map[domain.NodeID]bool, replaced map[domain.PortIndex]domain.PortIndex) {
	for changed := true; changed; {
		changed = false
		for _, e := range f.b.Edges() {
			if replaced[e.From] != domain.NoPort {
				continue
			}
			from, _ := f.b.Mapper().Owner(e.From)
			to, _ := f.b.Mapper().Owner(e.To)
			if doomed[from] && !doomed[to] {
				delete(doomed, from)
				changed = true
			}
		}
	}
}
