// Package plan orders desired resources so that referenced objects are
// created before the objects that reference them, and deleted after.
package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/func/avictl/compare"
	"github.com/func/avictl/config"
	"github.com/func/avictl/object"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// A Plan is a dependency ordered set of resources.
type Plan struct {
	g     *simple.DirectedGraph
	nodes []*node
	waves [][]config.Resource
}

type node struct {
	id  int64
	res config.Resource
}

func (n *node) ID() int64 { return n.id }

// A CycleError is returned when resources reference each other in a loop.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	ss := make([]string, len(e.Cycles))
	for i, c := range e.Cycles {
		ss[i] = strings.Join(c, " -> ")
	}
	return "dependency cycle: " + strings.Join(ss, "; ")
}

// New creates a plan for the given resources.
//
// Resource A depends on B if a *_ref or *_refs field of A, at any depth,
// references B by type and name, and both are in the same tenant. References
// to objects that are not part of the set are left to the controller.
func New(resources []config.Resource) (*Plan, error) {
	p := &Plan{
		g:     simple.NewDirectedGraph(),
		nodes: make([]*node, len(resources)),
	}
	byKey := make(map[string]*node, len(resources))
	for i, r := range resources {
		if _, dup := byKey[r.Key()]; dup {
			return nil, errors.Errorf("%s: duplicate resource %s %q", r.Pos, r.Type, r.Name)
		}
		n := &node{id: int64(i), res: r}
		byKey[r.Key()] = n
		p.nodes[i] = n
		p.g.AddNode(n)
	}

	for _, n := range p.nodes {
		for _, ref := range refs(n.res.Fields) {
			if ref.Type == "" || ref.Name == "" {
				continue
			}
			key := config.Resource{Type: ref.Type, Name: ref.Name, Tenant: n.res.Tenant, TenantUUID: n.res.TenantUUID}.Key()
			dep, ok := byKey[key]
			if !ok || dep == n {
				continue
			}
			p.g.SetEdge(p.g.NewEdge(dep, n))
		}
	}

	sorted, err := topo.Sort(p.g)
	if err != nil {
		if u, ok := err.(topo.Unorderable); ok {
			return nil, cycleError(u)
		}
		return nil, errors.Wrap(err, "sort resources")
	}
	p.waves = p.schedule(sorted)
	return p, nil
}

// schedule groups sorted nodes into waves. Present resources come first, each
// one wave after its deepest dependency. Absent resources follow in reverse,
// each one wave after the absent resources that depend on it.
func (p *Plan) schedule(sorted []graph.Node) [][]config.Resource {
	depth := make(map[int64]int, len(sorted))
	for _, n := range sorted {
		d := 0
		for to := p.g.To(n.ID()); to.Next(); {
			if pd := depth[to.Node().ID()] + 1; pd > d {
				d = pd
			}
		}
		depth[n.ID()] = d
	}

	height := make(map[int64]int, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		n := sorted[i]
		h := 0
		for from := p.g.From(n.ID()); from.Next(); {
			succ := from.Node().(*node)
			if !succ.res.Absent() {
				continue
			}
			if sh := height[succ.id] + 1; sh > h {
				h = sh
			}
		}
		height[n.ID()] = h
	}

	var present, absent [][]*node
	for _, n := range p.nodes {
		if n.res.Absent() {
			absent = place(absent, height[n.id], n)
			continue
		}
		present = place(present, depth[n.id], n)
	}

	var waves [][]config.Resource
	for _, w := range append(present, absent...) {
		if len(w) == 0 {
			continue
		}
		sort.Slice(w, func(i, j int) bool { return w[i].id < w[j].id })
		rr := make([]config.Resource, len(w))
		for i, n := range w {
			rr[i] = n.res
		}
		waves = append(waves, rr)
	}
	return waves
}

func place(waves [][]*node, i int, n *node) [][]*node {
	for len(waves) <= i {
		waves = append(waves, nil)
	}
	waves[i] = append(waves[i], n)
	return waves
}

// Waves returns the resources in batches. All resources in a batch can be
// processed concurrently once the previous batches are done. Within a batch,
// resources keep their input order.
func (p *Plan) Waves() [][]config.Resource {
	return p.waves
}

// Len returns the number of resources in the plan.
func (p *Plan) Len() int {
	return len(p.nodes)
}

// Dependencies returns the resources in the plan the given resource
// references.
func (p *Plan) Dependencies(r config.Resource) []config.Resource {
	var out []config.Resource
	for _, n := range p.nodes {
		if n.res.Key() != r.Key() {
			continue
		}
		for to := p.g.To(n.id); to.Next(); {
			out = append(out, to.Node().(*node).res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func cycleError(u topo.Unorderable) error {
	err := &CycleError{}
	for _, c := range u {
		names := make([]string, len(c))
		for i, n := range c {
			r := n.(*node).res
			names[i] = fmt.Sprintf("%s/%s", r.Type, r.Name)
		}
		sort.Strings(names)
		err.Cycles = append(err.Cycles, names)
	}
	return err
}

// refs collects references from reference fields at any depth.
func refs(obj *object.Object) []compare.Ref {
	if obj == nil {
		return nil
	}
	var out []compare.Ref
	obj.Range(func(key string, v object.Value) bool {
		if compare.IsRefField(key) {
			switch v.Kind() {
			case object.String:
				out = append(out, compare.ParseRef(v.Str()))
			case object.List:
				for _, e := range v.Elems() {
					if e.Kind() == object.String {
						out = append(out, compare.ParseRef(e.Str()))
					}
				}
			}
			return true
		}
		out = append(out, valueRefs(v)...)
		return true
	})
	return out
}

func valueRefs(v object.Value) []compare.Ref {
	switch v.Kind() {
	case object.Map:
		return refs(v.Obj())
	case object.List:
		var out []compare.Ref
		for _, e := range v.Elems() {
			out = append(out, valueRefs(e)...)
		}
		return out
	}
	return nil
}
