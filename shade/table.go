package shade

import (
	"sort"

	"github.com/elvishrender/core/node"
)

// Table is the sorted array of node instances reachable from a
// shader graph's root, used by Cache to bound its per-invocation
// storage and to binary-search an instance's slot during evaluation.
type Table struct {
	reg   *node.Registry
	insts []node.InstanceID
}

// BuildTable walks the parameter-edge graph rooted at root and
// returns the sorted, de-duplicated set of reachable instances
// (root included). reg must have finished editing every instance in
// the reachable set; BuildTable returns node.ErrEditing otherwise.
func BuildTable(reg *node.Registry, root node.InstanceID) (*Table, error) {
	seen := map[node.InstanceID]bool{}
	var order []node.InstanceID

	var walk func(id node.InstanceID) error
	walk = func(id node.InstanceID) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		if _, err := reg.Params(id); err == node.ErrEditing {
			return err
		}
		order = append(order, id)
		n := reg.NumParameters(id)
		for i := 0; i < n; i++ {
			e, err := reg.ParameterEdge(id, i)
			if err != nil {
				return err
			}
			if e.Linked {
				if err := walk(e.Src); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return &Table{reg: reg, insts: order}, nil
}

// Len returns the number of reachable instances.
func (t *Table) Len() int { return len(t.insts) }

// IndexOf binary-searches for id's slot, mirroring the "binary-search
// the sorted reachable-instance array" step of a shader call.
func (t *Table) IndexOf(id node.InstanceID) (int, bool) {
	i := sort.Search(len(t.insts), func(i int) bool { return t.insts[i] >= id })
	if i < len(t.insts) && t.insts[i] == id {
		return i, true
	}
	return 0, false
}

// At returns the instance at slot i.
func (t *Table) At(i int) node.InstanceID { return t.insts[i] }
