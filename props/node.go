// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package props

import (
	"strings"

	"github.com/spf13/cast"
)

// Node is a handle on one branch of a Tree. Fields are addressed by name
// relative to the branch.
type Node struct {
	tree *Tree
	path string
}

func (n *Node) Path() string {
	return n.path
}

func (n *Node) Child(name string) *Node {
	return n.tree.Node(join(n.path, name))
}

func (n *Node) Has(name string) bool {
	_, ok := n.tree.get(join(n.path, name))
	return ok
}

func (n *Node) GetBool(name string) bool {
	v, _ := n.tree.get(join(n.path, name))
	return cast.ToBool(v)
}

func (n *Node) GetInt(name string) int {
	v, _ := n.tree.get(join(n.path, name))
	return cast.ToInt(v)
}

func (n *Node) GetFloat(name string) float64 {
	v, _ := n.tree.get(join(n.path, name))
	return cast.ToFloat64(v)
}

func (n *Node) GetString(name string) string {
	v, _ := n.tree.get(join(n.path, name))
	return cast.ToString(v)
}

func (n *Node) SetBool(name string, v bool) {
	n.tree.set(join(n.path, name), Bool, v)
}

func (n *Node) SetInt(name string, v int) {
	n.tree.set(join(n.path, name), Int, v)
}

func (n *Node) SetFloat(name string, v float64) {
	n.tree.set(join(n.path, name), Float, v)
}

func (n *Node) SetString(name string, v string) {
	n.tree.set(join(n.path, name), String, v)
}

// Fields returns the direct fields of this branch, keyed by name.
func (n *Node) Fields() map[string]interface{} {
	ret := make(map[string]interface{})
	prefix := join(n.path, "")
	for k, v := range n.tree.Snapshot(n.path) {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		name := strings.TrimPrefix(k, prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		ret[name] = v
	}
	return ret
}
