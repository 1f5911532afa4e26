package report

import (
	"fmt"
	"strings"
)

type NodeKind string

const (
	KindRoot     NodeKind = "root"
	KindCategory NodeKind = "category"
	KindIssue    NodeKind = "issue"
)

// MaxTreeDepth counts levels: root, category, issue.
const MaxTreeDepth = 3

// Node owns its children by value; a tree can never share a subtree.
type Node struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Explanation string   `json:"explanation,omitempty"`
	Kind        NodeKind `json:"kind"`
	Children    []Node   `json:"children,omitempty"`
}

type Tree struct {
	Root            Node   `json:"root"`
	MECEExplanation string `json:"meceExplanation,omitempty"`
}

// BreakdownType selects how the objective is decomposed.
type BreakdownType string

const (
	BreakdownFormulaic BreakdownType = "formulaic"
	BreakdownThematic  BreakdownType = "thematic"
)

func (b BreakdownType) Valid() bool {
	return b == BreakdownFormulaic || b == BreakdownThematic
}

// IssueLabels walks the tree in pre-order, left to right, and returns the
// labels of issue-kind nodes.
func (t *Tree) IssueLabels() []string {
	if t == nil {
		return nil
	}
	var out []string
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Kind == KindIssue {
			out = append(out, n.Label)
		}
		for i := range n.Children {
			walk(&n.Children[i])
		}
	}
	walk(&t.Root)
	return out
}

// Normalize fills in missing kinds from depth and trims labels. Models
// frequently omit the "type" of each node.
func (t *Tree) Normalize() {
	if t == nil {
		return
	}
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		n.ID = strings.TrimSpace(n.ID)
		n.Label = strings.TrimSpace(n.Label)
		n.Kind = NodeKind(strings.ToLower(strings.TrimSpace(string(n.Kind))))
		if n.Kind != KindRoot && n.Kind != KindCategory && n.Kind != KindIssue {
			n.Kind = kindForDepth(depth)
		}
		for i := range n.Children {
			walk(&n.Children[i], depth+1)
		}
	}
	walk(&t.Root, 0)
}

func kindForDepth(depth int) NodeKind {
	switch depth {
	case 0:
		return KindRoot
	case 1:
		return KindCategory
	default:
		return KindIssue
	}
}

// Validate checks id uniqueness and the three level shape: every node at
// the leaf level must be an issue. Category nodes without children are
// allowed.
func (t *Tree) Validate() error {
	if t == nil {
		return fmt.Errorf("tree is nil")
	}
	if t.Root.Kind != KindRoot {
		return fmt.Errorf("root node has kind %q", t.Root.Kind)
	}
	seen := make(map[string]struct{})
	var walk func(n *Node, depth int) error
	walk = func(n *Node, depth int) error {
		if depth >= MaxTreeDepth {
			return fmt.Errorf("node %q exceeds depth %d", n.ID, MaxTreeDepth)
		}
		if n.ID == "" {
			return fmt.Errorf("node %q has no id", n.Label)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
		if depth > 0 && n.Kind == KindRoot {
			return fmt.Errorf("node %q: root kind below top level", n.ID)
		}
		if depth == MaxTreeDepth-1 && n.Kind != KindIssue {
			return fmt.Errorf("node %q: leaf has kind %q, want %q", n.ID, n.Kind, KindIssue)
		}
		for i := range n.Children {
			if err := walk(&n.Children[i], depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(&t.Root, 0)
}

// AssignMissingIDs gives positional ids ("1", "1.2") to nodes that arrived
// without one so Validate can run on partially filled model output.
func (t *Tree) AssignMissingIDs() {
	if t == nil {
		return
	}
	if strings.TrimSpace(t.Root.ID) == "" {
		t.Root.ID = "root"
	}
	var walk func(n *Node, prefix string)
	walk = func(n *Node, prefix string) {
		for i := range n.Children {
			c := &n.Children[i]
			path := fmt.Sprintf("%d", i+1)
			if prefix != "" {
				path = prefix + "." + path
			}
			if strings.TrimSpace(c.ID) == "" {
				c.ID = path
			}
			walk(c, path)
		}
	}
	walk(&t.Root, "")
}

func (t *Tree) Clone() Tree {
	if t == nil {
		return Tree{}
	}
	return Tree{Root: cloneNode(t.Root), MECEExplanation: t.MECEExplanation}
}

func cloneNode(n Node) Node {
	out := n
	if n.Children != nil {
		out.Children = make([]Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = cloneNode(c)
		}
	}
	return out
}
