package models

import (
	"fmt"
	"sort"
)

// ChartNode is one node of the materialized account hierarchy.
type ChartNode struct {
	Account  ChartOfAccount
	Parent   *ChartNode
	Children []*ChartNode
}

// Depth is the hierarchy level, 1 for class roots.
func (n *ChartNode) Depth() int { return len(n.Account.Number) }

// ChartTree materializes the prefix-encoded hierarchy into an explicit tree
// with a number index, so aggregation never re-parses substrings.
type ChartTree struct {
	roots []*ChartNode
	index map[string]*ChartNode
}

// BuildChartTree constructs the tree from a flat chart. Every non-root
// number must have its one-digit-shorter prefix present; a dangling node is
// a configuration error.
func BuildChartTree(accounts []ChartOfAccount) (*ChartTree, error) {
	t := &ChartTree{index: make(map[string]*ChartNode, len(accounts))}

	for _, a := range accounts {
		if a.Deleted {
			continue
		}
		if a.Number == "" {
			return nil, fmt.Errorf("chart account %q has empty number", a.Name)
		}
		if _, dup := t.index[a.Number]; dup {
			return nil, fmt.Errorf("duplicate chart number %s", a.Number)
		}
		t.index[a.Number] = &ChartNode{Account: a}
	}

	// Link children to parents; sorted pass keeps sibling order stable.
	numbers := make([]string, 0, len(t.index))
	for n := range t.index {
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)

	for _, num := range numbers {
		node := t.index[num]
		parentNum := node.Account.ParentNumber()
		if parentNum == "" {
			t.roots = append(t.roots, node)
			continue
		}
		parent, ok := t.index[parentNum]
		if !ok {
			return nil, fmt.Errorf("chart account %s has no parent %s", num, parentNum)
		}
		node.Parent = parent
		parent.Children = append(parent.Children, node)
	}

	return t, nil
}

// Node returns the node for a chart number.
func (t *ChartTree) Node(number string) (*ChartNode, bool) {
	n, ok := t.index[number]
	return n, ok
}

// Roots returns the class-level roots in number order.
func (t *ChartTree) Roots() []*ChartNode { return t.roots }

// Walk visits every node bottom-up (children before parents), which is the
// order rollup aggregation needs.
func (t *ChartTree) Walk(visit func(*ChartNode)) {
	var rec func(*ChartNode)
	rec = func(n *ChartNode) {
		for _, c := range n.Children {
			rec(c)
		}
		visit(n)
	}
	for _, r := range t.roots {
		rec(r)
	}
}

// ClassOf resolves the account class for a number by climbing to its root.
func (t *ChartTree) ClassOf(number string) (AccountClass, bool) {
	n, ok := t.index[number]
	if !ok {
		return "", false
	}
	for n.Parent != nil {
		n = n.Parent
	}
	return n.Account.Class, true
}
