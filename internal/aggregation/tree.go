package aggregation

import (
	"sort"

	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/shopspring/decimal"
)

// uncategorizedID is the node holding accounts whose category is unknown.
const uncategorizedID = "uncategorized"

// categoryTree arranges a rollup's account lines under the categories of its
// type. Subtrees without accounts are omitted.
func categoryTree(l *ledger, r service.Rollup) []*service.CategoryNode {
	nodes := make(map[string]*service.CategoryNode)
	node := func(id string) *service.CategoryNode {
		c, known := l.categories[id]
		if !known {
			id = uncategorizedID
		}
		if n, ok := nodes[id]; ok {
			return n
		}
		n := &service.CategoryNode{ID: id, Type: r.Type, Accounts: []service.AccountLine{}, Children: []*service.CategoryNode{}}
		if known {
			n.Name = c.Name
			n.Order = c.Order
		} else {
			n.Name = "Uncategorized"
		}
		nodes[id] = n
		return n
	}

	for _, line := range r.Accounts {
		n := node(line.CategoryID)
		n.Accounts = append(n.Accounts, line)
	}

	// Link every populated node to its ancestors.
	pending := make([]string, 0, len(nodes))
	for id := range nodes {
		pending = append(pending, id)
	}
	linked := make(map[string]bool)
	for len(pending) > 0 {
		id := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if linked[id] {
			continue
		}
		linked[id] = true
		parentID, ok := l.parents[id]
		if !ok {
			continue
		}
		_, existed := nodes[parentID]
		parent := node(parentID)
		parent.Children = append(parent.Children, nodes[id])
		if !existed {
			pending = append(pending, parentID)
		}
	}

	var roots []*service.CategoryNode
	for id, n := range nodes {
		if _, ok := l.parents[id]; !ok {
			roots = append(roots, n)
		}
	}
	for _, root := range roots {
		reduce(root)
	}
	sortNodes(roots)
	return roots
}

// reduce totals a subtree bottom-up and orders each level.
func reduce(n *service.CategoryNode) {
	n.OwnTotal = decimal.Zero
	n.AccountCount = len(n.Accounts)
	for _, line := range n.Accounts {
		n.OwnTotal = n.OwnTotal.Add(line.Total)
		n.HasConversionErrors = n.HasConversionErrors || line.HasConversionErrors
	}
	n.Total = n.OwnTotal
	for _, child := range n.Children {
		reduce(child)
		n.Total = n.Total.Add(child.Total)
		n.AccountCount += child.AccountCount
		n.HasConversionErrors = n.HasConversionErrors || child.HasConversionErrors
	}
	sortNodes(n.Children)
}

// sortNodes orders siblings by explicit order, unordered last, then name.
func sortNodes(nodes []*service.CategoryNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		switch {
		case a.Order != nil && b.Order != nil && *a.Order != *b.Order:
			return *a.Order < *b.Order
		case a.Order != nil && b.Order == nil:
			return true
		case a.Order == nil && b.Order != nil:
			return false
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}
