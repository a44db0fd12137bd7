package encompass

// tableNode is one interior or leaf node of the count table.  Nodes are
// materialized lazily: a missing child means every count beneath it is zero,
// and the output writer recovers those rows from the stratifiers' key
// spaces.  A node at the last level holds counts keyed by the terminal
// stratifier's keys; interior nodes hold children keyed by their level's
// stratifier.  supp holds one accumulator per supplemental handler attached
// to the parent level's stratifier.
type tableNode struct {
	children map[Key]*tableNode
	counts   map[Key]int64
	supp     []interface{}
}

// child returns the node under key, creating it if absent.  parentLevel is
// the stratifier level that owns key; its handlers seed the new node's
// supplemental state.
func (h *Handler) child(parent *tableNode, key Key, parentLevel int) *tableNode {
	if parent.children == nil {
		parent.children = make(map[Key]*tableNode)
	}
	if node, ok := parent.children[key]; ok {
		return node
	}
	node := &tableNode{}
	handlers := h.strats[parentLevel].base().handlers
	if len(handlers) > 0 {
		node.supp = make([]interface{}, len(handlers))
		for i, sh := range handlers {
			node.supp[i] = sh.Init()
		}
	}
	parent.children[key] = node
	return node
}

// sortedChildKeys returns node's materialized child keys in output order.
func sortedChildKeys(m map[Key]*tableNode) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}
