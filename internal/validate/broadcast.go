package validate

import (
	"github.com/me/odmimport/internal/tree"
	"github.com/me/odmimport/pkg/model"
)

// broadcast rebuilds the tree so that every signal hangs under every
// library/preparation (and every library/preparation under every sample),
// or under every sample when there are no libraries/preparations.
// All copies are fresh nodes; nothing is shared between parents.
func broadcast(t tree.Tree) (tree.Tree, error) {
	leaves := t.Find(func(n *tree.Node) bool {
		return n.Tag.IsSignal() || n.Tag.IsMappingFamily()
	})
	groups := t.Find(func(n *tree.Node) bool { return n.Tag.IsGroup() })

	primaries := 0
	for _, n := range leaves {
		if n.Tag == tree.TagMappingFile || n.Tag == tree.TagMappingFileAccession {
			primaries++
		}
	}
	if primaries > 1 {
		return nil, &model.ValidationError{
			Pass:    "broadcast",
			Message: "only one mapping file can be given when linking all signals to all samples",
		}
	}

	children := leaves
	if len(groups) > 0 {
		children = make([]*tree.Node, 0, len(groups))
		for _, g := range groups {
			c := g.Clone()
			c.Children = cloneAll(leaves)
			children = append(children, c)
		}
	}

	out := make(tree.Tree, 0, len(t))
	for _, root := range t {
		r := &tree.Node{Tag: root.Tag, Value: root.Value, Metadata: root.Metadata}
		r.Children = cloneAll(children)
		out = append(out, r)
	}
	return out, nil
}

func cloneAll(nodes []*tree.Node) []*tree.Node {
	out := make([]*tree.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Clone())
	}
	return out
}
