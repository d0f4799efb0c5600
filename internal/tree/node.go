package tree

import (
	"regexp"
	"strings"
)

// Implicit is the value of a synthetic samples node created to host a
// library or preparation accession given without a preceding sample.
const Implicit = "implicit"

var (
	accessionPattern = regexp.MustCompile(`^[A-Z]+[0-9]+$`)
	versionPattern   = regexp.MustCompile(`^(.+)\[([A-Z]+[0-9]+)\]$`)
)

// IsAccession reports whether v names an existing remote entity rather than
// a fetchable link.
func IsAccession(v string) bool {
	return accessionPattern.MatchString(v)
}

// SplitVersion separates a trailing "[ACC]" previous-version marker from a
// signal link. previous is empty when no marker is present.
func SplitVersion(v string) (link, previous string) {
	m := versionPattern.FindStringSubmatch(v)
	if m == nil {
		return v, ""
	}
	return m[1], m[2]
}

// Node is one entity in the import tree.
type Node struct {
	Tag      Tag    `yaml:"tag"`
	Value    string `yaml:"value"`
	Metadata string `yaml:"metadata,omitempty"`

	NumberOfFeatureAttributes *int   `yaml:"number-of-feature-attributes,omitempty"`
	DataClass                 string `yaml:"data-class,omitempty"`
	MeasurementSeparator      string `yaml:"measurement-separator,omitempty"`

	Children []*Node `yaml:"children,omitempty"`
}

// IsImplicit reports whether n is a synthetic sample placeholder.
func (n *Node) IsImplicit() bool {
	return n.Tag == TagSamples && n.Value == Implicit
}

// IsAccession reports whether n references an existing remote entity.
func (n *Node) IsAccession() bool {
	return IsAccession(n.Value)
}

// Clone returns a deep copy of n. The copy shares no nodes with n.
func (n *Node) Clone() *Node {
	c := *n
	if n.NumberOfFeatureAttributes != nil {
		v := *n.NumberOfFeatureAttributes
		c.NumberOfFeatureAttributes = &v
	}
	c.Children = nil
	for _, child := range n.Children {
		c.Children = append(c.Children, child.Clone())
	}
	return &c
}

// String renders n as "tag=value" for messages.
func (n *Node) String() string {
	var b strings.Builder
	b.WriteString(string(n.Tag))
	b.WriteString("=")
	b.WriteString(n.Value)
	return b.String()
}

// Tree is the ordered forest of top-level samples nodes.
type Tree []*Node

// Walk visits every node depth-first in insertion order. parent is nil for
// top-level nodes. Walking stops at the first error.
func (t Tree) Walk(fn func(n, parent *Node) error) error {
	var visit func(n, parent *Node) error
	visit = func(n, parent *Node) error {
		if err := fn(n, parent); err != nil {
			return err
		}
		for _, c := range n.Children {
			if err := visit(c, n); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range t {
		if err := visit(root, nil); err != nil {
			return err
		}
	}
	return nil
}

// Find returns every node accepted by match, depth-first.
func (t Tree) Find(match func(*Node) bool) []*Node {
	var out []*Node
	t.Walk(func(n, _ *Node) error {
		if match(n) {
			out = append(out, n)
		}
		return nil
	})
	return out
}

// Links returns every fetchable link in the tree (values and metadata),
// skipping accessions and implicit placeholders.
func (t Tree) Links() []string {
	var out []string
	t.Walk(func(n, _ *Node) error {
		if !n.IsImplicit() && !n.IsAccession() {
			link, _ := SplitVersion(n.Value)
			out = append(out, link)
		}
		if n.Metadata != "" {
			out = append(out, n.Metadata)
		}
		return nil
	})
	return out
}
