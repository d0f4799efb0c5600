package tree

import (
	"strconv"

	"github.com/me/odmimport/pkg/model"
)

// Token is one tagged command-line value, in the order it was given.
type Token struct {
	Tag   Tag
	Value string
}

// State is the builder state between tokens: the forest built so far and
// the current attachment point.
//
// The cursor is moved only by samples, libraries and preparations tokens.
// Signal and mapping-file tokens are appended beneath it, and metadata and
// scalar tokens are resolved against its children.
type State struct {
	Roots  Tree
	Cursor *Node
}

// Build folds tokens into a tree, stopping at the first usage error.
func Build(tokens []Token) (Tree, error) {
	var st State
	for _, tok := range tokens {
		var err error
		st, err = st.Handle(tok)
		if err != nil {
			return nil, err
		}
	}
	return st.Roots, nil
}

// Handle applies one token and returns the resulting state.
func (s State) Handle(tok Token) (State, error) {
	if tok.Value == "" {
		return s, model.NewUsageError(string(tok.Tag), "", "a value is required")
	}

	switch {
	case tok.Tag == TagSamples:
		n := &Node{Tag: tok.Tag, Value: tok.Value}
		s.Roots = append(s.Roots, n)
		s.Cursor = n
		return s, nil

	case tok.Tag.IsGroup():
		return s.handleGroup(tok)

	case tok.Tag.IsSignal(), tok.Tag.IsMappingFamily():
		if s.Cursor == nil {
			return s, beforeSample(tok)
		}
		s.Cursor.Children = append(s.Cursor.Children, &Node{Tag: tok.Tag, Value: tok.Value})
		return s, nil

	case tok.Tag.IsScalar():
		return s.handleScalar(tok)
	}

	if base, ok := tok.Tag.MetadataBase(); ok {
		return s.handleMetadata(tok, base)
	}
	return s, model.NewUsageError(string(tok.Tag), tok.Value, "unknown tag")
}

func (s State) handleGroup(tok Token) (State, error) {
	n := &Node{Tag: tok.Tag, Value: tok.Value}

	if IsAccession(tok.Value) {
		host := &Node{Tag: TagSamples, Value: Implicit, Children: []*Node{n}}
		s.Roots = append(s.Roots, host)
		s.Cursor = n
		return s, nil
	}

	var parent *Node
	for i := len(s.Roots) - 1; i >= 0; i-- {
		if !s.Roots[i].IsImplicit() {
			parent = s.Roots[i]
			break
		}
	}
	if parent == nil {
		return s, beforeSample(tok)
	}
	parent.Children = append(parent.Children, n)
	s.Cursor = n
	return s, nil
}

func (s State) handleMetadata(tok Token, base Tag) (State, error) {
	target := s.nearestChild(func(n *Node) bool {
		return n.Tag == base && n.Metadata == ""
	})
	if target == nil {
		return s, model.NewUsageError(string(tok.Tag), tok.Value,
			"no preceding %s without metadata to attach it to", base)
	}
	target.Metadata = tok.Value
	return s, nil
}

func (s State) handleScalar(tok Token) (State, error) {
	var lacks func(*Node) bool
	var set func(*Node)

	switch tok.Tag {
	case TagNumberOfFeatureAttributes:
		nfa, err := strconv.Atoi(tok.Value)
		if err != nil || nfa < 0 {
			return s, model.NewUsageError(string(tok.Tag), tok.Value, "must be a non-negative integer")
		}
		lacks = func(n *Node) bool { return n.NumberOfFeatureAttributes == nil }
		set = func(n *Node) { n.NumberOfFeatureAttributes = &nfa }
	case TagDataClass:
		lacks = func(n *Node) bool { return n.DataClass == "" }
		set = func(n *Node) { n.DataClass = tok.Value }
	case TagMeasurementSeparator:
		lacks = func(n *Node) bool { return n.MeasurementSeparator == "" }
		set = func(n *Node) { n.MeasurementSeparator = tok.Value }
	}

	target := s.nearestChild(func(n *Node) bool {
		return n.Tag.IsSignal() && lacks(n)
	})
	if target == nil {
		return s, model.NewUsageError(string(tok.Tag), tok.Value,
			"no preceding signal file without %s to attach it to", tok.Tag)
	}
	set(target)
	return s, nil
}

// nearestChild searches the cursor's children from the most recent one.
func (s State) nearestChild(match func(*Node) bool) *Node {
	if s.Cursor == nil {
		return nil
	}
	for i := len(s.Cursor.Children) - 1; i >= 0; i-- {
		if match(s.Cursor.Children[i]) {
			return s.Cursor.Children[i]
		}
	}
	return nil
}

func beforeSample(tok Token) error {
	return model.NewUsageError(string(tok.Tag), tok.Value,
		"you provided %s before a sample file or accession", tok.Value)
}
