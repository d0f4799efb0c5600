package validate

import (
	"github.com/me/odmimport/internal/tree"
	"github.com/me/odmimport/pkg/model"
)

// mergeMappingFiles collapses the mapping-file tokens of each sibling group
// into one canonical mapping-file node placed last.
func mergeMappingFiles(t tree.Tree) error {
	return t.Walk(func(n, _ *tree.Node) error {
		merged, err := mergeSiblings(n.Children)
		if err != nil {
			return err
		}
		n.Children = merged
		return nil
	})
}

func mergeSiblings(children []*tree.Node) ([]*tree.Node, error) {
	var rest []*tree.Node
	var link, accession, metadata []*tree.Node
	hasExpression := false

	for _, c := range children {
		switch c.Tag {
		case tree.TagMappingFile:
			link = append(link, c)
		case tree.TagMappingFileAccession:
			accession = append(accession, c)
		case tree.TagMappingFileMetadata:
			metadata = append(metadata, c)
		default:
			if c.Tag == tree.TagExpression {
				hasExpression = true
			}
			rest = append(rest, c)
		}
	}

	if len(link)+len(accession)+len(metadata) == 0 {
		return children, nil
	}

	fail := func(n *tree.Node, msg string) error {
		e := &model.ValidationError{Pass: "mapping-files", Message: msg}
		if n != nil {
			e.Tag, e.Value = string(n.Tag), n.Value
		}
		return e
	}
	first := func() *tree.Node {
		for _, group := range [][]*tree.Node{link, accession, metadata} {
			if len(group) > 0 {
				return group[0]
			}
		}
		return nil
	}

	if !hasExpression {
		return nil, fail(first(), "mapping files can only be linked to expression data")
	}
	if len(link)+len(accession) == 0 {
		return nil, fail(first(), "mapping file metadata requires a mapping file link")
	}
	if len(link)+len(accession) > 1 {
		return nil, fail(first(), "only one mapping file or mapping file accession can be given per parent")
	}
	if len(metadata) > 1 {
		return nil, fail(metadata[1], "only one mapping file metadata can be given per parent")
	}
	if len(accession) > 0 && len(metadata) > 0 {
		return nil, fail(metadata[0], "mapping file metadata cannot be combined with a mapping file accession")
	}

	m := &tree.Node{Tag: tree.TagMappingFile}
	if len(link) > 0 {
		m.Value = link[0].Value
	} else {
		m.Value = accession[0].Value
	}
	if len(metadata) > 0 {
		m.Metadata = metadata[0].Value
	}
	return append(rest, m), nil
}
