package validate

import (
	"fmt"

	"github.com/me/odmimport/internal/tree"
	"github.com/me/odmimport/pkg/model"
)

// checkDuplicates rejects any literal value (link, accession or metadata
// link) given more than once anywhere in the tree.
func checkDuplicates(t tree.Tree) error {
	seen := make(map[string]tree.Tag)

	check := func(tag tree.Tag, value string) error {
		if prev, ok := seen[value]; ok {
			return &model.ValidationError{
				Pass:    "duplicates",
				Tag:     string(tag),
				Value:   value,
				Message: fmt.Sprintf("value was already given for --%s", prev),
			}
		}
		seen[value] = tag
		return nil
	}

	return t.Walk(func(n, _ *tree.Node) error {
		if !n.IsImplicit() {
			if err := check(n.Tag, n.Value); err != nil {
				return err
			}
		}
		if n.Metadata != "" {
			if base, ok := metadataTag(n.Tag); ok {
				return check(base, n.Metadata)
			}
			return check(n.Tag, n.Metadata)
		}
		return nil
	})
}

func metadataTag(t tree.Tag) (tree.Tag, bool) {
	switch t {
	case tree.TagExpression:
		return tree.TagExpressionMetadata, true
	case tree.TagVariant:
		return tree.TagVariantMetadata, true
	case tree.TagFlowCytometry:
		return tree.TagFlowCytometryMetadata, true
	}
	return "", false
}
