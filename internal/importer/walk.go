package importer

import (
	"context"
	"fmt"
	"slices"

	"github.com/me/odmimport/internal/tree"
	"github.com/me/odmimport/pkg/model"
	"github.com/me/odmimport/pkg/odm"
)

const kindStudy = "study"

// importSample resolves the sample group of a top-level node and walks
// its children.
func (im *Importer) importSample(ctx context.Context, n *tree.Node) error {
	var group string
	switch {
	case n.IsImplicit():
		// Hosts library or preparation accessions; there is no sample
		// group to link them to.
	case n.IsAccession():
		if len(n.Children) == 0 {
			im.report.Warning(fmt.Sprintf("samples %s were given without data to link, nothing to do", n.Value))
			return nil
		}
		group = n.Value
	default:
		req := odm.ImportRequest{MetadataLink: n.Value, Source: im.source(n.Value)}
		res, err := im.runner.Run(ctx, odm.KindSamples, req)
		if err != nil {
			return err
		}
		if err := im.imported(odm.KindSamples, n.Value, res); err != nil {
			return err
		}
		group = res.GroupAccession
		if _, err := im.link(ctx, tree.TagSamples.Noun(), kindStudy, group, im.study); err != nil {
			return err
		}
	}

	if slices.ContainsFunc(n.Children, func(c *tree.Node) bool { return c.Tag.IsGroup() }) {
		skip := make(map[string]bool)
		for _, c := range n.Children {
			if err := im.importGroup(ctx, c, group, skip); err != nil {
				return err
			}
		}
		return nil
	}
	return im.importSignals(ctx, n.Children, group, n.Tag)
}

// importGroup resolves a library or preparation group, links it to its
// sample group and walks its signals. skip holds the relations that already
// failed among the group's siblings; they are not attempted again.
func (im *Importer) importGroup(ctx context.Context, n *tree.Node, sampleGroup string, skip map[string]bool) error {
	kind := odm.ImportKind(n.Tag)
	group, created := n.Value, false

	if !n.IsAccession() {
		if cached, ok := im.groups[n.Value]; ok {
			group = cached
		} else {
			req := odm.ImportRequest{MetadataLink: n.Value, Source: im.source(n.Value)}
			res, err := im.runner.Run(ctx, kind, req)
			if err != nil {
				return err
			}
			if err := im.imported(kind, n.Value, res); err != nil {
				return err
			}
			group, created = res.GroupAccession, true
			im.groups[n.Value] = group
		}
	}

	relation := relationName(n.Tag.String(), tree.TagSamples.String())
	if sampleGroup != "" && !skip[relation] {
		ok, err := im.link(ctx, n.Tag.Noun(), tree.TagSamples.Noun(), group, sampleGroup)
		if err != nil {
			return err
		}
		if ok && created && !im.opts.SkipRegistrationCheck {
			if ok, err = im.checkRegistered(ctx, n.Tag, group, sampleGroup); err != nil {
				return err
			}
		}
		if !ok {
			skip[relation] = true
		}
	}

	if len(n.Children) == 0 {
		im.report.Warning(fmt.Sprintf("%s %s have no data to link", n.Tag.Noun(), group))
		return nil
	}
	return im.importSignals(ctx, n.Children, group, n.Tag)
}

// checkRegistered re-queries the study's groups to confirm the service has
// registered a freshly linked library or preparation group. It reports
// false when the group is missing and the failure was collected.
func (im *Importer) checkRegistered(ctx context.Context, tag tree.Tag, group, sampleGroup string) (bool, error) {
	groups, err := im.api.StudyGroups(ctx, im.study, odm.ImportKind(tag))
	if err != nil {
		return false, &model.RemoteError{
			Op:         fmt.Sprintf("listing %s of study %s", tag.Noun(), im.study),
			Diagnostic: odm.Diagnostic(err),
			Err:        err,
		}
	}
	if slices.Contains(groups, group) {
		return true, nil
	}
	im.logger.Warn("group not registered under study", "group", group, "study", im.study)
	return false, im.fail(&model.LinkingError{
		SourceKind: tag.Noun(),
		TargetKind: tree.TagSamples.Noun(),
		SourceID:   group,
		TargetID:   sampleGroup,
		Diagnostic: fmt.Sprintf("%s group %s is not registered in study %s", tag.Singular(), group, im.study),
	})
}

// importSignals imports the signal nodes of one sibling set, links them to
// parent and finally links the trailing mapping file, if any, to the
// expression groups of the set.
func (im *Importer) importSignals(ctx context.Context, children []*tree.Node, parent string, parentTag tree.Tag) error {
	var expressions []string
	skip := make(map[string]bool)

	for _, c := range children {
		switch {
		case c.Tag.IsSignal():
			group, err := im.importSignal(ctx, c)
			if err != nil {
				return err
			}
			if c.Tag == tree.TagExpression {
				expressions = append(expressions, group)
			}
			relation := relationName(c.Tag.String(), parentTag.String())
			if parent == "" || skip[relation] {
				continue
			}
			ok, err := im.link(ctx, c.Tag.Noun(), parentTag.Noun(), group, parent)
			if err != nil {
				return err
			}
			if !ok {
				skip[relation] = true
			}
		case c.Tag == tree.TagMappingFile:
			if err := im.importMappingFile(ctx, c, expressions); err != nil {
				return err
			}
		}
	}
	return nil
}

func (im *Importer) importSignal(ctx context.Context, n *tree.Node) (string, error) {
	if n.IsAccession() {
		return n.Value, nil
	}
	if group, ok := im.signals[n.Value]; ok {
		return group, nil
	}

	link, previous := tree.SplitVersion(n.Value)
	kind := odm.ImportKind(n.Tag)
	req := odm.ImportRequest{
		DataLink:                  link,
		MetadataLink:              n.Metadata,
		Source:                    im.source(link),
		PreviousVersion:           previous,
		NumberOfFeatureAttributes: n.NumberOfFeatureAttributes,
		DataClass:                 n.DataClass,
		MeasurementSeparator:      n.MeasurementSeparator,
	}
	res, err := im.runner.Run(ctx, kind, req)
	if err != nil {
		return "", err
	}
	if err := im.imported(kind, link, res); err != nil {
		return "", err
	}
	im.signals[n.Value] = res.GroupAccession
	return res.GroupAccession, nil
}

func (im *Importer) importMappingFile(ctx context.Context, n *tree.Node, expressions []string) error {
	mapping, err := im.resolveMappingFile(ctx, n)
	if err != nil {
		return err
	}
	for _, expr := range expressions {
		ok, err := im.link(ctx, tree.TagExpression.Noun(), tree.TagMappingFile.Noun(), expr, mapping)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return nil
}

func (im *Importer) resolveMappingFile(ctx context.Context, n *tree.Node) (string, error) {
	if n.IsAccession() {
		if err := im.api.MappingFile(ctx, n.Value); err != nil {
			return "", &model.RemoteError{
				Op:         fmt.Sprintf("lookup of mapping file %s", n.Value),
				Diagnostic: odm.Diagnostic(err),
				Err:        err,
			}
		}
		return n.Value, nil
	}
	if acc, ok := im.signals[n.Value]; ok {
		return acc, nil
	}

	req := odm.MappingFileRequest{DataLink: n.Value, MetadataLink: n.Metadata, Source: im.source(n.Value)}
	acc, err := im.api.UploadMappingFile(ctx, req)
	if err != nil {
		return "", &model.RemoteError{
			Op:         fmt.Sprintf("upload of mapping file %s", n.Value),
			Diagnostic: odm.Diagnostic(err),
			Err:        err,
		}
	}
	im.report.Success(mappingFileAdded(acc))
	im.signals[n.Value] = acc
	return acc, nil
}
