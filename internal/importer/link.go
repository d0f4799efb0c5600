package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/me/odmimport/internal/job"
	"github.com/me/odmimport/pkg/model"
	"github.com/me/odmimport/pkg/odm"
)

// relationName builds the link endpoint name for two entity kinds, e.g.
// "expression_to_samples" or "expression_to_mapping_file".
func relationName(source, target string) string {
	return strings.ReplaceAll(source, " ", "-") + "_to_" + strings.NewReplacer(" ", "_", "-", "_").Replace(target)
}

// link relates source to target. It reports false when the link failed
// and the failure was collected instead of returned. Identical links are
// made once per run.
func (im *Importer) link(ctx context.Context, sourceKind, targetKind, source, target string) (bool, error) {
	relation := relationName(sourceKind, targetKind)
	key := linkKey{relation, source, target}
	if im.linked[key] {
		return true, nil
	}

	im.logger.Debug("linking", "relation", relation, "source", source, "target", target)
	if err := im.api.Link(ctx, relation, source, target); err != nil {
		return false, im.fail(&model.LinkingError{
			SourceKind: sourceKind,
			TargetKind: targetKind,
			SourceID:   source,
			TargetID:   target,
			Diagnostic: odm.Diagnostic(err),
			Err:        err,
		})
	}
	im.linked[key] = true
	return true, nil
}

// fail applies the failure policy to a linking error: returned as is in
// strict mode, reported and collected otherwise.
func (im *Importer) fail(le *model.LinkingError) error {
	if !im.opts.ContinueOnLinkError {
		return le
	}
	im.report.Failure(le.Headline(), le.Diagnostic)
	im.failures = append(im.failures, le)
	return nil
}

// imported reports the outcome of a completed import job.
func (im *Importer) imported(kind odm.ImportKind, link string, res *job.Result) error {
	id := res.ID(kind)
	if !res.Existing {
		if kind == odm.KindStudy {
			im.report.Success(fmt.Sprintf("study %s was added successfully", id))
		} else {
			im.report.Success(groupAdded(kind, id))
		}
		return nil
	}

	if im.opts.FailOnExisting {
		return &model.RemoteError{
			Op:  fmt.Sprintf("import of %s %s", kind, link),
			Err: fmt.Errorf("%w (job %d, accession %s)", ErrAlreadyExists, res.JobID, id),
		}
	}
	im.report.Warning(fmt.Sprintf("%s was already imported as %s %s, reusing it", link, kindNoun(kind), id))
	return nil
}

func kindNoun(kind odm.ImportKind) string {
	if kind == odm.KindFlowCytometry {
		return "flow cytometry"
	}
	return string(kind)
}

func kindSingular(kind odm.ImportKind) string {
	switch kind {
	case odm.KindSamples:
		return "sample"
	case odm.KindLibraries:
		return "library"
	case odm.KindPreparations:
		return "preparation"
	}
	return kindNoun(kind)
}

func groupAdded(kind odm.ImportKind, group string) string {
	return fmt.Sprintf("%s were added successfully (%s group accession is %s)", kindNoun(kind), kindSingular(kind), group)
}

func mappingFileAdded(acc string) string {
	return fmt.Sprintf("mapping file was added successfully (mapping file accession is %s)", acc)
}
