package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/odmimport/internal/importer"
	"github.com/me/odmimport/internal/job"
	"github.com/me/odmimport/internal/linkcheck"
	"github.com/me/odmimport/internal/tree"
	"github.com/me/odmimport/internal/validate"
	"github.com/me/odmimport/pkg/model"
	"github.com/me/odmimport/pkg/odm"
)

// run builds and normalizes the import tree, then dumps it, or checks
// its links and executes it.
func (o *options) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := o.logger

	if o.study == "" {
		return &model.UsageError{Tag: "study", Message: "a study link or accession is required"}
	}
	if isFlag(cmd.Flags(), o.study) {
		return model.NewUsageError("study", "", "a value is required, got flag %s", o.study)
	}
	if len(o.tokens) == 0 && !o.dumpTree {
		return &model.UsageError{Message: "nothing to import: give at least one --samples, --libraries or --preparations"}
	}

	built, err := tree.Build(o.tokens)
	if err != nil {
		return err
	}
	logger.Debug("tree built", "tokens", len(o.tokens), "samples", len(built))

	normalized, err := validate.NewNormalizer(logger).Normalize(built, validate.Options{
		Study:   o.study,
		LinkAll: o.linkAll,
	})
	if err != nil {
		return err
	}

	if o.dumpTree {
		return tree.Dump(cmd.OutOrStdout(), o.study, normalized)
	}

	var source odm.Source
	if o.cfg.Source != "" {
		if source, err = odm.ParseSource(o.cfg.Source); err != nil {
			return &model.UsageError{Tag: "source", Value: o.cfg.Source, Message: err.Error()}
		}
	}

	if o.cfg.CheckLinks {
		links := normalized.Links()
		if !tree.IsAccession(o.study) {
			links = append(links, o.study)
		}
		checker := linkcheck.New(linkcheck.Config{
			Region:    o.cfg.S3.Region,
			Endpoint:  o.cfg.S3.Endpoint,
			PathStyle: o.cfg.S3.PathStyle,
		}, logger)
		if err := checker.Check(ctx, links); err != nil {
			return err
		}
	}

	client := odm.NewClient(odm.DefaultConfig().WithBaseURL(o.cfg.Server).WithToken(o.cfg.Token), logger)

	runner := job.NewRunner(client, logger)
	runner.PollInterval = o.cfg.PollInterval
	runner.Timeout = o.cfg.JobTimeout
	if o.cfg.ProgressAfter > 0 {
		runner.ProgressAfter = o.cfg.ProgressAfter
	}

	report := newReporter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	im := importer.New(client, runner, report, importer.Options{
		Study:                 o.study,
		Template:              o.cfg.Template,
		Source:                source,
		FailOnExisting:        o.failOnExisting,
		ContinueOnLinkError:   o.continueOnLinkError,
		SkipRegistrationCheck: o.skipRegistrationCheck,
	}, logger)

	logger.Info("import started", "server", o.cfg.Server, "study", o.study)
	if err := im.Run(ctx, normalized); err != nil {
		return err
	}
	report.Success(fmt.Sprintf("import of study %s finished", o.study))
	return nil
}
