// Package importer executes a normalized import tree against the remote
// service: it resolves the study, imports every sample, library,
// preparation and signal file through import jobs, and links the resulting
// groups to each other.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/odmimport/internal/job"
	"github.com/me/odmimport/internal/tree"
	"github.com/me/odmimport/pkg/model"
	"github.com/me/odmimport/pkg/odm"
)

// ErrAlreadyExists is wrapped by the error returned when FailOnExisting is
// set and the service reports that a file was already imported.
var ErrAlreadyExists = errors.New("file was already imported")

// API is the part of the ODM client the importer uses.
type API interface {
	job.API
	Link(ctx context.Context, relation, sourceID, targetID string) error
	Study(ctx context.Context, accession string) error
	StudyGroups(ctx context.Context, study string, kind odm.ImportKind) ([]string, error)
	DefaultTemplate(ctx context.Context) (string, error)
	MappingFile(ctx context.Context, accession string) error
	UploadMappingFile(ctx context.Context, req odm.MappingFileRequest) (string, error)
}

// Reporter receives operator-facing messages.
type Reporter interface {
	Success(msg string)
	Info(msg string)
	Warning(msg string)
	Failure(headline, diagnostic string)
}

// Options controls one run.
type Options struct {
	// Study is a study link to import or an existing study accession.
	Study string

	// Template overrides the server's default template for a new study.
	Template string

	// Source overrides the transport inferred from each link's scheme.
	Source odm.Source

	// FailOnExisting aborts the run when an import job already exists.
	FailOnExisting bool

	// ContinueOnLinkError collects linking errors instead of aborting.
	ContinueOnLinkError bool

	// SkipRegistrationCheck disables re-querying the study's groups after
	// a new library or preparation group is linked.
	SkipRegistrationCheck bool
}

type linkKey struct {
	relation, source, target string
}

// Importer runs one import. It is not safe for concurrent use and should
// not be reused across runs.
type Importer struct {
	api    API
	runner *job.Runner
	report Reporter
	opts   Options
	logger *slog.Logger

	study    string
	sources  map[string]odm.Source
	groups   map[string]string
	signals  map[string]string
	linked   map[linkKey]bool
	failures []*model.LinkingError
}

// New creates an Importer. The runner's progress callback is routed to the
// reporter when it has none.
func New(api API, runner *job.Runner, report Reporter, opts Options, logger *slog.Logger) *Importer {
	im := &Importer{
		api:     api,
		runner:  runner,
		report:  report,
		opts:    opts,
		logger:  logger.With("component", "importer"),
		sources: make(map[string]odm.Source),
		groups:  make(map[string]string),
		signals: make(map[string]string),
		linked:  make(map[linkKey]bool),
	}
	if runner.Progress == nil {
		runner.Progress = im.progress
	}
	return im
}

func (im *Importer) progress(kind odm.ImportKind, jobID int64, elapsed time.Duration) {
	im.report.Info(fmt.Sprintf("still waiting for %s import job %d (%s elapsed)", kind, jobID, elapsed.Round(time.Second)))
}

// Run executes t. It returns nil only when every import and link
// succeeded; collected linking errors are returned as *model.LinkFailures.
func (im *Importer) Run(ctx context.Context, t tree.Tree) error {
	if err := im.resolveSources(t); err != nil {
		return err
	}

	study, err := im.resolveStudy(ctx)
	if err != nil {
		return err
	}
	im.study = study
	im.logger.Info("study resolved", "study", study)

	for _, root := range t {
		if err := im.importSample(ctx, root); err != nil {
			return err
		}
	}

	if len(im.failures) > 0 {
		return &model.LinkFailures{Errors: im.failures}
	}
	return nil
}

// resolveSources computes the transport of every link before anything is
// submitted, so an unknown scheme fails the run early.
func (im *Importer) resolveSources(t tree.Tree) error {
	links := t.Links()
	if !tree.IsAccession(im.opts.Study) {
		links = append(links, im.opts.Study)
	}
	for _, link := range links {
		if im.opts.Source != "" {
			im.sources[link] = im.opts.Source
			continue
		}
		src, err := odm.InferSource(link)
		if err != nil {
			return &model.UsageError{Message: err.Error() + "; use --source to set it"}
		}
		im.sources[link] = src
	}
	return nil
}

func (im *Importer) source(link string) odm.Source {
	if src, ok := im.sources[link]; ok {
		return src
	}
	return im.opts.Source
}

func (im *Importer) resolveStudy(ctx context.Context) (string, error) {
	study := im.opts.Study
	if tree.IsAccession(study) {
		if err := im.api.Study(ctx, study); err != nil {
			return "", &model.RemoteError{
				Op:         fmt.Sprintf("access to study %s", study),
				Diagnostic: odm.Diagnostic(err),
				Err:        err,
			}
		}
		return study, nil
	}

	template := im.opts.Template
	if template == "" {
		var err error
		if template, err = im.api.DefaultTemplate(ctx); err != nil {
			return "", &model.RemoteError{Op: "default template lookup", Diagnostic: odm.Diagnostic(err), Err: err}
		}
		im.logger.Debug("using default template", "template", template)
	}

	req := odm.ImportRequest{MetadataLink: study, TemplateID: template, Source: im.source(study)}
	res, err := im.runner.Run(ctx, odm.KindStudy, req)
	if err != nil {
		return "", err
	}
	if err := im.imported(odm.KindStudy, study, res); err != nil {
		return "", err
	}
	return res.Accession, nil
}
