// Package cli implements the odm-import command line.
package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/me/odmimport/internal/config"
	"github.com/me/odmimport/internal/logging"
	"github.com/me/odmimport/internal/tree"
	"github.com/me/odmimport/pkg/model"
)

// options holds every flag of one command invocation.
type options struct {
	configPath string
	server     string
	token      string
	debug      bool
	logLevel   string
	logFormat  string
	noColor    bool

	study                 string
	template              string
	source                string
	linkAll               bool
	failOnExisting        bool
	continueOnLinkError   bool
	skipRegistrationCheck bool
	dumpTree              bool
	checkLinks            bool
	jobTimeout            time.Duration
	pollInterval          time.Duration

	tokens []tree.Token

	cfg    config.Config
	logger *slog.Logger
}

const longHelp = `odm-import imports a study, its samples, libraries or preparations and
their signal data (expression, variant, flow cytometry) into ODM and links
the resulting groups.

Entity flags are read in command-line order. Each --libraries and
--preparations attaches to the preceding --samples, each signal attaches
to the preceding --samples, --libraries or --preparations, and metadata
and attribute flags attach to the nearest preceding signal of their kind.

Example:
  odm-import -st s3://bucket/study.tsv \
    -sa s3://bucket/samples.tsv \
    -e s3://bucket/expression.gct -em s3://bucket/expression-metadata.tsv \
    -mpf s3://bucket/mapping.gtf

Short aliases: -st -sa -lb -pr -e -v -fc -em -vm -fcm -mpf -mpfa -mpfm -nfa -dc -ms`

// NewRootCmd creates the odm-import command. Arguments must go through
// ExpandAliases before Execute.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "odm-import",
		Short: "Import study data into ODM and link it",
		Long:  longHelp,
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &model.UsageError{Message: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/odm-import/config.yaml)")
	pf.StringVar(&opts.server, "server", "", "ODM server URL (or ODM_SERVER env)")
	pf.StringVar(&opts.token, "token", "", "ODM API token (or ODM_TOKEN env)")
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")
	pf.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	f := root.Flags()
	f.StringVar(&opts.study, "study", "", "Study file link or existing study accession (required)")
	f.StringVar(&opts.template, "template", "", "Template accession for a new study (or ODM_TEMPLATE env; default: server default)")
	f.StringVar(&opts.source, "source", "", "Transport of every link: S3, GCS, HTTP or FTP (default: from the link scheme)")
	f.BoolVar(&opts.linkAll, "link-all", false, "Link every signal to every sample, library and preparation")
	f.BoolVar(&opts.failOnExisting, "fail-on-existing", false, "Fail when a file was already imported instead of reusing it")
	f.BoolVar(&opts.continueOnLinkError, "continue-on-link-error", false, "Report linking errors and continue; exit 1 at the end")
	f.BoolVar(&opts.skipRegistrationCheck, "skip-registration-check", false, "Do not re-check that new libraries/preparations are registered in the study")
	f.BoolVar(&opts.dumpTree, "dump-tree", false, "Print the normalized import tree as YAML and exit")
	f.BoolVar(&opts.checkLinks, "check-links", false, "Check that every link is reachable before importing")
	f.DurationVar(&opts.jobTimeout, "job-timeout", 0, "Maximum time to wait for one import job (or ODM_JOB_TIMEOUT env)")
	f.DurationVar(&opts.pollInterval, "poll-interval", 0, "Interval between job status checks")
	registerTokenFlags(f, &opts.tokens)

	return root
}

// setup loads the configuration, applies flag overrides and builds the
// logger.
func (o *options) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if o.noColor {
		color.NoColor = true
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if flags.Changed("server") {
		cfg.Server = o.server
	}
	if flags.Changed("token") {
		cfg.Token = o.token
	}
	if flags.Changed("template") {
		cfg.Template = o.template
	}
	if flags.Changed("source") {
		cfg.Source = o.source
	}
	if flags.Changed("check-links") {
		cfg.CheckLinks = o.checkLinks
	}
	if flags.Changed("job-timeout") {
		cfg.JobTimeout = o.jobTimeout
	}
	if flags.Changed("poll-interval") {
		cfg.PollInterval = o.pollInterval
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if o.debug {
		cfg.LogLevel = "debug"
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return &model.UsageError{Tag: "log-level", Value: cfg.LogLevel, Message: err.Error()}
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return &model.UsageError{Tag: "log-format", Value: cfg.LogFormat, Message: err.Error()}
	}
	if cfg.PollInterval <= 0 || cfg.JobTimeout <= 0 {
		return &model.UsageError{Message: fmt.Sprintf("job timeout (%s) and poll interval (%s) must be positive", cfg.JobTimeout, cfg.PollInterval)}
	}

	o.cfg = cfg
	o.logger, _ = logging.WithRunID(logging.NewLoggerWithWriter(level, format, cmd.ErrOrStderr()))
	return nil
}
