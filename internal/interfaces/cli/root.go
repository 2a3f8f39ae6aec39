// Package cli implements the metaborank command line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metaborank/metaborank/internal/application/prediction"
	"github.com/metaborank/metaborank/internal/config"
	"github.com/metaborank/metaborank/internal/domain/reaction"
	"github.com/metaborank/metaborank/internal/domain/rules"
	"github.com/metaborank/metaborank/internal/domain/scoring"
	"github.com/metaborank/metaborank/internal/infrastructure/monitoring"
	"github.com/metaborank/metaborank/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Verbose    bool
}

// appContext carries initialized dependencies through the command tree.
type appContext struct {
	cfg *config.Config
	log logging.Logger
}

type appContextKey struct{}

// NewRootCommand creates the root cobra command with global flags and all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "metaborank",
		Short: "MetaboRank predicts and ranks likely metabolites of small molecules",
		Long: "MetaboRank applies a table of biotransformation rules to input molecules,\n" +
			"annotates the sites of metabolism, scores each candidate metabolite with\n" +
			"per-subset probability models and reports a ranked prediction list.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./metaborank.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newPredictCmd(),
		newRulesCmd(),
		newServeCmd(),
	)
	return cmd
}

// persistentPreRun loads configuration, builds the logger and stores both in
// the command context for subcommands.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	logging.SetDefault(log)

	ctx := context.WithValue(cmd.Context(), appContextKey{}, &appContext{cfg: cfg, log: log})
	cmd.SetContext(ctx)
	return nil
}

func getAppContext(cmd *cobra.Command) *appContext {
	app, _ := cmd.Context().Value(appContextKey{}).(*appContext)
	if app == nil {
		return &appContext{cfg: &config.Config{}, log: logging.NewNopLogger()}
	}
	return app
}

// buildService assembles the full prediction pipeline from configuration.
// metrics may be nil for one-shot CLI runs.
func buildService(app *appContext, metrics *monitoring.PipelineMetrics) (*prediction.Service, error) {
	table, err := rules.LoadFile(app.cfg.Rules.Path)
	if err != nil {
		return nil, err
	}
	models, err := scoring.NewLocalModelProvider(app.cfg.Scoring.ModelDir, app.cfg.Scoring.Policy())
	if err != nil {
		return nil, err
	}

	enumerator := reaction.NewEnumerator(table, app.cfg.Pipeline.StrictSites, app.log)
	vectorizer := scoring.NewVectorizer(app.cfg.Scoring.Radius)
	scorer := scoring.NewScorer(vectorizer, models, app.log)
	return prediction.NewService(enumerator, scorer, app.log, metrics, app.cfg.Pipeline.Workers), nil
}

// Execute is the CLI entry point.
func Execute() error {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
		return err
	}
	return nil
}
