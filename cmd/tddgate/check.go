package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gilad12-coder/agentic-tdd/app"
	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/config"
	"github.com/gilad12-coder/agentic-tdd/internal/constants"
	"github.com/gilad12-coder/agentic-tdd/service"
)

type checkOptions struct {
	specPath        string
	profilesPath    string
	constraintsPath string
	functionName    string
	format          string
	json            bool
	details         bool
	verbose         bool
	configPath      string
	watch           bool
	noProgress      bool
}

func checkCmd() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Check Python files against a task's constraint profile",
		Long: `Check Python files against the primary and secondary gates of a task.

Constraints come either from a spec (its constraint_profile resolved in a
profiles file, with per-function overrides) or from a standalone constraints
file. Without paths, the target_files of the task are checked.

Exit codes:
  0 - All gates pass
  1 - Constraint violations found
  2 - Error (missing file, unparseable source, bad profile, etc.)

Examples:
  # Check the target files declared by a spec
  tddgate check --spec specs/tokenize.yaml

  # Check one function's override against explicit files
  tddgate check --spec spec.yaml --function parse_config src/

  # Use a standalone constraints file and JSON output
  tddgate check --constraints constraints.yaml --json

  # Re-run on every change
  tddgate check --spec spec.yaml --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args)
		},
		SilenceUsage:  true, // Don't print usage on errors (we handle our own output)
		SilenceErrors: true, // Don't print error messages (we handle our own output)
	}

	cmd.Flags().StringVar(&opts.specPath, "spec", "",
		"Task spec file (YAML)")
	cmd.Flags().StringVar(&opts.profilesPath, "profiles", "",
		"Constraint profiles file (default: constraint_profiles.yaml next to the spec)")
	cmd.Flags().StringVar(&opts.constraintsPath, "constraints", "",
		"Standalone constraints file, instead of --spec")
	cmd.Flags().StringVar(&opts.functionName, "function", "",
		"Resolve the constraints of this function")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "",
		"Output format: text, json, yaml")
	cmd.Flags().BoolVar(&opts.json, "json", false,
		"Output results as JSON")
	cmd.Flags().BoolVar(&opts.details, "details", false,
		"Show collected metrics in text output")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable debug logging")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to config file")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false,
		"Re-run the check when Python, spec or profile files change")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false,
		"Disable the progress bar")

	return cmd
}

func runCheck(cmd *cobra.Command, opts *checkOptions, args []string) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.verbose)

	req, cfg, err := buildCheckRequest(cmd, opts, args)
	if err != nil {
		return &CheckExitError{Code: constants.ExitError, Message: err.Error()}
	}

	pm := service.NewProgressManager(!opts.noProgress && cfg.Output.Progress && req.OutputFormat == domain.OutputFormatText)
	defer pm.Close()

	uc, err := newCheckUseCase(cfg, pm, logger)
	if err != nil {
		return &CheckExitError{Code: constants.ExitError, Message: err.Error()}
	}

	if !opts.watch {
		return runCheckOnce(cmd.Context(), uc, req)
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = runCheckOnce(ctx, uc, req)
	return watchAndRerun(ctx, watchTargets(req), logger, func() {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n[%s] change detected, re-checking\n", time.Now().Format(time.TimeOnly))
		if err := runCheckOnce(ctx, uc, req); err != nil {
			var exitErr *CheckExitError
			if errors.As(err, &exitErr) && exitErr.Message != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", exitErr.Message)
			}
		}
	})
}

// buildCheckRequest turns flags into a request, with unset values filled
// from the discovered configuration
func buildCheckRequest(cmd *cobra.Command, opts *checkOptions, args []string) (domain.CheckRequest, *config.Config, error) {
	req := domain.CheckRequest{
		Paths:           args,
		SpecPath:        opts.specPath,
		ProfilesPath:    opts.profilesPath,
		ConstraintsPath: opts.constraintsPath,
		FunctionName:    opts.functionName,
		ConfigPath:      opts.configPath,
		ShowDetails:     opts.details,
		OutputWriter:    cmd.OutOrStdout(),
	}
	switch {
	case opts.json:
		req.OutputFormat = domain.OutputFormatJSON
	case opts.format != "":
		req.OutputFormat = domain.OutputFormat(opts.format)
	}

	target := ""
	if len(args) > 0 {
		target = args[0]
	} else if opts.specPath != "" {
		target = filepath.Dir(opts.specPath)
	}

	loader := service.NewConfigurationLoader()
	cfg, err := loader.LoadConfig(opts.configPath, target)
	if err != nil {
		return req, nil, err
	}
	return loader.MergeRequest(cfg, req), cfg, nil
}

func newCheckUseCase(cfg *config.Config, pm domain.ProgressManager, logger *slog.Logger) (*app.CheckUseCase, error) {
	builder := app.NewCheckUseCaseBuilder().
		WithConstraintService(service.NewConstraintService(logger)).
		WithProfileLoader(service.NewProfileLoader(logger)).
		WithSpecLoader(service.NewSpecLoader().WithDefaultProfile(cfg.Profiles.Default)).
		WithFileReader(app.NewFileHelper().WithGitignore(cfg.Analysis.RespectGitignore)).
		WithExecutor(service.NewParallelExecutorWithProgress(&cfg.Performance, pm).WithLogger(logger)).
		WithLogger(logger)

	if cfg.Cache.Enabled {
		cache, err := service.NewResultCache(cfg.Cache.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		builder = builder.WithCache(cache)
	}
	return builder.Build()
}

func runCheckOnce(ctx context.Context, uc *app.CheckUseCase, req domain.CheckRequest) error {
	report, err := uc.Execute(contextOrBackground(ctx), req)
	if err != nil {
		return &CheckExitError{Code: constants.ExitError, Message: err.Error()}
	}
	if report.ExitCode != constants.ExitPassed {
		// The report is already printed
		return &CheckExitError{Code: report.ExitCode}
	}
	return nil
}

// watchTargets lists the paths whose changes trigger a re-run
func watchTargets(req domain.CheckRequest) []string {
	targets := append([]string{}, req.Paths...)
	for _, file := range []string{req.SpecPath, req.ProfilesPath, req.ConstraintsPath} {
		if file != "" {
			targets = append(targets, filepath.Dir(file))
		}
	}
	if len(targets) == 0 {
		targets = append(targets, ".")
	}
	return targets
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
