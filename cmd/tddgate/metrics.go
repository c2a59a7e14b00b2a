package main

import (
	"github.com/spf13/cobra"

	"github.com/gilad12-coder/agentic-tdd/app"
	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/service"
)

type metricsOptions struct {
	sortBy     string
	format     string
	json       bool
	configPath string
	noProgress bool
}

func metricsCmd() *cobra.Command {
	opts := &metricsOptions{}

	cmd := &cobra.Command{
		Use:   "metrics [path...]",
		Short: "Show per-function metrics behind the threshold constraints",
		Long: `Measure every function of the given Python files: cyclomatic and cognitive
complexity, length, parameters, returns, locals, nesting and the estimated
time complexity. Use it to find the function that breaks a max_* constraint.

Examples:
  tddgate metrics src/
  tddgate metrics --sort cognitive src/parser.py
  tddgate metrics --json .`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetrics(cmd, opts, args)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&opts.sortBy, "sort", "s", string(domain.SortByComplexity),
		"Sort by: complexity, cognitive, lines, name, location")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "",
		"Output format: text, json, yaml")
	cmd.Flags().BoolVar(&opts.json, "json", false,
		"Output results as JSON")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to config file")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false,
		"Disable the progress bar")

	return cmd
}

func runMetrics(cmd *cobra.Command, opts *metricsOptions, args []string) error {
	cfg, err := service.NewConfigurationLoader().LoadConfig(opts.configPath, args[0])
	if err != nil {
		return err
	}

	format := domain.OutputFormat(cfg.Output.Format)
	switch {
	case opts.json:
		format = domain.OutputFormatJSON
	case opts.format != "":
		format = domain.OutputFormat(opts.format)
	}

	pm := service.NewProgressManager(!opts.noProgress && cfg.Output.Progress && format == domain.OutputFormatText)
	defer pm.Close()

	uc := app.NewMetricsUseCase(service.NewMetricsServiceWithProgress(pm)).
		WithFileHelper(app.NewFileHelper().WithGitignore(cfg.Analysis.RespectGitignore))

	_, err = uc.Execute(contextOrBackground(cmd.Context()), domain.MetricsRequest{
		Paths:        args,
		SortBy:       domain.SortCriteria(opts.sortBy),
		OutputFormat: format,
		OutputWriter: cmd.OutOrStdout(),
	}, cfg.Analysis.Recursive, cfg.Analysis.IncludePatterns, cfg.Analysis.ExcludePatterns)
	return err
}
