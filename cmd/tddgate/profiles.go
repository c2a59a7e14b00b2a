package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/constants"
	"github.com/gilad12-coder/agentic-tdd/service"
)

type profilesOptions struct {
	profilesPath string
	functionName string
	json         bool
	verbose      bool
}

func profilesCmd() *cobra.Command {
	opts := &profilesOptions{}

	cmd := &cobra.Command{
		Use:   "profiles [name]",
		Short: "List constraint profiles or show one resolved",
		Long: `List the profiles of a constraint profiles file, or show one profile
resolved into the primary and secondary gates a check would apply.

Examples:
  # List profiles
  tddgate profiles

  # Show the strict profile with the parse_config override applied
  tddgate profiles strict --function parse_config

  # Machine-readable output
  tddgate profiles strict --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfiles(cmd, opts, args)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&opts.profilesPath, "profiles", "p", constants.DefaultProfilesFile,
		"Constraint profiles file")
	cmd.Flags().StringVar(&opts.functionName, "function", "",
		"Apply this function's override when showing a profile")
	cmd.Flags().BoolVar(&opts.json, "json", false,
		"Output as JSON instead of YAML")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable debug logging")

	return cmd
}

func runProfiles(cmd *cobra.Command, opts *profilesOptions, args []string) error {
	loader := service.NewProfileLoader(newLogger(cmd.ErrOrStderr(), opts.verbose))
	table, err := loader.LoadProfiles(opts.profilesPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		writeProfileList(out, table)
		return nil
	}

	name := args[0]
	profile, ok := table.Profiles[name]
	if !ok {
		err := domain.NewProfileNotFoundError(name)
		if suggestions := service.SuggestProfiles(name, table); len(suggestions) > 0 {
			return fmt.Errorf("%w (did you mean: %s?)", err, strings.Join(suggestions, ", "))
		}
		return err
	}

	tc := &domain.TaskConstraints{Primary: profile.Primary, Secondary: profile.Secondary, Guidance: profile.Guidance}
	if opts.functionName != "" {
		spec := &domain.ParsedSpec{Name: opts.functionName, ConstraintProfile: name}
		if tc, err = loader.ResolveConstraints(spec, table, ""); err != nil {
			return err
		}
	}

	resolved := struct {
		Profile   string               `json:"profile" yaml:"profile"`
		Function  string               `json:"function,omitempty" yaml:"function,omitempty"`
		Primary   domain.ConstraintSet `json:"primary" yaml:"primary"`
		Secondary domain.ConstraintSet `json:"secondary" yaml:"secondary"`
		Guidance  []string             `json:"guidance" yaml:"guidance"`
	}{name, opts.functionName, tc.Primary, tc.Secondary, tc.Guidance}

	if opts.json {
		return service.WriteJSON(out, resolved)
	}
	return service.WriteYAML(out, resolved)
}

func writeProfileList(w io.Writer, table *domain.ProfileTable) {
	fmt.Fprintf(w, "%-20s %8s %10s %9s\n", "PROFILE", "PRIMARY", "SECONDARY", "GUIDANCE")
	for _, name := range table.Names() {
		p := table.Profiles[name]
		fmt.Fprintf(w, "%-20s %8d %10d %9d\n",
			name, len(p.Primary.ToMap()), len(p.Secondary.ToMap()), len(p.Guidance))
	}
	if len(table.Functions) > 0 {
		fmt.Fprintf(w, "\n%d function override(s)\n", len(table.Functions))
	}
}
