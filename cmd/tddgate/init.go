package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/gilad12-coder/agentic-tdd/internal/config"
	"github.com/gilad12-coder/agentic-tdd/internal/constants"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a constraint profiles file",
		Long: `Generate a documented constraint_profiles.yaml with a default, a security
and a library profile. The thresholds of the default profile follow the
chosen strictness.

Examples:
  # Create constraint_profiles.yaml in the current directory
  tddgate init

  # Strict thresholds, custom path
  tddgate init --strictness strict --output specs/profiles.yaml

  # Also write a .tddgate.yaml pointing at the profiles
  tddgate init --with-config

  # Interactive setup wizard
  tddgate init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("output", "o", constants.DefaultProfilesFile,
		"Output path for the profiles file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing files")
	cmd.Flags().StringP("strictness", "s", string(config.StrictnessStandard),
		"Thresholds of the default profile: "+config.FormatStrictnessHelp())
	cmd.Flags().Bool("with-config", false,
		"Also write a "+constants.ConfigFileName+" next to the profiles file")
	cmd.Flags().BoolP("interactive", "i", false,
		"Interactive setup wizard")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	force, _ := cmd.Flags().GetBool("force")
	strictnessFlag, _ := cmd.Flags().GetString("strictness")
	withConfig, _ := cmd.Flags().GetBool("with-config")
	interactive, _ := cmd.Flags().GetBool("interactive")

	strictness := config.Strictness(strictnessFlag)
	if _, ok := config.GetStrictnessPresets()[strictness]; !ok {
		return fmt.Errorf("unknown strictness %q (expected one of: %s)", strictnessFlag, config.FormatStrictnessHelp())
	}

	if interactive {
		var err error
		strictness, outputPath, err = runInteractiveSetup(outputPath)
		if err != nil {
			return err
		}
	}

	configPath := filepath.Join(filepath.Dir(outputPath), constants.ConfigFileName)
	targets := []string{outputPath}
	if withConfig {
		targets = append(targets, configPath)
	}

	// Check if files exist
	if !force {
		for _, path := range targets {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists. Use --force to overwrite", path)
			}
		}
	}

	// Check if parent directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
	}

	if err := os.WriteFile(outputPath, []byte(config.GetProfilesTemplate(strictness)), 0o644); err != nil {
		return fmt.Errorf("failed to write profiles file: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", displayPath(outputPath))

	if withConfig {
		cfg := config.DefaultConfig()
		cfg.Profiles.Path = filepath.Base(outputPath)
		if err := config.SaveConfig(cfg, configPath); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		fmt.Fprintf(out, "Created %s\n", displayPath(configPath))
	}

	fmt.Fprintf(out, "\nRun '%s check --spec <spec.yaml>' to check a task.\n", constants.ToolName)
	return nil
}

// displayPath prefers the absolute path, falling back to the given one
func displayPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func runInteractiveSetup(defaultOutputPath string) (config.Strictness, string, error) {
	fmt.Println()
	fmt.Println("tddgate Profile Setup")
	fmt.Println("=====================")
	fmt.Println()

	presets := config.GetStrictnessPresets()
	strictnessLevels := []struct {
		Label       string
		Description string
		Value       config.Strictness
	}{
		{"Standard (recommended)", describePreset(presets[config.StrictnessStandard]), config.StrictnessStandard},
		{"Relaxed", describePreset(presets[config.StrictnessRelaxed]), config.StrictnessRelaxed},
		{"Strict", describePreset(presets[config.StrictnessStrict]), config.StrictnessStrict},
	}

	strictnessTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
		Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	strictnessPrompt := promptui.Select{
		Label:     "How strict should the default profile be?",
		Items:     strictnessLevels,
		Templates: strictnessTemplates,
	}

	idx, _, err := strictnessPrompt.Run()
	if err != nil {
		return "", "", fmt.Errorf("strictness selection cancelled: %w", err)
	}
	selected := strictnessLevels[idx].Value

	fmt.Println()

	outputPrompt := promptui.Prompt{
		Label:   "Output file path",
		Default: defaultOutputPath,
	}

	outputPath, err := outputPrompt.Run()
	if err != nil {
		return "", "", fmt.Errorf("output path input cancelled: %w", err)
	}
	if outputPath == "" {
		outputPath = defaultOutputPath
	}

	fmt.Println()
	return selected, outputPath, nil
}

func describePreset(p config.StrictnessPreset) string {
	return fmt.Sprintf("complexity <= %d, %d lines, %d params, %s",
		p.MaxCyclomaticComplexity, p.MaxLinesPerFunction, p.MaxParameters, p.MaxTimeComplexity)
}
