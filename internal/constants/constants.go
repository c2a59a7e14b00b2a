package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "tddgate"

	// ConfigFileName is the default config file name
	ConfigFileName = ".tddgate.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "TDDGATE"
)

// Profile file constants
const (
	// DefaultProfilesFile is the profile table looked up next to the spec
	DefaultProfilesFile = "constraint_profiles.yaml"

	// DefaultProfileName is used when a spec names no constraint profile
	DefaultProfileName = "default"

	// PythonFileExtension is the only extension collected for checking
	PythonFileExtension = ".py"
)

// Output format constants
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// Exit codes of the check command
const (
	ExitPassed     = 0
	ExitViolations = 1
	ExitError      = 2
)

// Result cache defaults
const (
	DefaultCacheSize = 512
)
