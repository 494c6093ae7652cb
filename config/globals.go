package config

// GlobalFlags contains common flags used across commands
type GlobalFlags struct {
	// ConfigPath points at the project file; empty means search the working directory.
	ConfigPath string
	Format     string

	// Command-specific configurations
	Publish PublishFlags
}

// PublishFlags holds overrides for the publish, assemble and verify commands.
type PublishFlags struct {
	DryRun        bool
	Version       string
	RepositoryURL string
	OutputDir     string
	KeyFile       string
	SkipBuild     bool

	// Yes skips the confirmation prompt before uploading.
	Yes bool
}

// Global is the shared instance of GlobalFlags
var Global = GlobalFlags{}
