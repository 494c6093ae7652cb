package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileNames are the project file names looked up, in order, by Find.
var FileNames = []string{"mvnpub.yaml", "mvnpub.yml", "mvnpub.toml"}

const (
	DefaultRetries   = 3
	DefaultTimeout   = 60 * time.Second
	DefaultRetryWait = time.Second
	DefaultOutputDir = "build/mvnpub"
)

// Config represents the top-level project file
type Config struct {
	Project    ProjectConfig    `yaml:"project" toml:"project"`
	Build      BuildConfig      `yaml:"build" toml:"build"`
	Repository RepositoryConfig `yaml:"repository" toml:"repository"`
	Signing    SigningConfig    `yaml:"signing" toml:"signing"`
	Publish    PublishConfig    `yaml:"publish" toml:"publish"`

	// Dir is the directory the file was loaded from; relative paths resolve against it.
	Dir string `yaml:"-" toml:"-"`
}

// ProjectConfig holds the coordinates and the POM metadata.
type ProjectConfig struct {
	Group        string             `yaml:"group" toml:"group"`
	ArtifactID   string             `yaml:"artifactId" toml:"artifactId"`
	Version      string             `yaml:"version" toml:"version"`
	Name         string             `yaml:"name" toml:"name"`
	Description  string             `yaml:"description" toml:"description"`
	URL          string             `yaml:"url" toml:"url"`
	Licenses     []LicenseConfig    `yaml:"licenses" toml:"licenses"`
	Developers   []DeveloperConfig  `yaml:"developers" toml:"developers"`
	SCM          SCMConfig          `yaml:"scm" toml:"scm"`
	Dependencies []DependencyConfig `yaml:"dependencies" toml:"dependencies"`
}

type LicenseConfig struct {
	Name string `yaml:"name" toml:"name"`
	URL  string `yaml:"url" toml:"url"`
}

type DeveloperConfig struct {
	ID    string `yaml:"id" toml:"id"`
	Name  string `yaml:"name" toml:"name"`
	Email string `yaml:"email" toml:"email"`
}

type SCMConfig struct {
	URL                 string `yaml:"url" toml:"url"`
	Connection          string `yaml:"connection" toml:"connection"`
	DeveloperConnection string `yaml:"developerConnection" toml:"developerConnection"`
}

type DependencyConfig struct {
	Group      string `yaml:"group" toml:"group"`
	ArtifactID string `yaml:"artifactId" toml:"artifactId"`
	Version    string `yaml:"version" toml:"version"`
	Scope      string `yaml:"scope" toml:"scope"`
}

// BuildConfig describes how the three archives are produced.
type BuildConfig struct {
	// Command is run in Dir before packaging; empty skips compilation.
	Command    []string          `yaml:"command" toml:"command"`
	ClassesDir string            `yaml:"classesDir" toml:"classesDir"`
	SourceDirs []string          `yaml:"sourceDirs" toml:"sourceDirs"`
	DocsDir    string            `yaml:"docsDir" toml:"docsDir"`
	Readme     string            `yaml:"readme" toml:"readme"`
	Include    []string          `yaml:"include" toml:"include"`
	Exclude    []string          `yaml:"exclude" toml:"exclude"`
	Manifest   map[string]string `yaml:"manifest" toml:"manifest"`
}

// RepositoryConfig is the publish target. Username, Password and Token
// exist only so that literal secrets in the file can be rejected.
type RepositoryConfig struct {
	Name     string `yaml:"name" toml:"name"`
	URL      string `yaml:"url" toml:"url"`
	Auth     string `yaml:"auth" toml:"auth"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
	Token    string `yaml:"token" toml:"token"`
}

type SigningConfig struct {
	KeyFile string `yaml:"keyFile" toml:"keyFile"`
	KeyID   string `yaml:"keyId" toml:"keyId"`
}

type PublishConfig struct {
	Retries        int    `yaml:"retries" toml:"retries"`
	Timeout        string `yaml:"timeout" toml:"timeout"`
	RetryWait      string `yaml:"retryWait" toml:"retryWait"`
	OutputDir      string `yaml:"outputDir" toml:"outputDir"`
	AllowSnapshots bool   `yaml:"allowSnapshots" toml:"allowSnapshots"`
}

// Find returns the first project file present in dir.
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("no project file found in %s (looked for %s)", dir, strings.Join(FileNames, ", "))
}

// LoadConfig loads, expands, defaults and validates a project file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	format := strings.ToLower(filepath.Ext(path))
	literal, err := literalSecrets(format, data)
	if err != nil {
		return nil, err
	}

	// Expand environment variables in the file
	expanded := expandEnv(string(data))

	var config Config
	if err := decode(format, []byte(expanded), &config); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("error resolving config dir: %w", err)
	}
	config.Dir = abs

	config.applyDefaults()

	if err := validateConfig(&config, literal); err != nil {
		return nil, err
	}

	return &config, nil
}

// expandEnv expands ${VAR} and $VAR references
func expandEnv(content string) string {
	return os.Expand(content, func(key string) string {
		return os.Getenv(key)
	})
}

func decode(format string, data []byte, v any) error {
	switch format {
	case ".toml":
		if _, err := toml.Decode(string(data), v); err != nil {
			return fmt.Errorf("error parsing config file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("error parsing config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file type %q", format)
	}
	return nil
}

var envReference = regexp.MustCompile(`^\$(\{[A-Za-z_][A-Za-z0-9_]*\}|[A-Za-z_][A-Za-z0-9_]*)$`)

// literalSecrets decodes the unexpanded file and reports which credential
// keys hold anything other than a single environment reference.
func literalSecrets(format string, data []byte) ([]string, error) {
	var raw struct {
		Repository struct {
			Username string `yaml:"username" toml:"username"`
			Password string `yaml:"password" toml:"password"`
			Token    string `yaml:"token" toml:"token"`
		} `yaml:"repository" toml:"repository"`
	}
	if err := decode(format, data, &raw); err != nil {
		return nil, fmt.Errorf("%w (environment references must be quoted strings)", err)
	}

	var found []string
	for _, f := range []struct{ key, value string }{
		{"username", raw.Repository.Username},
		{"password", raw.Repository.Password},
		{"token", raw.Repository.Token},
	} {
		if f.value != "" && !envReference.MatchString(strings.TrimSpace(f.value)) {
			found = append(found, f.key)
		}
	}
	return found, nil
}

func (c *Config) applyDefaults() {
	if c.Project.Name == "" {
		c.Project.Name = c.Project.ArtifactID
	}
	if c.Repository.Auth == "" {
		c.Repository.Auth = "basic"
	}
	if c.Build.ClassesDir == "" {
		c.Build.ClassesDir = "build/classes/java/main"
	}
	if len(c.Build.SourceDirs) == 0 {
		c.Build.SourceDirs = []string{"src/main/java"}
	}
	if c.Build.DocsDir == "" {
		c.Build.DocsDir = "build/docs/javadoc"
	}
	if c.Build.Readme == "" {
		c.Build.Readme = "README.md"
	}
	if c.Publish.Retries <= 0 {
		c.Publish.Retries = DefaultRetries
	}
	if c.Publish.OutputDir == "" {
		c.Publish.OutputDir = DefaultOutputDir
	}
}

// validateConfig performs basic validation on the configuration
func validateConfig(config *Config, literal []string) error {
	if len(literal) > 0 {
		return fmt.Errorf("credentials must not be hard-coded in the project file (found %s); use environment variables or gradle.properties",
			strings.Join(literal, ", "))
	}

	if config.Project.Group == "" {
		return fmt.Errorf("project.group must be specified")
	}
	if config.Project.ArtifactID == "" {
		return fmt.Errorf("project.artifactId must be specified")
	}
	if config.Project.Version == "" {
		return fmt.Errorf("project.version must be specified")
	}

	if config.Repository.Name == "" {
		return fmt.Errorf("repository.name must be specified")
	}
	if config.Repository.URL == "" {
		return fmt.Errorf("repository.url must be specified")
	}
	u, err := url.Parse(config.Repository.URL)
	if err != nil {
		return fmt.Errorf("invalid repository.url: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "file":
	default:
		return fmt.Errorf("unsupported repository.url scheme %q, must be http, https or file", u.Scheme)
	}

	switch strings.ToLower(config.Repository.Auth) {
	case "basic", "bearer":
	default:
		return fmt.Errorf("invalid repository.auth: %s, must be 'basic' or 'bearer'", config.Repository.Auth)
	}

	if _, err := config.Publish.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := config.Publish.RetryWaitDuration(); err != nil {
		return err
	}

	return nil
}

// TimeoutDuration returns the per-request timeout.
func (p PublishConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("publish.timeout", p.Timeout, DefaultTimeout)
}

// RetryWaitDuration returns the minimum backoff between attempts.
func (p PublishConfig) RetryWaitDuration() (time.Duration, error) {
	return parseDuration("publish.retryWait", p.RetryWait, DefaultRetryWait)
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", field)
	}
	return d, nil
}

// Resolve makes p absolute against the project directory.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}
