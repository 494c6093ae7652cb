package cmdutils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/octandevelopment/mvnpub/config"
	pconfig "github.com/octandevelopment/mvnpub/internal/config"
	"github.com/octandevelopment/mvnpub/internal/terminal"
	"github.com/octandevelopment/mvnpub/module/publish"
	"github.com/octandevelopment/mvnpub/module/publish/repository"
	"github.com/octandevelopment/mvnpub/util/common/errors"
	"github.com/octandevelopment/mvnpub/util/common/progress"
	"github.com/octandevelopment/mvnpub/util/common/vcs"

	"github.com/rs/zerolog/log"
)

// Factory resolves configuration, secrets and collaborators for commands.
type Factory struct {
	Out    io.Writer
	ErrOut io.Writer

	// ReadSecret prompts for a secret; terminal.ReadSecret by default.
	ReadSecret func(w io.Writer, prompt string) (string, error)
	// Getwd locates the project file when --config is not given.
	Getwd func() (string, error)

	once    sync.Once
	cfg     *pconfig.Config
	cfgErr  error
	secrets *pconfig.Secrets
}

func NewFactory() *Factory {
	return &Factory{
		Out:        os.Stdout,
		ErrOut:     os.Stderr,
		ReadSecret: terminal.ReadSecret,
		Getwd:      os.Getwd,
	}
}

// Config loads the project file once and applies command line overrides.
func (f *Factory) Config() (*pconfig.Config, error) {
	f.once.Do(func() {
		f.cfg, f.cfgErr = f.loadConfig()
	})
	return f.cfg, f.cfgErr
}

func (f *Factory) loadConfig() (*pconfig.Config, error) {
	path := config.Global.ConfigPath
	if path == "" {
		wd, err := f.Getwd()
		if err != nil {
			return nil, errors.NewConfigError("locate project file", err)
		}
		path, err = pconfig.Find(wd)
		if err != nil {
			return nil, errors.NewConfigError("locate project file", err)
		}
	}
	log.Debug().Str("path", path).Msg("Loading project file")

	cfg, err := pconfig.LoadConfig(path)
	if err != nil {
		return nil, errors.NewConfigError("load "+path, err)
	}

	flags := config.Global.Publish
	if flags.Version != "" {
		cfg.Project.Version = flags.Version
	}
	if flags.RepositoryURL != "" {
		cfg.Repository.URL = flags.RepositoryURL
	}
	if flags.OutputDir != "" {
		cfg.Publish.OutputDir = flags.OutputDir
	}
	if flags.KeyFile != "" {
		cfg.Signing.KeyFile = flags.KeyFile
	}
	return cfg, nil
}

// Secrets resolves credentials and signing material.
func (f *Factory) Secrets(cfg *pconfig.Config) (*pconfig.Secrets, error) {
	if f.secrets != nil {
		return f.secrets, nil
	}
	s, err := pconfig.LoadSecrets(cfg)
	if err != nil {
		return nil, errors.NewConfigError("read gradle.properties", err)
	}
	if flag := config.Global.Publish.KeyFile; flag != "" {
		s.SigningKeyFile = cfg.Resolve(flag)
		s.SigningKey = ""
	}
	f.secrets = s
	return s, nil
}

// Coordinates returns the coordinates of the project.
func Coordinates(cfg *pconfig.Config) publish.Coordinates {
	return publish.Coordinates{
		Group:      cfg.Project.Group,
		ArtifactID: cfg.Project.ArtifactID,
		Version:    cfg.Project.Version,
	}
}

// Assembler maps the build section of the project file.
func (f *Factory) Assembler(cfg *pconfig.Config) *publish.Assembler {
	p := cfg.Project
	info := publish.ProjectInfo{
		Name:        p.Name,
		Description: p.Description,
		URL:         p.URL,
		SCM: publish.SCM{
			URL:                 p.SCM.URL,
			Connection:          p.SCM.Connection,
			DeveloperConnection: p.SCM.DeveloperConnection,
		},
	}
	for _, l := range p.Licenses {
		info.Licenses = append(info.Licenses, publish.License{Name: l.Name, URL: l.URL})
	}
	for _, d := range p.Developers {
		info.Developers = append(info.Developers, publish.Developer{ID: d.ID, Name: d.Name, Email: d.Email})
	}
	for _, d := range p.Dependencies {
		info.Dependencies = append(info.Dependencies, publish.Dependency{
			GroupID: d.Group, ArtifactID: d.ArtifactID, Version: d.Version, Scope: d.Scope,
		})
	}

	b := cfg.Build
	manifest := b.Manifest
	if git, err := vcs.Inspect(cfg.Dir); err == nil {
		applyGitInfo(&info, git)
		manifest = make(map[string]string, len(b.Manifest)+1)
		manifest["SCM-Revision"] = git.Hash
		for k, v := range b.Manifest {
			manifest[k] = v
		}
	} else {
		log.Debug().Err(err).Msg("No Git metadata for project")
	}

	return &publish.Assembler{
		Spec: publish.BuildSpec{
			Dir:        cfg.Dir,
			Command:    b.Command,
			SkipBuild:  config.Global.Publish.SkipBuild,
			ClassesDir: b.ClassesDir,
			SourceDirs: b.SourceDirs,
			DocsDir:    b.DocsDir,
			Readme:     b.Readme,
			Include:    b.Include,
			Exclude:    b.Exclude,
			Manifest:   manifest,
		},
		Project: info,
		Runner:  publish.ExecRunner{Stdout: f.ErrOut, Stderr: f.ErrOut},
	}
}

// applyGitInfo fills the SCM section from the origin remote where the
// project file leaves it empty.
func applyGitInfo(info *publish.ProjectInfo, git *vcs.GitInfo) {
	if git.URL == "" {
		return
	}
	if info.SCM.Connection == "" {
		info.SCM.Connection = git.Connection()
	}
	if info.SCM.DeveloperConnection == "" {
		info.SCM.DeveloperConnection = git.Connection()
	}
	if info.SCM.URL == "" {
		info.SCM.URL = git.BrowseURL()
	}
}

// SigningKey loads the signing key, prompting for its passphrase when the
// key is encrypted, none was configured and stdin is a terminal.
func (f *Factory) SigningKey(s *pconfig.Secrets) (*publish.SigningKey, error) {
	load := func(passphrase []byte) (*publish.SigningKey, error) {
		if s.SigningKey != "" {
			return publish.LoadSigningKey(strings.NewReader(s.SigningKey), s.SigningKeyID, passphrase)
		}
		return publish.ReadSigningKeyFile(s.SigningKeyFile, s.SigningKeyID, passphrase)
	}

	key, err := load([]byte(s.SigningPassword))
	if err == nil || !errors.Is(err, errors.ErrPassphraseRequired) || f.ReadSecret == nil {
		return key, err
	}

	passphrase, perr := f.ReadSecret(f.ErrOut, "Signing key passphrase: ")
	if perr != nil {
		return nil, errors.NewSigningError("read passphrase", fmt.Errorf("%w (set %s)", perr, pconfig.EnvSigningPassword))
	}
	s.SigningPassword = passphrase
	return load([]byte(passphrase))
}

// Target returns the publish target of the project.
func Target(cfg *pconfig.Config) publish.Target {
	return publish.Target{
		Name: cfg.Repository.Name,
		URL:  cfg.Repository.URL,
		Auth: cfg.Repository.Auth,
	}
}

// Credentials picks the repository credentials out of s.
func Credentials(s *pconfig.Secrets) publish.Credentials {
	return publish.Credentials{Username: s.Username, Password: s.Password, Token: s.Token}
}

// RepositoryOptions maps the publish section to transport options.
func RepositoryOptions(cfg *pconfig.Config, progressBars bool) (repository.Options, error) {
	timeout, err := cfg.Publish.TimeoutDuration()
	if err != nil {
		return repository.Options{}, errors.NewConfigError("publish.timeout", err)
	}
	wait, err := cfg.Publish.RetryWaitDuration()
	if err != nil {
		return repository.Options{}, errors.NewConfigError("publish.retryWait", err)
	}
	return repository.Options{
		Attempts:     cfg.Publish.Retries,
		RetryWaitMin: wait,
		RetryWaitMax: 30 * wait,
		Timeout:      timeout,
		Progress:     progressBars,
	}, nil
}

// Reporter returns the progress reporter. Progress always goes to stderr
// so stdout carries only the result.
func (f *Factory) Reporter() progress.Reporter {
	if config.Global.Format == "json" {
		return progress.NewWriterReporter(f.ErrOut)
	}
	return progress.NewAutoReporter(f.ErrOut)
}

// Interactive reports whether prompts and spinners may take over the
// terminal.
func (f *Factory) Interactive() bool {
	info := terminal.Detect(false, false)
	return info.IsTerminal && info.StdinIsTerminal && config.Global.Format != "json" && !terminal.IsCI()
}

// ProgressBars reports whether per-file upload bars should be drawn.
func (f *Factory) ProgressBars() bool {
	info := terminal.Detect(false, false)
	return info.IsTerminal && config.Global.Format != "json" && !terminal.IsCI()
}
