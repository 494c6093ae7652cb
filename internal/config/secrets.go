package config

import (
	"os"
	"path/filepath"

	"github.com/octandevelopment/mvnpub/util/common/fileutil"
	"gopkg.in/ini.v1"
)

// Environment variables consulted for secrets. They win over gradle.properties.
const (
	EnvUsername        = "MVNPUB_USERNAME"
	EnvPassword        = "MVNPUB_PASSWORD"
	EnvToken           = "MVNPUB_TOKEN"
	EnvSigningKey      = "MVNPUB_SIGNING_KEY"
	EnvSigningKeyID    = "MVNPUB_SIGNING_KEY_ID"
	EnvSigningPassword = "MVNPUB_SIGNING_PASSWORD"
	EnvGradleUserHome  = "GRADLE_USER_HOME"

	gradleProjectEnvPrefix = "ORG_GRADLE_PROJECT_"
)

// Secrets are resolved at invocation time and never written anywhere.
type Secrets struct {
	Username string
	Password string
	Token    string

	// SigningKey holds an armored private key given inline.
	SigningKey      string
	SigningKeyFile  string
	SigningKeyID    string
	SigningPassword string
}

// LoadSecrets collects repository credentials and signing material for the
// repository called repoName. Sources, lowest precedence first: values
// expanded into the project file, the project's gradle.properties, the user's
// gradle.properties, ORG_GRADLE_PROJECT_* variables, MVNPUB_* variables.
func LoadSecrets(cfg *Config) (*Secrets, error) {
	s := &Secrets{
		Username:       cfg.Repository.Username,
		Password:       cfg.Repository.Password,
		Token:          cfg.Repository.Token,
		SigningKeyFile: cfg.Resolve(cfg.Signing.KeyFile),
		SigningKeyID:   cfg.Signing.KeyID,
	}

	props, err := ini.LoadSources(ini.LoadOptions{
		Loose:               true,
		Insensitive:         false,
		IgnoreInlineComment: true,
	}, []byte{}, gradlePropertiesFiles(cfg.Dir)...)
	if err != nil {
		return nil, err
	}
	section := props.Section("")

	repo := cfg.Repository.Name
	lookup := func(key string) string {
		if v := os.Getenv(gradleProjectEnvPrefix + key); v != "" {
			return v
		}
		return section.Key(key).String()
	}

	overlay(&s.Username, lookup(repo+"Username"))
	overlay(&s.Password, lookup(repo+"Password"))
	overlay(&s.SigningKeyID, lookup("signing.keyId"))
	overlay(&s.SigningPassword, lookup("signing.password"))
	overlay(&s.SigningKey, lookup("signingKey"))
	if f := lookup("signing.secretKeyRingFile"); f != "" {
		s.SigningKeyFile = fileutil.ExpandHome(f)
	}

	overlay(&s.Username, os.Getenv(EnvUsername))
	overlay(&s.Password, os.Getenv(EnvPassword))
	overlay(&s.Token, os.Getenv(EnvToken))
	overlay(&s.SigningKey, os.Getenv(EnvSigningKey))
	overlay(&s.SigningKeyID, os.Getenv(EnvSigningKeyID))
	overlay(&s.SigningPassword, os.Getenv(EnvSigningPassword))

	return s, nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// gradlePropertiesFiles lists candidate files with the user's file last so
// that it overrides the project's, matching Gradle.
func gradlePropertiesFiles(projectDir string) []interface{} {
	files := []interface{}{filepath.Join(projectDir, "gradle.properties")}
	home := os.Getenv(EnvGradleUserHome)
	if home == "" {
		if userHome, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(userHome, ".gradle")
		}
	}
	if home != "" {
		files = append(files, filepath.Join(home, "gradle.properties"))
	}
	return files
}
