package publish

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	groupPattern    = regexp.MustCompile(`^[A-Za-z0-9_\-]+(\.[A-Za-z0-9_\-]+)*$`)
	artifactPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
	versionPattern  = regexp.MustCompile(`^[A-Za-z0-9_.\-+]+$`)
)

// Coordinates identify the published library. They are fixed for a run.
type Coordinates struct {
	Group      string `json:"groupId"`
	ArtifactID string `json:"artifactId"`
	Version    string `json:"version"`
}

func (c Coordinates) String() string {
	return c.Group + ":" + c.ArtifactID + ":" + c.Version
}

// Validate checks that the coordinates can be laid out in a Maven repository.
func (c Coordinates) Validate() error {
	if c.Group == "" {
		return fmt.Errorf("groupId cannot be empty")
	}
	if c.ArtifactID == "" {
		return fmt.Errorf("artifactId cannot be empty")
	}
	if c.Version == "" {
		return fmt.Errorf("version cannot be empty")
	}
	if !groupPattern.MatchString(c.Group) {
		return fmt.Errorf("invalid groupId %q", c.Group)
	}
	if !artifactPattern.MatchString(c.ArtifactID) || c.ArtifactID == "." || c.ArtifactID == ".." {
		return fmt.Errorf("invalid artifactId %q", c.ArtifactID)
	}
	if !versionPattern.MatchString(c.Version) || c.Version == "." || c.Version == ".." {
		return fmt.Errorf("invalid version %q", c.Version)
	}
	return nil
}

// IsSnapshot reports whether the version is a Maven snapshot.
func (c Coordinates) IsSnapshot() bool {
	return strings.HasSuffix(strings.ToUpper(c.Version), "-SNAPSHOT")
}

// ArtifactDir is the repository directory holding every version, e.g.
// me/thealgorithm476/osfetch.
func (c Coordinates) ArtifactDir() string {
	return path.Join(strings.ReplaceAll(c.Group, ".", "/"), c.ArtifactID)
}

// VersionDir is the repository directory holding one version's files.
func (c Coordinates) VersionDir() string {
	return path.Join(c.ArtifactDir(), c.Version)
}

// FileName returns artifactId-version[-classifier].ext
func (c Coordinates) FileName(classifier, ext string) string {
	name := c.ArtifactID + "-" + c.Version
	if classifier != "" {
		name += "-" + classifier
	}
	return name + "." + ext
}
