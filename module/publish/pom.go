package publish

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	pomNamespace      = "http://maven.apache.org/POM/4.0.0"
	pomXSI            = "http://www.w3.org/2001/XMLSchema-instance"
	pomSchemaLocation = "http://maven.apache.org/POM/4.0.0 https://maven.apache.org/xsd/maven-4.0.0.xsd"
)

// ProjectInfo is the descriptive metadata written into the POM.
type ProjectInfo struct {
	Name         string
	Description  string
	URL          string
	Licenses     []License
	Developers   []Developer
	SCM          SCM
	Dependencies []Dependency
}

type License struct {
	Name string `xml:"name,omitempty"`
	URL  string `xml:"url,omitempty"`
}

type Developer struct {
	ID    string `xml:"id,omitempty"`
	Name  string `xml:"name,omitempty"`
	Email string `xml:"email,omitempty"`
}

type SCM struct {
	URL                 string `xml:"url,omitempty"`
	Connection          string `xml:"connection,omitempty"`
	DeveloperConnection string `xml:"developerConnection,omitempty"`
}

type Dependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version,omitempty"`
	Scope      string `xml:"scope,omitempty"`
}

type pomProject struct {
	XMLName        xml.Name     `xml:"project"`
	Xmlns          string       `xml:"xmlns,attr"`
	XmlnsXSI       string       `xml:"xmlns:xsi,attr"`
	SchemaLocation string       `xml:"xsi:schemaLocation,attr"`
	ModelVersion   string       `xml:"modelVersion"`
	GroupID        string       `xml:"groupId"`
	ArtifactID     string       `xml:"artifactId"`
	Version        string       `xml:"version"`
	Packaging      string       `xml:"packaging"`
	Name           string       `xml:"name,omitempty"`
	Description    string       `xml:"description,omitempty"`
	URL            string       `xml:"url,omitempty"`
	Licenses       []License    `xml:"licenses>license,omitempty"`
	Developers     []Developer  `xml:"developers>developer,omitempty"`
	SCM            *SCM         `xml:"scm,omitempty"`
	Dependencies   []Dependency `xml:"dependencies>dependency,omitempty"`
}

// GeneratePOM renders the POM for coords and info.
func GeneratePOM(coords Coordinates, info ProjectInfo) ([]byte, error) {
	project := pomProject{
		Xmlns:          pomNamespace,
		XmlnsXSI:       pomXSI,
		SchemaLocation: pomSchemaLocation,
		ModelVersion:   "4.0.0",
		GroupID:        coords.Group,
		ArtifactID:     coords.ArtifactID,
		Version:        coords.Version,
		Packaging:      jarExtension,
		Name:           info.Name,
		Description:    info.Description,
		URL:            info.URL,
		Licenses:       info.Licenses,
		Developers:     info.Developers,
		Dependencies:   info.Dependencies,
	}
	if info.SCM != (SCM{}) {
		scm := info.SCM
		project.SCM = &scm
	}

	body, err := xml.MarshalIndent(project, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to generate POM: %w", err)
	}
	out := append([]byte(xml.Header), body...)
	return append(out, '\n'), nil
}

// pomXML is the subset of a POM needed to recover coordinates.
type pomXML struct {
	XMLName    xml.Name `xml:"project"`
	GroupID    string   `xml:"groupId"`
	ArtifactID string   `xml:"artifactId"`
	Version    string   `xml:"version"`
	Name       string   `xml:"name"`

	Parent *struct {
		GroupID string `xml:"groupId"`
		Version string `xml:"version"`
	} `xml:"parent"`
}

// ParsePOM reads coordinates from POM bytes, inheriting groupId and
// version from <parent> when absent.
func ParsePOM(data []byte) (Coordinates, error) {
	var pom pomXML
	if err := xml.Unmarshal(data, &pom); err != nil {
		return Coordinates{}, fmt.Errorf("invalid XML or not a Maven POM: %w", err)
	}

	groupID := strings.TrimSpace(pom.GroupID)
	if groupID == "" && pom.Parent != nil {
		groupID = strings.TrimSpace(pom.Parent.GroupID)
	}

	version := strings.TrimSpace(pom.Version)
	if version == "" && pom.Parent != nil {
		version = strings.TrimSpace(pom.Parent.Version)
	}

	artifactID := strings.TrimSpace(pom.ArtifactID)

	if groupID == "" {
		return Coordinates{}, fmt.Errorf("groupId not found in pom")
	}
	if artifactID == "" {
		return Coordinates{}, fmt.Errorf("artifactId not found in pom")
	}
	if version == "" {
		return Coordinates{}, fmt.Errorf("version not found in pom")
	}

	return Coordinates{Group: groupID, ArtifactID: artifactID, Version: version}, nil
}

// pomProperties renders META-INF/maven/<g>/<a>/pom.properties without the
// timestamp comment Maven writes, keeping archives reproducible.
func pomProperties(coords Coordinates) []byte {
	return []byte(fmt.Sprintf("artifactId=%s\ngroupId=%s\nversion=%s\n",
		coords.ArtifactID, coords.Group, coords.Version))
}

// CompareCoordinates reports the first field in which got differs from want.
func CompareCoordinates(want, got Coordinates) error {
	if want.Group != got.Group {
		return fmt.Errorf("groupId mismatch: expected=%q, found=%q", want.Group, got.Group)
	}
	if want.ArtifactID != got.ArtifactID {
		return fmt.Errorf("artifactId mismatch: expected=%q, found=%q", want.ArtifactID, got.ArtifactID)
	}
	if want.Version != got.Version {
		return fmt.Errorf("version mismatch: expected=%q, found=%q", want.Version, got.Version)
	}
	return nil
}
