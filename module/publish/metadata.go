package publish

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	MetadataFileName  = "maven-metadata.xml"
	lastUpdatedLayout = "20060102150405"
)

// MavenMetadata is the artifact level maven-metadata.xml listing versions.
type MavenMetadata struct {
	XMLName    xml.Name        `xml:"metadata"`
	GroupID    string          `xml:"groupId"`
	ArtifactID string          `xml:"artifactId"`
	Versioning MavenVersioning `xml:"versioning"`
}

// MavenVersioning holds latest/release markers and the version list.
type MavenVersioning struct {
	Latest      string   `xml:"latest,omitempty"`
	Release     string   `xml:"release,omitempty"`
	Versions    []string `xml:"versions>version"`
	LastUpdated string   `xml:"lastUpdated,omitempty"`
}

// NewMavenMetadata is used when the repository has no metadata yet.
func NewMavenMetadata(coords Coordinates) *MavenMetadata {
	return &MavenMetadata{
		GroupID:    coords.Group,
		ArtifactID: coords.ArtifactID,
	}
}

// ParseMavenMetadata decodes a maven-metadata.xml document.
func ParseMavenMetadata(data []byte) (*MavenMetadata, error) {
	var m MavenMetadata
	if err := xml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", MetadataFileName, err)
	}
	return &m, nil
}

// AddVersion records version and recomputes latest and release.
func (m *MavenMetadata) AddVersion(version string, now time.Time) {
	found := false
	for _, v := range m.Versioning.Versions {
		if v == version {
			found = true
			break
		}
	}
	if !found {
		m.Versioning.Versions = append(m.Versioning.Versions, version)
	}

	m.Versioning.Latest = highestVersion(m.Versioning.Versions, version, true)
	m.Versioning.Release = highestVersion(m.Versioning.Versions, version, false)
	m.Versioning.LastUpdated = now.UTC().Format(lastUpdatedLayout)
}

// highestVersion picks the greatest version when every candidate parses as
// semver, and otherwise falls back to the version just published, which is
// what Maven's deploy plugin does.
func highestVersion(versions []string, published string, includeSnapshots bool) string {
	var candidates []string
	for _, v := range versions {
		if !includeSnapshots && strings.HasSuffix(strings.ToUpper(v), "-SNAPSHOT") {
			continue
		}
		candidates = append(candidates, v)
	}
	if len(candidates) == 0 {
		return ""
	}

	for _, v := range candidates {
		if !semver.IsValid("v" + v) {
			if !includeSnapshots && strings.HasSuffix(strings.ToUpper(published), "-SNAPSHOT") {
				return candidates[len(candidates)-1]
			}
			return published
		}
	}
	sorted := append([]string(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return semver.Compare("v"+sorted[i], "v"+sorted[j]) < 0
	})
	return sorted[len(sorted)-1]
}

// Marshal renders the document with an XML header. A document without
// coordinates or versions is rejected rather than published.
func (m *MavenMetadata) Marshal() ([]byte, error) {
	if m.GroupID == "" || m.ArtifactID == "" {
		return nil, fmt.Errorf("%s has no groupId or artifactId", MetadataFileName)
	}
	if len(m.Versioning.Versions) == 0 {
		return nil, fmt.Errorf("%s lists no versions", MetadataFileName)
	}
	body, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	out := append([]byte(xml.Header), body...)
	return append(out, '\n'), nil
}
