package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	perrors "github.com/octandevelopment/mvnpub/util/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	calls [][]string
	err   error
}

func (r *recordingRunner) Run(ctx context.Context, dir string, argv []string) error {
	r.calls = append(r.calls, argv)
	return r.err
}

func TestAssembleProducesThreeArtifacts(t *testing.T) {
	set := assembleFixture(t)

	artifacts := set.Artifacts()
	require.Len(t, artifacts, 3)

	var names []string
	for _, a := range artifacts {
		names = append(names, a.FileName(testCoords))
		assert.NotEmpty(t, a.Content)
	}
	assert.Equal(t, []string{
		"osfetch-2.0.1.jar",
		"osfetch-2.0.1-sources.jar",
		"osfetch-2.0.1-javadoc.jar",
	}, names)
	assert.Equal(t, "osfetch-2.0.1.pom", set.POM.FileName(testCoords))
	assert.Len(t, set.Files(), 4)
}

func TestAssembleArchiveContents(t *testing.T) {
	set := assembleFixture(t)

	binary, err := readJar(set.Binary.Content)
	require.NoError(t, err)
	assert.Contains(t, binary, "me/thealgorithm476/osfetch/OSFetch.class")
	assert.Contains(t, binary, manifestPath)
	assert.Equal(t, "artifactId=osfetch\ngroupId=me.thealgorithm476\nversion=2.0.1\n",
		string(binary["META-INF/maven/me.thealgorithm476/osfetch/pom.properties"]))
	assert.Contains(t, string(binary[manifestPath]), "Implementation-Version: 2.0.1")

	sources, err := readJar(set.Sources.Content)
	require.NoError(t, err)
	assert.Contains(t, sources, "me/thealgorithm476/osfetch/OS.java")
	assert.NotContains(t, sources, "me/thealgorithm476/osfetch/OS.class")

	docs, err := readJar(set.Docs.Content)
	require.NoError(t, err)
	assert.Contains(t, string(docs["index.html"]), "<h1>OSFetch</h1>")

	coords, err := ParsePOM(set.POM.Content)
	require.NoError(t, err)
	assert.NoError(t, CompareCoordinates(testCoords, coords))
}

func TestAssembleIsReproducible(t *testing.T) {
	dir := writeProject(t)
	first, err := newAssembler(dir).Assemble(context.Background(), testCoords)
	require.NoError(t, err)

	// Touch every input; timestamps must not leak into the archives.
	later := time.Now().Add(48 * time.Hour)
	require.NoError(t, filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		return os.Chtimes(p, later, later)
	}))

	second, err := newAssembler(dir).Assemble(context.Background(), testCoords)
	require.NoError(t, err)

	for i := range first.Files() {
		assert.Equal(t, first.Files()[i].Content, second.Files()[i].Content, first.Files()[i].FileName(testCoords))
	}
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestAssembleFilters(t *testing.T) {
	dir := writeProject(t)
	a := newAssembler(dir)
	a.Spec.Exclude = []string{"**/OS.*"}

	set, err := a.Assemble(context.Background(), testCoords)
	require.NoError(t, err)

	binary, err := readJar(set.Binary.Content)
	require.NoError(t, err)
	assert.NotContains(t, binary, "me/thealgorithm476/osfetch/OS.class")
	assert.Contains(t, binary, "me/thealgorithm476/osfetch/OSFetch.class")
}

func TestAssembleRunsBuildCommand(t *testing.T) {
	tests := []struct {
		name      string
		skipBuild bool
		runErr    error
		wantCalls int
		wantErr   bool
	}{
		{name: "runs command", wantCalls: 1},
		{name: "skip build", skipBuild: true, wantCalls: 0},
		{name: "command fails", runErr: errors.New("exit status 1"), wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &recordingRunner{err: tt.runErr}
			a := newAssembler(writeProject(t))
			a.Spec.Command = []string{"./gradlew", "classes"}
			a.Spec.SkipBuild = tt.skipBuild
			a.Runner = runner

			_, err := a.Assemble(context.Background(), testCoords)
			assert.Len(t, runner.calls, tt.wantCalls)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, perrors.KindBuild, perrors.KindOf(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAssembleFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Assembler)
		coords Coordinates
	}{
		{
			name:   "missing classes",
			mutate: func(a *Assembler) { a.Spec.ClassesDir = "build/missing" },
			coords: testCoords,
		},
		{
			name:   "invalid coordinates",
			mutate: func(a *Assembler) {},
			coords: Coordinates{Group: "me/evil", ArtifactID: "osfetch", Version: "1.0"},
		},
		{
			name:   "everything excluded",
			mutate: func(a *Assembler) { a.Spec.Exclude = []string{"**"} },
			coords: testCoords,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAssembler(writeProject(t))
			tt.mutate(a)
			_, err := a.Assemble(context.Background(), tt.coords)
			require.Error(t, err)
			assert.Equal(t, perrors.KindBuild, perrors.KindOf(err))
		})
	}
}

func TestCoordinates(t *testing.T) {
	tests := []struct {
		coords   Coordinates
		valid    bool
		snapshot bool
	}{
		{coords: testCoords, valid: true},
		{coords: Coordinates{Group: "com.example", ArtifactID: "lib", Version: "1.0-SNAPSHOT"}, valid: true, snapshot: true},
		{coords: Coordinates{Group: "", ArtifactID: "lib", Version: "1.0"}},
		{coords: Coordinates{Group: "com.example", ArtifactID: "../lib", Version: "1.0"}},
		{coords: Coordinates{Group: "com.example", ArtifactID: "lib", Version: ".."}},
	}
	for _, tt := range tests {
		t.Run(tt.coords.String(), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.coords.Validate() == nil)
			assert.Equal(t, tt.snapshot, tt.coords.IsSnapshot())
		})
	}

	assert.Equal(t, "me/thealgorithm476/osfetch/2.0.1", testCoords.VersionDir())
	assert.Equal(t, "osfetch-2.0.1-sources.jar", testCoords.FileName(ClassifierSources, "jar"))
}
