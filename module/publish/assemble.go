package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/octandevelopment/mvnpub/util/common/errors"
	"github.com/octandevelopment/mvnpub/util/common/fileutil"
	"github.com/rs/zerolog/log"
	"github.com/russross/blackfriday/v2"
)

// Builder produces the artifact set for a set of coordinates.
type Builder interface {
	Assemble(ctx context.Context, coords Coordinates) (*ArtifactSet, error)
}

// CommandRunner runs the external build command.
type CommandRunner interface {
	Run(ctx context.Context, dir string, argv []string) error
}

// ExecRunner runs commands with os/exec, streaming their output.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, dir string, argv []string) error {
	if len(argv) == 0 {
		return nil
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stderr
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}

// BuildSpec tells the Assembler where the compiled output, sources and
// docs live. Relative paths resolve against Dir.
type BuildSpec struct {
	Dir        string
	Command    []string
	SkipBuild  bool
	ClassesDir string
	SourceDirs []string
	DocsDir    string
	Readme     string
	Include    []string
	Exclude    []string
	Manifest   map[string]string
}

// Assembler packages the binary, sources and javadoc archives.
type Assembler struct {
	Spec    BuildSpec
	Project ProjectInfo
	Runner  CommandRunner
}

var _ Builder = (*Assembler)(nil)

// Assemble runs the build command and packages the three archives and the
// POM. Any failure is a BuildFailure.
func (a *Assembler) Assemble(ctx context.Context, coords Coordinates) (*ArtifactSet, error) {
	if err := coords.Validate(); err != nil {
		return nil, errors.NewBuildError("validate coordinates", err)
	}

	logger := log.With().Str("coordinates", coords.String()).Logger()

	if len(a.Spec.Command) > 0 && !a.Spec.SkipBuild {
		runner := a.Runner
		if runner == nil {
			runner = ExecRunner{}
		}
		start := time.Now()
		logger.Debug().Strs("command", a.Spec.Command).Msg("Running build command")
		if err := runner.Run(ctx, a.Spec.Dir, a.Spec.Command); err != nil {
			return nil, errors.NewBuildError("run build command", err)
		}
		logger.Debug().Dur("duration", time.Since(start)).Msg("Build command finished")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewBuildError("assemble", err)
	}

	filter, err := newFileFilter(a.Spec.Include, a.Spec.Exclude)
	if err != nil {
		return nil, errors.NewBuildError("compile patterns", err)
	}

	pom, err := GeneratePOM(coords, a.Project)
	if err != nil {
		return nil, errors.NewBuildError("generate pom", err)
	}

	binary, err := a.binaryJar(coords, pom, filter)
	if err != nil {
		return nil, errors.NewBuildError("package binary", err)
	}
	sources, err := a.sourcesJar(coords, filter)
	if err != nil {
		return nil, errors.NewBuildError("package sources", err)
	}
	docs, err := a.docsJar(coords)
	if err != nil {
		return nil, errors.NewBuildError("package docs", err)
	}

	set := &ArtifactSet{
		Coordinates: coords,
		Binary:      Artifact{Extension: jarExtension, Content: binary},
		Sources:     Artifact{Classifier: ClassifierSources, Extension: jarExtension, Content: sources},
		Docs:        Artifact{Classifier: ClassifierJavadoc, Extension: jarExtension, Content: docs},
		POM:         Artifact{Extension: pomExtension, Content: pom},
	}
	logger.Debug().Str("fingerprint", set.Fingerprint()).Msg("Artifact set assembled")
	return set, nil
}

func (a *Assembler) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.Spec.Dir, p)
}

func (a *Assembler) manifestAttrs(coords Coordinates) map[string]string {
	attrs := map[string]string{
		"Implementation-Title":   a.Project.Name,
		"Implementation-Version": coords.Version,
	}
	if attrs["Implementation-Title"] == "" {
		attrs["Implementation-Title"] = coords.ArtifactID
	}
	for k, v := range a.Spec.Manifest {
		attrs[k] = v
	}
	return attrs
}

func (a *Assembler) binaryJar(coords Coordinates, pom []byte, filter *fileFilter) ([]byte, error) {
	classesDir := a.resolve(a.Spec.ClassesDir)
	if !fileutil.IsDir(classesDir) {
		return nil, fmt.Errorf("compiled output directory %s not found", classesDir)
	}
	entries, err := collectDir(classesDir, filter)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("compiled output directory %s is empty", classesDir)
	}

	mavenDir := path.Join("META-INF/maven", coords.Group, coords.ArtifactID)
	kept := entries[:0]
	for _, e := range entries {
		if e.name == manifestPath || strings.HasPrefix(e.name, mavenDir+"/") {
			continue
		}
		kept = append(kept, e)
	}
	entries = append(kept,
		archiveEntry{name: manifestPath, data: manifest(a.manifestAttrs(coords))},
		archiveEntry{name: mavenDir + "/pom.xml", data: pom},
		archiveEntry{name: mavenDir + "/pom.properties", data: pomProperties(coords)},
	)
	return buildJar(entries)
}

func (a *Assembler) sourcesJar(coords Coordinates, filter *fileFilter) ([]byte, error) {
	entries := []archiveEntry{{name: manifestPath, data: manifest(nil)}}
	seen := map[string]string{}
	for _, dir := range a.Spec.SourceDirs {
		dir = a.resolve(dir)
		if !fileutil.IsDir(dir) {
			log.Debug().Str("dir", dir).Msg("Source directory missing, skipping")
			continue
		}
		found, err := collectDir(dir, filter)
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			if prev, ok := seen[e.name]; ok {
				return nil, fmt.Errorf("%s present in both %s and %s", e.name, prev, dir)
			}
			seen[e.name] = dir
		}
		entries = append(entries, found...)
	}
	return buildJar(entries)
}

// docsJar packages the generated docs directory, or when it does not exist
// renders the project README into index.html.
func (a *Assembler) docsJar(coords Coordinates) ([]byte, error) {
	entries := []archiveEntry{{name: manifestPath, data: manifest(nil)}}

	docsDir := a.resolve(a.Spec.DocsDir)
	if docsDir != "" && fileutil.IsDir(docsDir) {
		found, err := collectDir(docsDir, nil)
		if err != nil {
			return nil, err
		}
		return buildJar(append(entries, found...))
	}

	var body []byte
	if readme := a.resolve(a.Spec.Readme); readme != "" && fileutil.IsFile(readme) {
		md, err := os.ReadFile(readme)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", readme, err)
		}
		body = blackfriday.Run(md)
	} else {
		body = []byte("<h1>" + coords.ArtifactID + " " + coords.Version + "</h1>\n")
	}
	page := fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>%s %s</title></head>\n<body>\n%s</body>\n</html>\n",
		coords.ArtifactID, coords.Version, body)
	entries = append(entries, archiveEntry{name: "index.html", data: []byte(page)})
	return buildJar(entries)
}
