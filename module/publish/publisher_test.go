package publish

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/octandevelopment/mvnpub/module/publish/repository"
	"github.com/octandevelopment/mvnpub/util/common/errors"
	"github.com/octandevelopment/mvnpub/util/common/fileutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const versionPrefix = "releases/me/thealgorithm476/osfetch/2.0.1/"

// 4 files and their signatures, each with 4 checksums, plus the metadata
// and its checksums.
const filesPerRelease = 4*2*5 + 5

func newHTTPPublisher(t *testing.T, srv *mavenServer) *Publisher {
	t.Helper()
	signer, _ := newTestSigner(t)
	return &Publisher{
		Builder:     stubBuilder{set: assembleFixture(t)},
		Signer:      signer,
		Target:      Target{Name: "octanrepo", URL: srv.URL + "/releases", Auth: "basic"},
		Credentials: Credentials{Username: "deployer", Password: "s3cret"},
		Options: repository.Options{
			Attempts:     3,
			RetryWaitMin: time.Millisecond,
			RetryWaitMax: 5 * time.Millisecond,
			Timeout:      5 * time.Second,
		},
		Now: fixedNow,
	}
}

func versionFiles(paths []string) []string {
	var out []string
	for _, p := range paths {
		if strings.HasPrefix(p, versionPrefix) {
			out = append(out, p)
		}
	}
	return out
}

func TestPublishUploadsSignedRelease(t *testing.T) {
	srv := newMavenServer(t)
	p := newHTTPPublisher(t, srv)

	receipt, err := p.Run(context.Background(), testCoords)
	require.NoError(t, err)
	assert.Equal(t, StateDone, p.State())

	assert.Len(t, receipt.Files, filesPerRelease)
	assert.Len(t, srv.paths(), filesPerRelease)
	assert.Equal(t, p.RunID(), receipt.RunID)
	assert.Equal(t, testCoords, receipt.Coordinates)
	assert.NotEmpty(t, receipt.Fingerprint)
	assert.False(t, receipt.DryRun)

	jar, ok := srv.file(versionPrefix + "osfetch-2.0.1.jar")
	require.True(t, ok)
	sig, ok := srv.file(versionPrefix + "osfetch-2.0.1.jar.asc")
	require.True(t, ok)
	_, err = VerifySignature(p.Signer.Key.PublicKeyRing(), jar, sig)
	require.NoError(t, err)

	sha1, ok := srv.file(versionPrefix + "osfetch-2.0.1.jar.sha1")
	require.True(t, ok)
	assert.Equal(t, SHA1Hex(jar), string(sha1))

	meta, ok := srv.file("releases/me/thealgorithm476/osfetch/maven-metadata.xml")
	require.True(t, ok)
	doc, err := ParseMavenMetadata(meta)
	require.NoError(t, err)
	assert.Equal(t, []string{"2.0.1"}, doc.Versioning.Versions)
	assert.Equal(t, "2.0.1", doc.Versioning.Release)

	// The metadata goes last so the version is complete before it is listed.
	last := receipt.Files[len(receipt.Files)-5]
	assert.Equal(t, "me/thealgorithm476/osfetch/maven-metadata.xml", last.Path)
}

func TestPublishInvalidCredentials(t *testing.T) {
	srv := newMavenServer(t)
	p := newHTTPPublisher(t, srv)
	p.Credentials.Password = "wrong"

	_, err := p.Run(context.Background(), testCoords)
	require.Error(t, err)
	assert.Equal(t, errors.KindAuth, errors.KindOf(err))
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
	assert.Equal(t, StateFailed, p.State())
	assert.Zero(t, srv.putCount())
	assert.Empty(t, srv.paths())
}

func TestPublishExistingVersion(t *testing.T) {
	srv := newMavenServer(t)
	srv.seed(versionPrefix+"osfetch-2.0.1.pom", []byte("<project/>"))
	srv.seed(versionPrefix+"osfetch-2.0.1.jar", []byte("released"))
	p := newHTTPPublisher(t, srv)

	_, err := p.Run(context.Background(), testCoords)
	require.Error(t, err)
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
	assert.Zero(t, srv.putCount())

	jar, _ := srv.file(versionPrefix + "osfetch-2.0.1.jar")
	assert.Equal(t, "released", string(jar))
	assert.Len(t, srv.paths(), 2)
}

func TestPublishExistingArtifactWithoutPOM(t *testing.T) {
	srv := newMavenServer(t)
	srv.seed(versionPrefix+"osfetch-2.0.1-sources.jar", []byte("released"))
	p := newHTTPPublisher(t, srv)

	_, err := p.Run(context.Background(), testCoords)
	require.Error(t, err)
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
	assert.Contains(t, err.Error(), "osfetch-2.0.1-sources.jar")
	assert.Zero(t, srv.putCount())

	jar, ok := srv.file(versionPrefix + "osfetch-2.0.1-sources.jar")
	require.True(t, ok)
	assert.Equal(t, "released", string(jar))
}

func TestPublishRefusedOverwriteKeepsRemoteFile(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   errors.Kind
	}{
		{name: "bad request", status: http.StatusBadRequest, kind: errors.KindNetwork},
		{name: "forbidden", status: http.StatusForbidden, kind: errors.KindAuth},
		{name: "bad gateway", status: http.StatusBadGateway, kind: errors.KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newMavenServer(t)
			sources := versionPrefix + "osfetch-2.0.1-sources.jar"
			// Another deploy lands the sources jar after the checks passed.
			srv.onPut = func(n int) {
				if n == 1 {
					srv.seed(sources, []byte("theirs"))
				}
			}
			srv.failPut = func(path string, attempt int) int {
				if path == sources {
					return tt.status
				}
				return 0
			}
			p := newHTTPPublisher(t, srv)

			_, err := p.Run(context.Background(), testCoords)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))

			data, ok := srv.file(sources)
			require.True(t, ok, "a refused upload must not be rolled back")
			assert.Equal(t, "theirs", string(data))
			assert.Equal(t, []string{sources}, versionFiles(srv.paths()))
		})
	}
}

func TestPublishUnrenderableMetadata(t *testing.T) {
	srv := newMavenServer(t)
	metaPath := "releases/me/thealgorithm476/osfetch/maven-metadata.xml"
	broken := []byte("<metadata><versioning><versions><version>2.0.0</version></versions></versioning></metadata>")
	srv.seed(metaPath, broken)
	p := newHTTPPublisher(t, srv)

	_, err := p.Run(context.Background(), testCoords)
	require.Error(t, err)
	assert.Equal(t, errors.KindNetwork, errors.KindOf(err))
	assert.Contains(t, err.Error(), "groupId")
	assert.Zero(t, srv.putCount())

	meta, _ := srv.file(metaPath)
	assert.Equal(t, broken, meta)
}

func TestPublishCancelledRollsBack(t *testing.T) {
	srv := newMavenServer(t)
	p := newHTTPPublisher(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.onPut = func(n int) {
		if n == 1 {
			cancel()
		}
	}

	_, err := p.Run(ctx, testCoords)
	require.Error(t, err)
	assert.Equal(t, errors.KindCanceled, errors.KindOf(err))
	assert.Equal(t, StateFailed, p.State())
	assert.GreaterOrEqual(t, srv.putCount(), 1)
	assert.Empty(t, srv.paths(), "no file of the new version may remain")
}

func TestPublishFailureRestoresMetadata(t *testing.T) {
	srv := newMavenServer(t)
	old := NewMavenMetadata(testCoords)
	old.AddVersion("2.0.0", fixedNow())
	oldDoc, err := old.Marshal()
	require.NoError(t, err)
	metaPath := "releases/me/thealgorithm476/osfetch/maven-metadata.xml"
	srv.seed(metaPath, oldDoc)
	srv.seed(metaPath+".sha1", []byte(SHA1Hex(oldDoc)))

	srv.failPut = func(path string, attempt int) int {
		if strings.HasSuffix(path, "maven-metadata.xml.sha256") {
			return http.StatusInternalServerError
		}
		return 0
	}
	p := newHTTPPublisher(t, srv)

	_, err = p.Run(context.Background(), testCoords)
	require.Error(t, err)
	assert.Equal(t, errors.KindNetwork, errors.KindOf(err))

	assert.Empty(t, versionFiles(srv.paths()))
	meta, ok := srv.file(metaPath)
	require.True(t, ok)
	assert.Equal(t, oldDoc, meta)
	sum, ok := srv.file(metaPath + ".sha1")
	require.True(t, ok)
	assert.Equal(t, SHA1Hex(oldDoc), string(sum))
	_, ok = srv.file(metaPath + ".md5")
	assert.False(t, ok)
}

func TestPublishRetriesTransientFailure(t *testing.T) {
	srv := newMavenServer(t)
	srv.failPut = func(path string, attempt int) int {
		if strings.HasSuffix(path, "osfetch-2.0.1.jar") && attempt == 1 {
			return http.StatusServiceUnavailable
		}
		return 0
	}
	p := newHTTPPublisher(t, srv)

	receipt, err := p.Run(context.Background(), testCoords)
	require.NoError(t, err)
	assert.Len(t, receipt.Files, filesPerRelease)
	assert.Equal(t, 2, srv.attempts[versionPrefix+"osfetch-2.0.1.jar"])
}

func TestPublishGivesUpAfterRetries(t *testing.T) {
	srv := newMavenServer(t)
	srv.failPut = func(path string, attempt int) int {
		if strings.HasSuffix(path, "osfetch-2.0.1-sources.jar") {
			return http.StatusBadGateway
		}
		return 0
	}
	p := newHTTPPublisher(t, srv)

	_, err := p.Run(context.Background(), testCoords)
	require.Error(t, err)
	assert.Equal(t, errors.KindNetwork, errors.KindOf(err))
	assert.Equal(t, 3, srv.attempts[versionPrefix+"osfetch-2.0.1-sources.jar"])
	assert.Empty(t, srv.paths())
}

func newFilePublisher(t *testing.T, root string) *Publisher {
	t.Helper()
	signer, _ := newTestSigner(t)
	return &Publisher{
		Builder: stubBuilder{set: assembleFixture(t)},
		Signer:  signer,
		Target:  Target{Name: "local", URL: "file://" + filepath.ToSlash(root)},
		Now:     fixedNow,
	}
}

func TestPublishFileTarget(t *testing.T) {
	root := t.TempDir()
	p := newFilePublisher(t, root)

	receipt, err := p.Run(context.Background(), testCoords)
	require.NoError(t, err)
	assert.Len(t, receipt.Files, filesPerRelease)

	files, err := fileutil.ListFiles(root)
	require.NoError(t, err)
	assert.Len(t, files, filesPerRelease)
	assert.Contains(t, files, "me/thealgorithm476/osfetch/2.0.1/osfetch-2.0.1-javadoc.jar.asc")
	assert.NoDirExists(t, filepath.Join(root, ".mvnpub-staging"))

	// A second run of the same version conflicts.
	again := newFilePublisher(t, root)
	_, err = again.Run(context.Background(), testCoords)
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
}

// interruptingRepo cancels the run after the first staged write.
type interruptingRepo struct {
	*repository.FileRepository
	cancel func()
}

func (r interruptingRepo) Begin(ctx context.Context) (repository.Transaction, error) {
	tx, err := r.FileRepository.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &interruptingTx{Transaction: tx, cancel: r.cancel}, nil
}

type interruptingTx struct {
	repository.Transaction
	cancel func()
	puts   int
}

func (t *interruptingTx) Put(ctx context.Context, path string, data []byte) error {
	err := t.Transaction.Put(ctx, path, data)
	t.puts++
	if t.puts == 1 {
		t.cancel()
	}
	return err
}

func TestPublishFileTargetInterrupted(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newFilePublisher(t, root)
	p.Open = func(target Target, _ Credentials, _ repository.Options) (repository.Repository, error) {
		fr, err := repository.NewFileRepository(target.Name, root)
		if err != nil {
			return nil, err
		}
		return interruptingRepo{FileRepository: fr, cancel: cancel}, nil
	}

	_, err := p.Run(ctx, testCoords)
	require.Error(t, err)
	assert.Equal(t, errors.KindCanceled, errors.KindOf(err))

	files, err := fileutil.ListFiles(root)
	require.NoError(t, err)
	assert.Empty(t, files)
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPublisherRejectsIllegalTransitions(t *testing.T) {
	srv := newMavenServer(t)
	ctx := context.Background()

	p := newHTTPPublisher(t, srv)
	_, err := p.Sign(ctx, assembleFixture(t))
	assert.True(t, errors.Is(err, errors.ErrInvalidOperation))

	p = newHTTPPublisher(t, srv)
	set, err := p.Assemble(ctx, testCoords)
	require.NoError(t, err)
	_, err = p.Publish(ctx, &SignedArtifactSet{ArtifactSet: set})
	assert.True(t, errors.Is(err, errors.ErrInvalidOperation), "upload before signing")
	_, err = p.Assemble(ctx, testCoords)
	assert.True(t, errors.Is(err, errors.ErrInvalidOperation), "assemble twice")

	assert.Zero(t, srv.putCount())
}

func TestPublisherStopsAfterFailure(t *testing.T) {
	srv := newMavenServer(t)
	p := newHTTPPublisher(t, srv)
	p.Signer = nil

	_, err := p.Run(context.Background(), testCoords)
	assert.Equal(t, errors.KindSigning, errors.KindOf(err))
	assert.Equal(t, StateFailed, p.State())
	assert.Zero(t, srv.putCount())

	_, err = p.Assemble(context.Background(), testCoords)
	assert.True(t, errors.Is(err, errors.ErrInvalidOperation))
}

func TestPublisherBuildFailure(t *testing.T) {
	srv := newMavenServer(t)
	p := newHTTPPublisher(t, srv)
	p.Builder = stubBuilder{err: errors.NewBuildError("run build command", os.ErrNotExist)}

	_, err := p.Run(context.Background(), testCoords)
	assert.Equal(t, errors.KindBuild, errors.KindOf(err))
	assert.Equal(t, 10, errors.ExitCode(err))
	assert.Zero(t, srv.putCount())
}

func TestPublisherRejectsSnapshots(t *testing.T) {
	srv := newMavenServer(t)
	p := newHTTPPublisher(t, srv)

	coords := testCoords
	coords.Version = "2.1.0-SNAPSHOT"
	_, err := p.Run(context.Background(), coords)
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))
	assert.Equal(t, StateFailed, p.State())
}

func TestPublisherDryRun(t *testing.T) {
	signer, _ := newTestSigner(t)
	p := &Publisher{
		Builder: stubBuilder{set: assembleFixture(t)},
		Signer:  signer,
		Target:  Target{Name: "octanrepo", URL: "http://127.0.0.1:1/releases"},
		DryRun:  true,
		Now:     fixedNow,
	}

	receipt, err := p.Run(context.Background(), testCoords)
	require.NoError(t, err)
	assert.True(t, receipt.DryRun)
	assert.Equal(t, StateDone, p.State())
	assert.Len(t, receipt.Files, filesPerRelease-5)
}
