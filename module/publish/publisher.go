// Package publish assembles, signs and uploads a library release to a
// Maven layout repository.
package publish

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/octandevelopment/mvnpub/module/publish/repository"
	"github.com/octandevelopment/mvnpub/util/common"
	"github.com/octandevelopment/mvnpub/util/common/errors"
	"github.com/octandevelopment/mvnpub/util/common/progress"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type (
	Target      = repository.Target
	Credentials = repository.Credentials
)

const defaultRollbackTimeout = 2 * time.Minute

// Publisher drives one release through Idle, Assembling, Signing and
// Uploading to Done. Any failure moves it to Failed, after which every
// operation is rejected. A Publisher is used for a single run.
type Publisher struct {
	Builder     Builder
	Signer      *Signer
	Target      Target
	Credentials Credentials
	Options     repository.Options
	Reporter    progress.Reporter

	// Open creates the repository for Target; repository.New when nil.
	Open func(Target, Credentials, repository.Options) (repository.Repository, error)

	AllowSnapshots  bool
	DryRun          bool
	RollbackTimeout time.Duration
	Now             func() time.Time

	mu     sync.Mutex
	state  State
	runID  string
	logger zerolog.Logger
}

func (p *Publisher) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// RunID identifies the run in logs and in the receipt.
func (p *Publisher) RunID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initLocked()
	return p.runID
}

func (p *Publisher) initLocked() {
	if p.runID == "" {
		p.runID = uuid.NewString()
		p.logger = log.With().Str("run_id", p.runID).Logger()
	}
}

func (p *Publisher) transition(to State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initLocked()
	if !canTransition(p.state, to) {
		return transitionError(p.state, to)
	}
	p.logger.Debug().Str("from", p.state.String()).Str("to", to.String()).Msg("State change")
	p.state = to
	return nil
}

// fail moves to Failed and returns err unchanged.
func (p *Publisher) fail(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateFailed
	p.logger.Debug().Err(err).Str("kind", errors.KindOf(err).String()).Msg("Run failed")
	p.reporter().Error(err.Error())
	return err
}

func (p *Publisher) reporter() progress.Reporter {
	if p.Reporter == nil {
		return progress.NewNopReporter()
	}
	return p.Reporter
}

func (p *Publisher) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Publisher) checkSnapshot(coords Coordinates) error {
	if coords.IsSnapshot() && !p.AllowSnapshots {
		return errors.NewConfigError("check version",
			fmt.Errorf("%s is a snapshot version and %s is a release repository", coords.Version, p.Target.Name))
	}
	return nil
}

// Assemble builds the artifact set. It must be the first operation.
func (p *Publisher) Assemble(ctx context.Context, coords Coordinates) (*ArtifactSet, error) {
	if err := p.transition(StateAssembling); err != nil {
		return nil, err
	}
	if p.Builder == nil {
		return nil, p.fail(errors.NewBuildError("assemble", fmt.Errorf("no builder configured")))
	}

	p.reporter().Step("Assembling " + coords.String())
	start := time.Now()
	set, err := p.Builder.Assemble(ctx, coords)
	if err != nil {
		return nil, p.fail(err)
	}
	if n := len(set.Artifacts()); n != 3 {
		return nil, p.fail(errors.NewBuildError("assemble", fmt.Errorf("expected 3 artifacts, got %d", n)))
	}
	p.logger.Info().Str("stage", "assemble").Str("fingerprint", set.Fingerprint()).
		Dur("duration", time.Since(start)).Msg("Assembled")
	p.reporter().Success(fmt.Sprintf("Assembled %d artifacts", len(set.Artifacts())))
	return set, nil
}

// Sign signs every file of set. It may only follow Assemble.
func (p *Publisher) Sign(ctx context.Context, set *ArtifactSet) (*SignedArtifactSet, error) {
	if err := p.transition(StateSigning); err != nil {
		return nil, err
	}
	if p.Signer == nil {
		return nil, p.fail(errors.NewSigningError("sign", fmt.Errorf("no signing key configured")))
	}

	p.reporter().Step("Signing")
	signed, err := p.Signer.Sign(ctx, set)
	if err != nil {
		return nil, p.fail(err)
	}
	p.logger.Info().Str("stage", "sign").Str("key_id", signed.KeyID).Msg("Signed")
	p.reporter().Success(fmt.Sprintf("Signed %d files with key %s", len(signed.Signatures), signed.KeyID))
	return signed, nil
}

// Publish uploads signed to the target. Either every file becomes
// visible, or the uploaded ones are rolled back and an error is returned.
func (p *Publisher) Publish(ctx context.Context, signed *SignedArtifactSet) (*Receipt, error) {
	if err := p.transition(StateUploading); err != nil {
		return nil, err
	}
	started := p.now()
	receipt, err := p.upload(ctx, signed, started)
	if err != nil {
		return nil, p.fail(err)
	}
	if err := p.transition(StateDone); err != nil {
		return nil, p.fail(err)
	}
	return receipt, nil
}

// Run performs the whole pipeline. With DryRun set it stops after signing
// and returns a receipt listing what would have been uploaded.
func (p *Publisher) Run(ctx context.Context, coords Coordinates) (*Receipt, error) {
	started := p.now()
	p.RunID()
	p.reporter().Start("Publishing " + coords.String())
	defer p.reporter().End()

	if err := p.checkSnapshot(coords); err != nil {
		p.mu.Lock()
		p.state = StateFailed
		p.mu.Unlock()
		p.reporter().Error(err.Error())
		return nil, err
	}

	set, err := p.Assemble(ctx, coords)
	if err != nil {
		return nil, err
	}
	signed, err := p.Sign(ctx, set)
	if err != nil {
		return nil, err
	}

	if p.DryRun {
		items, err := p.plan(signed, nil)
		if err != nil {
			return nil, p.fail(err)
		}
		if err := p.transition(StateDone); err != nil {
			return nil, p.fail(err)
		}
		receipt := p.newReceipt(signed, started)
		receipt.DryRun = true
		for _, item := range items {
			receipt.Files = append(receipt.Files, item.uploaded())
		}
		receipt.Duration = p.now().Sub(started)
		p.reporter().Success(fmt.Sprintf("Dry run: %d files ready for %s", len(receipt.Files), p.Target.Name))
		return receipt, nil
	}

	receipt, err := p.Publish(ctx, signed)
	if err != nil {
		return nil, err
	}
	receipt.StartedAt = started
	receipt.Duration = p.now().Sub(started)
	p.logger.Info().Dur("duration", receipt.Duration).Int("files", len(receipt.Files)).Msg("Published")
	return receipt, nil
}

func (p *Publisher) newReceipt(signed *SignedArtifactSet, started time.Time) *Receipt {
	return &Receipt{
		RunID:       p.RunID(),
		Coordinates: signed.Coordinates,
		Repository:  p.Target.Name,
		URL:         p.Target.URL,
		KeyID:       signed.KeyID,
		Fingerprint: signed.Fingerprint(),
		StartedAt:   started,
	}
}

type uploadItem struct {
	path     string
	data     []byte
	previous []byte
	replace  bool
}

func (i uploadItem) uploaded() UploadedFile {
	return UploadedFile{Path: i.path, Size: int64(len(i.data)), SHA1: SHA1Hex(i.data)}
}

// existingMetadata is the artifact level metadata found on the target,
// kept so that a rollback can restore it.
type existingMetadata struct {
	doc       *MavenMetadata
	content   []byte
	checksums map[string][]byte
}

// plan lists every write in upload order: each file with its signature and
// their checksums, then the metadata last. meta is nil for a dry run.
func (p *Publisher) plan(signed *SignedArtifactSet, meta *existingMetadata) ([]uploadItem, error) {
	dir := signed.Coordinates.VersionDir()
	var items []uploadItem
	add := func(name string, data []byte) {
		items = append(items, uploadItem{path: path.Join(dir, name), data: data})
		for _, c := range checksumFiles(name, data) {
			items = append(items, uploadItem{path: path.Join(dir, c.FileName), data: c.Content})
		}
	}
	for _, f := range signed.Files() {
		name := f.FileName(signed.Coordinates)
		add(name, f.Content)
		add(name+SignatureExtension, signed.Signatures[name])
	}
	if meta == nil {
		return items, nil
	}

	metaPath := path.Join(signed.Coordinates.ArtifactDir(), MetadataFileName)
	doc, err := meta.doc.Marshal()
	if err != nil {
		return nil, errors.NewNetworkError("render metadata", metaPath, err)
	}
	items = append(items, uploadItem{path: metaPath, data: doc, previous: meta.content, replace: true})
	for _, c := range checksumFiles(MetadataFileName, doc) {
		cp := path.Join(signed.Coordinates.ArtifactDir(), c.FileName)
		items = append(items, uploadItem{path: cp, data: c.Content, previous: meta.checksums[cp], replace: true})
	}
	return items, nil
}

func (p *Publisher) openRepository() (repository.Repository, error) {
	open := p.Open
	if open == nil {
		open = repository.New
	}
	repo, err := open(p.Target, p.Credentials, p.Options)
	if err != nil {
		if errors.KindOf(err) != errors.KindUnknown {
			return nil, err
		}
		return nil, errors.NewConfigError("open repository", err)
	}
	return repo, nil
}

// readMetadata fetches the artifact level metadata and its checksums.
func (p *Publisher) readMetadata(ctx context.Context, repo repository.Repository, coords Coordinates) (*existingMetadata, error) {
	metaPath := path.Join(coords.ArtifactDir(), MetadataFileName)
	meta := &existingMetadata{checksums: map[string][]byte{}}

	content, err := repo.Get(ctx, metaPath)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		meta.doc = NewMavenMetadata(coords)
	case err != nil:
		return nil, err
	default:
		doc, err := ParseMavenMetadata(content)
		if err != nil {
			return nil, errors.NewNetworkError("read metadata", metaPath, err)
		}
		meta.doc = doc
		meta.content = content
		for _, alg := range checksumAlgorithms {
			cp := metaPath + "." + alg.ext
			sum, err := repo.Get(ctx, cp)
			if errors.Is(err, errors.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			meta.checksums[cp] = sum
		}
	}
	meta.doc.AddVersion(coords.Version, p.now())
	return meta, nil
}

func (p *Publisher) upload(ctx context.Context, signed *SignedArtifactSet, started time.Time) (*Receipt, error) {
	if signed == nil {
		return nil, errors.NewSigningError("publish", fmt.Errorf("nothing signed"))
	}
	for _, f := range signed.Files() {
		if _, ok := signed.Signature(f.FileName(signed.Coordinates)); !ok {
			return nil, errors.NewSigningError("publish", fmt.Errorf("%s is not signed", f.FileName(signed.Coordinates)))
		}
	}
	coords := signed.Coordinates
	if err := p.checkSnapshot(coords); err != nil {
		return nil, err
	}

	repo, err := p.openRepository()
	if err != nil {
		return nil, err
	}
	logger := p.logger.With().Str("stage", "upload").Str("repository", repo.Name()).Logger()

	meta, err := p.readMetadata(ctx, repo, coords)
	if err != nil {
		return nil, err
	}
	items, err := p.plan(signed, meta)
	if err != nil {
		return nil, err
	}
	if err := p.checkAbsent(ctx, repo, coords, items); err != nil {
		return nil, err
	}

	tx, err := repository.Begin(ctx, repo)
	if err != nil {
		return nil, err
	}

	p.reporter().Step(fmt.Sprintf("Uploading %d files to %s", len(items), repo.Name()))
	receipt := p.newReceipt(signed, started)
	receipt.URL = repo.URL()
	for i, item := range items {
		var err error
		if item.replace {
			err = tx.Replace(ctx, item.path, item.data, item.previous)
		} else {
			err = tx.Put(ctx, item.path, item.data)
		}
		if err != nil {
			logger.Error().Err(err).Str("path", item.path).Int("index", i).Msg("Upload failed")
			return nil, p.rollback(ctx, tx, err)
		}
		receipt.Files = append(receipt.Files, item.uploaded())
		logger.Debug().Str("path", item.path).Int("size", len(item.data)).Msg("Stored")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, p.rollback(ctx, tx, err)
	}
	receipt.Duration = p.now().Sub(started)
	p.reporter().Success(fmt.Sprintf("Uploaded %d files (%s)", len(receipt.Files), common.GetSize(receipt.TotalSize())))
	return receipt, nil
}

// checkAbsent fails with a conflict when any file of the version is
// already on the target. The POM goes first so an existing release is
// reported by its descriptor.
func (p *Publisher) checkAbsent(ctx context.Context, repo repository.Repository, coords Coordinates, items []uploadItem) error {
	pomPath := path.Join(coords.VersionDir(), coords.FileName("", pomExtension))
	paths := []string{pomPath}
	for _, item := range items {
		if !item.replace && item.path != pomPath {
			paths = append(paths, item.path)
		}
	}
	for _, candidate := range paths {
		exists, err := repo.Exists(ctx, candidate)
		if err != nil {
			return err
		}
		if exists {
			return errors.NewConflictError("check version", candidate,
				fmt.Errorf("%w: %s already exists in %s", errors.ErrConflict, coords, repo.Name()))
		}
	}
	return nil
}

// rollback aborts tx on a context that outlives ctx's cancellation and
// returns cause.
func (p *Publisher) rollback(ctx context.Context, tx repository.Transaction, cause error) error {
	timeout := p.RollbackTimeout
	if timeout <= 0 {
		timeout = defaultRollbackTimeout
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	undone := tx.Uploaded()
	p.reporter().Step(fmt.Sprintf("Rolling back %d files", len(undone)))
	if err := tx.Abort(rctx); err != nil {
		p.logger.Error().Err(err).Msg("Rollback incomplete")
		return fmt.Errorf("%w (rollback incomplete: %v)", cause, err)
	}
	p.logger.Warn().Int("files", len(undone)).Msg("Rolled back")
	return cause
}
